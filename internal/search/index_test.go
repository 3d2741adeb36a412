package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippetbase/internal/model"
)

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestSearch_Relevance(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "1", Title: "PySpark Window Function"},
		{ID: "2", Title: "SQL Join"},
	})

	results := idx.Search("pyspark")
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].ID)
	for i, r := range results {
		if r.ID == "2" {
			assert.Greater(t, results[0].Score, results[i].Score)
		}
	}
}

func TestSearch_SynonymSurfacesPrefixMatch(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "1", Title: "PySpark Window Function"},
		{ID: "2", Title: "SQL Join"},
	})

	assert.Contains(t, ids(idx.Search("py")), "1")
}

func TestSearch_SynonymExpandsToLongForm(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "k", Title: "Kubernetes pod logs"},
		{ID: "x", Title: "Kafka consumer lag"},
	})

	assert.Equal(t, []string{"k"}, ids(idx.Search("k8s")))
}

func TestSearch_BlankQuery(t *testing.T) {
	idx := Build([]model.Entity{{ID: "1", Title: "anything"}})

	assert.Empty(t, idx.Search(""))
	assert.Empty(t, idx.Search("   \t"))
}

func TestSearch_FieldBoosts(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "content", Title: "Ranking rows", Content: "ROW_NUMBER() OVER window"},
		{ID: "title", Title: "Window ranking", Content: "ROW_NUMBER()"},
	})

	assert.Equal(t, []string{"title", "content"}, ids(idx.Search("window")))
}

func TestSearch_Fuzzy(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "1", Title: "Broadcast join"},
		{ID: "2", Title: "Window function"},
	})

	assert.Equal(t, []string{"2"}, ids(idx.Search("windw")))
	assert.Empty(t, Build([]model.Entity{{ID: "1", Title: "Window"}}, WithFuzzy(0)).Search("windw"))
}

func TestSearch_ExactMatchRanksFirst(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "fuzzy", Title: "dart"},
		{ID: "prefix", Title: "partitions"},
		{ID: "exact", Title: "part"},
	}, WithSynonyms(nil))

	results := idx.Search("part")
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].ID)
	assert.ElementsMatch(t, []string{"exact", "prefix", "fuzzy"}, ids(results))
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "b", Title: "Airflow DAG"},
		{ID: "a", Title: "Airflow DAG"},
		{ID: "c", Title: "Airflow DAG"},
	})

	assert.Equal(t, []string{"b", "a", "c"}, ids(idx.Search("airflow")))
}

func TestSearch_TermsCombineWithOR(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "both", Title: "Kafka consumer lag"},
		{ID: "one", Title: "Kafka topics"},
		{ID: "none", Title: "dbt macros"},
	}, WithSynonyms(nil))

	assert.Equal(t, []string{"both", "one"}, ids(idx.Search("kafka lag")))
}

func TestSearch_MatchesTagsAndAccents(t *testing.T) {
	idx := Build([]model.Entity{
		{ID: "1", Title: "Café menu parser", Tags: []string{"Regex"}},
	})

	results := idx.Search("cafe regex")
	require.Len(t, results, 1)
	assert.Equal(t, []string{"cafe", "regex"}, results[0].Terms)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"select", "row", "number", "over", "k8s"}, Tokenize("SELECT row_number() OVER -- k8s"))
	assert.Equal(t, []string{"naive", "resume"}, Tokenize("Naïve Résumé"))
	assert.Empty(t, Tokenize("  ... "))
}
