package query

import (
	"slices"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippetbase/internal/apperror"
	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/model"
)

func fixture() collection.Snapshot {
	day := func(n int) time.Time { return time.Date(2025, 1, 1+n, 0, 0, 0, 0, time.UTC) }
	return collection.Snapshot{
		Domain:  model.Snippets,
		Version: 1,
		State:   collection.Synced,
		Entities: []model.Entity{
			{ID: "a", Title: "PySpark window functions", Category: "pyspark", Content: "Window.partitionBy",
				Tags: []string{"window", "performance"}, TimesUsed: 5, ViewCount: 2, IsFavorite: true, CreatedAt: day(0)},
			{ID: "b", Title: "Broadcast join", Category: "pyspark", Content: "F.broadcast(df)",
				Description: "Avoid shuffles with broadcast", Tags: []string{"join"}, TimesUsed: 9, CreatedAt: day(1)},
			{ID: "c", Title: "dbt incremental model", Category: "dbt", Content: "is_incremental()",
				Tags: []string{"incremental"}, CreatedAt: day(2)},
			{ID: "d", Title: "airflow retries", Category: "airflow", Content: "retries=3",
				TimesUsed: 5, IsFavorite: true, CreatedAt: day(3)},
			{ID: "e", Title: "Kafka consumer lag", Content: "kafka-consumer-groups",
				TimesUsed: 1, ViewCount: 3, CreatedAt: day(4)},
		},
	}
}

func resultIDs(r Result) []string {
	out := make([]string, len(r.Items))
	for i, e := range r.Items {
		out[i] = e.ID
	}
	return out
}

func TestApply_SortOrders(t *testing.T) {
	f := New()
	got := map[string][]string{}
	for _, s := range []Sort{SortMostUsed, SortNewest, SortAlphabetical} {
		r, err := f.Apply(fixture(), Options{Sort: s})
		require.NoError(t, err)
		got[string(s)] = resultIDs(r)
	}

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.AssertJson(t, "sort_orders", got)
}

func TestApply_DefaultsToMostUsed(t *testing.T) {
	r, err := New().Apply(fixture(), Options{Text: "   "})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "d", "e", "c"}, resultIDs(r))
	assert.Nil(t, r.Scores)
}

func TestApply_SearchOverridesSort(t *testing.T) {
	r, err := New().Apply(fixture(), Options{Text: "broadcast", Sort: SortAlphabetical})
	require.NoError(t, err)

	require.NotEmpty(t, r.Items)
	assert.Equal(t, "b", r.Items[0].ID)
	assert.Contains(t, r.Scores, "b")
}

func TestApply_CategoryFilter(t *testing.T) {
	f := New()
	tests := []struct {
		category string
		want     []string
	}{
		{"", []string{"b", "a", "d", "e", "c"}},
		{"all", []string{"b", "a", "d", "e", "c"}},
		{"pyspark", []string{"b", "a"}},
		{"PySpark", []string{}},
		{"rust", []string{}},
		{"pyspark,dbt", []string{"b", "a", "c"}},
		{" airflow , pyspark ", []string{"b", "a", "d"}},
		{"dbt,all", []string{"b", "a", "d", "e", "c"}},
		{",", []string{"b", "a", "d", "e", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			r, err := f.Apply(fixture(), Options{Category: tt.category})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resultIDs(r))
		})
	}
}

func TestApply_TagCollectionFilter(t *testing.T) {
	r, err := New().Apply(fixture(), Options{Collection: "performance"})
	require.NoError(t, err)

	// a is tagged "performance"; b mentions "broadcast" in its title.
	assert.Equal(t, []string{"b", "a"}, resultIDs(r))
}

func TestApply_FiltersCommute(t *testing.T) {
	f := New()
	snap := fixture()

	both, err := f.Apply(snap, Options{Category: "pyspark", Collection: "performance", Text: "window"})
	require.NoError(t, err)
	byCategory, err := f.Apply(snap, Options{Category: "pyspark", Text: "window"})
	require.NoError(t, err)
	byCollection, err := f.Apply(snap, Options{Collection: "performance", Text: "window"})
	require.NoError(t, err)

	var intersection []string
	for _, id := range resultIDs(byCategory) {
		if slices.Contains(resultIDs(byCollection), id) {
			intersection = append(intersection, id)
		}
	}
	assert.Equal(t, intersection, resultIDs(both))
}

func TestApply_InvalidOptions(t *testing.T) {
	f := New()
	for name, opts := range map[string]Options{
		"sort":       {Sort: "random"},
		"collection": {Collection: "nope"},
		"perPage":    {PerPage: MaxPerPage + 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.Apply(fixture(), opts)
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, name, appErr.Field)
		})
	}
}

func TestApply_Pagination(t *testing.T) {
	f := New()

	r, err := f.Apply(fixture(), Options{PerPage: 2, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, resultIDs(r))
	assert.Equal(t, 3, r.Pages)
	assert.Equal(t, 5, r.Total)
	assert.Equal(t, []int{1, 2, 3}, r.PageNumbers)

	r, err = f.Apply(fixture(), Options{PerPage: 2, Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 3, r.Page)

	r, err = f.Apply(fixture(), Options{PerPage: 2, Page: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Page)
	assert.Equal(t, []string{"b", "a"}, resultIDs(r))

	r, err = f.Apply(collection.Snapshot{Domain: model.Snippets}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Pages)
	assert.NotNil(t, r.Items)
	assert.Empty(t, r.Items)
}

func TestPageNumbers(t *testing.T) {
	tests := []struct {
		page, pages int
		want        []int
	}{
		{1, 1, nil},
		{1, 3, []int{1, 2, 3}},
		{2, 5, []int{1, 2, 3, 4, 5}},
		{1, 10, []int{1, 2, 3, 4, 5}},
		{3, 10, []int{1, 2, 3, 4, 5}},
		{5, 10, []int{3, 4, 5, 6, 7}},
		{8, 10, []int{6, 7, 8, 9, 10}},
		{10, 10, []int{6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pageNumbers(tt.page, tt.pages), "page %d of %d", tt.page, tt.pages)
	}
}

func TestIndex_CachedByVersion(t *testing.T) {
	f := New()
	snap := fixture()

	first := f.Index(snap)
	assert.Same(t, first, f.Index(snap))

	snap.Version++
	snap.Entities = snap.Entities[:2]
	rebuilt := f.Index(snap)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, 2, rebuilt.Len())
}

func TestStats(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.AssertJson(t, "stats", New().Stats(fixture()))
}

func TestCollections(t *testing.T) {
	summaries := New().Collections(fixture())
	require.Len(t, summaries, len(DefaultCollections))

	counts := map[string]int{}
	for _, s := range summaries {
		counts[s.ID] = s.Count
	}
	assert.Equal(t, 2, counts["performance"])
	assert.Equal(t, 1, counts["architecture"])
	assert.Equal(t, 0, counts["genai"])
}
