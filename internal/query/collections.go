package query

import (
	"slices"
	"strings"

	"github.com/sakif/snippetbase/internal/model"
)

// TagCollection is a curated, tag-defined slice of a collection.
type TagCollection struct {
	ID          string   `json:"id"`
	Emoji       string   `json:"emoji"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Color       string   `json:"color"`
	Tags        []string `json:"tags"`
}

// Matches reports whether e carries one of the collection's tags, or mentions
// one in its title or description. Comparison ignores case.
func (tc TagCollection) Matches(e model.Entity) bool {
	title := strings.ToLower(e.Title)
	desc := strings.ToLower(e.Description)
	for _, tag := range tc.Tags {
		tag = strings.ToLower(tag)
		if slices.ContainsFunc(e.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			return true
		}
		if strings.Contains(title, tag) || strings.Contains(desc, tag) {
			return true
		}
	}
	return false
}

var DefaultCollections = []TagCollection{
	{
		ID: "performance", Emoji: "⚡", Title: "Performance Tuning",
		Description: "Optimize your Spark jobs", Color: "#FF6B6B",
		Tags: []string{"performance", "optimization", "caching", "partitioning", "broadcast"},
	},
	{
		ID: "architecture", Emoji: "🏗️", Title: "Medallion Architecture",
		Description: "Bronze/Silver/Gold patterns", Color: "#4ECDC4",
		Tags: []string{"delta", "incremental", "pipeline", "bronze", "silver", "gold", "medallion"},
	},
	{
		ID: "quality", Emoji: "🎯", Title: "Data Quality",
		Description: "Validation & testing", Color: "#FFE66D",
		Tags: []string{"validation", "testing", "quality", "great-expectations", "pandera", "profiling"},
	},
	{
		ID: "genai", Emoji: "✨", Title: "GenAI & RAG",
		Description: "LangChain, OpenAI, vectors", Color: "#A8E6CF",
		Tags: []string{"langchain", "rag", "openai", "embeddings", "vector", "gpt", "llm"},
	},
	{
		ID: "mlops", Emoji: "🚀", Title: "MLOps",
		Description: "Deploy & monitor models", Color: "#95E1D3",
		Tags: []string{"mlflow", "deployment", "monitoring", "fastapi", "docker"},
	},
	{
		ID: "ml", Emoji: "🤖", Title: "Machine Learning",
		Description: "sklearn, training, evaluation", Color: "#F38181",
		Tags: []string{"sklearn", "ml", "model", "training", "cross-validation", "feature"},
	},
}

// CollectionSummary is a TagCollection with the number of entities it matches.
type CollectionSummary struct {
	TagCollection
	Count int `json:"count"`
}

func summarize(cols []TagCollection, entities []model.Entity) []CollectionSummary {
	out := make([]CollectionSummary, len(cols))
	for i, tc := range cols {
		out[i].TagCollection = tc
		for _, e := range entities {
			if tc.Matches(e) {
				out[i].Count++
			}
		}
	}
	return out
}
