package query

import "github.com/sakif/snippetbase/internal/model"

// Stats summarizes a collection for the header bar.
type Stats struct {
	Total       int            `json:"total"`
	Favorites   int            `json:"favorites"`
	TotalCopies int            `json:"totalCopies"`
	TotalViews  int            `json:"totalViews"`
	Categories  map[string]int `json:"categories"`
}

// ComputeStats counts over entities. Entities without a category are counted
// under "other".
func ComputeStats(entities []model.Entity) Stats {
	s := Stats{Total: len(entities), Categories: make(map[string]int)}
	for _, e := range entities {
		if e.IsFavorite {
			s.Favorites++
		}
		s.TotalCopies += e.TimesUsed
		s.TotalViews += e.ViewCount
		cat := e.Category
		if cat == "" {
			cat = "other"
		}
		s.Categories[cat]++
	}
	return s
}
