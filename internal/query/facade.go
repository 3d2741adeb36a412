// Package query turns a collection snapshot and the user's view options into
// the page of entities to show.
//
// The pipeline is: text search (or sort) → category filter → tag collection
// filter → pagination. A non-blank search orders by relevance and the Sort
// option is ignored.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sakif/snippetbase/internal/apperror"
	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/metrics"
	"github.com/sakif/snippetbase/internal/model"
	"github.com/sakif/snippetbase/internal/search"
)

type Sort string

const (
	SortMostUsed     Sort = "mostUsed"
	SortNewest       Sort = "newest"
	SortAlphabetical Sort = "alphabetical"
)

// ParseSort accepts the three sort keys; empty means SortMostUsed.
func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case "":
		return SortMostUsed, nil
	case SortMostUsed, SortNewest, SortAlphabetical:
		return Sort(s), nil
	}
	return "", apperror.ValidationFailed("sort",
		fmt.Sprintf("unknown sort %q (want mostUsed, newest or alphabetical)", s))
}

// Options are the view settings. Zero values mean: no search, mostUsed, all
// categories, no tag collection, first page, DefaultPerPage.
type Options struct {
	Text       string
	// Category is one category or a comma-separated set of them. Matching is
	// exact; "all" anywhere in the set disables the filter.
	Category   string
	Collection string
	Sort       Sort
	Page       int
	PerPage    int
}

type Result struct {
	Items       []model.Entity `json:"items"`
	Total       int            `json:"total"`
	Page        int            `json:"page"`
	PerPage     int            `json:"perPage"`
	Pages       int            `json:"pages"`
	PageNumbers []int          `json:"pageNumbers,omitempty"`
	// Scores holds search relevance by id when Text was set.
	Scores map[string]float64 `json:"scores,omitempty"`
}

type cachedIndex struct {
	version uint64
	index   *search.Index
}

// Facade caches one search index per domain, rebuilt whenever the snapshot
// version moves.
type Facade struct {
	searchOpts  []search.Option
	collections []TagCollection

	mu    sync.Mutex
	cache map[model.Domain]cachedIndex
}

// New creates a Facade. opts are passed to every search.Build.
func New(opts ...search.Option) *Facade {
	return &Facade{
		searchOpts:  opts,
		collections: DefaultCollections,
		cache:       make(map[model.Domain]cachedIndex),
	}
}

// Collections returns the curated tag collections with their match counts.
func (f *Facade) Collections(snap collection.Snapshot) []CollectionSummary {
	return summarize(f.collections, snap.Entities)
}

// Index returns the search index for snap, building it if the cached one is
// for another version.
func (f *Facade) Index(snap collection.Snapshot) *search.Index {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cache[snap.Domain]; ok && c.version == snap.Version {
		return c.index
	}
	idx := search.Build(snap.Entities, f.searchOpts...)
	f.cache[snap.Domain] = cachedIndex{version: snap.Version, index: idx}
	metrics.IndexBuilds.WithLabelValues(string(snap.Domain)).Inc()
	return idx
}

// Apply runs the view pipeline over snap.
func (f *Facade) Apply(snap collection.Snapshot, opts Options) (Result, error) {
	sortBy, err := ParseSort(string(opts.Sort))
	if err != nil {
		return Result{}, err
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		return Result{}, apperror.ValidationFailed("perPage",
			fmt.Sprintf("perPage must be %d or less", MaxPerPage))
	}
	var tc *TagCollection
	if opts.Collection != "" {
		i := slices.IndexFunc(f.collections, func(c TagCollection) bool { return c.ID == opts.Collection })
		if i < 0 {
			return Result{}, apperror.ValidationFailed("collection",
				fmt.Sprintf("unknown collection %q", opts.Collection))
		}
		tc = &f.collections[i]
	}

	var (
		items  []model.Entity
		scores map[string]float64
	)
	if strings.TrimSpace(opts.Text) != "" {
		items, scores = f.searchItems(snap, opts.Text)
	} else {
		items = sortEntities(snap.Entities, sortBy)
	}

	categories := parseCategories(opts.Category)
	items = slices.DeleteFunc(items, func(e model.Entity) bool {
		return !categories.matches(e) || (tc != nil && !tc.Matches(e))
	})
	if items == nil {
		items = []model.Entity{}
	}

	page, pages, start, end := pageBounds(len(items), opts.Page, perPage)
	return Result{
		Items:       items[start:end],
		Total:       len(items),
		Page:        page,
		PerPage:     perPage,
		Pages:       pages,
		PageNumbers: pageNumbers(page, pages),
		Scores:      scores,
	}, nil
}

// Stats summarizes the whole snapshot, ignoring view options.
func (f *Facade) Stats(snap collection.Snapshot) Stats {
	return ComputeStats(snap.Entities)
}

func (f *Facade) searchItems(snap collection.Snapshot, text string) ([]model.Entity, map[string]float64) {
	idx := f.Index(snap)

	start := time.Now()
	results := idx.Search(text)
	metrics.SearchDuration.WithLabelValues(string(snap.Domain)).Observe(time.Since(start).Seconds())

	byID := make(map[string]model.Entity, len(snap.Entities))
	for _, e := range snap.Entities {
		byID[e.ID] = e
	}
	items := make([]model.Entity, 0, len(results))
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		if e, ok := byID[r.ID]; ok {
			items = append(items, e)
			scores[r.ID] = r.Score
		}
	}
	return items, scores
}

// categorySet is a category filter; nil lets everything through.
type categorySet map[string]struct{}

func parseCategories(s string) categorySet {
	var set categorySet
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		switch c {
		case "":
			continue
		case "all":
			return nil
		}
		if set == nil {
			set = make(categorySet)
		}
		set[c] = struct{}{}
	}
	return set
}

func (s categorySet) matches(e model.Entity) bool {
	if s == nil {
		return true
	}
	_, ok := s[e.Category]
	return ok
}

// sortEntities returns a sorted copy. Every key falls back to id so the order
// is total.
func sortEntities(entities []model.Entity, by Sort) []model.Entity {
	out := slices.Clone(entities)
	slices.SortStableFunc(out, func(a, b model.Entity) int {
		var c int
		switch by {
		case SortMostUsed:
			c = cmp.Compare(b.TimesUsed, a.TimesUsed)
		case SortNewest:
			c = b.CreatedAt.Compare(a.CreatedAt)
		case SortAlphabetical:
			c = cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
