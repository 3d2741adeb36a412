// Package search is a small in-memory full-text index over entities.
//
// It scores with BM25 per field, multiplies by a per-field boost and sums
// across fields and query terms. Query terms also match indexed terms they
// are a prefix of, or that are within a small edit distance; both kinds of
// match count for less than an exact one.
//
// An Index is immutable once built. When the collection changes, build a new
// one.
package search

import (
	"math"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/sakif/snippetbase/internal/model"
)

type field int

const (
	fieldTitle field = iota
	fieldTags
	fieldDescription
	fieldContent
	fieldCategory
	numFields
)

var boosts = [numFields]float64{
	fieldTitle:       3,
	fieldTags:        2,
	fieldDescription: 1.5,
	fieldContent:     1,
	fieldCategory:    1,
}

// Scoring constants.
const (
	bm25K = 1.2
	bm25B = 0.7
	bm25D = 0.5

	prefixWeight = 0.375
	fuzzyWeight  = 0.45
	maxFuzzy     = 6

	DefaultFuzzy = 0.2
)

// Result is one matching entity.
type Result struct {
	ID    string
	Score float64
	// Terms are the indexed terms the query matched.
	Terms []string
}

type posting struct {
	doc int
	tf  [numFields]int
}

type Index struct {
	ids      []string
	fieldLen [][numFields]int
	avgLen   [numFields]float64

	postings map[string][]posting
	vocab    []string // sorted

	synonyms Synonyms
	fuzzy    float64
}

// Option configures an Index.
type Option func(*Index)

// WithSynonyms replaces DefaultSynonyms. A nil map disables expansion.
func WithSynonyms(s Synonyms) Option {
	return func(idx *Index) { idx.synonyms = s }
}

// WithFuzzy sets the edit distance tolerance as a fraction of the query term
// length. 0 disables fuzzy matching.
func WithFuzzy(f float64) Option {
	return func(idx *Index) { idx.fuzzy = f }
}

// Build indexes entities in order. Ties in Search keep this order.
func Build(entities []model.Entity, opts ...Option) *Index {
	idx := &Index{
		ids:      make([]string, len(entities)),
		fieldLen: make([][numFields]int, len(entities)),
		postings: make(map[string][]posting),
		synonyms: DefaultSynonyms,
		fuzzy:    DefaultFuzzy,
	}
	for _, opt := range opts {
		opt(idx)
	}

	var total [numFields]int
	for doc, e := range entities {
		idx.ids[doc] = e.ID
		byTerm := make(map[string]*posting)
		var order []string

		for f, text := range fieldText(e) {
			tokens := Tokenize(text)
			idx.fieldLen[doc][f] = len(tokens)
			total[f] += len(tokens)
			for _, tok := range tokens {
				p, ok := byTerm[tok]
				if !ok {
					p = &posting{doc: doc}
					byTerm[tok] = p
					order = append(order, tok)
				}
				p.tf[f]++
			}
		}
		for _, tok := range order {
			idx.postings[tok] = append(idx.postings[tok], *byTerm[tok])
		}
	}

	if n := len(entities); n > 0 {
		for f := range numFields {
			idx.avgLen[f] = float64(total[f]) / float64(n)
		}
	}
	idx.vocab = make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		idx.vocab = append(idx.vocab, term)
	}
	slices.Sort(idx.vocab)
	return idx
}

func fieldText(e model.Entity) [numFields]string {
	return [numFields]string{
		fieldTitle:       e.Title,
		fieldTags:        strings.Join(e.Tags, " "),
		fieldDescription: e.Description,
		fieldContent:     e.Content,
		fieldCategory:    e.Category,
	}
}

// Len returns the number of indexed entities.
func (idx *Index) Len() int { return len(idx.ids) }

// Search returns matching entities by descending score. A blank query
// matches nothing.
func (idx *Index) Search(query string) []Result {
	if strings.TrimSpace(query) == "" || len(idx.ids) == 0 {
		return nil
	}
	if idx.synonyms != nil {
		query = idx.synonyms.Expand(query)
	}

	scores := make(map[int]float64)
	matched := make(map[int][]string)
	seen := make(map[string]struct{})

	for _, q := range Tokenize(query) {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}

		for term, weight := range idx.expand(q) {
			idf := idx.idf(len(idx.postings[term]))
			for _, p := range idx.postings[term] {
				s := 0.0
				for f := range numFields {
					if p.tf[f] == 0 {
						continue
					}
					s += boosts[f] * idx.bm25(p.tf[f], idx.fieldLen[p.doc][f], f) * idf
				}
				scores[p.doc] += weight * s
				if !slices.Contains(matched[p.doc], term) {
					matched[p.doc] = append(matched[p.doc], term)
				}
			}
		}
	}

	results := make([]Result, 0, len(scores))
	docs := make([]int, 0, len(scores))
	for doc := range scores {
		docs = append(docs, doc)
	}
	slices.SortFunc(docs, func(a, b int) int {
		switch {
		case scores[a] > scores[b]:
			return -1
		case scores[a] < scores[b]:
			return 1
		}
		return a - b
	})
	for _, doc := range docs {
		terms := matched[doc]
		slices.Sort(terms)
		results = append(results, Result{ID: idx.ids[doc], Score: scores[doc], Terms: terms})
	}
	return results
}

// expand finds the indexed terms q matches and the weight of each match.
func (idx *Index) expand(q string) map[string]float64 {
	out := make(map[string]float64)
	qLen := len([]rune(q))

	if _, ok := idx.postings[q]; ok {
		out[q] = 1
	}

	// Prefix matches are contiguous in the sorted vocabulary.
	start, _ := slices.BinarySearch(idx.vocab, q)
	for _, term := range idx.vocab[start:] {
		if !strings.HasPrefix(term, q) {
			break
		}
		if term == q {
			continue
		}
		extra := float64(len([]rune(term)) - qLen)
		out[term] = prefixWeight * float64(qLen) / (float64(qLen) + 0.3*extra)
	}

	maxDist := min(maxFuzzy, int(math.Round(float64(qLen)*idx.fuzzy)))
	if maxDist <= 0 {
		return out
	}
	for _, term := range idx.vocab {
		if _, ok := out[term]; ok {
			continue
		}
		if diff := len([]rune(term)) - qLen; diff > maxDist || -diff > maxDist {
			continue
		}
		if d := levenshtein.ComputeDistance(q, term); d <= maxDist {
			out[term] = fuzzyWeight * float64(qLen) / float64(qLen+d)
		}
	}
	return out
}

func (idx *Index) idf(df int) float64 {
	n := float64(len(idx.ids))
	return math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
}

func (idx *Index) bm25(tf, fieldLen int, f field) float64 {
	avg := idx.avgLen[f]
	if avg == 0 {
		avg = 1
	}
	t := float64(tf)
	return t*(bm25K+1)/(t+bm25K*(1-bm25B+bm25B*float64(fieldLen)/avg)) + bm25D
}
