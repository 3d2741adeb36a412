package search

import (
	"slices"
	"strings"
)

// Synonyms maps a short form to the word it stands for.
type Synonyms map[string]string

// DefaultSynonyms is the table used when none is configured.
var DefaultSynonyms = Synonyms{
	"py":    "python",
	"pyth":  "python",
	"k8s":   "kubernetes",
	"js":    "javascript",
	"ts":    "typescript",
	"sql":   "sql",
	"db":    "database",
	"df":    "dataframe",
	"spark": "pyspark",
}

// Expand lowercases query and follows every word with its synonyms. A short
// form gains its long form; a long form gains every short form that maps to
// it, in sorted order.
func (s Synonyms) Expand(query string) string {
	words := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(words)*2)
	for _, w := range words {
		out = append(out, w)
		if long, ok := s[w]; ok {
			if long != w {
				out = append(out, long)
			}
			continue
		}
		out = append(out, s.shortForms(w)...)
	}
	return strings.Join(out, " ")
}

func (s Synonyms) shortForms(long string) []string {
	var shorts []string
	for short, l := range s {
		if l == long && short != long {
			shorts = append(shorts, short)
		}
	}
	slices.Sort(shorts)
	return shorts
}
