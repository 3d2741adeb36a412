package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynonyms_Expand(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"py", "py python"},
		{"PY Window", "py python window"},
		{"python", "python py pyth"},
		{"pyspark", "pyspark spark"},
		{"sql", "sql"},
		{"kafka", "kafka"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultSynonyms.Expand(tt.query))
		})
	}
}

func TestSynonyms_Custom(t *testing.T) {
	s := Synonyms{"tf": "terraform"}

	assert.Equal(t, "tf terraform", s.Expand("tf"))
	assert.Equal(t, "py", s.Expand("py"))
}
