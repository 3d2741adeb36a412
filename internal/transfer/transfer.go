// Package transfer implements the import/export document and the two import
// policies. It is pure: callers hand it collections and apply what it returns.
package transfer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sakif/snippetbase/internal/apperror"
	"github.com/sakif/snippetbase/internal/model"
)

// FormatVersion is written into every exported document.
const FormatVersion = "1.0"

// Document is the import/export file format.
type Document struct {
	Entities      []model.Entity `json:"entities"`
	ExportedAt    time.Time      `json:"exportedAt"`
	Version       string         `json:"version"`
	TotalEntities int            `json:"totalEntities"`
}

// UnmarshalJSON also accepts the older "snippets"/"totalSnippets" keys.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Entities      []model.Entity `json:"entities"`
		Snippets      []model.Entity `json:"snippets"`
		ExportedAt    time.Time      `json:"exportedAt"`
		Version       string         `json:"version"`
		TotalEntities int            `json:"totalEntities"`
		TotalSnippets int            `json:"totalSnippets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Entities = raw.Entities
	if d.Entities == nil {
		d.Entities = raw.Snippets
	}
	d.ExportedAt = raw.ExportedAt
	d.Version = raw.Version
	d.TotalEntities = raw.TotalEntities
	if d.TotalEntities == 0 {
		d.TotalEntities = raw.TotalSnippets
	}
	return nil
}

// Export builds a document from a collection snapshot.
func Export(entities []model.Entity, now time.Time) Document {
	out := make([]model.Entity, len(entities))
	for i, e := range entities {
		out[i] = e.Clone()
	}
	return Document{
		Entities:      out,
		ExportedAt:    now.UTC(),
		Version:       FormatVersion,
		TotalEntities: len(out),
	}
}

// Decode reads a document. Malformed JSON is a validation error.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, apperror.ValidationFailed("document", fmt.Sprintf("invalid import document: %v", err))
	}
	return doc, nil
}

// Validate checks every entity for the required fields and for duplicate ids.
// The first failure rejects the whole document.
func Validate(doc Document) error {
	if doc.Entities == nil {
		return apperror.ValidationFailed("entities", "import document has no entities array")
	}
	seen := make(map[string]int, len(doc.Entities))
	for i, e := range doc.Entities {
		required := []struct{ name, value string }{
			{"id", e.ID},
			{"title", e.Title},
			{"content", e.Content},
			{"category", e.Category},
		}
		for _, f := range required {
			if strings.TrimSpace(f.value) == "" {
				return apperror.ValidationFailed(
					fmt.Sprintf("entities[%d].%s", i, f.name),
					fmt.Sprintf("entity %d is missing required field %q", i, f.name),
				)
			}
		}
		if first, dup := seen[e.ID]; dup {
			return apperror.ValidationFailed(
				fmt.Sprintf("entities[%d].id", i),
				fmt.Sprintf("entity %d repeats id %q from entity %d", i, e.ID, first),
			)
		}
		seen[e.ID] = i
		if e.TimesUsed < 0 || e.ViewCount < 0 {
			return apperror.ValidationFailed(
				fmt.Sprintf("entities[%d]", i),
				fmt.Sprintf("entity %d has a negative counter", i),
			)
		}
	}
	return nil
}

// Policy selects how an import combines with the existing collection.
type Policy string

const (
	// Merge keeps every existing entity and appends incoming ones whose id is
	// not already present.
	Merge Policy = "merge"
	// Replace substitutes the collection wholesale.
	Replace Policy = "replace"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Merge:
		return Merge, nil
	case Replace:
		return Replace, nil
	}
	return "", apperror.ValidationFailed("policy", fmt.Sprintf("unknown import policy %q (want merge or replace)", s))
}

// Apply validates doc and returns the resulting collection. On error the
// caller's collection must be left as it was; Apply never modifies existing.
func Apply(existing []model.Entity, doc Document, policy Policy) ([]model.Entity, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	switch policy {
	case Replace:
		out := make([]model.Entity, len(doc.Entities))
		for i, e := range doc.Entities {
			out[i] = e.Clone()
		}
		return out, nil

	case Merge:
		out := make([]model.Entity, 0, len(existing)+len(doc.Entities))
		have := make(map[string]struct{}, len(existing))
		for _, e := range existing {
			out = append(out, e)
			have[e.ID] = struct{}{}
		}
		for _, e := range doc.Entities {
			if _, ok := have[e.ID]; ok {
				continue // existing wins
			}
			out = append(out, e.Clone())
		}
		return out, nil
	}
	return nil, apperror.ValidationFailed("policy", fmt.Sprintf("unknown import policy %q", policy))
}
