// Package seed provides the bundled default collections.
//
// The data is compiled into the binary with go:embed and decoded lazily, the
// first time a domain is requested, so start-up does not pay for collections
// nobody opens. Loading is pure: it never reads or writes the Durable Store and
// returns the same entities (fresh copies) on every call for a given build.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/snippetbase/internal/model"
)

//go:embed data/snippets.json
var snippetsJSON []byte

//go:embed data/cheat_sheets.yaml
var cheatSheetsYAML []byte

// Loader returns the seed collection for a domain.
type Loader interface {
	Load(ctx context.Context, d model.Domain) ([]model.Entity, error)
}

var (
	_ Loader = (*Bundled)(nil)
	_ Loader = Static(nil)
	_ Loader = Func(nil)
)

// Bundled serves the embedded seed data.
type Bundled struct {
	decoders map[model.Domain]func() ([]model.Entity, error)
}

func NewBundled() *Bundled {
	return &Bundled{
		decoders: map[model.Domain]func() ([]model.Entity, error){
			model.Snippets:    sync.OnceValues(func() ([]model.Entity, error) { return decodeJSON(snippetsJSON) }),
			model.CheatSheets: sync.OnceValues(func() ([]model.Entity, error) { return decodeYAML(cheatSheetsYAML) }),
		},
	}
}

func (b *Bundled) Load(ctx context.Context, d model.Domain) ([]model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decode, ok := b.decoders[d]
	if !ok {
		return nil, fmt.Errorf("seed: no bundled data for %q", d)
	}
	entities, err := decode()
	if err != nil {
		return nil, err
	}
	return cloneAll(entities), nil
}

func decodeJSON(data []byte) ([]model.Entity, error) {
	var out []model.Entity
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("seed: decoding snippets: %w", err)
	}
	return out, checkIDs(out)
}

// sheetYAML mirrors model.Entity with YAML keys; yaml.v3 does not read json tags.
type sheetYAML struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Category    string    `yaml:"category"`
	Description string    `yaml:"description"`
	Emoji       string    `yaml:"emoji"`
	Color       string    `yaml:"color"`
	Tags        []string  `yaml:"tags"`
	Content     string    `yaml:"content"`
	Author      string    `yaml:"author"`
	CreatedAt   time.Time `yaml:"createdAt"`
	UpdatedAt   time.Time `yaml:"updatedAt"`
}

func decodeYAML(data []byte) ([]model.Entity, error) {
	var sheets []sheetYAML
	if err := yaml.Unmarshal(data, &sheets); err != nil {
		return nil, fmt.Errorf("seed: decoding cheat sheets: %w", err)
	}
	out := make([]model.Entity, 0, len(sheets))
	for _, s := range sheets {
		out = append(out, model.Entity{
			ID:          s.ID,
			Title:       s.Title,
			Content:     s.Content,
			Description: s.Description,
			Category:    s.Category,
			Tags:        s.Tags,
			Author:      s.Author,
			Emoji:       s.Emoji,
			Color:       s.Color,
			CreatedAt:   s.CreatedAt,
			UpdatedAt:   s.UpdatedAt,
		})
	}
	return out, checkIDs(out)
}

func checkIDs(entities []model.Entity) error {
	seen := make(map[string]struct{}, len(entities))
	for i, e := range entities {
		if e.ID == "" {
			return fmt.Errorf("seed: entity %d has no id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("seed: duplicate id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

func cloneAll(in []model.Entity) []model.Entity {
	out := make([]model.Entity, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

// Static serves fixed collections. Domains without an entry load as empty.
type Static map[model.Domain][]model.Entity

func (s Static) Load(ctx context.Context, d model.Domain) ([]model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneAll(s[d]), nil
}

// Func adapts a function to Loader.
type Func func(ctx context.Context, d model.Domain) ([]model.Entity, error)

func (f Func) Load(ctx context.Context, d model.Domain) ([]model.Entity, error) {
	return f(ctx, d)
}
