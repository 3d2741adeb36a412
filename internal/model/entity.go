// Package model defines the entities stored in a collection and the request
// shapes used to create and patch them. Snippets and cheat sheets share one
// Entity type; the Domain says which collection an entity belongs to.
package model

import (
	"encoding/json"
	"time"
)

// Entity is a single snippet or reference (cheat) sheet.
//
// USER-OWNED FIELDS:
// IsFavorite, TimesUsed and ViewCount belong to the user. When the bundled
// seed data changes, every other field is refreshed from the seed, but these
// three are carried over from what was persisted locally.
//
// TWO JSON SPELLINGS:
// Snippets were historically stored with "code" and "language", cheat sheets
// with "content" and "category". Content and Category are the canonical Go
// names; the custom (Un)MarshalJSON below reads either spelling and writes both,
// so a record written by one domain can be read by the other.
type Entity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	Author      string    `json:"author,omitempty"`
	Source      string    `json:"source,omitempty"`
	Emoji       string    `json:"emoji,omitempty"`
	Color       string    `json:"color,omitempty"`
	IsFavorite  bool      `json:"isFavorite"`
	TimesUsed   int       `json:"timesUsed"`
	ViewCount   int       `json:"viewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// entityJSON is the wire shape. The alias type drops Entity's methods so
// json.Marshal on it does not recurse back into MarshalJSON.
type entityJSON struct {
	entityAlias
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`
}

type entityAlias Entity

// MarshalJSON writes both spellings of content and category.
func (e Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(entityJSON{
		entityAlias: entityAlias(e),
		Code:        e.Content,
		Language:    e.Category,
	})
}

// UnmarshalJSON accepts "content" or "code", and "category" or "language".
// The canonical spelling wins when both are present.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw entityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entity(raw.entityAlias)
	if e.Content == "" {
		e.Content = raw.Code
	}
	if e.Category == "" {
		e.Category = raw.Language
	}
	return nil
}

// Clone returns a deep copy. Collections are copy-on-write, so anything that
// hands an entity across a package boundary clones its Tags slice first.
func (e Entity) Clone() Entity {
	if e.Tags != nil {
		e.Tags = append([]string(nil), e.Tags...)
	}
	return e
}

// NewEntity is the caller-supplied part of an entity created by the user.
// ID, timestamps and counters are assigned by the collection.
type NewEntity struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author"`
	Source      string   `json:"source"`
}

// Patch carries optional field updates. A nil pointer means "leave unchanged".
//
// WHY POINTERS?
// With plain strings we couldn't tell "set description to empty" apart from
// "don't touch description". A *string is nil when the field was absent from
// the request body.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Content     *string   `json:"content,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Author      *string   `json:"author,omitempty"`
	Source      *string   `json:"source,omitempty"`
	IsFavorite  *bool     `json:"isFavorite,omitempty"`
}

// Apply returns a copy of e with the patch fields merged in.
func (p Patch) Apply(e Entity) Entity {
	out := e.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Tags != nil {
		out.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Author != nil {
		out.Author = *p.Author
	}
	if p.Source != nil {
		out.Source = *p.Source
	}
	if p.IsFavorite != nil {
		out.IsFavorite = *p.IsFavorite
	}
	return out
}
