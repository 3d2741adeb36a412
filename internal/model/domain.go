package model

import "fmt"

// Domain names one persisted collection.
type Domain string

const (
	Snippets    Domain = "snippets"
	CheatSheets Domain = "cheat_sheets"
)

// Domains lists every collection the application manages, in display order.
var Domains = []Domain{Snippets, CheatSheets}

// Key is the Durable Store record key holding the whole collection.
func (d Domain) Key() string { return string(d) }

// LegacyKey is the flat-string key the collection used before the versioned store.
func (d Domain) LegacyKey() string { return "coderef_" + string(d) }

// ParseDomain accepts the record key and the URL-friendly "cheat-sheets" form.
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "snippets":
		return Snippets, nil
	case "cheat_sheets", "cheat-sheets", "sheets":
		return CheatSheets, nil
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// LegacyKeyFor maps a record key to its legacy key. Keys that are not domain
// record keys map to themselves.
func LegacyKeyFor(key string) string {
	for _, d := range Domains {
		if d.Key() == key {
			return d.LegacyKey()
		}
	}
	return key
}
