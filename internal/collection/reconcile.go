package collection

import "github.com/sakif/snippetbase/internal/model"

// Reconcile merges a freshly loaded seed collection with the persisted one.
// It is pure: neither input is modified and the output shares no Tags slices
// with them.
//
// THE THREE CASES:
//
//  1. Nothing persisted: the seed is the collection.
//  2. Same length on both sides: assumed already in sync, nothing to do.
//     This is a heuristic; a seed that swapped one entity for another of
//     the same count is not picked up.
//  3. Otherwise: every seed entity is refreshed from the seed but keeps the
//     user-owned fields (IsFavorite, TimesUsed, ViewCount) of its persisted
//     twin. Persisted entities the seed doesn't know about are user-created
//     and are appended unchanged, in their persisted order.
//
// changed reports whether out differs from persisted and must be written back.
func Reconcile(seed, persisted []model.Entity) (out []model.Entity, changed bool) {
	if len(persisted) == 0 {
		return cloneAll(seed), true
	}
	if len(seed) == len(persisted) {
		return persisted, false
	}

	byID := make(map[string]model.Entity, len(persisted))
	for _, p := range persisted {
		byID[p.ID] = p
	}

	out = make([]model.Entity, 0, len(seed)+len(persisted))
	inSeed := make(map[string]struct{}, len(seed))
	for _, s := range seed {
		e := s.Clone()
		if p, ok := byID[s.ID]; ok {
			e.IsFavorite = p.IsFavorite
			e.TimesUsed = p.TimesUsed
			e.ViewCount = p.ViewCount
		}
		out = append(out, e)
		inSeed[s.ID] = struct{}{}
	}
	for _, p := range persisted {
		if _, ok := inSeed[p.ID]; !ok {
			out = append(out, p.Clone())
		}
	}
	return out, true
}

func cloneAll(in []model.Entity) []model.Entity {
	out := make([]model.Entity, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

func indexOf(entities []model.Entity, id string) int {
	for i := range entities {
		if entities[i].ID == id {
			return i
		}
	}
	return -1
}
