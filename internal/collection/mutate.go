package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/snippetbase/internal/apperror"
	"github.com/sakif/snippetbase/internal/metrics"
	"github.com/sakif/snippetbase/internal/model"
	"github.com/sakif/snippetbase/internal/transfer"
)

// Validation limits for user-created entities.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxContentLength     = 100000 // ~100KB
	MaxTags              = 20
)

// mutate runs fn against the live slice under the lock. fn returns the new
// slice, or ok=false to leave the collection untouched. Every call that gets
// this far marks the collection Synced, applied or not, so a reconciliation
// that has not run yet never will.
func (c *Collection) mutate(ctx context.Context, op string, fn func(cur []model.Entity) ([]model.Entity, bool)) bool {
	if err := c.WaitReady(ctx); err != nil {
		metrics.Mutations.WithLabelValues(string(c.domain), op, "cancelled").Inc()
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		metrics.Mutations.WithLabelValues(string(c.domain), op, "closed").Inc()
		return false
	}
	c.state = Synced
	next, ok := fn(c.entities)
	if !ok {
		metrics.Mutations.WithLabelValues(string(c.domain), op, "not_found").Inc()
		return false
	}
	c.replace(next)
	metrics.Mutations.WithLabelValues(string(c.domain), op, "ok").Inc()
	return true
}

// Add validates input and appends a new entity with a fresh id and zero
// counters.
func (c *Collection) Add(ctx context.Context, in model.NewEntity) (model.Entity, error) {
	e := model.Entity{
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Tags:        normalizeTags(in.Tags),
		Author:      strings.TrimSpace(in.Author),
		Source:      strings.TrimSpace(in.Source),
	}
	if err := validate(e); err != nil {
		return model.Entity{}, err
	}

	now := c.now().UTC()
	e.ID = xid.New().String()
	e.CreatedAt = now
	e.UpdatedAt = now

	applied := c.mutate(ctx, "add", func(cur []model.Entity) ([]model.Entity, bool) {
		return append(slices.Clip(cur), e), true
	})
	if !applied {
		if err := ctx.Err(); err != nil {
			return model.Entity{}, err
		}
		return model.Entity{}, apperror.Unavailable(string(c.domain), nil)
	}
	c.logger.Info("entity added", slog.String("id", e.ID))
	return e.Clone(), nil
}

// Update applies patch to the entity with the given id and refreshes
// UpdatedAt. found is false when no such entity exists.
func (c *Collection) Update(ctx context.Context, id string, patch model.Patch) (updated model.Entity, found bool, err error) {
	var verr error
	c.mutate(ctx, "update", func(cur []model.Entity) ([]model.Entity, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, false
		}
		e := patch.Apply(cur[i])
		e.Title = strings.TrimSpace(e.Title)
		e.Category = strings.TrimSpace(e.Category)
		if patch.Tags != nil {
			e.Tags = normalizeTags(e.Tags)
		}
		if verr = validate(e); verr != nil {
			found = true
			return nil, false
		}
		e.UpdatedAt = c.now().UTC()
		updated, found = e.Clone(), true
		return with(cur, i, e), true
	})
	return updated, found, verr
}

// Delete removes the entity with the given id.
func (c *Collection) Delete(ctx context.Context, id string) bool {
	return c.mutate(ctx, "delete", func(cur []model.Entity) ([]model.Entity, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, false
		}
		c.removed[id] = struct{}{}
		next := make([]model.Entity, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		return append(next, cur[i+1:]...), true
	})
}

// ToggleFavorite flips IsFavorite on the entity with the given id.
func (c *Collection) ToggleFavorite(ctx context.Context, id string) (toggled model.Entity, found bool) {
	c.mutate(ctx, "favorite", func(cur []model.Entity) ([]model.Entity, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, false
		}
		e := cur[i].Clone()
		e.IsFavorite = !e.IsFavorite
		toggled, found = e.Clone(), true
		return with(cur, i, e), true
	})
	return toggled, found
}

func (c *Collection) IncrementUseCount(ctx context.Context, id string) (model.Entity, bool) {
	return c.increment(ctx, "use", id, func(e *model.Entity) *int { return &e.TimesUsed })
}

func (c *Collection) IncrementViewCount(ctx context.Context, id string) (model.Entity, bool) {
	return c.increment(ctx, "view", id, func(e *model.Entity) *int { return &e.ViewCount })
}

// increment adds one to a counter. An id missing from the live collection but
// present in the resolved seed, and never removed from the collection, is
// materialized with the counter at 1.
func (c *Collection) increment(ctx context.Context, op, id string, counter func(*model.Entity) *int) (bumped model.Entity, found bool) {
	c.mutate(ctx, op, func(cur []model.Entity) ([]model.Entity, bool) {
		if i := indexOf(cur, id); i >= 0 {
			e := cur[i].Clone()
			*counter(&e)++
			bumped, found = e.Clone(), true
			return with(cur, i, e), true
		}
		// c.mu is held by mutate.
		if e, ok := c.seedEntity(id); ok {
			*counter(&e) = 1
			bumped, found = e.Clone(), true
			return append(slices.Clip(cur), e), true
		}
		return nil, false
	})
	return bumped, found
}

// Import validates doc and applies it with the given policy. A document that
// fails validation leaves the collection untouched.
func (c *Collection) Import(ctx context.Context, doc transfer.Document, policy transfer.Policy) (int, error) {
	if err := transfer.Validate(doc); err != nil {
		return 0, err
	}
	var (
		applyErr error
		size     int
	)
	applied := c.mutate(ctx, "import_"+string(policy), func(cur []model.Entity) ([]model.Entity, bool) {
		next, err := transfer.Apply(cur, doc, policy)
		if err != nil {
			applyErr = err
			return nil, false
		}
		for _, e := range cur {
			if indexOf(next, e.ID) < 0 {
				c.removed[e.ID] = struct{}{}
			}
		}
		size = len(next)
		return next, true
	})
	if applyErr != nil {
		return 0, applyErr
	}
	if !applied {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 0, apperror.Unavailable(string(c.domain), nil)
	}
	c.logger.Info("collection imported",
		slog.String("policy", string(policy)),
		slog.Int("incoming", len(doc.Entities)),
		slog.Int("entities", size),
	)
	return size, nil
}

// Export returns the current collection as a transfer document.
func (c *Collection) Export() transfer.Document {
	snap := c.Snapshot()
	return transfer.Export(snap.Entities, c.now())
}

func validate(e model.Entity) error {
	switch {
	case e.Title == "":
		return apperror.ValidationFailed("title", "title is required")
	case len(e.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	case strings.TrimSpace(e.Content) == "":
		return apperror.ValidationFailed("content", "content is required")
	case len(e.Content) > MaxContentLength:
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	case e.Category == "":
		return apperror.ValidationFailed("category", "category is required")
	case len(e.Description) > MaxDescriptionLength:
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	case len(e.Tags) > MaxTags:
		return apperror.ValidationFailed("tags",
			fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	return nil
}

// normalizeTags trims, lowercases and de-duplicates tags, keeping first
// occurrence order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// with returns a copy of cur with element i replaced by e.
func with(cur []model.Entity, i int, e model.Entity) []model.Entity {
	next := slices.Clone(cur)
	next[i] = e
	return next
}
