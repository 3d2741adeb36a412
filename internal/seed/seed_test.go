package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippetbase/internal/model"
)

func TestBundled_LoadsEveryDomain(t *testing.T) {
	b := NewBundled()

	for _, d := range model.Domains {
		t.Run(string(d), func(t *testing.T) {
			entities, err := b.Load(context.Background(), d)
			require.NoError(t, err)
			require.NotEmpty(t, entities)

			for _, e := range entities {
				assert.NotEmpty(t, e.ID)
				assert.NotEmpty(t, e.Title, e.ID)
				assert.NotEmpty(t, e.Content, e.ID)
				assert.NotEmpty(t, e.Category, e.ID)
				assert.False(t, e.CreatedAt.IsZero(), e.ID)
			}
		})
	}
}

func TestBundled_IsDeterministic(t *testing.T) {
	ctx := context.Background()

	first, err := NewBundled().Load(ctx, model.Snippets)
	require.NoError(t, err)
	second, err := NewBundled().Load(ctx, model.Snippets)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBundled_ReturnsFreshCopies(t *testing.T) {
	b := NewBundled()
	ctx := context.Background()

	first, err := b.Load(ctx, model.CheatSheets)
	require.NoError(t, err)
	first[0].Title = "mutated"
	first[0].Tags[0] = "mutated"

	second, err := b.Load(ctx, model.CheatSheets)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", second[0].Title)
	assert.NotEqual(t, "mutated", second[0].Tags[0])
}

func TestBundled_UnknownDomain(t *testing.T) {
	_, err := NewBundled().Load(context.Background(), model.Domain("bookmarks"))
	assert.Error(t, err)
}

func TestBundled_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBundled().Load(ctx, model.Snippets)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckIDs(t *testing.T) {
	assert.NoError(t, checkIDs([]model.Entity{{ID: "a"}, {ID: "b"}}))
	assert.Error(t, checkIDs([]model.Entity{{ID: "a"}, {ID: "a"}}))
	assert.Error(t, checkIDs([]model.Entity{{ID: ""}}))
}

func TestStatic_MissingDomainIsEmpty(t *testing.T) {
	s := Static{model.Snippets: {{ID: "1"}}}

	got, err := s.Load(context.Background(), model.CheatSheets)
	require.NoError(t, err)
	assert.Empty(t, got)
}
