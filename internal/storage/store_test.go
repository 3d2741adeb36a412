package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippetbase/internal/storage"
	"github.com/sakif/snippetbase/internal/storage/legacy"
	"github.com/sakif/snippetbase/internal/storage/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingLegacy records how many lookups reached the legacy store.
type countingLegacy struct {
	legacy.Map
	lookups int
	err     error
}

func (c *countingLegacy) Lookup(key string) (string, bool, error) {
	c.lookups++
	if c.err != nil {
		return "", false, c.err
	}
	return c.Map.Lookup(key)
}

// =========================================================================
// LEGACY MIGRATION
// =========================================================================

func TestGet_MigratesLegacyWithCopySemantics(t *testing.T) {
	engine := memory.New()
	old := legacy.Map{"K": `["A","B"]`}
	store := storage.New(engine, old, discardLogger())

	got, ok := store.Get(context.Background(), "K")
	require.True(t, ok)
	assert.JSONEq(t, `["A","B"]`, string(got))

	raw, ok := engine.Raw("K")
	require.True(t, ok, "legacy value must be copied into the engine")
	assert.JSONEq(t, `["A","B"]`, string(raw))
	assert.Equal(t, `["A","B"]`, old["K"], "legacy value must be left untouched")
}

func TestGet_MigrationIsIdempotent(t *testing.T) {
	engine := memory.New()
	old := &countingLegacy{Map: legacy.Map{"K": `["A","B"]`}}
	store := storage.New(engine, old, discardLogger())
	ctx := context.Background()

	_, _ = store.Get(ctx, "K")
	got, ok := store.Get(ctx, "K")

	require.True(t, ok)
	assert.JSONEq(t, `["A","B"]`, string(got))
	assert.Equal(t, 1, engine.Writes(), "second Get must be served by the engine")
	assert.Equal(t, 1, old.lookups)
}

func TestGet_MigrationAttemptedOncePerKey(t *testing.T) {
	old := &countingLegacy{Map: legacy.Map{}}
	store := storage.New(memory.New(), old, discardLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, ok := store.Get(ctx, "missing")
		assert.False(t, ok)
	}
	assert.Equal(t, 1, old.lookups)
}

func TestGet_UsesLegacyKeyMapping(t *testing.T) {
	old := legacy.Map{"coderef_snippets": `[{"id":"1"}]`}
	store := storage.New(memory.New(), old, discardLogger(),
		storage.WithLegacyKeys(func(k string) string { return "coderef_" + k }))

	got, ok := store.Get(context.Background(), "snippets")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))
}

func TestGet_UnparseableLegacyValueIsAMiss(t *testing.T) {
	engine := memory.New()
	store := storage.New(engine, legacy.Map{"K": `{not json`}, discardLogger())

	_, ok := store.Get(context.Background(), "K")
	assert.False(t, ok)
	assert.Equal(t, 0, engine.Writes())
}

func TestGet_LegacyErrorIsAMiss(t *testing.T) {
	old := &countingLegacy{err: errors.New("permission denied")}
	store := storage.New(memory.New(), old, discardLogger(), storage.WithDevelopment(true))

	_, ok := store.Get(context.Background(), "K")
	assert.False(t, ok)
}

// =========================================================================
// FAILURE CONTAINMENT
// =========================================================================

func TestGet_EngineFailureDegradesToAbsent(t *testing.T) {
	engine := memory.New()
	engine.FailGet = errors.New("engine unavailable")
	store := storage.New(engine, nil, discardLogger())

	got, ok := store.Get(context.Background(), "snippets")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestPut_RefusedAfterFailedRead(t *testing.T) {
	engine := memory.New()
	ctx := context.Background()
	require.NoError(t, engine.Put(ctx, "snippets", []byte(`[{"id":"mine"}]`)))
	engine.FailGet = errors.New("disk busy")
	store := storage.New(engine, nil, discardLogger())

	_, ok := store.Get(ctx, "snippets")
	require.False(t, ok)
	assert.False(t, store.Put(ctx, "snippets", []byte(`[]`)), "an unread record must not be overwritten")
	assert.True(t, store.Put(ctx, "cheat_sheets", []byte(`[]`)), "other keys are unaffected")

	raw, _ := engine.Raw("snippets")
	assert.JSONEq(t, `[{"id":"mine"}]`, string(raw))

	engine.FailGet = nil
	got, ok := store.Get(ctx, "snippets")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":"mine"}]`, string(got))
	assert.True(t, store.Put(ctx, "snippets", []byte(`[]`)), "a successful read lifts the guard")
}

func TestGet_CorruptValueIsAbsent(t *testing.T) {
	engine := memory.New()
	require.NoError(t, engine.Put(context.Background(), "snippets", []byte("\x00garbage")))
	store := storage.New(engine, nil, discardLogger())

	_, ok := store.Get(context.Background(), "snippets")
	assert.False(t, ok)
}

func TestPut_EngineFailureIsSwallowed(t *testing.T) {
	engine := memory.New()
	engine.FailPut = errors.New("quota exceeded")
	store := storage.New(engine, nil, discardLogger(), storage.WithDevelopment(true))

	assert.NotPanics(t, func() {
		written := store.Put(context.Background(), "snippets", []byte(`[]`))
		assert.False(t, written)
	})
}

func TestNilEngine_RunsWithoutStorage(t *testing.T) {
	old := legacy.Map{"K": `[1]`}
	store := storage.New(nil, old, discardLogger())
	ctx := context.Background()

	assert.False(t, store.Available())
	assert.Equal(t, 0, store.SchemaVersion(ctx))
	assert.False(t, store.Put(ctx, "K", []byte(`[2]`)))

	got, ok := store.Get(ctx, "K")
	require.True(t, ok, "legacy data is still readable without an engine")
	assert.JSONEq(t, `[1]`, string(got))
	assert.NoError(t, store.Close())
}

// =========================================================================
// CHANGE DETECTION
// =========================================================================

func TestPut_SkipsUnchangedValue(t *testing.T) {
	engine := memory.New()
	store := storage.New(engine, nil, discardLogger())
	ctx := context.Background()

	assert.True(t, store.Put(ctx, "snippets", []byte(`[{"id":"a"}]`)))
	assert.False(t, store.Put(ctx, "snippets", []byte(`[{"id":"a"}]`)))
	assert.True(t, store.Put(ctx, "snippets", []byte(`[{"id":"b"}]`)))
	assert.Equal(t, 2, engine.Writes())
}

func TestPut_SkipsValueJustRead(t *testing.T) {
	engine := memory.New()
	ctx := context.Background()
	require.NoError(t, engine.Put(ctx, "snippets", []byte(`[]`)))
	store := storage.New(engine, nil, discardLogger())

	_, _ = store.Get(ctx, "snippets")
	assert.False(t, store.Put(ctx, "snippets", []byte(`[]`)))
	assert.Equal(t, 1, engine.Writes())
}

func TestPut_RetriesAfterFailure(t *testing.T) {
	engine := memory.New()
	store := storage.New(engine, nil, discardLogger())
	ctx := context.Background()

	engine.FailPut = errors.New("transient")
	assert.False(t, store.Put(ctx, "snippets", []byte(`[1]`)))

	engine.FailPut = nil
	assert.True(t, store.Put(ctx, "snippets", []byte(`[1]`)), "a failed write must not be remembered as flushed")
}
