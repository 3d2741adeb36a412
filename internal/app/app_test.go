package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/config"
	"github.com/sakif/snippetbase/internal/model"
	"github.com/sakif/snippetbase/internal/seed"
	"github.com/sakif/snippetbase/internal/storage/legacy"
	"github.com/sakif/snippetbase/internal/storage/memory"
	"github.com/sakif/snippetbase/internal/storage/sqlite"
)

// =========================================================================
// HELPERS
// =========================================================================

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:     config.AppConfig{Env: "development"},
		Storage: config.StorageConfig{Engine: config.EngineMemory},
		Search:  config.SearchConfig{Fuzzy: 0.2},
		Auth:    config.AuthConfig{TokenTTL: time.Hour},
		Log:     config.LogConfig{Level: "info", Format: "text"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testSeed = seed.Static{
	model.Snippets: {
		{ID: "s1", Title: "Read parquet", Content: "spark.read.parquet(p)", Category: "pyspark", Tags: []string{"io"}},
		{ID: "s2", Title: "Broadcast join", Content: "broadcast(df)", Category: "pyspark", Tags: []string{"performance"}},
	},
	model.CheatSheets: {
		{ID: "c1", Title: "Git basics", Content: "git status", Category: "git"},
	},
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	a, err := New(cfg, discardLogger(), append([]Option{WithSeed(testSeed)}, opts...)...)
	require.NoError(t, err)
	return a
}

func waitSynced(t *testing.T, a *App) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, d := range model.Domains {
			if a.Collection(d).State() != collection.Synced {
				return false
			}
		}
		return true
	}, 2*time.Second, time.Millisecond)
}

// =========================================================================
// TESTS
// =========================================================================

func TestNew_SeedsEveryDomain(t *testing.T) {
	engine := memory.New()
	a := newApp(t, testConfig(t), WithEngine(engine))
	a.Start(context.Background())
	waitSynced(t, a)

	assert.Len(t, a.Collection(model.Snippets).Snapshot().Entities, 2)
	assert.Len(t, a.Collection(model.CheatSheets).Snapshot().Entities, 1)
	assert.Nil(t, a.Collection(model.Domain("nope")))
	assert.Nil(t, a.Tokens, "auth is disabled without a secret")

	require.NoError(t, a.Close(context.Background()))

	raw, ok := engine.Raw(model.CheatSheets.Key())
	require.True(t, ok)
	var persisted []model.Entity
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, "c1", persisted[0].ID)
}

func TestNew_UserStateSurvivesRestart(t *testing.T) {
	engine := memory.New()
	ctx := context.Background()

	first := newApp(t, testConfig(t), WithEngine(engine))
	first.Start(ctx)
	waitSynced(t, first)
	_, ok := first.Collection(model.Snippets).ToggleFavorite(ctx, "s2")
	require.True(t, ok)
	require.NoError(t, first.Close(ctx))

	second := newApp(t, testConfig(t), WithEngine(engine))
	second.Start(ctx)
	waitSynced(t, second)
	t.Cleanup(func() { _ = second.Close(ctx) })

	e, ok := second.Collection(model.Snippets).Get("s2")
	require.True(t, ok)
	assert.True(t, e.IsFavorite)
}

func TestNew_MigratesLegacyValue(t *testing.T) {
	old := `[{"id":"s1","title":"Read parquet","code":"spark.read.parquet(p)","language":"pyspark","tags":["io"],"isFavorite":true,"timesUsed":4}]`
	engine := memory.New()
	a := newApp(t, testConfig(t),
		WithEngine(engine),
		WithLegacy(legacy.Map{model.Snippets.LegacyKey(): old}),
	)
	ctx := context.Background()
	a.Start(ctx)
	waitSynced(t, a)
	t.Cleanup(func() { _ = a.Close(ctx) })

	e, ok := a.Collection(model.Snippets).Get("s1")
	require.True(t, ok)
	assert.True(t, e.IsFavorite)
	assert.Equal(t, 4, e.TimesUsed)
	assert.Len(t, a.Collection(model.Snippets).Snapshot().Entities, 2, "seed-only s2 is merged in")
}

func TestNew_DegradesWhenEngineCannotOpen(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Engine = "floppy"

	a := newApp(t, cfg)
	assert.False(t, a.Store.Available())

	ctx := context.Background()
	a.Start(ctx)
	waitSynced(t, a)
	t.Cleanup(func() { _ = a.Close(ctx) })

	added, err := a.Collection(model.Snippets).Add(ctx, model.NewEntity{
		Title: "Still works", Content: "SELECT 1", Category: "sql",
	})
	require.NoError(t, err)
	_, ok := a.Collection(model.Snippets).Get(added.ID)
	assert.True(t, ok)
}

func TestNew_OpensSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Engine = config.EngineSQLite
	cfg.Storage.Path = filepath.Join(t.TempDir(), "nested", "snippetbase.db")

	a := newApp(t, cfg)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	assert.True(t, a.Store.Available())
	assert.Equal(t, sqlite.LatestSchemaVersion, a.Store.SchemaVersion(context.Background()))
}

func TestNew_OpensPebble(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Engine = config.EnginePebble
	cfg.Storage.Path = filepath.Join(t.TempDir(), "kv")

	a := newApp(t, cfg)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	assert.True(t, a.Store.Available())
}

func TestNew_Auth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.TokenSecret = "0123456789abcdef0123"

	a := newApp(t, cfg)
	require.NotNil(t, a.Tokens)
	token, err := a.Tokens.Generate("local")
	require.NoError(t, err)
	sub, err := a.Tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "local", sub)

	cfg.Auth.TokenSecret = "short"
	_, err = New(cfg, discardLogger(), WithSeed(testSeed))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("hello", slog.String("k", "v"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	logger = NewLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("dropped")
	assert.Empty(t, buf.String())
}
