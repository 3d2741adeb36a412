// Package app is the composition root. It turns a Config into a running set
// of collections with their store, seed data, query facade and token service,
// and is shared by the HTTP server and the command-line tools.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/snippetbase/internal/auth"
	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/config"
	"github.com/sakif/snippetbase/internal/model"
	"github.com/sakif/snippetbase/internal/query"
	"github.com/sakif/snippetbase/internal/search"
	"github.com/sakif/snippetbase/internal/seed"
	"github.com/sakif/snippetbase/internal/storage"
	"github.com/sakif/snippetbase/internal/storage/legacy"
	"github.com/sakif/snippetbase/internal/storage/memory"
	"github.com/sakif/snippetbase/internal/storage/pebblekv"
	"github.com/sakif/snippetbase/internal/storage/sqlite"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *storage.Store
	Facade *query.Facade
	// Tokens is nil when auth is disabled.
	Tokens *auth.TokenService

	collections map[model.Domain]*collection.Collection
}

type options struct {
	seed   seed.Loader
	engine storage.Engine
	legacy storage.LegacyReader
	clock  func() time.Time
}

type Option func(*options)

// WithSeed replaces the bundled seed data.
func WithSeed(l seed.Loader) Option {
	return func(o *options) { o.seed = l }
}

// WithEngine uses e instead of opening the engine named in the config.
func WithEngine(e storage.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithLegacy replaces the legacy directory reader.
func WithLegacy(r storage.LegacyReader) Option {
	return func(o *options) { o.legacy = r }
}

// WithClock sets the clock used for new entity timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New wires every component. A storage engine that fails to open is logged
// and the app runs without durable storage; only a bad auth configuration is
// an error.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seed == nil {
		o.seed = seed.NewBundled()
	}
	if o.legacy == nil && cfg.Storage.LegacyDir != "" {
		o.legacy = legacy.Dir{Path: cfg.Storage.LegacyDir}
	}
	if o.engine == nil {
		e, err := openEngine(cfg.Storage)
		if err != nil {
			logger.Warn("durable storage unavailable, changes will not survive a restart",
				slog.String("engine", cfg.Storage.Engine),
				slog.String("path", cfg.Storage.Path),
				slog.String("error", err.Error()),
			)
		} else {
			o.engine = e
		}
	}

	a := &App{
		Config:      cfg,
		Logger:      logger,
		collections: make(map[model.Domain]*collection.Collection, len(model.Domains)),
	}

	a.Store = storage.New(o.engine, o.legacy, logger,
		storage.WithDevelopment(cfg.App.IsDevelopment()),
		storage.WithLegacyKeys(model.LegacyKeyFor),
	)

	searchOpts := []search.Option{search.WithFuzzy(cfg.Search.Fuzzy)}
	if len(cfg.Search.Synonyms) > 0 {
		searchOpts = append(searchOpts, search.WithSynonyms(search.Synonyms(cfg.Search.Synonyms)))
	}
	a.Facade = query.New(searchOpts...)

	if cfg.Auth.Enabled() {
		tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
		if err != nil {
			_ = a.Store.Close()
			return nil, fmt.Errorf("app: creating token service: %w", err)
		}
		a.Tokens = tokens
	}

	var colOpts []collection.Option
	if o.clock != nil {
		colOpts = append(colOpts, collection.WithClock(o.clock))
	}
	for _, d := range model.Domains {
		a.collections[d] = collection.New(d, a.Store, o.seed, logger, colOpts...)
	}
	return a, nil
}

func openEngine(cfg config.StorageConfig) (storage.Engine, error) {
	switch cfg.Engine {
	case config.EngineMemory:
		return memory.New(), nil
	case config.EnginePebble:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", cfg.Path, err)
		}
		return pebblekv.Open(cfg.Path)
	case config.EngineSQLite, "":
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
		return sqlite.New(cfg.Path)
	}
	return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
}

// Start begins hydrating every collection. It does not wait for them.
func (a *App) Start(ctx context.Context) {
	for _, d := range model.Domains {
		a.collections[d].Start(ctx)
	}
}

// WaitReady blocks until every collection has applied its persisted value.
func (a *App) WaitReady(ctx context.Context) error {
	for _, d := range model.Domains {
		if err := a.collections[d].WaitReady(ctx); err != nil {
			return err
		}
	}
	return nil
}

// WaitSettled blocks until every collection has finished loading, including
// reconciliation with the seed when that succeeds.
func (a *App) WaitSettled(ctx context.Context) error {
	for _, d := range model.Domains {
		if err := a.collections[d].WaitSettled(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Collection returns the collection for d, or nil for an unknown domain.
func (a *App) Collection(d model.Domain) *collection.Collection {
	return a.collections[d]
}

// Close flushes and stops every collection, then closes the store.
func (a *App) Close(ctx context.Context) error {
	for _, d := range model.Domains {
		a.collections[d].Close(ctx)
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("app: closing store: %w", err)
	}
	return nil
}
