package storage

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sakif/snippetbase/internal/metrics"
)

// Store wraps an Engine with legacy migration, change detection and failure
// containment. A nil engine means storage is unavailable: reads fall back to
// the legacy store without copying and writes are dropped.
type Store struct {
	engine    Engine
	legacy    LegacyReader
	logger    *slog.Logger
	dev       bool
	legacyKey func(string) string

	// migrated records keys whose legacy lookup has already been attempted.
	migrated *xsync.MapOf[string, struct{}]
	// digests holds the xxhash of the value last read or written per key.
	digests *xsync.MapOf[string, uint64]
	// unreadable holds keys whose last engine read failed. Writes to them are
	// refused so a defaulted in-memory value never replaces a stored record
	// that could not be read.
	unreadable *xsync.MapOf[string, struct{}]
}

// Option configures a Store.
type Option func(*Store)

// WithDevelopment enables logging of swallowed storage errors.
func WithDevelopment(dev bool) Option {
	return func(s *Store) { s.dev = dev }
}

// WithLegacyKeys maps a record key to the key used in the legacy store.
// Without it the same key is used in both.
func WithLegacyKeys(fn func(string) string) Option {
	return func(s *Store) { s.legacyKey = fn }
}

// New creates a Store. engine and legacy may both be nil.
func New(engine Engine, legacy LegacyReader, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		engine:     engine,
		legacy:     legacy,
		logger:     logger,
		legacyKey:  func(k string) string { return k },
		migrated:   xsync.NewMapOf[string, struct{}](),
		digests:    xsync.NewMapOf[string, uint64](),
		unreadable: xsync.NewMapOf[string, struct{}](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a durable engine is attached.
func (s *Store) Available() bool { return s.engine != nil }

// SchemaVersion returns the engine's schema version, or 0 when unavailable.
func (s *Store) SchemaVersion(ctx context.Context) int {
	if s.engine == nil {
		return 0
	}
	v, err := s.engine.SchemaVersion(ctx)
	if err != nil {
		s.fail("schema_version", "", err)
		return 0
	}
	return v
}

// Get returns the value stored under key. On a miss it attempts, once per key
// per Store, to copy a parseable legacy value into the engine and return it.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if s.engine != nil {
		value, ok, err := s.engine.Get(ctx, key)
		switch {
		case err != nil:
			s.unreadable.Store(key, struct{}{})
			s.fail("get", key, err)
			return nil, false
		case ok && !json.Valid(value):
			s.fail("get", key, errCorrupt)
			return nil, false
		case ok:
			s.unreadable.Delete(key)
			s.digests.Store(key, xxhash.Sum64(value))
			metrics.StoreOps.WithLabelValues("get", "hit").Inc()
			return json.RawMessage(value), true
		}
		s.unreadable.Delete(key)
		metrics.StoreOps.WithLabelValues("get", "miss").Inc()
	}
	return s.migrateLegacy(ctx, key)
}

// Put writes value under key unless it is byte-identical to the value last
// read or written, or the last read of key failed. It reports whether the
// engine was written.
func (s *Store) Put(ctx context.Context, key string, value json.RawMessage) bool {
	if s.engine == nil {
		return false
	}
	if _, bad := s.unreadable.Load(key); bad {
		metrics.StoreOps.WithLabelValues("put", "unreadable").Inc()
		return false
	}
	digest := xxhash.Sum64(value)
	if last, ok := s.digests.Load(key); ok && last == digest {
		metrics.StoreOps.WithLabelValues("put", "unchanged").Inc()
		return false
	}
	if err := s.engine.Put(ctx, key, value); err != nil {
		s.fail("put", key, err)
		return false
	}
	s.digests.Store(key, digest)
	metrics.StoreOps.WithLabelValues("put", "written").Inc()
	return true
}

// Close closes the engine.
func (s *Store) Close() error {
	if s.engine == nil {
		return nil
	}
	return s.engine.Close()
}

func (s *Store) migrateLegacy(ctx context.Context, key string) (json.RawMessage, bool) {
	if s.legacy == nil {
		return nil, false
	}
	if _, attempted := s.migrated.LoadOrStore(key, struct{}{}); attempted {
		return nil, false
	}

	legacyKey := s.legacyKey(key)
	raw, ok, err := s.legacy.Lookup(legacyKey)
	if err != nil {
		s.fail("legacy_lookup", legacyKey, err)
		metrics.LegacyMigrations.WithLabelValues(key, "error").Inc()
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}
	value := json.RawMessage(raw)
	if !json.Valid(value) {
		s.fail("legacy_lookup", legacyKey, errCorrupt)
		metrics.LegacyMigrations.WithLabelValues(key, "corrupt").Inc()
		return nil, false
	}

	if s.engine != nil {
		if err := s.engine.Put(ctx, key, value); err != nil {
			// The value is still usable for this session.
			s.fail("legacy_copy", key, err)
		} else {
			s.digests.Store(key, xxhash.Sum64(value))
			s.logger.Info("migrated legacy record",
				slog.String("key", key),
				slog.String("legacy_key", legacyKey),
				slog.Int("bytes", len(value)),
			)
		}
	}
	metrics.LegacyMigrations.WithLabelValues(key, "migrated").Inc()
	return value, true
}

func (s *Store) fail(op, key string, err error) {
	metrics.StoreFailures.WithLabelValues(op).Inc()
	if !s.dev {
		return
	}
	s.logger.Error("storage operation failed",
		slog.String("op", op),
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}
