// Package pebblekv is a storage engine on top of CockroachDB's Pebble LSM.
// Records live under "rec/<key>"; the schema version lives under
// "meta/schema_version".
package pebblekv

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/sakif/snippetbase/internal/storage"
)

var _ storage.Engine = (*DB)(nil)

// SchemaVersion is written on first open. Bump it together with an upgrade
// step in migrate.
const SchemaVersion = 1

var schemaKey = []byte("meta/schema_version")

func recordKey(key string) []byte { return []byte("rec/" + key) }

type DB struct {
	db *pebble.DB
}

type Option func(*pebble.Options)

// WithFS swaps the filesystem, e.g. vfs.NewMem() in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *pebble.Options) { o.FS = fs }
}

// Open opens or creates a Pebble store in dir.
func Open(dir string, opts ...Option) (*DB, error) {
	o := &pebble.Options{}
	for _, opt := range opts {
		opt(o)
	}
	db, err := pebble.Open(dir, o)
	if err != nil {
		return nil, fmt.Errorf("pebble: opening %s: %w", dir, err)
	}
	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pebble: migrating: %w", err)
	}
	return d, nil
}

func (d *DB) migrate() error {
	v, err := d.SchemaVersion(context.Background())
	if err != nil {
		return err
	}
	if v >= SchemaVersion {
		return nil
	}
	return d.db.Set(schemaKey, []byte(strconv.Itoa(SchemaVersion)), pebble.Sync)
}

func (d *DB) SchemaVersion(context.Context) (int, error) {
	val, closer, err := d.db.Get(schemaKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("pebble: reading schema version: %w", err)
	}
	defer closer.Close()
	v, err := strconv.Atoi(string(val))
	if err != nil {
		return 0, fmt.Errorf("pebble: bad schema version %q: %w", val, err)
	}
	return v, nil
}

// Get copies the value out before releasing Pebble's buffer.
func (d *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	val, closer, err := d.db.Get(recordKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble: getting record %s: %w", key, err)
	}
	out := append([]byte(nil), val...)
	if err := closer.Close(); err != nil {
		return nil, false, fmt.Errorf("pebble: releasing record %s: %w", key, err)
	}
	return out, true, nil
}

func (d *DB) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.db.Set(recordKey(key), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble: putting record %s: %w", key, err)
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
