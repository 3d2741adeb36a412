// Package storage is the Durable Store: a small key→value layer in front of a
// versioned storage engine, with one-time migration from the legacy
// flat-string store.
//
// WHOLE-COLLECTION RECORDS:
// Each key holds an entire collection as one JSON value ("snippets",
// "cheat_sheets"), not one row per entity. A flush is a single atomic replace.
// The price is that every write rewrites the whole collection, which keeps
// practical sizes to a few thousand entities per key.
//
// FAILURES STAY HERE:
// Nothing in this package returns a storage error to its caller. A failed
// read is reported as "absent", a failed write as "not written". Errors are
// logged only in development mode and always counted in metrics, so the
// application keeps running in memory when the engine is unavailable.
package storage

import "context"

// Engine is a durable, schema-versioned byte store.
// Implementations: storage/sqlite, storage/pebblekv, storage/memory.
type Engine interface {
	// Get returns (nil, false, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	SchemaVersion(ctx context.Context) (int, error)
	Close() error
}

// LegacyReader reads the pre-engine flat-string store.
type LegacyReader interface {
	// Lookup returns ("", false, nil) when the key is absent.
	Lookup(key string) (string, bool, error)
}
