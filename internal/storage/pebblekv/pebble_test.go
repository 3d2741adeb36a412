package pebblekv

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T, fs vfs.FS) *DB {
	t.Helper()
	db, err := Open("store", WithFS(fs))
	require.NoError(t, err)
	return db
}

func TestOpen_WritesSchemaVersion(t *testing.T) {
	db := openMem(t, vfs.NewMem())
	defer db.Close()

	v, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestGetPut(t *testing.T) {
	db := openMem(t, vfs.NewMem())
	defer db.Close()
	ctx := context.Background()

	_, ok, err := db.Get(ctx, "snippets")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Put(ctx, "snippets", []byte(`[{"id":"x"}]`)))
	got, ok, err := db.Get(ctx, "snippets")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"x"}]`, string(got))
}

func TestReopenKeepsData(t *testing.T) {
	fs := vfs.NewMem()
	ctx := context.Background()

	db := openMem(t, fs)
	require.NoError(t, db.Put(ctx, "cheat_sheets", []byte(`[]`)))
	require.NoError(t, db.Close())

	db = openMem(t, fs)
	defer db.Close()
	got, ok, err := db.Get(ctx, "cheat_sheets")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, string(got))
}

func TestRecordKeysDoNotCollideWithMeta(t *testing.T) {
	db := openMem(t, vfs.NewMem())
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.Put(ctx, "schema_version", []byte(`"not a number"`)))

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}
