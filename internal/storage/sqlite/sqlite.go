// Package sqlite is the default storage engine: a single SQLite file holding
// one row per record key.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code and builds everywhere Go builds.
//
// SCHEMA VERSIONING:
// SQLite keeps a free integer in the database header, PRAGMA user_version.
// We use it as the schema version: migrations[i] upgrades the schema from
// version i to i+1, and user_version is bumped after each one succeeds.
// Opening an up-to-date database runs nothing.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/snippetbase/internal/storage"
)

var _ storage.Engine = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements storage.Engine.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs pending migrations.
//
// dbPath examples:
//   - "data/snippetbase.db" → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every record write is a whole-collection replace, so there is nothing
	// to gain from concurrent connections. One connection also keeps a
	// ":memory:" database from splitting into one database per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrations[i] takes the schema from version i to version i+1.
var migrations = []func(*DB) error{
	// v1: the records table.
	func(db *DB) error {
		_, err := db.conn.Exec(`
			CREATE TABLE IF NOT EXISTS records (
				key   TEXT PRIMARY KEY,
				value BLOB NOT NULL
			);
		`)
		return err
	},
	// v2: track when each record was last flushed.
	func(db *DB) error {
		return db.addColumnIfNotExists("records", "updated_at", "DATETIME")
	},
}

// LatestSchemaVersion is the version a freshly migrated database reports.
var LatestSchemaVersion = len(migrations)

func (db *DB) migrate() error {
	var current int
	if err := db.conn.QueryRow(`PRAGMA user_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading user_version: %w", err)
	}

	for v := current; v < len(migrations); v++ {
		if err := migrations[v](db); err != nil {
			return fmt.Errorf("migration to v%d: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := db.conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			return fmt.Errorf("setting user_version to %d: %w", v+1, err)
		}
	}
	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil // column already exists
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// SchemaVersion reports PRAGMA user_version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.conn.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return v, nil
}

// Get returns the value stored under key.
//
// sql.ErrNoRows is not a failure here: the key has never been
// written, which the Store treats as a miss.
func (db *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM records WHERE key = ?`,
		key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlite: getting record %s: %w", key, err)
	}
	return value, true, nil
}

// Put replaces the value stored under key (an upsert).
func (db *DB) Put(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: putting record %s: %w", key, err)
	}
	return nil
}
