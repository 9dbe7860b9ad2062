// Package state provides SQLite-backed implementations of the routing and
// conversation stores, for deployments that need durability across restarts
// where the in-memory stores do not suffice.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000 // milliseconds

// DB wraps the shared database handle behind the store constructors.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path. The database
// uses WAL mode, a 5 s busy timeout, and a single connection (SQLite
// serialises writes). The schema is migrated automatically.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("state: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("state: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Conversations returns a durable conversation store backed by this
// database.
func (d *DB) Conversations() *ConversationStore {
	return &ConversationStore{db: d.db}
}

// Routes returns a durable route store backed by this database.
func (d *DB) Routes() *RouteStore {
	return &RouteStore{db: d.db}
}

// UserLinks returns a durable user-link store backed by this database.
func (d *DB) UserLinks() *UserLinkStore {
	return &UserLinkStore{db: d.db}
}
