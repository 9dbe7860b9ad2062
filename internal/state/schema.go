package state

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// schemaStatements are executed in order to create the database schema.
// All use IF NOT EXISTS for idempotent re-application.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS conversations (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role            TEXT NOT NULL,
		content         TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT '',
		metadata        TEXT NOT NULL DEFAULT '{}',
		created_at      INTEGER NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, rowid)`,

	`CREATE TABLE IF NOT EXISTS conversation_routes (
		conversation_id   TEXT PRIMARY KEY,
		source_channel_id TEXT NOT NULL DEFAULT '',
		source_platform   TEXT NOT NULL DEFAULT '',
		destination_id    TEXT NOT NULL DEFAULT '',
		updated_at        INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS channel_destinations (
		channel_id     TEXT PRIMARY KEY,
		destination_id TEXT NOT NULL,
		updated_at     INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_links (
		user_key        TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		updated_at      INTEGER NOT NULL
	)`,
}

// migrate creates or updates the database schema to the latest version.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("state: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("state: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("state: migrate: %w\nstatement: %s", err, stmt)
		}
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("state: record schema version: %w", err)
	}
	return nil
}
