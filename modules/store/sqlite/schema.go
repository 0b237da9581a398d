package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// schema is idempotent: every statement is CREATE IF NOT EXISTS, so
// migrate can run on every open.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	username        TEXT NOT NULL UNIQUE,
	display_name    TEXT NOT NULL DEFAULT '',
	credential_hash TEXT NOT NULL,
	joined_at       TEXT NOT NULL,
	facts           TEXT NOT NULL DEFAULT '[]',
	score           INTEGER NOT NULL DEFAULT 0,
	mood            TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS threads (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL REFERENCES users(id),
	title      TEXT NOT NULL DEFAULT '',
	turns      TEXT NOT NULL DEFAULT '[]',
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_threads_owner ON threads(owner_id, updated_at DESC);
`

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite does not export a typed error for this.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
