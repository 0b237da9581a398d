// Package sqlite implements the confidantd server store: account rows for
// auth plus the per-user snapshot mirror written by client pushes. It uses
// modernc.org/sqlite (pure Go, no CGO) with WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/confidant-ai/confidant/internal/auth"
	"github.com/confidant-ai/confidant/internal/store"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Compile-time interface guards.
var (
	_ store.Store          = (*Store)(nil)
	_ auth.CredentialStore = (*Store)(nil)
)

// Config holds store construction options.
type Config struct {
	// Path is the database file location.
	Path string

	// BusyTimeout in milliseconds. Defaults to 5000.
	BusyTimeout int

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = 5000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Store is the SQLite-backed server store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates the database file if needed, applies pragmas, and runs
// migrations.
func Open(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", cfg.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection so
	// PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.TODO(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(context.TODO(), fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := cfg.Logger.With("component", "store.sqlite")
	logger.Info("server store opened", "path", cfg.Path)
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAccount implements auth.CredentialStore.
func (s *Store) CreateAccount(ctx context.Context, acct auth.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, credential_hash, joined_at)
		VALUES (?, ?, ?, ?, ?)`,
		acct.UserID, acct.Username, acct.DisplayName, acct.CredentialHash,
		acct.JoinedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicateUsername
		}
		return fmt.Errorf("sqlite: create account: %w", err)
	}
	return nil
}

// AccountByUsername implements auth.CredentialStore.
func (s *Store) AccountByUsername(ctx context.Context, username string) (auth.Account, error) {
	var acct auth.Account
	var joined string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, credential_hash, joined_at
		FROM users WHERE username = ?`, username).
		Scan(&acct.UserID, &acct.Username, &acct.DisplayName, &acct.CredentialHash, &joined)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrUnknownAccount
	}
	if err != nil {
		return auth.Account{}, fmt.Errorf("sqlite: account by username: %w", err)
	}
	acct.JoinedAt, _ = time.Parse(time.RFC3339Nano, joined)
	return acct, nil
}
