package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/confidant-ai/confidant/pkg/chat"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// defaultDBFile is the filename used when only a directory is configured.
const defaultDBFile = "backup.db"

// SQLiteStore implements Store on a single-file SQLite database using
// modernc.org/sqlite (pure Go, no CGO) in WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the local backup database at path.
// If path is a directory, the default filename is appended.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, defaultDBFile)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("backup: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("backup: open %s: %w", path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backup: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backup: set busy_timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("backup: migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// put overwrites one collection record.
func (s *SQLiteStore) put(ctx context.Context, name string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO collections (name, payload, updated_at)
		VALUES (?, ?, ?)`,
		name, string(payload), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("backup: save %s: %w", name, err)
	}
	return nil
}

// get reads one collection record. Returns ErrNoRecord if absent.
func (s *SQLiteStore) get(ctx context.Context, name string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM collections WHERE name = ?", name,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("backup: load %s: %w", name, err)
	}
	return []byte(payload), nil
}

func (s *SQLiteStore) putJSON(ctx context.Context, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("backup: marshal %s: %w", name, err)
	}
	return s.put(ctx, name, payload)
}

// SaveUser implements Store.
func (s *SQLiteStore) SaveUser(ctx context.Context, user chat.User) error {
	return s.putJSON(ctx, CollectionUser, user)
}

// SaveThreads implements Store.
func (s *SQLiteStore) SaveThreads(ctx context.Context, threads []*chat.Thread) error {
	return s.putJSON(ctx, CollectionThreads, threads)
}

// SaveFacts implements Store.
func (s *SQLiteStore) SaveFacts(ctx context.Context, facts []chat.Fact) error {
	return s.putJSON(ctx, CollectionFacts, facts)
}

// SaveScore implements Store.
func (s *SQLiteStore) SaveScore(ctx context.Context, score int) error {
	return s.put(ctx, CollectionScore, []byte(strconv.Itoa(score)))
}

// SaveMood implements Store.
func (s *SQLiteStore) SaveMood(ctx context.Context, mood string) error {
	return s.put(ctx, CollectionMood, []byte(mood))
}

// Load implements Store. The user record is mandatory; everything else
// defaults to its zero value when missing.
func (s *SQLiteStore) Load(ctx context.Context) (chat.Snapshot, error) {
	var snap chat.Snapshot

	raw, err := s.get(ctx, CollectionUser)
	if err != nil {
		return chat.Snapshot{}, err
	}
	if err := json.Unmarshal(raw, &snap.User); err != nil {
		return chat.Snapshot{}, fmt.Errorf("backup: unmarshal user: %w", err)
	}

	if raw, err := s.get(ctx, CollectionThreads); err == nil {
		if err := json.Unmarshal(raw, &snap.Threads); err != nil {
			return chat.Snapshot{}, fmt.Errorf("backup: unmarshal threads: %w", err)
		}
	} else if !errors.Is(err, ErrNoRecord) {
		return chat.Snapshot{}, err
	}

	if raw, err := s.get(ctx, CollectionFacts); err == nil {
		if err := json.Unmarshal(raw, &snap.Facts); err != nil {
			return chat.Snapshot{}, fmt.Errorf("backup: unmarshal facts: %w", err)
		}
	} else if !errors.Is(err, ErrNoRecord) {
		return chat.Snapshot{}, err
	}

	if raw, err := s.get(ctx, CollectionScore); err == nil {
		score, convErr := strconv.Atoi(string(raw))
		if convErr != nil {
			return chat.Snapshot{}, fmt.Errorf("backup: parse score %q: %w", raw, convErr)
		}
		snap.Score = score
	} else if !errors.Is(err, ErrNoRecord) {
		return chat.Snapshot{}, err
	}

	if raw, err := s.get(ctx, CollectionMood); err == nil {
		snap.Mood = string(raw)
	} else if !errors.Is(err, ErrNoRecord) {
		return chat.Snapshot{}, err
	}

	return snap, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
