package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confidant-ai/confidant/internal/store"
	"github.com/confidant-ai/confidant/pkg/chat"
)

// FetchUser implements store.Store. Only the snapshot columns are
// returned; credentials stay inside the auth surface.
func (s *Store) FetchUser(ctx context.Context, id string) (store.UserRecord, error) {
	var rec store.UserRecord
	var facts string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, facts, score, mood FROM users WHERE id = ?`, id).
		Scan(&rec.ID, &facts, &rec.Score, &rec.Mood)
	if errors.Is(err, sql.ErrNoRows) {
		return store.UserRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("sqlite: fetch user: %w", err)
	}
	if err := json.Unmarshal([]byte(facts), &rec.Facts); err != nil {
		return store.UserRecord{}, fmt.Errorf("sqlite: decode facts for %s: %w", id, err)
	}
	return rec, nil
}

// UpsertUser implements store.Store. The row must already exist (accounts
// are created through signup); only the snapshot columns are replaced.
func (s *Store) UpsertUser(ctx context.Context, rec store.UserRecord) error {
	facts, err := json.Marshal(rec.Facts)
	if err != nil {
		return fmt.Errorf("sqlite: encode facts: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET facts = ?, score = ?, mood = ? WHERE id = ?`,
		string(facts), rec.Score, rec.Mood, rec.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertThread implements store.Store. Keyed by thread id: existing rows
// get title, turns, and timestamp overwritten; new ids insert.
func (s *Store) UpsertThread(ctx context.Context, rec store.ThreadRecord) error {
	turns, err := json.Marshal(rec.Turns)
	if err != nil {
		return fmt.Errorf("sqlite: encode turns: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, owner_id, title, turns, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			turns = excluded.turns,
			updated_at = excluded.updated_at`,
		rec.ID, rec.OwnerID, rec.Title, string(turns),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert thread: %w", err)
	}
	return nil
}

// ListThreads implements store.Store, most recently updated first.
func (s *Store) ListThreads(ctx context.Context, ownerID string) ([]store.ThreadRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, turns, updated_at
		FROM threads WHERE owner_id = ?
		ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list threads: %w", err)
	}
	defer rows.Close() //nolint:errcheck // best-effort close

	var recs []store.ThreadRecord
	for rows.Next() {
		var rec store.ThreadRecord
		var turns, updated string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Title, &turns, &updated); err != nil {
			return nil, fmt.Errorf("sqlite: scan thread: %w", err)
		}
		if err := json.Unmarshal([]byte(turns), &rec.Turns); err != nil {
			return nil, fmt.Errorf("sqlite: decode turns for %s: %w", rec.ID, err)
		}
		if rec.Turns == nil {
			rec.Turns = []chat.Turn{}
		}
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate threads: %w", err)
	}
	return recs, nil
}
