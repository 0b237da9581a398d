package backup_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/confidant-ai/confidant/internal/backup"
	"github.com/confidant-ai/confidant/pkg/chat"
)

func openTestStore(t *testing.T) *backup.SQLiteStore {
	t.Helper()
	store, err := backup.OpenSQLite(filepath.Join(t.TempDir(), "backup.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoad_NoIdentity(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	_, err := store.Load(context.Background())
	if !errors.Is(err, backup.ErrNoRecord) {
		t.Fatalf("Load on empty store: err = %v, want ErrNoRecord", err)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	user := chat.User{
		ID:       "u1",
		Username: "ada",
		JoinedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Mood:     "cheerful",
	}
	threads := []*chat.Thread{
		{
			ID:    "t1",
			Title: "Hello",
			Turns: []chat.Turn{
				{Role: chat.RoleUser, Content: "Hello", Sealed: true},
				{Role: chat.RoleAssistant, Content: "Hi there", Sealed: true},
			},
		},
	}
	facts := []chat.Fact{{ID: "f1", Content: "likes tea"}}

	if err := store.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if err := store.SaveThreads(ctx, threads); err != nil {
		t.Fatalf("SaveThreads: %v", err)
	}
	if err := store.SaveFacts(ctx, facts); err != nil {
		t.Fatalf("SaveFacts: %v", err)
	}
	if err := store.SaveScore(ctx, 7); err != nil {
		t.Fatalf("SaveScore: %v", err)
	}
	if err := store.SaveMood(ctx, "cheerful"); err != nil {
		t.Fatalf("SaveMood: %v", err)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if snap.User.Username != "ada" {
		t.Errorf("User.Username = %q, want %q", snap.User.Username, "ada")
	}
	if len(snap.Threads) != 1 || snap.Threads[0].ID != "t1" {
		t.Fatalf("Threads = %+v, want one thread t1", snap.Threads)
	}
	if got := snap.Threads[0].Turns; len(got) != 2 || !got[0].Sealed {
		t.Errorf("Turns = %+v, want two sealed turns", got)
	}
	if len(snap.Facts) != 1 || snap.Facts[0].Content != "likes tea" {
		t.Errorf("Facts = %+v, want one fact", snap.Facts)
	}
	if snap.Score != 7 {
		t.Errorf("Score = %d, want 7", snap.Score)
	}
	if snap.Mood != "cheerful" {
		t.Errorf("Mood = %q, want %q", snap.Mood, "cheerful")
	}
}

func TestSave_OverwritesWholesale(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	if err := store.SaveUser(ctx, chat.User{ID: "u1", Username: "ada"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	for i := range 3 {
		if err := store.SaveScore(ctx, i); err != nil {
			t.Fatalf("SaveScore(%d): %v", i, err)
		}
	}
	if err := store.SaveThreads(ctx, []*chat.Thread{{ID: "t2", Title: "Second"}}); err != nil {
		t.Fatalf("SaveThreads: %v", err)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Score != 2 {
		t.Errorf("Score = %d, want last write 2", snap.Score)
	}
	if len(snap.Threads) != 1 || snap.Threads[0].ID != "t2" {
		t.Errorf("Threads = %+v, want only the last written list", snap.Threads)
	}
}
