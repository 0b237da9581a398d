package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/confidant-ai/confidant/internal/auth"
	"github.com/confidant-ai/confidant/internal/store"
	"github.com/confidant-ai/confidant/pkg/chat"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: filepath.Join(t.TempDir(), "confidantd.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestAccount(t *testing.T, s *Store, username string) auth.Account {
	t.Helper()
	acct := auth.Account{
		UserID:         "uid-" + username,
		Username:       username,
		DisplayName:    username,
		CredentialHash: auth.HashCredential("pw"),
		JoinedAt:       time.Now(),
	}
	if err := s.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return acct
}

func TestAccountRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	acct := createTestAccount(t, s, "ada")

	got, err := s.AccountByUsername(context.Background(), "ada")
	if err != nil {
		t.Fatalf("AccountByUsername: %v", err)
	}
	if got.UserID != acct.UserID || got.CredentialHash != acct.CredentialHash {
		t.Errorf("account = %+v, want %+v", got, acct)
	}

	if _, err := s.AccountByUsername(context.Background(), "nobody"); !errors.Is(err, auth.ErrUnknownAccount) {
		t.Errorf("unknown username err = %v, want ErrUnknownAccount", err)
	}
}

func TestCreateAccount_DuplicateUsername(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	createTestAccount(t, s, "ada")

	err := s.CreateAccount(context.Background(), auth.Account{
		UserID:         "other-id",
		Username:       "ada",
		CredentialHash: auth.HashCredential("x"),
		JoinedAt:       time.Now(),
	})
	if !errors.Is(err, auth.ErrDuplicateUsername) {
		t.Errorf("err = %v, want ErrDuplicateUsername", err)
	}
}

func TestUserSnapshotColumns(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	acct := createTestAccount(t, s, "ada")
	ctx := context.Background()

	// Fresh account: empty snapshot columns.
	rec, err := s.FetchUser(ctx, acct.UserID)
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if rec.Score != 0 || len(rec.Facts) != 0 {
		t.Errorf("fresh record = %+v, want zero snapshot", rec)
	}

	want := store.UserRecord{
		ID:    acct.UserID,
		Facts: []chat.Fact{{ID: "f1", Content: "likes tea"}},
		Score: 7,
		Mood:  "calm",
	}
	if err := s.UpsertUser(ctx, want); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	rec, err = s.FetchUser(ctx, acct.UserID)
	if err != nil {
		t.Fatalf("FetchUser after upsert: %v", err)
	}
	if rec.Score != 7 || rec.Mood != "calm" || len(rec.Facts) != 1 || rec.Facts[0].Content != "likes tea" {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
}

func TestUpsertUser_UnknownID(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	err := s.UpsertUser(context.Background(), store.UserRecord{ID: "ghost"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestThreadUpsertAndList(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	acct := createTestAccount(t, s, "ada")
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	older := store.ThreadRecord{
		ID: "t1", OwnerID: acct.UserID, Title: "First",
		Turns:     []chat.Turn{{Role: chat.RoleUser, Content: "hi", Sealed: true}},
		UpdatedAt: base,
	}
	newer := store.ThreadRecord{
		ID: "t2", OwnerID: acct.UserID, Title: "Second",
		Turns:     []chat.Turn{},
		UpdatedAt: base.Add(time.Minute),
	}
	for _, rec := range []store.ThreadRecord{older, newer} {
		if err := s.UpsertThread(ctx, rec); err != nil {
			t.Fatalf("UpsertThread(%s): %v", rec.ID, err)
		}
	}

	recs, err := s.ListThreads(ctx, acct.UserID)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("thread count = %d, want 2", len(recs))
	}
	if recs[0].ID != "t2" || recs[1].ID != "t1" {
		t.Errorf("order = [%s %s], want most recent first", recs[0].ID, recs[1].ID)
	}
	if len(recs[1].Turns) != 1 || recs[1].Turns[0].Content != "hi" {
		t.Errorf("turns did not round-trip: %+v", recs[1].Turns)
	}

	// Same id again: overwrite, not duplicate.
	older.Title = "First (renamed)"
	older.UpdatedAt = base.Add(2 * time.Minute)
	if err := s.UpsertThread(ctx, older); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	recs, err = s.ListThreads(ctx, acct.UserID)
	if err != nil {
		t.Fatalf("ListThreads after re-upsert: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("re-upsert duplicated rows: %d", len(recs))
	}
	if recs[0].Title != "First (renamed)" {
		t.Errorf("re-upsert did not overwrite title: %q", recs[0].Title)
	}
}

func TestListThreads_ScopedToOwner(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ada := createTestAccount(t, s, "ada")
	bob := createTestAccount(t, s, "bob")
	ctx := context.Background()

	for i, owner := range []string{ada.UserID, bob.UserID} {
		rec := store.ThreadRecord{
			ID: "t" + string(rune('0'+i)), OwnerID: owner,
			Turns: []chat.Turn{}, UpdatedAt: time.Now(),
		}
		if err := s.UpsertThread(ctx, rec); err != nil {
			t.Fatalf("UpsertThread: %v", err)
		}
	}

	recs, err := s.ListThreads(ctx, ada.UserID)
	if err != nil {
		t.Fatalf("ListThreads: %v", err)
	}
	if len(recs) != 1 || recs[0].OwnerID != ada.UserID {
		t.Errorf("ListThreads leaked other owners' threads: %+v", recs)
	}
}
