package app

import (
	"context"
	"testing"
	"time"

	"github.com/confidant-ai/confidant/internal/backup"
	"github.com/confidant-ai/confidant/internal/config"
	"github.com/confidant-ai/confidant/pkg/chat"
)

// seedBackup writes a minimal local state so New restores instead of
// launching the interactive onboarding flow.
func seedBackup(t *testing.T, dataDir string) {
	t.Helper()

	bk, err := backup.OpenSQLite(dataDir + "/backup.db")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer bk.Close() //nolint:errcheck // test store

	ctx := context.Background()
	user := chat.User{ID: "u1", Username: "ada", DisplayName: "Ada", JoinedAt: time.Now()}
	if err := bk.SaveUser(ctx, user); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	threads := []*chat.Thread{{
		ID:    "t1",
		Title: "Hello",
		Turns: []chat.Turn{
			{Role: chat.RoleUser, Content: "hi", Sealed: true},
			{Role: chat.RoleAssistant, Content: "hey there", Sealed: true},
		},
		UpdatedAt: time.Now(),
	}}
	if err := bk.SaveThreads(ctx, threads); err != nil {
		t.Fatalf("SaveThreads: %v", err)
	}
	if err := bk.SaveScore(ctx, 7); err != nil {
		t.Fatalf("SaveScore: %v", err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{DataDir: t.TempDir()}
	cfg.Defaults()
	return cfg
}

func TestNew_RestoresLocalState(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	seedBackup(t, cfg.DataDir)

	ctx := context.Background()
	a, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx) //nolint:errcheck // best-effort teardown

	if got := a.Cache().User().Username; got != "ada" {
		t.Errorf("restored username = %q, want ada", got)
	}
	if got := a.Cache().Score(); got != 7 {
		t.Errorf("restored score = %d, want 7", got)
	}
	threads := a.Cache().Threads()
	if len(threads) != 1 || threads[0].Title != "Hello" {
		t.Fatalf("restored threads = %+v", threads)
	}
	if len(threads[0].Turns) != 2 {
		t.Errorf("restored turn count = %d, want 2", len(threads[0].Turns))
	}
}

func TestNew_SyncDisabledBuildsNoSyncStack(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	seedBackup(t, cfg.DataDir)

	ctx := context.Background()
	a, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close(ctx) //nolint:errcheck // best-effort teardown

	if a.sync != nil || a.scheduler != nil {
		t.Error("sync stack built with sync disabled")
	}
	if a.Engine() == nil {
		t.Error("engine not built")
	}
}

func TestClose_ReturnsCleanly(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	seedBackup(t, cfg.DataDir)

	ctx := context.Background()
	a, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
