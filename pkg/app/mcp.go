package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/confidant-ai/confidant/internal/backup"
	"github.com/confidant-ai/confidant/internal/config"
	"github.com/confidant-ai/confidant/internal/mcp"
	"github.com/confidant-ai/confidant/internal/session"
)

// RunMemoryServer serves the memory MCP tools over stdio against the
// local backup. It does not start the provider or the sync stack; the
// MCP host only needs the fact corpus.
func RunMemoryServer(ctx context.Context, cfg *config.Config, version string) error {
	logger := newLogger(cfg.Log)

	bk, err := backup.OpenSQLite(filepath.Join(cfg.DataDir, "backup.db"))
	if err != nil {
		return err
	}
	defer bk.Close() //nolint:errcheck // read-mostly; backup writes are synchronous

	cache := session.NewCache(session.Config{Backup: bk, Logger: logger})
	snap, err := bk.Load(ctx)
	if err != nil {
		if errors.Is(err, backup.ErrNoRecord) {
			return fmt.Errorf("app: no local state yet, run confidant first")
		}
		return err
	}
	cache.RestoreLocal(snap)

	return mcp.NewServer(cache, version, logger).ServeStdio()
}
