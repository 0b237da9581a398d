package cron

import (
	"context"
	"log/slog"
)

// Pusher is the subset of the sync engine needed by the resync job.
// Defined here to avoid a dependency on the syncer package.
type Pusher interface {
	Push(ctx context.Context) error
}

// ResyncJob re-pushes the full snapshot on a schedule. It repairs rows
// the debounced path left stale after partial push failures, at the cost
// of redundant upserts when nothing changed (they are idempotent).
type ResyncJob struct {
	Engine       Pusher
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "@every 15m"
}

// Compile-time interface check.
var _ Job = (*ResyncJob)(nil)

// Name implements Job.
func (j *ResyncJob) Name() string { return "resync" }

// Schedule implements Job.
func (j *ResyncJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "@every 15m"
}

// Run pushes the full snapshot.
func (j *ResyncJob) Run(ctx context.Context) error {
	if err := j.Engine.Push(ctx); err != nil {
		// The next tick retries; report for the scheduler's error log.
		return err
	}
	if j.Logger != nil {
		j.Logger.Debug("resync push completed")
	}
	return nil
}
