// Package cron schedules periodic background tasks, chiefly the
// safety-net resync that re-pushes the full snapshot even when the
// debounced path has nothing pending.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and
	// dedup).
	Name() string

	// Schedule returns a cron expression. Five-field expressions and
	// descriptors ("@every 15m", "@hourly") are both accepted.
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
