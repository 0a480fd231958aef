// Package tasks implements the scheduled jobs of the diary bot: reminder polling,
// the nightly digest and database maintenance.
package tasks

import (
	"context"
	"log/slog"
)

// ReminderPoller fires due checkpoint reminders.
type ReminderPoller interface {
	Run(ctx context.Context) error
}

// DigestRunner sends the daily alert digest.
type DigestRunner interface {
	RunNow(ctx context.Context) error
}

// Maintainer runs database housekeeping.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Reminders ReminderPoller
	Digest    DigestRunner
	Store     Maintainer
}
