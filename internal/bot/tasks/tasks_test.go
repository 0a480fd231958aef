package tasks_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/glucodiary/internal/bot/tasks"
	"github.com/edgard/glucodiary/internal/config"
)

type countingRunner struct {
	calls int
	err   error
}

func (c *countingRunner) Run(context.Context) error               { c.calls++; return c.err }
func (c *countingRunner) RunNow(context.Context) error            { c.calls++; return c.err }
func (c *countingRunner) RunSQLMaintenance(context.Context) error { c.calls++; return c.err }

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()

	reminders, digest, store := &countingRunner{}, &countingRunner{}, &countingRunner{}
	registry := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:    slog.Default(),
		Reminders: reminders,
		Digest:    digest,
		Store:     store,
	})

	for name := range config.DefaultTasks {
		require.Contains(t, registry, name)
	}

	ctx := context.Background()
	require.NoError(t, registry[config.TaskProcedureReminders](ctx))
	require.NoError(t, registry[config.TaskDailyDigest](ctx))
	require.NoError(t, registry[config.TaskSQLMaintenance](ctx))

	assert.Equal(t, 1, reminders.calls)
	assert.Equal(t, 1, digest.calls)
	assert.Equal(t, 1, store.calls)
}

func TestTasksWrapErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	failing := &countingRunner{err: boom}
	registry := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:    slog.Default(),
		Reminders: failing,
		Digest:    failing,
		Store:     failing,
	})

	for name, task := range registry {
		assert.ErrorIs(t, task(context.Background()), boom, name)
	}
}
