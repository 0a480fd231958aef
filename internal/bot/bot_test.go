package bot_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/glucodiary/internal/bot"
	"github.com/edgard/glucodiary/internal/bot/tasks"
	"github.com/edgard/glucodiary/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type blockingListener struct{}

func (blockingListener) Start(ctx context.Context) { <-ctx.Done() }

type returningListener struct{}

func (returningListener) Start(context.Context) {}

func newScheduler(t *testing.T, cfg *config.SchedulerConfig, registry map[string]tasks.ScheduledTaskFunc) *bot.Scheduler {
	t.Helper()
	s, err := bot.NewScheduler(nil, cfg, registry, nil)
	require.NoError(t, err)
	return s
}

func TestSchedulerSchedulesEnabledTasks(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	noop := func(context.Context) error { return nil }
	registry := map[string]tasks.ScheduledTaskFunc{
		"poll":    func(context.Context) error { runs.Add(1); return nil },
		"nightly": noop,
		"off":     noop,
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"poll":    {Enabled: true, Interval: time.Hour, StartImmediately: true},
		"nightly": {Enabled: true, Schedule: "0 59 23 * * *"},
		"off":     {Enabled: false, Schedule: "0 0 0 * * *"},
		"unknown": {Enabled: true, Schedule: "0 0 0 * * *"},
		"nowhen":  {Enabled: true},
	}}
	registry["nowhen"] = noop

	s := newScheduler(t, cfg, registry)
	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()), "second start must fail")

	assert.Equal(t, []string{"nightly", "poll"}, s.Jobs())
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond,
		"start-immediately task must run once on start")

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stopping twice is a no-op")
}

func TestSchedulerRecoversTaskPanic(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	registry := map[string]tasks.ScheduledTaskFunc{
		"boom": func(context.Context) error {
			defer close(done)
			panic("boom")
		},
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"boom": {Enabled: true, Interval: time.Hour, StartImmediately: true},
	}}

	s := newScheduler(t, cfg, registry)
	require.NoError(t, s.Start(context.Background()))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	require.NoError(t, s.Stop())
}

func TestBotRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	registry := map[string]tasks.ScheduledTaskFunc{
		"poll": func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		},
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"poll": {Enabled: true, Interval: time.Hour, StartImmediately: true},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	b := bot.NewBot(nil, blockingListener{}, newScheduler(t, cfg, registry))

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task did not run")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestBotRunFailsWhenListenerExits(t *testing.T) {
	t.Parallel()

	b := bot.NewBot(nil, returningListener{}, newScheduler(t, &config.SchedulerConfig{}, nil))
	err := b.Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}
