package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/glucodiary/internal/bot/tasks"
	"github.com/edgard/glucodiary/internal/config"
	botlog "github.com/edgard/glucodiary/internal/logger"
)

// Scheduler manages scheduled tasks using the gocron library.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
	ctx       context.Context //nolint:containedctx // base context of task runs, cancelled by Stop
	cancel    context.CancelFunc
}

// NewScheduler creates a new scheduler instance using gocron. A nil clock means the
// real clock.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc, clock clockwork.Clock) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := logger.With("component", "scheduler")

	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(botlog.NewGocronLogger(logger)),
		gocron.WithLocation(time.Local),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    log,
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules and starts all enabled tasks based on the configuration. Task runs
// receive a context derived from ctx that is cancelled on Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Debug("Configuring scheduler jobs...")

	if s.cfg == nil || len(s.cfg.Tasks) == 0 {
		s.logger.Warn("No scheduler tasks configured.")
		s.scheduler.Start()
		s.running = true
		return nil
	}

	scheduledCount := 0
	for _, taskName := range sortedTaskNames(s.cfg.Tasks) {
		taskConfig := s.cfg.Tasks[taskName]
		if !taskConfig.Enabled {
			s.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}

		taskFunc, exists := s.taskMap[taskName]
		if !exists {
			s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		definition, err := jobDefinition(taskConfig)
		if err != nil {
			s.logger.Warn("Scheduled task has no usable schedule, skipping", "task_name", taskName, "error", err)
			continue
		}

		opts := []gocron.JobOption{
			gocron.WithName(taskName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if taskConfig.StartImmediately {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}

		name, fn := taskName, taskFunc
		_, err = s.scheduler.NewJob(definition, gocron.NewTask(func() { s.runTask(name, fn) }), opts...)
		if err != nil {
			s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "interval", taskConfig.Interval, "error", err)
			continue
		}

		s.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule, "interval", taskConfig.Interval)
		scheduledCount++
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler initialized and started", "tasks_scheduled", scheduledCount)

	return nil
}

// Jobs returns the names of the scheduled jobs, sorted.
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	s.logger.Debug("Stopping scheduler gracefully (waiting for jobs)...")
	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}

func (s *Scheduler) runTask(name string, fn tasks.ScheduledTaskFunc) {
	log := s.logger.With("task_name", name)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Scheduled task panicked", "panic", r)
		}
	}()

	log.Debug("Running scheduled task")
	startTime := time.Now()
	if err := fn(s.ctx); err != nil {
		log.Error("Scheduled task failed", "error", err)
	}
	log.Debug("Finished scheduled task", "duration", time.Since(startTime))
}

// jobDefinition picks an interval job when Interval is set, a cron job otherwise.
//
//nolint:ireturn // gocron's API contract
func jobDefinition(cfg config.TaskConfig) (gocron.JobDefinition, error) {
	switch {
	case cfg.Interval > 0:
		return gocron.DurationJob(cfg.Interval), nil
	case cfg.Schedule != "":
		return gocron.CronJob(cfg.Schedule, true), nil // true = six-field cron with seconds
	default:
		return nil, fmt.Errorf("neither schedule nor interval set")
	}
}

func sortedTaskNames(taskCfg map[string]config.TaskConfig) []string {
	names := make([]string, 0, len(taskCfg))
	for name := range taskCfg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
