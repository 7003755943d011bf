// Package scheduler reloads dashboard views on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// Loader loads a set of views.
type Loader interface {
	LoadAll(ctx context.Context, names []string, opts views.LoadOptions) error
}

// Config configures the refresh job.
type Config struct {
	Interval time.Duration // 0 disables the scheduler
	Views    []string
	Timeout  time.Duration // per run; 0 means no timeout
}

// Scheduler periodically reloads the configured views.
// Runs never overlap: a tick that fires while a run is in progress is skipped.
type Scheduler struct {
	loader Loader
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	cron   *gocron.Scheduler
	cancel context.CancelFunc

	runs     atomic.Uint64
	failures atomic.Uint64
}

// New creates a scheduler. It does nothing until Start is called.
func New(loader Loader, config Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		loader: loader,
		config: config,
		logger: logger.With("component", "scheduler"),
	}
}

// Enabled reports whether the scheduler has an interval and views to reload.
func (s *Scheduler) Enabled() bool {
	return s.config.Interval > 0 && len(s.config.Views) > 0
}

// Start schedules the refresh job. The first run happens one interval after
// Start. Start is a no-op when the scheduler is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("Refresh scheduler disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	_, err := cron.Every(s.config.Interval).WaitForSchedule().Do(func() {
		if err := s.RunNow(runCtx); err != nil {
			s.logger.Warn("Scheduled refresh failed", "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	cron.StartAsync()
	s.cron = cron
	s.cancel = cancel
	s.logger.Info("Refresh scheduler started", "interval", s.config.Interval, "views", s.config.Views)
	return nil
}

// RunNow reloads the configured views once, bypassing the payload cache.
func (s *Scheduler) RunNow(ctx context.Context) error {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	s.runs.Add(1)
	start := time.Now()
	err := s.loader.LoadAll(ctx, s.config.Views, views.LoadOptions{
		Force:   true,
		Trigger: views.TriggerScheduler,
	})
	if err != nil {
		s.failures.Add(1)
		return err
	}
	s.logger.Debug("Refresh completed", "views", s.config.Views, "duration", time.Since(start))
	return nil
}

// Stop stops the scheduler and cancels a run in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	s.cancel()
	s.cron.Stop()
	s.cron = nil
	s.logger.Info("Refresh scheduler stopped")
}

// Runs returns the number of refresh runs started.
func (s *Scheduler) Runs() uint64 {
	return s.runs.Load()
}

// Failures returns the number of refresh runs that returned an error.
func (s *Scheduler) Failures() uint64 {
	return s.failures.Load()
}
