// Package sweeper runs the reconciliation store's periodic sweep.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tabsplit/internal/reconciliation/store"
)

const jobName = "reconciler_sweep"

// Target is swept on every tick
type Target interface {
	Sweep(ctx context.Context) store.SweepReport
}

type Sweeper struct {
	scheduler gocron.Scheduler
	target    Target
	interval  time.Duration
	logger    *slog.Logger
}

func New(target Target, interval time.Duration, logger *slog.Logger) (*Sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Sweeper{
		scheduler: s,
		target:    target,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start schedules the sweep. A sweep that overruns the interval delays the
// next one instead of overlapping it.
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.run(ctx) }),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", jobName, err)
	}

	s.scheduler.Start()
	s.logger.Info("Reconciler sweep scheduled", "interval", s.interval.String())
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	started := time.Now()
	report := s.target.Sweep(ctx)
	s.logger.Debug("Reconciler sweep ran",
		"timed_out", report.TimedOut,
		"retried", report.Retried,
		"evicted", report.Evicted,
		"duration", time.Since(started).String(),
	)
}

// Stop waits for a running sweep and stops the schedule
func (s *Sweeper) Stop() error {
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	s.logger.Info("Reconciler sweep stopped")
	return nil
}
