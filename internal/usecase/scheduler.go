package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alihassan4198-tech/repricer/internal/ports"
)

// Scheduler triggers the run driver from a recurring ports.Scheduler.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	logger *slog.Logger
}

// NewScheduler binds a runner to a scheduling driver.
func NewScheduler(driver ports.Scheduler, runner *Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, runner: runner, logger: logger}
}

// Start registers one run per trigger. Without a driver it is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	if s.runner == nil {
		return fmt.Errorf("scheduler has no runner")
	}

	return s.driver.Start(ctx, func(trigger time.Time) {
		started := time.Now()
		report, err := s.runner.Run(ctx)
		if err != nil {
			s.logger.Error("scheduled run aborted", "trigger", trigger.Format(time.RFC3339), "error", err)
			return
		}
		s.logger.Info("scheduled run complete",
			"trigger", trigger.Format(time.RFC3339),
			"duration", time.Since(started).Round(time.Millisecond),
			"changed", len(report.Changed()),
			"failures", len(report.Failures))
	})
}

// Stop halts the driver, waiting for an in-flight run within ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
