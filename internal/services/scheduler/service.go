// Package scheduler drives backup cycles on a fixed interval or cron
// schedule until cancelled.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tbruckner/volguard/internal/metrics"
	"github.com/tbruckner/volguard/internal/models"
	"github.com/tbruckner/volguard/internal/services/notify"
	"github.com/tbruckner/volguard/internal/services/runner"
)

// Service defines the interface for the backup scheduler.
type Service interface {
	Run(ctx context.Context, cfg models.Config) error
}

// Impl implements the scheduler Service interface.
type Impl struct {
	runnerSvc runner.Service
	notifySvc notify.Service
	registry  *metrics.Registry
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a new scheduler.
func New(logger zerolog.Logger, runnerSvc runner.Service, notifySvc notify.Service, registry *metrics.Registry) *Impl {
	return &Impl{
		runnerSvc: runnerSvc,
		notifySvc: notifySvc,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
}

// NewWithClock creates a new scheduler with a custom clock (for testing).
func NewWithClock(logger zerolog.Logger, runnerSvc runner.Service, notifySvc notify.Service, registry *metrics.Registry, now func() time.Time) *Impl {
	return &Impl{
		runnerSvc: runnerSvc,
		notifySvc: notifySvc,
		registry:  registry,
		logger:    logger,
		now:       now,
	}
}

// Run executes backup cycles until ctx is cancelled. Cycles run strictly
// sequentially: the wait for the next tick begins only after the previous
// cycle and its notification finish. The wait itself is interruptible, and
// cancellation is checked again before each cycle starts. A failed cycle is
// not retried out-of-band; the next tick is the retry.
func (s *Impl) Run(ctx context.Context, cfg models.Config) error {
	var cronSched cron.Schedule
	if cfg.Schedule.Cron != "" {
		var err error
		cronSched, err = cron.ParseStandard(cfg.Schedule.Cron)
		if err != nil {
			return fmt.Errorf("invalid cron schedule: %w", err)
		}
		s.logger.Info().Str("cron", cfg.Schedule.Cron).Msg("scheduler started")
	} else {
		s.logger.Info().Dur("interval", cfg.Schedule.Interval).Msg("scheduler started")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return nil
		default:
		}

		s.runOnce(ctx, cfg)

		wait := s.nextWait(cronSched, cfg.Schedule.Interval)
		s.logger.Debug().Dur("wait", wait).Msg("waiting for next cycle")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// runOnce executes a single cycle and delivers its report. Notification
// failures are logged and never propagate into the scheduling loop.
func (s *Impl) runOnce(ctx context.Context, cfg models.Config) {
	start := s.now()
	report := s.runnerSvc.RunCycle(ctx, cfg)

	if s.registry != nil {
		s.registry.RecordCycle(s.now().Sub(start).Seconds(), report.Len())
	}

	if report.Empty() {
		return
	}

	if cfg.Notify == nil {
		s.logger.Info().Str("report", report.Join()).Msg("cycle report (no notify endpoint configured)")
		return
	}

	result, err := s.notifySvc.Send(ctx, *cfg.Notify, report.Join())
	if err == nil && result.Error != nil {
		err = result.Error
	}
	if err != nil {
		if s.registry != nil {
			s.registry.RecordNotifyFailure()
		}
		s.logger.Error().Err(err).Msg("failed to deliver cycle report")
	}
}

func (s *Impl) nextWait(cronSched cron.Schedule, interval time.Duration) time.Duration {
	if cronSched != nil {
		now := s.now()
		return cronSched.Next(now).Sub(now)
	}
	return interval
}
