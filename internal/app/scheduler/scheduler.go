// Package scheduler runs the periodic maintenance jobs: re-queueing conferences
// still missing a city and sweeping orphaned article questions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 2 * time.Minute

// MissingCityEnqueuer queues conferences that still have no city.
type MissingCityEnqueuer interface {
	EnqueueMissingCities(ctx context.Context, limit int) (int, error)
}

// OrphanSweeper deletes questions whose target is gone.
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		logger: logger,
	}
}

// Standard five-field expressions plus descriptors such as "@every 15m".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a schedule the scheduler accepts.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// AddCityRescan re-queues up to batch conferences without a city on every tick.
func (s *Scheduler) AddCityRescan(schedule string, e MissingCityEnqueuer, batch int) error {
	return s.add("city-rescan", schedule, func(ctx context.Context) error {
		n, err := e.EnqueueMissingCities(ctx, batch)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("re-queued conferences missing a city", "count", n)
		}
		return nil
	})
}

// AddOrphanSweep deletes orphaned article questions on every tick.
func (s *Scheduler) AddOrphanSweep(schedule string, sw OrphanSweeper) error {
	return s.add("orphan-sweep", schedule, func(ctx context.Context) error {
		n, err := sw.SweepOrphans(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Info("swept orphaned questions", "count", n)
		}
		return nil
	})
}

func (s *Scheduler) add(name, schedule string, job func(ctx context.Context) error) error {
	if err := ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.logger.Debug("scheduled job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("job %s: %w", name, err)
	}
	s.logger.Info("scheduled job registered", "job", name, "schedule", schedule)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
