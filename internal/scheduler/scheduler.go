// Package scheduler runs the daily history cleanup.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/util"
)

// Pruner deletes history older than a cutoff. *db.History satisfies it.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler manages periodic background tasks.
type Scheduler struct {
	cfg    config.HistoryConfig
	pruner Pruner
	now    func() time.Time
	logger zerolog.Logger
}

// NewScheduler creates a new task scheduler.
func NewScheduler(cfg config.HistoryConfig, pruner Pruner) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		pruner: pruner,
		now:    time.Now,
		logger: util.ComponentLogger("scheduler"),
	}
}

// Start runs the cleanup at the configured time every day until ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().Msg("scheduler started")

	for {
		nextRun := s.nextCleanupTime()
		sleepDuration := nextRun.Sub(s.now())
		if sleepDuration <= 0 {
			sleepDuration = 24 * time.Hour
		}

		s.logger.Info().
			Time("next_run", nextRun).
			Dur("sleep", sleepDuration).
			Msg("history cleanup scheduled")

		timer := time.NewTimer(sleepDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-timer.C:
			s.RunCleanup(ctx)
		}
	}
}

// RunCleanup deletes history entries older than the retention period.
func (s *Scheduler) RunCleanup(ctx context.Context) {
	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)

	s.logger.Info().
		Int("retention_days", s.cfg.RetentionDays).
		Time("cutoff", cutoff).
		Msg("running history cleanup")

	deleted, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Warn().Err(err).Msg("history cleanup failed")
		return
	}

	s.logger.Info().
		Int64("deleted", deleted).
		Msg("history cleanup completed")
}

// nextCleanupTime returns the next time the cleanup should run.
func (s *Scheduler) nextCleanupTime() time.Time {
	parts := strings.Split(s.cfg.CleanupTime, ":")

	hour, minute := 4, 0 // Default: 4:00 AM
	if len(parts) >= 2 {
		fmt.Sscanf(parts[0], "%d", &hour)
		fmt.Sscanf(parts[1], "%d", &minute)
	}

	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}
