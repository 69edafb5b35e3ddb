package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/jobs"
)

// ScheduleConfig controls the periodic maintenance jobs.
type ScheduleConfig struct {
	// SweepInterval is how often stale reservations are swept.
	SweepInterval time.Duration

	// ReservationMaxAge is the age after which a reservation is released.
	ReservationMaxAge time.Duration

	// SessionCleanupInterval is how often expired sessions are deleted.
	SessionCleanupInterval time.Duration
}

// Scheduler enqueues maintenance jobs on fixed intervals. A job type that
// is still pending or running is not enqueued again.
type Scheduler struct {
	config ScheduleConfig
	jobs   domain.JobStore
	logger *slog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(q domain.JobStore, config ScheduleConfig, logger *slog.Logger) *Scheduler {
	if config.SweepInterval == 0 {
		config.SweepInterval = 15 * time.Minute
	}
	if config.ReservationMaxAge == 0 {
		config.ReservationMaxAge = 3 * time.Hour
	}
	if config.SessionCleanupInterval == 0 {
		config.SessionCleanupInterval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{config: config, jobs: q, logger: logger}
}

// Start runs until ctx is cancelled. Both jobs are scheduled once at
// startup.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler starting",
		"sweep_interval", s.config.SweepInterval,
		"reservation_max_age", s.config.ReservationMaxAge,
		"session_cleanup_interval", s.config.SessionCleanupInterval,
	)

	sweep := time.NewTicker(s.config.SweepInterval)
	defer sweep.Stop()
	cleanup := time.NewTicker(s.config.SessionCleanupInterval)
	defer cleanup.Stop()

	s.scheduleSweep(ctx)
	s.scheduleCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sweep.C:
			s.scheduleSweep(ctx)
		case <-cleanup.C:
			s.scheduleCleanup(ctx)
		}
	}
}

func (s *Scheduler) scheduleSweep(ctx context.Context) bool {
	return s.schedule(ctx, jobs.JobTypeReleaseStaleReservations, func() error {
		return jobs.EnqueueReleaseStaleReservations(ctx, s.jobs, s.config.ReservationMaxAge)
	})
}

func (s *Scheduler) scheduleCleanup(ctx context.Context) bool {
	return s.schedule(ctx, jobs.JobTypeCleanupExpiredSessions, func() error {
		return jobs.EnqueueCleanupExpiredSessions(ctx, s.jobs)
	})
}

// schedule calls enqueue unless a job of jobType is outstanding and
// reports whether it did.
func (s *Scheduler) schedule(ctx context.Context, jobType string, enqueue func() error) bool {
	pending, err := s.jobs.HasPending(ctx, jobType)
	if err != nil {
		s.logger.Error("failed to check pending jobs", "job_type", jobType, "error", err)
		return false
	}
	if pending {
		s.logger.Debug("job already pending", "job_type", jobType)
		return false
	}

	if err := enqueue(); err != nil {
		s.logger.Error("failed to enqueue job", "job_type", jobType, "error", err)
		return false
	}
	return true
}
