package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/fusionx/internal/domain"
)

// Job type constants for inventory jobs
const (
	JobTypeReleaseStaleReservations = "inventory:release_stale_reservations"
)

// ReleaseStaleReservationsPayload carries the age after which a
// reservation counts as abandoned.
type ReleaseStaleReservationsPayload struct {
	MaxAgeSeconds int64 `json:"max_age_seconds"`
}

// MaxAge returns the payload age as a duration.
func (p ReleaseStaleReservationsPayload) MaxAge() time.Duration {
	return time.Duration(p.MaxAgeSeconds) * time.Second
}

// EnqueueReleaseStaleReservations schedules a sweep of reservations older
// than maxAge.
func EnqueueReleaseStaleReservations(ctx context.Context, q domain.JobStore, maxAge time.Duration) error {
	return enqueue(ctx, q, domain.EnqueueJobParams{
		Type:           JobTypeReleaseStaleReservations,
		Queue:          QueueMaintenance,
		MaxAttempts:    1, // the next scheduled sweep retries
		TimeoutSeconds: 120,
	}, ReleaseStaleReservationsPayload{MaxAgeSeconds: int64(maxAge / time.Second)})
}

// ProcessInventoryJob runs an inventory job.
func ProcessInventoryJob(ctx context.Context, job *domain.Job, inventory domain.InventoryService, logger *slog.Logger) error {
	switch job.Type {
	case JobTypeReleaseStaleReservations:
		payload, err := decode[ReleaseStaleReservationsPayload](job)
		if err != nil {
			return err
		}
		if payload.MaxAgeSeconds <= 0 {
			return fmt.Errorf("invalid max age: %d", payload.MaxAgeSeconds)
		}

		released, err := inventory.SweepStale(ctx, payload.MaxAge())
		if err != nil {
			return fmt.Errorf("failed to release stale reservations: %w", err)
		}
		logger.Info("stale reservation sweep finished", "released", released, "max_age", payload.MaxAge())
		return nil

	default:
		return fmt.Errorf("unknown inventory job type: %s", job.Type)
	}
}

// IsInventoryJob checks if a job type is an inventory job
func IsInventoryJob(jobType string) bool {
	return jobType == JobTypeReleaseStaleReservations
}
