package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/fusionx/internal/domain"
)

// Job type constants for cleanup jobs
const (
	JobTypeCleanupExpiredSessions = "cleanup:expired_sessions"
)

// CleanupExpiredSessionsPayload is empty; the job removes every expired
// session.
type CleanupExpiredSessionsPayload struct{}

// EnqueueCleanupExpiredSessions enqueues a job to delete expired sessions.
func EnqueueCleanupExpiredSessions(ctx context.Context, q domain.JobStore) error {
	return enqueue(ctx, q, domain.EnqueueJobParams{
		Type:           JobTypeCleanupExpiredSessions,
		Queue:          QueueMaintenance,
		MaxAttempts:    1,
		TimeoutSeconds: 60,
	}, CleanupExpiredSessionsPayload{})
}

// CleanupResult holds the result of a cleanup operation
type CleanupResult struct {
	SessionsDeleted int64 `json:"sessions_deleted"`
}

// ProcessCleanupJob processes a cleanup job based on its type
func ProcessCleanupJob(ctx context.Context, job *domain.Job, sessions domain.SessionStore) (*CleanupResult, error) {
	switch job.Type {
	case JobTypeCleanupExpiredSessions:
		n, err := sessions.DeleteExpired(ctx, time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
		}
		return &CleanupResult{SessionsDeleted: n}, nil
	default:
		return nil, fmt.Errorf("unknown cleanup job type: %s", job.Type)
	}
}

// IsCleanupJob checks if a job type is a cleanup job
func IsCleanupJob(jobType string) bool {
	return jobType == JobTypeCleanupExpiredSessions
}
