package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/fusionx/internal/domain"
)

// JobStore implements domain.JobStore on the jobs table.
type JobStore struct {
	pool *pgxpool.Pool
}

var _ domain.JobStore = (*JobStore)(nil)

func NewJobStore(pool *pgxpool.Pool) *JobStore {
	return &JobStore{pool: pool}
}

func (s *JobStore) Enqueue(ctx context.Context, params domain.EnqueueJobParams) (uuid.UUID, error) {
	id := uuid.New()

	queue := params.Queue
	if queue == "" {
		queue = "default"
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	timeout := params.TimeoutSeconds
	if timeout <= 0 {
		timeout = 60
	}
	scheduledAt := params.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}
	payload := params.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (id, job_type, queue, payload, max_attempts, timeout_seconds, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, params.Type, queue, payload, maxAttempts, timeout, scheduledAt)
	if err != nil {
		return uuid.Nil, domain.Internal(err, "job.enqueue", "failed to enqueue job")
	}
	return id, nil
}

// Claim locks the oldest due job with SKIP LOCKED so concurrent workers
// never take the same row.
func (s *JobStore) Claim(ctx context.Context, workerID, queue string) (*domain.Job, error) {
	var (
		j       domain.Job
		payload []byte
	)
	err := s.pool.QueryRow(ctx, `
		UPDATE jobs
		SET status = 'running', attempts = attempts + 1, locked_by = $1, locked_at = now()
		WHERE id = (
			SELECT id FROM jobs
			WHERE status = 'pending'
			  AND scheduled_at <= now()
			  AND ($2 = '' OR queue = $2)
			ORDER BY scheduled_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_type, queue, payload, status, attempts, max_attempts, timeout_seconds, scheduled_at`,
		workerID, queue).Scan(&j.ID, &j.Type, &j.Queue, &payload, &j.Status,
		&j.Attempts, &j.MaxAttempts, &j.TimeoutSeconds, &j.ScheduledAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, domain.Internal(err, "job.claim", "failed to claim job")
	}
	j.Payload = payload
	return &j, nil
}

func (s *JobStore) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'completed', completed_at = now(), locked_by = NULL, locked_at = NULL
		WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, "job.complete", "failed to complete job")
	}
	return nil
}

// Fail retries with a linear backoff of one minute per attempt until
// max_attempts is reached.
func (s *JobStore) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs
		SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
		    scheduled_at = CASE WHEN attempts >= max_attempts THEN scheduled_at
		                        ELSE now() + attempts * interval '1 minute' END,
		    last_error = $2,
		    locked_by = NULL,
		    locked_at = NULL
		WHERE id = $1`, id, errMsg)
	if err != nil {
		return domain.Internal(err, "job.fail", "failed to record job failure")
	}
	return nil
}

func (s *JobStore) HasPending(ctx context.Context, jobType string) (bool, error) {
	var pending bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM jobs WHERE job_type = $1 AND status IN ('pending', 'running')
		)`, jobType).Scan(&pending)
	if err != nil {
		return false, domain.Internal(err, "job.has_pending", "failed to check pending jobs")
	}
	return pending, nil
}
