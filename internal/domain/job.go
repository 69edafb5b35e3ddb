package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a background job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is a unit of background work claimed by the worker.
type Job struct {
	ID             uuid.UUID
	Type           string
	Queue          string
	Payload        json.RawMessage
	Status         JobStatus
	Attempts       int
	MaxAttempts    int
	TimeoutSeconds int
	ScheduledAt    time.Time
}

// EnqueueJobParams describes a job to schedule.
type EnqueueJobParams struct {
	Type           string
	Queue          string
	Payload        json.RawMessage
	MaxAttempts    int
	TimeoutSeconds int
	ScheduledAt    time.Time
}

// JobStore is the persistent job queue.
type JobStore interface {
	Enqueue(ctx context.Context, params EnqueueJobParams) (uuid.UUID, error)

	// Claim locks the next due job of queue for workerID. It returns nil
	// and no error when nothing is due. An empty queue matches all queues.
	Claim(ctx context.Context, workerID, queue string) (*Job, error)

	Complete(ctx context.Context, id uuid.UUID) error

	// Fail records errMsg and reschedules the job while attempts remain.
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error

	// HasPending reports whether a job of jobType is pending or running.
	HasPending(ctx context.Context, jobType string) (bool, error)
}
