// Package jobs defines the background job types, their payloads and the
// functions that enqueue and process them.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

// Queues
const (
	QueueEmail       = "email"
	QueueMaintenance = "maintenance"
)

// enqueue marshals payload and adds the job to the queue.
func enqueue(ctx context.Context, q domain.JobStore, params domain.EnqueueJobParams, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	params.Payload = payloadJSON
	if params.ScheduledAt.IsZero() {
		params.ScheduledAt = time.Now()
	}

	if _, err := q.Enqueue(ctx, params); err != nil {
		return err
	}

	if telemetry.Business != nil {
		telemetry.Business.JobsEnqueued.WithLabelValues(params.Type).Inc()
	}
	return nil
}

// decode unmarshals a job payload into T.
func decode[T any](job *domain.Job) (T, error) {
	var payload T
	if len(job.Payload) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal %s payload: %w", job.Type, err)
	}
	return payload, nil
}
