package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/fusionx/internal/domain"
	"github.com/dukerupert/fusionx/internal/email"
	"github.com/dukerupert/fusionx/internal/jobs"
	"github.com/dukerupert/fusionx/internal/telemetry"
)

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to check for new jobs
	PollInterval time.Duration

	// MaxConcurrency is the maximum number of jobs to process concurrently
	MaxConcurrency int

	// Queue name to process (empty string = all queues)
	Queue string

	// ShutdownTimeout bounds how long Start waits for running jobs
	ShutdownTimeout time.Duration
}

// Deps are the services jobs run against.
type Deps struct {
	Jobs      domain.JobStore
	Email     *email.Service
	Orders    domain.OrderStore
	Users     domain.UserStore
	Inventory domain.InventoryService
	Sessions  domain.SessionStore
}

// Worker processes background jobs
type Worker struct {
	config Config
	deps   Deps
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWorker creates a new background job worker
func NewWorker(deps Deps, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{config: config, deps: deps, logger: logger}
}

// Start begins processing jobs until the context is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"queue", w.config.Queue,
		"poll_interval", w.config.PollInterval,
		"max_concurrency", w.config.MaxConcurrency,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Semaphore for concurrency control
	sem := make(chan struct{}, w.config.MaxConcurrency)

	// Jobs in flight finish on their own deadline rather than the
	// shutdown signal.
	jobCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			w.drain()
			return ctx.Err()

		case <-ticker.C:
			select {
			case sem <- struct{}{}:
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }()
					w.claimAndProcess(jobCtx)
				}()
			default:
				// At max concurrency, skip this poll
			}
		}
	}
}

// drain waits for running jobs up to the shutdown timeout.
func (w *Worker) drain() {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("worker shutdown timed out with jobs still running", "worker_id", w.config.WorkerID)
	}
}

// claimAndProcess claims and processes a single job. It reports whether a
// job was found.
func (w *Worker) claimAndProcess(ctx context.Context) bool {
	job, err := w.deps.Jobs.Claim(ctx, w.config.WorkerID, w.config.Queue)
	if err != nil {
		w.logger.Error("failed to claim job", "worker_id", w.config.WorkerID, "error", err)
		return false
	}
	if job == nil {
		return false
	}

	w.logger.Info("processing job",
		"job_id", job.ID,
		"job_type", job.Type,
		"attempt", job.Attempts,
	)

	start := time.Now()
	err = w.processJob(ctx, job)
	if telemetry.Business != nil {
		telemetry.Business.JobDuration.WithLabelValues(job.Type).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		w.logger.Error("job failed",
			"job_id", job.ID,
			"job_type", job.Type,
			"attempt", job.Attempts,
			"error", err,
		)
		telemetry.CaptureError(err, map[string]interface{}{"job_id": job.ID.String(), "job_type": job.Type})
		if telemetry.Business != nil {
			telemetry.Business.JobsFailed.WithLabelValues(job.Type).Inc()
		}
		if ferr := w.deps.Jobs.Fail(ctx, job.ID, err.Error()); ferr != nil {
			w.logger.Error("failed to record job failure", "job_id", job.ID, "error", ferr)
		}
		return true
	}

	w.logger.Info("job completed",
		"job_id", job.ID,
		"job_type", job.Type,
		"duration", time.Since(start),
	)
	if telemetry.Business != nil {
		telemetry.Business.JobsProcessed.WithLabelValues(job.Type).Inc()
	}
	if cerr := w.deps.Jobs.Complete(ctx, job.ID); cerr != nil {
		w.logger.Error("failed to mark job completed", "job_id", job.ID, "error", cerr)
	}
	return true
}

// processJob processes a single job
func (w *Worker) processJob(ctx context.Context, job *domain.Job) error {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch {
	case jobs.IsEmailJob(job.Type):
		return jobs.ProcessEmailJob(jobCtx, job, w.deps.Email, w.deps.Orders, w.deps.Users)

	case jobs.IsInventoryJob(job.Type):
		return jobs.ProcessInventoryJob(jobCtx, job, w.deps.Inventory, w.logger)

	case jobs.IsCleanupJob(job.Type):
		result, err := jobs.ProcessCleanupJob(jobCtx, job, w.deps.Sessions)
		if err != nil {
			return err
		}
		w.logger.Info("expired sessions deleted", "count", result.SessionsDeleted)
		return nil
	}

	return fmt.Errorf("unknown job type: %s", job.Type)
}
