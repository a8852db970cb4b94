package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"agora/internal/core/id"
	"agora/internal/domain/lifecycle"
	"agora/pkg/logger"
)

// JobStatus represents the state of a queued job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

const maxJobRetries = 5

// Job is a row in the transactional job queue.
type Job struct {
	ID          id.ID      `db:"id"`
	Name        string     `db:"name"`
	Payload     []byte     `db:"payload"`
	Status      JobStatus  `db:"status"`
	RetryCount  int        `db:"retry_count"`
	LastError   *string    `db:"last_error"`
	NextRetryAt *time.Time `db:"next_retry_at"`
	CreatedAt   time.Time  `db:"created_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// Compile-time check that OutboxQueue implements the queue port.
var _ lifecycle.JobQueue = (*OutboxQueue)(nil)

// OutboxQueue writes jobs into the job_queue table within the ambient
// transaction, so workers only ever see jobs for committed state.
type OutboxQueue struct {
	txManager *TxManager
}

// NewOutboxQueue creates a transactional job queue.
func NewOutboxQueue(txManager *TxManager) *OutboxQueue {
	return &OutboxQueue{txManager: txManager}
}

// Enqueue inserts a job row. MUST be called inside a transaction context:
// enqueueing outside one would let workers observe uncommitted work.
func (q *OutboxQueue) Enqueue(ctx context.Context, job string, payload any) error {
	tx := q.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("enqueue requires transaction context")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO job_queue (id, name, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id.New(), job, payloadBytes, JobStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

// JobHandler processes dequeued jobs.
type JobHandler interface {
	// Handle processes a job and returns error if failed
	Handle(ctx context.Context, job *Job) error
}

// JobRelay reads pending jobs and hands them to a handler.
// Used by the background worker.
type JobRelay struct {
	pool      *pgxpool.Pool
	batchSize int
	handler   JobHandler
}

// NewJobRelay creates a new job relay.
func NewJobRelay(pool *pgxpool.Pool, batchSize int, handler JobHandler) *JobRelay {
	return &JobRelay{
		pool:      pool,
		batchSize: batchSize,
		handler:   handler,
	}
}

// ProcessBatch fetches and processes pending jobs.
// Returns number of processed jobs.
func (r *JobRelay) ProcessBatch(ctx context.Context) (int, error) {
	// SKIP LOCKED keeps concurrent relays off the same rows only while
	// this statement runs; the locks end with its implicit transaction,
	// so delivery is at-least-once and handlers must tolerate repeats.
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, payload, status, retry_count, last_error,
		       next_retry_at, created_at, completed_at
		FROM job_queue
		WHERE status = $1
		  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
		ORDER BY created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, JobStatusPending, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		var job Job
		err := rows.Scan(
			&job.ID, &job.Name, &job.Payload, &job.Status, &job.RetryCount,
			&job.LastError, &job.NextRetryAt, &job.CreatedAt, &job.CompletedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate jobs: %w", err)
	}

	processed := 0
	for _, job := range jobs {
		if err := r.processJob(ctx, job); err != nil {
			logger.Warn(ctx, "job failed", "job", job.Name, "job_id", job.ID, "error", err)
			continue
		}
		processed++
	}

	return processed, nil
}

// processJob handles a single job.
func (r *JobRelay) processJob(ctx context.Context, job *Job) error {
	err := r.handler.Handle(ctx, job)

	if err != nil {
		// Increment retry count and set next retry time (linear backoff)
		nextRetry := time.Now().Add(time.Duration(job.RetryCount+1) * time.Minute)
		errStr := err.Error()

		_, updateErr := r.pool.Exec(ctx, `
			UPDATE job_queue
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = CASE WHEN retry_count >= $3 THEN $4 ELSE status END
			WHERE id = $5
		`, errStr, nextRetry, maxJobRetries, JobStatusFailed, job.ID)

		if updateErr != nil {
			return fmt.Errorf("update failed job: %w", updateErr)
		}
		return err
	}

	now := time.Now().UTC()
	_, err = r.pool.Exec(ctx, `
		UPDATE job_queue
		SET status = $1, completed_at = $2
		WHERE id = $3
	`, JobStatusCompleted, now, job.ID)

	return err
}

// PurgeCompleted removes completed jobs older than the given age.
func (r *JobRelay) PurgeCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM job_queue
		WHERE status = $1 AND completed_at < $2
	`, JobStatusCompleted, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge completed jobs: %w", err)
	}

	return result.RowsAffected(), nil
}
