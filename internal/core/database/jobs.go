package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/haleth-io/vectorpipe/internal/models"
)

// Job records. The job ID is deterministic per document, so the upsert
// below is the queue's only mutual-exclusion mechanism: re-enqueuing
// replaces the slot instead of creating a second live job.

func (c *DatabaseClient) UpsertJob(ctx context.Context, job *models.ProcessingJob) error {
	const q = `
		INSERT INTO processing_jobs
			(id, document_id, organization_id, status, stage, progress, error_message,
			 attempts_made, max_attempts, chunking_strategy, chunk_size, chunk_overlap,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, '', 0, $7, $8, $9, $10, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			stage = EXCLUDED.stage,
			progress = EXCLUDED.progress,
			error_message = '',
			max_attempts = EXCLUDED.max_attempts,
			chunking_strategy = EXCLUDED.chunking_strategy,
			chunk_size = EXCLUDED.chunk_size,
			chunk_overlap = EXCLUDED.chunk_overlap,
			started_at = NULL,
			completed_at = NULL,
			updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, q,
		job.ID, job.DocumentID, job.OrganizationID, job.Status, job.Stage, job.Progress,
		job.MaxAttempts, job.ChunkingStrategy, job.ChunkSize, job.ChunkOverlap)
	return err
}

func (c *DatabaseClient) GetJob(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	const q = `
		SELECT id, document_id, organization_id, status, stage, progress, error_message,
		       attempts_made, max_attempts, chunking_strategy, chunk_size, chunk_overlap,
		       started_at, completed_at, created_at, updated_at
		FROM processing_jobs
		WHERE id = $1
	`
	var j models.ProcessingJob
	err := c.db.QueryRowContext(ctx, q, jobID).Scan(
		&j.ID, &j.DocumentID, &j.OrganizationID, &j.Status, &j.Stage, &j.Progress, &j.ErrorMessage,
		&j.AttemptsMade, &j.MaxAttempts, &j.ChunkingStrategy, &j.ChunkSize, &j.ChunkOverlap,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (c *DatabaseClient) MarkJobStarted(ctx context.Context, jobID, stage string, progress int) error {
	const q = `
		UPDATE processing_jobs
		SET status = $2, stage = $3, progress = $4, started_at = now(), updated_at = now()
		WHERE id = $1
	`
	return c.execJob(ctx, q, jobID, models.JobStatusProcessing, stage, progress)
}

func (c *DatabaseClient) UpdateJobProgress(ctx context.Context, jobID, status, stage string, progress int) error {
	const q = `
		UPDATE processing_jobs
		SET status = $2, stage = $3, progress = GREATEST(progress, $4), updated_at = now()
		WHERE id = $1
	`
	return c.execJob(ctx, q, jobID, status, stage, progress)
}

// MarkJobFailed records the error and attempt count without touching
// progress, so polling clients keep the last stage reached.
func (c *DatabaseClient) MarkJobFailed(ctx context.Context, jobID, errorMessage string, attemptsMade int) error {
	const q = `
		UPDATE processing_jobs
		SET status = $2, error_message = $3, attempts_made = $4, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, jobID, models.JobStatusFailed, errorMessage, attemptsMade)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (c *DatabaseClient) MarkJobCompleted(ctx context.Context, jobID string) error {
	const q = `
		UPDATE processing_jobs
		SET status = $2, progress = 100, completed_at = now(), updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, jobID, models.JobStatusCompleted)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (c *DatabaseClient) ListJobsByStatus(ctx context.Context, status string) ([]models.ProcessingJob, error) {
	const q = `
		SELECT id, document_id, organization_id, status, stage, progress, error_message,
		       attempts_made, max_attempts, chunking_strategy, chunk_size, chunk_overlap,
		       started_at, completed_at, created_at, updated_at
		FROM processing_jobs
		WHERE status = $1
		ORDER BY updated_at ASC
	`
	rows, err := c.db.QueryContext(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProcessingJob
	for rows.Next() {
		var j models.ProcessingJob
		if err := rows.Scan(
			&j.ID, &j.DocumentID, &j.OrganizationID, &j.Status, &j.Stage, &j.Progress, &j.ErrorMessage,
			&j.AttemptsMade, &j.MaxAttempts, &j.ChunkingStrategy, &j.ChunkSize, &j.ChunkOverlap,
			&j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) execJob(ctx context.Context, query, jobID, status, stage string, progress int) error {
	res, err := c.db.ExecContext(ctx, query, jobID, status, stage, progress)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return nil
}
