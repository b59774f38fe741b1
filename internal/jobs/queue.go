package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// Pipeline stages reported to polling clients.
const (
	StageFetch           = "Fetching document"
	StageChunk           = "Chunking content"
	StageStoreChunks     = "Storing chunks"
	StageEmbed           = "Generating embeddings"
	StageStoreEmbeddings = "Storing embeddings"
	StageFinalize        = "Marking document ready"
)

// JobID derives the job slot deterministically from the document, so
// re-submitting a document replaces its job instead of duplicating it.
// At most one live job exists per document.
func JobID(documentID string) string {
	return "doc-" + documentID
}

// Payload is the queue job payload for one document.
type Payload struct {
	DocumentID       string `json:"document_id"`
	OrganizationID   string `json:"organization_id"`
	ChunkingStrategy string `json:"chunking_strategy,omitempty"`
	ChunkSize        int    `json:"chunk_size,omitempty"`
	ChunkOverlap     int    `json:"chunk_overlap,omitempty"`
}

// Queue is the durable job queue: job records live in the database, and a
// bounded channel feeds the in-process worker pool. Recover() re-dispatches
// surviving records after a restart.
type Queue struct {
	db          core.DbClient
	dispatch    chan Payload
	maxAttempts int
}

func NewQueue(db core.DbClient, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Queue{
		db:          db,
		dispatch:    make(chan Payload, 64),
		maxAttempts: maxAttempts,
	}
}

// Enqueue upserts the document's job slot as pending and hands the payload
// to the worker pool. Enqueuing an in-flight document resets its slot; it
// never creates a second job.
func (q *Queue) Enqueue(ctx context.Context, p Payload) (*models.ProcessingJob, error) {
	job := &models.ProcessingJob{
		ID:               JobID(p.DocumentID),
		DocumentID:       p.DocumentID,
		OrganizationID:   p.OrganizationID,
		Status:           models.JobStatusPending,
		Stage:            "",
		Progress:         0,
		MaxAttempts:      q.maxAttempts,
		ChunkingStrategy: p.ChunkingStrategy,
		ChunkSize:        p.ChunkSize,
		ChunkOverlap:     p.ChunkOverlap,
	}
	if err := q.db.UpsertJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: enqueue %s: %v", core.ErrStorageFailed, job.ID, err)
	}
	if err := q.send(ctx, p); err != nil {
		return nil, err
	}
	return job, nil
}

func (q *Queue) send(ctx context.Context, p Payload) error {
	select {
	case q.dispatch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// redispatch re-queues a payload after a retry backoff. Best-effort: the
// job record already holds the failed state, so a dropped send only delays
// the retry until the next Recover.
func (q *Queue) redispatch(p Payload) {
	select {
	case q.dispatch <- p:
	case <-time.After(30 * time.Second):
	}
}

// Status returns the polling view for a document's job; status "not_found"
// when no record exists.
func (q *Queue) Status(ctx context.Context, documentID string) (*models.JobStatus, error) {
	job, err := q.db.GetJob(ctx, JobID(documentID))
	if err != nil {
		return nil, fmt.Errorf("%w: job status for %s: %v", core.ErrStorageFailed, documentID, err)
	}
	if job == nil {
		return &models.JobStatus{Status: models.JobStatusNotFound}, nil
	}
	return &models.JobStatus{
		Status:      job.Status,
		Stage:       job.Stage,
		Progress:    job.Progress,
		Error:       job.ErrorMessage,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// RetryFailed sweeps failed jobs back into the queue. maxRetries caps by
// attempts already made (0 uses each job's own cap); filter, when non-nil,
// selects which jobs to retry. Jobs that exhausted their attempts are
// skipped. Returns the number of jobs re-enqueued.
func (q *Queue) RetryFailed(ctx context.Context, maxRetries int, filter func(models.ProcessingJob) bool) (int, error) {
	failed, err := q.db.ListJobsByStatus(ctx, models.JobStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("%w: list failed jobs: %v", core.ErrStorageFailed, err)
	}

	retried := 0
	for _, job := range failed {
		cap := job.MaxAttempts
		if maxRetries > 0 && maxRetries < cap {
			cap = maxRetries
		}
		if job.AttemptsMade >= cap {
			continue
		}
		if filter != nil && !filter(job) {
			continue
		}
		if _, err := q.Enqueue(ctx, payloadFromJob(job)); err != nil {
			return retried, err
		}
		retried++
	}
	return retried, nil
}

// Recover re-dispatches jobs that were pending or mid-flight when the
// process last stopped.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	recovered := 0
	for _, status := range []string{models.JobStatusPending, models.JobStatusProcessing} {
		jobs, err := q.db.ListJobsByStatus(ctx, status)
		if err != nil {
			return recovered, fmt.Errorf("%w: recover %s jobs: %v", core.ErrStorageFailed, status, err)
		}
		for _, job := range jobs {
			if err := q.send(ctx, payloadFromJob(job)); err != nil {
				return recovered, err
			}
			recovered++
		}
	}
	return recovered, nil
}

func payloadFromJob(job models.ProcessingJob) Payload {
	return Payload{
		DocumentID:       job.DocumentID,
		OrganizationID:   job.OrganizationID,
		ChunkingStrategy: job.ChunkingStrategy,
		ChunkSize:        job.ChunkSize,
		ChunkOverlap:     job.ChunkOverlap,
	}
}
