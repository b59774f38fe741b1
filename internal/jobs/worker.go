package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/haleth-io/vectorpipe/internal/chunker"
	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/embed"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// Worker pulls payloads from the queue and runs the per-document pipeline:
// fetch -> chunk -> store chunks -> embed -> store embeddings -> mark ready.
// Steps within one document are strictly sequential; across documents the
// ants pool gives genuine bounded parallelism. A global token bucket caps
// job starts per minute, independent of the per-batch embedding backoff.
type Worker struct {
	queue     *Queue
	db        core.DbClient
	chunker   *chunker.Chunker
	generator *embed.Generator
	store     *embed.Store

	concurrency  int
	chunkSize    int
	chunkOverlap int
	limiter      *rate.Limiter
	backoff      func(attempt int) time.Duration
}

// NewWorker builds a worker. chunkSize/chunkOverlap are the fallback chunk
// options for payloads that don't carry their own.
func NewWorker(queue *Queue, db core.DbClient, ch *chunker.Chunker, gen *embed.Generator, store *embed.Store, concurrency, startsPerMinute, chunkSize, chunkOverlap int) *Worker {
	if concurrency <= 0 {
		concurrency = 3
	}
	if startsPerMinute <= 0 {
		startsPerMinute = 10
	}
	return &Worker{
		queue:        queue,
		db:           db,
		chunker:      ch,
		generator:    gen,
		store:        store,
		concurrency:  concurrency,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		// Burst 1 keeps the cap strict: n starts per minute means one
		// start per minute/n, not an n-deep opening burst.
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(startsPerMinute)), 1),
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * time.Second
		},
	}
}

// Start launches the dispatch loop. It returns once the pool is running;
// the loop exits when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	pool, err := ants.NewPool(w.concurrency)
	if err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}

	go func() {
		defer pool.Release()
		for {
			select {
			case <-ctx.Done():
				log.Println("jobs: worker shutting down")
				return
			case p := <-w.queue.dispatch:
				if err := w.limiter.Wait(ctx); err != nil {
					return
				}
				payload := p
				if err := pool.Submit(func() { w.runJob(ctx, payload) }); err != nil {
					log.Printf("jobs: submit %s: %v", JobID(payload.DocumentID), err)
				}
			}
		}
	}()
	return nil
}

// runJob drives one attempt of the state machine: pending -> processing ->
// completed|failed, with failed re-entering processing after backoff until
// the attempt cap.
func (w *Worker) runJob(ctx context.Context, p Payload) {
	jobID := JobID(p.DocumentID)

	if err := w.db.MarkJobStarted(ctx, jobID, StageFetch, 10); err != nil {
		log.Printf("jobs: %s: mark started: %v", jobID, err)
		return
	}

	err := w.process(ctx, jobID, p)
	if err == nil {
		if err := w.db.MarkJobCompleted(ctx, jobID); err != nil {
			log.Printf("jobs: %s: mark completed: %v", jobID, err)
		}
		return
	}

	log.Printf("jobs: %s failed: %v", jobID, err)
	_ = w.db.UpdateDocumentStatus(ctx, p.DocumentID, models.DocStatusFailed)

	job, getErr := w.db.GetJob(ctx, jobID)
	if getErr != nil || job == nil {
		log.Printf("jobs: %s: load after failure: %v", jobID, getErr)
		return
	}
	attempts := job.AttemptsMade + 1
	if markErr := w.db.MarkJobFailed(ctx, jobID, err.Error(), attempts); markErr != nil {
		log.Printf("jobs: %s: mark failed: %v", jobID, markErr)
	}

	if errors.Is(err, core.ErrMissingCredential) {
		// No retry will conjure up a credential.
		return
	}
	if attempts >= job.MaxAttempts {
		log.Printf("jobs: %s exhausted %d attempts, leaving failed", jobID, attempts)
		return
	}

	backoff := w.backoff(attempts)
	log.Printf("jobs: %s retrying in %s (attempt %d/%d)", jobID, backoff, attempts+1, job.MaxAttempts)
	time.AfterFunc(backoff, func() { w.queue.redispatch(p) })
}

func (w *Worker) process(ctx context.Context, jobID string, p Payload) error {
	doc, err := w.db.GetDocumentByID(ctx, p.DocumentID)
	if err != nil {
		return fmt.Errorf("%w: fetch document %s: %v", core.ErrStorageFailed, p.DocumentID, err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %s", p.DocumentID)
	}
	_ = w.db.UpdateDocumentStatus(ctx, doc.ID, models.DocStatusProcessing)

	if err := w.db.UpdateJobProgress(ctx, jobID, models.JobStatusProcessing, StageChunk, 20); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageFailed, err)
	}
	opts := chunker.Options{
		ChunkSize:       p.ChunkSize,
		ChunkOverlap:    p.ChunkOverlap,
		Strategy:        chunker.Strategy(p.ChunkingStrategy),
		PreserveHeaders: true,
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = w.chunkSize
	}
	if opts.ChunkOverlap <= 0 {
		opts.ChunkOverlap = w.chunkOverlap
	}
	chunks := w.chunker.Chunk(doc.ID, doc.Content, opts)
	if len(chunks) == 0 {
		return fmt.Errorf("document %s produced no chunks", doc.ID)
	}

	if err := w.db.UpdateJobProgress(ctx, jobID, models.JobStatusProcessing, StageStoreChunks, 30); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageFailed, err)
	}
	if err := w.db.ReplaceDocumentChunks(ctx, doc.ID, chunks); err != nil {
		return fmt.Errorf("%w: replace chunks for %s: %v", core.ErrStorageFailed, doc.ID, err)
	}

	if err := w.db.UpdateJobProgress(ctx, jobID, models.JobStatusProcessing, StageEmbed, 40); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageFailed, err)
	}
	embeddings, err := w.generator.Generate(ctx, chunks, p.OrganizationID)
	if err != nil {
		return err
	}

	if err := w.db.UpdateJobProgress(ctx, jobID, models.JobStatusProcessing, StageStoreEmbeddings, 80); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageFailed, err)
	}
	if err := w.store.Store(ctx, embeddings, doc.ID); err != nil {
		return err
	}

	if err := w.db.UpdateJobProgress(ctx, jobID, models.JobStatusProcessing, StageFinalize, 90); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageFailed, err)
	}
	if err := w.db.UpdateDocumentStatus(ctx, doc.ID, models.DocStatusReady); err != nil {
		return fmt.Errorf("%w: mark document ready: %v", core.ErrStorageFailed, err)
	}
	return nil
}
