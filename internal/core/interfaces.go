package core

import (
	"context"
	"time"

	"github.com/haleth-io/vectorpipe/internal/models"
)

// DbClient defines all persistence operations the pipeline needs.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByOrg(ctx context.Context, orgID string) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status string) error

	// Duplicate probes. Each returns the matching document ID or "" when
	// nothing matches.
	FindDocumentByFilename(ctx context.Context, orgID, filename, excludeID string) (string, error)
	FindDocumentByFileHash(ctx context.Context, orgID, fileHash, excludeID string) (string, error)
	FindDocumentByContentHash(ctx context.Context, orgID, contentHash, excludeID string) (string, error)

	// ReplaceDocumentChunks deletes all existing chunks for the document and
	// inserts the new set in one transaction. Chunks are never patched in place.
	ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	DeleteDocumentChunks(ctx context.Context, documentID string) error

	// UpsertChunkEmbeddings writes vectors onto their chunk rows, keyed by
	// chunk ID, and reports how many chunk rows were actually found.
	UpsertChunkEmbeddings(ctx context.Context, embeddings []models.EmbeddingResult) (int, error)

	// MatchChunks runs nearest-neighbor retrieval over stored embeddings.
	// Results are similarity-descending, similarity in [0,1], at most
	// opts.MatchCount rows at or above opts.MatchThreshold.
	MatchChunks(ctx context.Context, queryVec []float32, opts MatchOptions) ([]models.SemanticSearchResult, error)

	// GetOrgAPIKey returns the sealed organization-scoped embedding API key,
	// or ok=false when none is stored.
	GetOrgAPIKey(ctx context.Context, orgID string) (sealed string, ok bool, err error)

	// Job records. UpsertJob replaces the slot identified by job.ID.
	UpsertJob(ctx context.Context, job *models.ProcessingJob) error
	GetJob(ctx context.Context, jobID string) (*models.ProcessingJob, error)
	UpdateJobProgress(ctx context.Context, jobID, status, stage string, progress int) error
	MarkJobStarted(ctx context.Context, jobID, stage string, progress int) error
	MarkJobFailed(ctx context.Context, jobID, errorMessage string, attemptsMade int) error
	MarkJobCompleted(ctx context.Context, jobID string) error
	ListJobsByStatus(ctx context.Context, status string) ([]models.ProcessingJob, error)

	Close() error
}

// MatchOptions filters nearest-neighbor retrieval.
type MatchOptions struct {
	OrganizationID string
	DocumentType   string
	MatchThreshold float32
	MatchCount     int
}

// Cache is the narrow contract for the conversion cache backend.
// Get returns ErrCacheMiss for absent keys; any other error means the
// backend is unavailable and callers treat it as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// EmbeddingProvider turns texts into vectors. One call is one provider
// request; response order mirrors input order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider generates an answer from a system and user prompt.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
