package models

import (
	"time"
)

// Document status values as it moves through the pipeline.
const (
	DocStatusUploaded   = "uploaded"
	DocStatusProcessing = "processing"
	DocStatusReady      = "ready"
	DocStatusFailed     = "failed"
)

// Job status values for the processing state machine.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusNotFound   = "not_found"
)

// Duplicate match types.
const (
	MatchFilename    = "filename"
	MatchContentHash = "content_hash"
	MatchBoth        = "both"
)

// Document represents an uploaded document owned by an organization.
// The pipeline reads Content (normalized converted text) and DocumentType;
// StorageURL points at the raw bytes in object storage.
type Document struct {
	ID             string    `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	FileName       string    `db:"file_name" json:"file_name"`
	StorageURL     string    `db:"storage_url" json:"storage_url"`
	SourceType     string    `db:"source_type" json:"source_type"` // "upload" or "url"
	ContentType    string    `db:"content_type" json:"content_type"`
	DocumentType   string    `db:"document_type" json:"document_type"`
	Status         string    `db:"status" json:"status"` // uploaded | processing | ready | failed
	Content        string    `db:"content" json:"-"`
	FileHash       string    `db:"file_hash" json:"file_hash"`       // sha256 of raw bytes
	ContentHash    string    `db:"content_hash" json:"content_hash"` // sha256 of normalized converted text
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentChunk is one bounded slice of a document's normalized text,
// the unit of embedding and retrieval. Chunks are immutable once stored;
// reprocessing deletes and replaces the whole set for a document.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	ChunkIndex int       `db:"chunk_index" json:"chunk_index"` // 0-based, contiguous
	Content    string    `db:"content" json:"content"`
	TokenCount int       `db:"token_count" json:"token_count"`
	Strategy   string    `db:"strategy" json:"strategy"`
	ChunkType  string    `db:"chunk_type" json:"chunk_type"` // "text" or "heading"
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// EmbeddingResult pairs a chunk with its vector. Exactly one active
// embedding exists per chunk; storage upserts on ChunkID.
type EmbeddingResult struct {
	ChunkID    string    `json:"chunk_id"`
	Embedding  []float32 `json:"embedding"`
	Model      string    `json:"model"`
	TokenCount int       `json:"token_count"`
}

// CachedConversion is a prior conversion result keyed by the sha256 of the
// raw uploaded bytes. Purely an optimization: absence never changes
// correctness, only cost.
type CachedConversion struct {
	ContentHash  string            `json:"content_hash"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata"`
	OriginalType string            `json:"original_type"`
	CachedAt     time.Time         `json:"cached_at"`
}

// ProcessingJob is the durable state-machine record for one document's
// pipeline run. Job identity is derived from the document ID, so
// re-enqueuing replaces rather than duplicates.
type ProcessingJob struct {
	ID               string     `db:"id" json:"id"`
	DocumentID       string     `db:"document_id" json:"document_id"`
	OrganizationID   string     `db:"organization_id" json:"organization_id"`
	Status           string     `db:"status" json:"status"`
	Stage            string     `db:"stage" json:"stage"`
	Progress         int        `db:"progress" json:"progress"` // 0..100, monotonic within a run
	ErrorMessage     string     `db:"error_message" json:"error_message,omitempty"`
	AttemptsMade     int        `db:"attempts_made" json:"attempts_made"`
	MaxAttempts      int        `db:"max_attempts" json:"max_attempts"`
	ChunkingStrategy string     `db:"chunking_strategy" json:"chunking_strategy"`
	ChunkSize        int        `db:"chunk_size" json:"chunk_size"`
	ChunkOverlap     int        `db:"chunk_overlap" json:"chunk_overlap"`
	StartedAt        *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// JobStatus is the polling view of a job returned to clients.
type JobStatus struct {
	Status      string     `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	Progress    int        `json:"progress,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DuplicateCheck is the informational result of a duplicate probe.
// Callers decide whether to block the upload.
type DuplicateCheck struct {
	IsDuplicate        bool   `json:"is_duplicate"`
	ExistingDocumentID string `json:"existing_document_id,omitempty"`
	MatchType          string `json:"match_type,omitempty"`
}

// SemanticSearchResult is one retrieved chunk with its similarity score.
type SemanticSearchResult struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	Title        string  `json:"title"`
	Path         string  `json:"path"`
	DocumentType string  `json:"document_type"`
	ChunkIndex   int     `json:"chunk_index"`
	Content      string  `json:"content"`
	Similarity   float32 `json:"similarity"`
}

// DocumentMatches groups search results under their source document.
// Groups keep retrieval order; members are similarity-descending.
type DocumentMatches struct {
	DocumentID string                 `json:"document_id"`
	Title      string                 `json:"title"`
	Results    []SemanticSearchResult `json:"results"`
}

// Source records where a piece of RAG context came from, for citations.
type Source struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Path       string  `json:"path"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float32 `json:"similarity"`
}
