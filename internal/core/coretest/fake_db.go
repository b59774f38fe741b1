// Package coretest provides in-memory fakes for the core interfaces,
// shared by the package test suites.
package coretest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// FakeDB is an in-memory core.DbClient. Zero value is not usable; call
// NewFakeDB. Error injection flags make individual operations fail.
type FakeDB struct {
	mu sync.Mutex

	Documents  map[string]*models.Document
	Chunks     map[string][]models.DocumentChunk
	Embeddings map[string]models.EmbeddingResult // by chunk ID
	Jobs       map[string]*models.ProcessingJob
	OrgKeys    map[string]string // orgID -> sealed key

	MatchResults []models.SemanticSearchResult

	FailFinds bool // duplicate probes error
	FailJobs  bool // job record operations error
	FailMatch bool
}

func NewFakeDB() *FakeDB {
	return &FakeDB{
		Documents:  make(map[string]*models.Document),
		Chunks:     make(map[string][]models.DocumentChunk),
		Embeddings: make(map[string]models.EmbeddingResult),
		Jobs:       make(map[string]*models.ProcessingJob),
		OrgKeys:    make(map[string]string),
	}
}

var errInjected = errors.New("injected storage failure")

func (f *FakeDB) CreateDocument(_ context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.Documents[doc.ID] = &cp
	return nil
}

func (f *FakeDB) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.Documents[id]
	if !ok {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (f *FakeDB) ListDocumentsByOrg(_ context.Context, orgID string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Document
	for _, doc := range f.Documents {
		if doc.OrganizationID == orgID {
			out = append(out, *doc)
		}
	}
	return out, nil
}

func (f *FakeDB) UpdateDocumentStatus(_ context.Context, id string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.Documents[id]; ok {
		doc.Status = status
		doc.UpdatedAt = time.Now()
	}
	return nil
}

func (f *FakeDB) FindDocumentByFilename(_ context.Context, orgID, filename, excludeID string) (string, error) {
	return f.find(orgID, excludeID, func(d *models.Document) bool { return d.FileName == filename })
}

func (f *FakeDB) FindDocumentByFileHash(_ context.Context, orgID, fileHash, excludeID string) (string, error) {
	return f.find(orgID, excludeID, func(d *models.Document) bool { return d.FileHash == fileHash })
}

func (f *FakeDB) FindDocumentByContentHash(_ context.Context, orgID, contentHash, excludeID string) (string, error) {
	return f.find(orgID, excludeID, func(d *models.Document) bool { return d.ContentHash == contentHash })
}

func (f *FakeDB) find(orgID, excludeID string, match func(*models.Document) bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailFinds {
		return "", errInjected
	}
	for _, doc := range f.Documents {
		if doc.OrganizationID == orgID && doc.ID != excludeID && match(doc) {
			return doc.ID, nil
		}
	}
	return "", nil
}

func (f *FakeDB) ReplaceDocumentChunks(_ context.Context, documentID string, chunks []models.DocumentChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Chunks[documentID] = append([]models.DocumentChunk(nil), chunks...)
	return nil
}

func (f *FakeDB) GetChunksByDocument(_ context.Context, documentID string) ([]models.DocumentChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DocumentChunk(nil), f.Chunks[documentID]...), nil
}

func (f *FakeDB) DeleteDocumentChunks(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.Chunks[documentID] {
		delete(f.Embeddings, ch.ID)
	}
	delete(f.Chunks, documentID)
	return nil
}

// UpsertChunkEmbeddings counts only vectors whose chunk ID exists among
// stored chunks, mirroring the row-count the real client reports.
func (f *FakeDB) UpsertChunkEmbeddings(_ context.Context, embeddings []models.EmbeddingResult) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	known := make(map[string]bool)
	for _, chunks := range f.Chunks {
		for _, ch := range chunks {
			known[ch.ID] = true
		}
	}
	updated := 0
	for _, e := range embeddings {
		if known[e.ChunkID] {
			f.Embeddings[e.ChunkID] = e
			updated++
		}
	}
	return updated, nil
}

// MatchChunks applies the threshold and count filters to the pre-seeded
// MatchResults, which are assumed similarity-descending.
func (f *FakeDB) MatchChunks(_ context.Context, _ []float32, opts core.MatchOptions) ([]models.SemanticSearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailMatch {
		return nil, errInjected
	}
	var out []models.SemanticSearchResult
	for _, r := range f.MatchResults {
		if r.Similarity < opts.MatchThreshold {
			continue
		}
		if opts.DocumentType != "" && r.DocumentType != opts.DocumentType {
			continue
		}
		out = append(out, r)
		if len(out) == opts.MatchCount {
			break
		}
	}
	return out, nil
}

func (f *FakeDB) GetOrgAPIKey(_ context.Context, orgID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sealed, ok := f.OrgKeys[orgID]
	return sealed, ok, nil
}

func (f *FakeDB) UpsertJob(_ context.Context, job *models.ProcessingJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailJobs {
		return errInjected
	}
	cp := *job
	if prev, ok := f.Jobs[job.ID]; ok {
		cp.AttemptsMade = prev.AttemptsMade
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	f.Jobs[job.ID] = &cp
	return nil
}

func (f *FakeDB) GetJob(_ context.Context, jobID string) (*models.ProcessingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailJobs {
		return nil, errInjected
	}
	job, ok := f.Jobs[jobID]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (f *FakeDB) UpdateJobProgress(_ context.Context, jobID, status, stage string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.Jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	job.Stage = stage
	if progress > job.Progress {
		job.Progress = progress
	}
	job.UpdatedAt = time.Now()
	return nil
}

func (f *FakeDB) MarkJobStarted(_ context.Context, jobID, stage string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.Jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	now := time.Now()
	job.Status = models.JobStatusProcessing
	job.Stage = stage
	job.Progress = progress
	job.StartedAt = &now
	job.UpdatedAt = now
	return nil
}

func (f *FakeDB) MarkJobFailed(_ context.Context, jobID, errorMessage string, attemptsMade int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.Jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = models.JobStatusFailed
	job.ErrorMessage = errorMessage
	job.AttemptsMade = attemptsMade
	job.UpdatedAt = time.Now()
	return nil
}

func (f *FakeDB) MarkJobCompleted(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.Jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.CompletedAt = &now
	job.UpdatedAt = now
	return nil
}

func (f *FakeDB) ListJobsByStatus(_ context.Context, status string) ([]models.ProcessingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailJobs {
		return nil, errInjected
	}
	var out []models.ProcessingJob
	for _, job := range f.Jobs {
		if job.Status == status {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *FakeDB) Close() error { return nil }

var _ core.DbClient = (*FakeDB)(nil)
