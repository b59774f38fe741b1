package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/haleth-io/vectorpipe/internal/api/middlewares"
	"github.com/haleth-io/vectorpipe/internal/config"
	"github.com/haleth-io/vectorpipe/internal/convert"
	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/dedupe"
	"github.com/haleth-io/vectorpipe/internal/jobs"
	"github.com/haleth-io/vectorpipe/internal/models"
)

const maxUploadBytes = 52 << 20 // 52 MB

type DocumentHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	converter    *convert.Service
	validator    *dedupe.Validator
	queue        *jobs.Queue
	cfg          *config.Config
}

func NewDocumentHandler(dbclient core.DbClient, objectclient core.ObjectClient, converter *convert.Service, validator *dedupe.Validator, queue *jobs.Queue, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{
		dbclient:     dbclient,
		objectclient: objectclient,
		converter:    converter,
		validator:    validator,
		queue:        queue,
		cfg:          cfg,
	}
}

// UploadResponse is the upload endpoint's body: the stored document, the
// informational duplicate probe result, and the enqueued job.
type UploadResponse struct {
	Document  *models.Document      `json:"document"`
	Duplicate models.DuplicateCheck `json:"duplicate"`
	Job       *models.ProcessingJob `json:"job"`
	Warning   string                `json:"warning,omitempty"`
	Metadata  map[string]string     `json:"metadata,omitempty"`
}

// UploadDocument handles file upload: convert, duplicate-check, persist,
// store raw bytes, and enqueue background processing.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		http.Error(w, "organization not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}
	if len(data) > maxUploadBytes {
		http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	cleanFilename := filepath.Base(header.Filename)

	docType, ok := h.converter.Detect(cleanFilename, contentType)
	if !ok {
		http.Error(w, fmt.Sprintf("unsupported document format: %s", cleanFilename), http.StatusUnsupportedMediaType)
		return
	}

	uploadctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	res, err := h.converter.Convert(uploadctx, cleanFilename, contentType, data)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedFormat) {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, fmt.Sprintf("conversion failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	content := dedupe.NormalizeContent(res.Content)
	fileHash := dedupe.FileHash(data)
	contentHash := dedupe.ContentHash(content)

	docID := uuid.NewString()
	dup := h.validator.Check(uploadctx, orgID, dedupe.Criteria{
		Filename:    cleanFilename,
		FileHash:    fileHash,
		ContentHash: contentHash,
	}, docID)

	s3Key := fmt.Sprintf("%s/%s/%s", orgID, docID, cleanFilename)
	url, err := h.objectclient.UploadFile(uploadctx, h.cfg.BucketName, s3Key, data, contentType)
	if err != nil {
		log.Printf("WARN: raw upload to object storage failed for doc %s: %v", docID, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:             docID,
		OrganizationID: orgID,
		FileName:       cleanFilename,
		StorageURL:     url,
		SourceType:     "upload",
		ContentType:    contentType,
		DocumentType:   string(docType),
		Status:         models.DocStatusUploaded,
		Content:        content,
		FileHash:       fileHash,
		ContentHash:    contentHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.dbclient.CreateDocument(uploadctx, doc); err != nil {
		log.Printf("DB insert failed for doc %s: %v", docID, err)
		http.Error(w, fmt.Sprintf("failed to store document: %v", err), http.StatusInternalServerError)
		return
	}

	job, err := h.queue.Enqueue(uploadctx, jobs.Payload{
		DocumentID:       docID,
		OrganizationID:   orgID,
		ChunkingStrategy: r.FormValue("chunking_strategy"),
		ChunkSize:        formInt(r, "chunk_size"),
		ChunkOverlap:     formInt(r, "chunk_overlap"),
	})
	if err != nil {
		log.Printf("enqueue failed for doc %s: %v", docID, err)
		http.Error(w, "failed to queue processing", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{
		Document:  doc,
		Duplicate: dup,
		Job:       job,
		Warning:   res.Metadata["warning"],
		Metadata:  res.Metadata,
	})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		http.Error(w, "organization not found in context", http.StatusUnauthorized)
		return
	}

	documents, err := h.dbclient.ListDocumentsByOrg(r.Context(), orgID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		http.Error(w, "organization not found in context", http.StatusUnauthorized)
		return
	}

	doc, err := h.dbclient.GetDocumentByID(r.Context(), chi.URLParam(r, "document_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil || doc.OrganizationID != orgID {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// GetJobStatus is the polling endpoint for a document's processing job.
func (h *DocumentHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OrgID(r.Context()); !ok {
		http.Error(w, "organization not found in context", http.StatusUnauthorized)
		return
	}

	status, err := h.queue.Status(r.Context(), chi.URLParam(r, "document_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// RetryFailed sweeps this organization's failed jobs back into the queue.
func (h *DocumentHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		http.Error(w, "organization not found in context", http.StatusUnauthorized)
		return
	}

	retried, err := h.queue.RetryFailed(r.Context(), formInt(r, "max_retries"), func(job models.ProcessingJob) bool {
		return job.OrganizationID == orgID
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"retried": retried})
}

func formInt(r *http.Request, key string) int {
	var n int
	fmt.Sscanf(r.FormValue(key), "%d", &n)
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN: write response: %v", err)
	}
}
