package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/haleth-io/vectorpipe/internal/config"
	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(pingCtx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, organization_id, file_name, storage_url, source_type, content_type,
			 document_type, status, content, file_hash, content_hash, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.OrganizationID, doc.FileName, doc.StorageURL, doc.SourceType,
		doc.ContentType, doc.DocumentType, doc.Status, doc.Content, doc.FileHash, doc.ContentHash)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, organization_id, file_name, storage_url, source_type, content_type,
		       document_type, status, content, file_hash, content_hash, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.OrganizationID, &d.FileName, &d.StorageURL, &d.SourceType, &d.ContentType,
		&d.DocumentType, &d.Status, &d.Content, &d.FileHash, &d.ContentHash, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByOrg(ctx context.Context, orgID string) ([]models.Document, error) {
	const q = `
		SELECT id, organization_id, file_name, storage_url, source_type, content_type,
		       document_type, status, file_hash, content_hash, created_at, updated_at
		FROM documents
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.OrganizationID, &d.FileName, &d.StorageURL, &d.SourceType, &d.ContentType,
			&d.DocumentType, &d.Status, &d.FileHash, &d.ContentHash, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status string) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// Duplicate probes

func (c *DatabaseClient) FindDocumentByFilename(ctx context.Context, orgID, filename, excludeID string) (string, error) {
	const q = `
		SELECT id FROM documents
		WHERE organization_id = $1 AND file_name = $2 AND id <> $3
		ORDER BY created_at ASC
		LIMIT 1
	`
	return c.findDocument(ctx, q, orgID, filename, excludeID)
}

func (c *DatabaseClient) FindDocumentByFileHash(ctx context.Context, orgID, fileHash, excludeID string) (string, error) {
	const q = `
		SELECT id FROM documents
		WHERE organization_id = $1 AND file_hash = $2 AND file_hash <> '' AND id <> $3
		ORDER BY created_at ASC
		LIMIT 1
	`
	return c.findDocument(ctx, q, orgID, fileHash, excludeID)
}

func (c *DatabaseClient) FindDocumentByContentHash(ctx context.Context, orgID, contentHash, excludeID string) (string, error) {
	const q = `
		SELECT id FROM documents
		WHERE organization_id = $1 AND content_hash = $2 AND content_hash <> '' AND id <> $3
		ORDER BY created_at ASC
		LIMIT 1
	`
	return c.findDocument(ctx, q, orgID, contentHash, excludeID)
}

func (c *DatabaseClient) findDocument(ctx context.Context, query, orgID, value, excludeID string) (string, error) {
	var id string
	err := c.db.QueryRowContext(ctx, query, orgID, value, excludeID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

// Chunks

// ReplaceDocumentChunks swaps the document's chunk set in one transaction:
// delete everything, insert the new set. Rollback on any failure leaves the
// previous set intact.
func (c *DatabaseClient) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []models.DocumentChunk) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, content, token_count, strategy, chunk_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			ch.ID, documentID, ch.ChunkIndex, ch.Content, ch.TokenCount, ch.Strategy, ch.ChunkType,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, chunk_index, content, token_count, strategy, chunk_type, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index ASC
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var ch models.DocumentChunk
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.ChunkIndex, &ch.Content, &ch.TokenCount, &ch.Strategy, &ch.ChunkType, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteDocumentChunks(ctx context.Context, documentID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

// Embeddings

// UpsertChunkEmbeddings writes vectors onto chunk rows keyed by chunk ID.
// The returned count is how many rows were actually found; the caller
// decides what a mismatch means.
func (c *DatabaseClient) UpsertChunkEmbeddings(ctx context.Context, embeddings []models.EmbeddingResult) (int, error) {
	if len(embeddings) == 0 {
		return 0, nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}

	const q = `
		UPDATE document_chunks
		SET embedding = $2, embedding_model = $3
		WHERE id = $1
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	found := 0
	for i := range embeddings {
		e := &embeddings[i]
		vec := pgvector.NewVector(e.Embedding)
		res, err := stmt.ExecContext(ctx, e.ChunkID, vec, e.Model)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			found++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return found, nil
}

// MatchChunks runs nearest-neighbor retrieval with cosine distance.
// Similarity = 1 - distance, clamped into [0,1] by the threshold filter.
func (c *DatabaseClient) MatchChunks(ctx context.Context, queryVec []float32, opts core.MatchOptions) ([]models.SemanticSearchResult, error) {
	const q = `
		SELECT c.id, c.document_id, d.file_name, d.storage_url, d.document_type,
		       c.chunk_index, c.content, 1 - (c.embedding <=> $1) AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
		  AND ($2 = '' OR d.organization_id = $2)
		  AND ($3 = '' OR d.document_type = $3)
		  AND 1 - (c.embedding <=> $1) >= $4
		ORDER BY c.embedding <=> $1 ASC
		LIMIT $5
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q,
		vec, opts.OrganizationID, opts.DocumentType, opts.MatchThreshold, opts.MatchCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SemanticSearchResult
	for rows.Next() {
		var r models.SemanticSearchResult
		if err := rows.Scan(
			&r.ChunkID, &r.DocumentID, &r.Title, &r.Path, &r.DocumentType,
			&r.ChunkIndex, &r.Content, &r.Similarity,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Organization keys

func (c *DatabaseClient) GetOrgAPIKey(ctx context.Context, orgID string) (string, bool, error) {
	const q = `SELECT sealed_api_key FROM organization_keys WHERE organization_id = $1`
	var sealed string
	err := c.db.QueryRowContext(ctx, q, orgID).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sealed, true, nil
}
