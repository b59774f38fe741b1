package embed

import (
	"context"
	"fmt"
	"log"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// Store persists embeddings onto their chunk rows. Upserting on chunk
// identity means reprocessing a document overwrites vectors without ever
// creating duplicates.
type Store struct {
	db core.DbClient
}

func NewStore(db core.DbClient) *Store {
	return &Store{db: db}
}

// Store writes the embeddings for a document's chunks. A count mismatch
// between supplied embeddings and found chunks is logged, not fatal:
// embeddings for missing chunks are skipped.
func (s *Store) Store(ctx context.Context, embeddings []models.EmbeddingResult, documentID string) error {
	if len(embeddings) == 0 {
		return nil
	}
	found, err := s.db.UpsertChunkEmbeddings(ctx, embeddings)
	if err != nil {
		return fmt.Errorf("%w: upsert embeddings for %s: %v", core.ErrStorageFailed, documentID, err)
	}
	if found != len(embeddings) {
		log.Printf("WARN: document %s: %d embeddings supplied but only %d chunk rows found",
			documentID, len(embeddings), found)
	}
	return nil
}

// Remove drops all chunks (and with them their embeddings) for a document.
func (s *Store) Remove(ctx context.Context, documentID string) error {
	if err := s.db.DeleteDocumentChunks(ctx, documentID); err != nil {
		return fmt.Errorf("%w: delete chunks for %s: %v", core.ErrStorageFailed, documentID, err)
	}
	return nil
}
