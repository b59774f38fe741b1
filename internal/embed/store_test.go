package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haleth-io/vectorpipe/internal/core/coretest"
	"github.com/haleth-io/vectorpipe/internal/models"
)

func TestStoreUpsertsByChunkID(t *testing.T) {
	ctx := context.Background()
	db := coretest.NewFakeDB()
	require.NoError(t, db.ReplaceDocumentChunks(ctx, "doc1", []models.DocumentChunk{
		{ID: "c1", DocumentID: "doc1", ChunkIndex: 0},
		{ID: "c2", DocumentID: "doc1", ChunkIndex: 1},
	}))

	s := NewStore(db)
	err := s.Store(ctx, []models.EmbeddingResult{
		{ChunkID: "c1", Embedding: []float32{1}, Model: "m"},
		{ChunkID: "c2", Embedding: []float32{2}, Model: "m"},
	}, "doc1")
	require.NoError(t, err)

	assert.Len(t, db.Embeddings, 2)
	assert.Equal(t, []float32{2}, db.Embeddings["c2"].Embedding)
}

func TestStoreOverwritesOnReprocess(t *testing.T) {
	ctx := context.Background()
	db := coretest.NewFakeDB()
	require.NoError(t, db.ReplaceDocumentChunks(ctx, "doc1", []models.DocumentChunk{
		{ID: "c1", DocumentID: "doc1"},
	}))

	s := NewStore(db)
	require.NoError(t, s.Store(ctx, []models.EmbeddingResult{{ChunkID: "c1", Embedding: []float32{1}}}, "doc1"))
	require.NoError(t, s.Store(ctx, []models.EmbeddingResult{{ChunkID: "c1", Embedding: []float32{9}}}, "doc1"))

	assert.Len(t, db.Embeddings, 1)
	assert.Equal(t, []float32{9}, db.Embeddings["c1"].Embedding)
}

func TestStoreMismatchNotFatal(t *testing.T) {
	ctx := context.Background()
	db := coretest.NewFakeDB()

	s := NewStore(db)
	// No chunk rows exist; the store logs the mismatch but succeeds.
	err := s.Store(ctx, []models.EmbeddingResult{{ChunkID: "ghost", Embedding: []float32{1}}}, "doc1")
	assert.NoError(t, err)
	assert.Empty(t, db.Embeddings)
}

func TestStoreEmptyInput(t *testing.T) {
	s := NewStore(coretest.NewFakeDB())
	assert.NoError(t, s.Store(context.Background(), nil, "doc1"))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	db := coretest.NewFakeDB()
	require.NoError(t, db.ReplaceDocumentChunks(ctx, "doc1", []models.DocumentChunk{{ID: "c1"}}))

	s := NewStore(db)
	require.NoError(t, s.Store(ctx, []models.EmbeddingResult{{ChunkID: "c1", Embedding: []float32{1}}}, "doc1"))
	require.NoError(t, s.Remove(ctx, "doc1"))

	chunks, err := db.GetChunksByDocument(ctx, "doc1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Empty(t, db.Embeddings)
}
