package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/core/coretest"
	"github.com/haleth-io/vectorpipe/internal/embed"
	"github.com/haleth-io/vectorpipe/internal/models"
)

type fixedProvider struct {
	calls int
}

func (p *fixedProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func newTestService(db *coretest.FakeDB, provider *fixedProvider) *Service {
	keys, _ := embed.NewKeyResolver(db, "", "global-key")
	gen := embed.NewGenerator(func(_ context.Context, _ string) (core.EmbeddingProvider, error) {
		return provider, nil
	}, keys, "test-model", 100, embed.RetryPolicy{MaxAttempts: 1})
	return NewService(db, gen)
}

func seedResults(db *coretest.FakeDB) {
	db.MatchResults = []models.SemanticSearchResult{
		{ChunkID: "c1", DocumentID: "docA", Title: "Alpha", DocumentType: "pdf", ChunkIndex: 0, Similarity: 0.95},
		{ChunkID: "c2", DocumentID: "docB", Title: "Beta", DocumentType: "md", ChunkIndex: 3, Similarity: 0.90},
		{ChunkID: "c3", DocumentID: "docA", Title: "Alpha", DocumentType: "pdf", ChunkIndex: 7, Similarity: 0.85},
		{ChunkID: "c4", DocumentID: "docC", Title: "Gamma", DocumentType: "pdf", ChunkIndex: 1, Similarity: 0.40},
	}
}

func TestSearchEmptyQueryShortCircuits(t *testing.T) {
	db := coretest.NewFakeDB()
	provider := &fixedProvider{}
	s := newTestService(db, provider)

	for _, q := range []string{"", "   ", "\n\t"} {
		results, err := s.Search(context.Background(), q, Options{OrganizationID: "org1"})
		require.NoError(t, err)
		assert.Nil(t, results)
	}
	assert.Zero(t, provider.calls, "empty queries must not reach the embedding provider")
}

func TestSearchAppliesDefaultThreshold(t *testing.T) {
	db := coretest.NewFakeDB()
	seedResults(db)
	s := newTestService(db, &fixedProvider{})

	results, err := s.Search(context.Background(), "anything", Options{OrganizationID: "org1"})
	require.NoError(t, err)

	// The 0.40 hit falls below the default 0.7 threshold.
	require.Len(t, results, 3)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, float32(0.7))
	}
}

func TestSearchHonorsMatchCount(t *testing.T) {
	db := coretest.NewFakeDB()
	seedResults(db)
	s := newTestService(db, &fixedProvider{})

	results, err := s.Search(context.Background(), "anything", Options{OrganizationID: "org1", MatchCount: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "c2", results[1].ChunkID)
}

func TestSearchFiltersDocumentType(t *testing.T) {
	db := coretest.NewFakeDB()
	seedResults(db)
	s := newTestService(db, &fixedProvider{})

	results, err := s.Search(context.Background(), "anything", Options{OrganizationID: "org1", DocumentType: "md"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ChunkID)
}

func TestSearchStorageError(t *testing.T) {
	db := coretest.NewFakeDB()
	db.FailMatch = true
	s := newTestService(db, &fixedProvider{})

	_, err := s.Search(context.Background(), "anything", Options{OrganizationID: "org1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageFailed)
}

func TestSearchGrouped(t *testing.T) {
	db := coretest.NewFakeDB()
	seedResults(db)
	s := newTestService(db, &fixedProvider{})

	groups, err := s.SearchGrouped(context.Background(), "anything", Options{OrganizationID: "org1"})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Groups in order of their best hit; members stay similarity-descending.
	assert.Equal(t, "docA", groups[0].DocumentID)
	assert.Equal(t, "Alpha", groups[0].Title)
	require.Len(t, groups[0].Results, 2)
	assert.Equal(t, "c1", groups[0].Results[0].ChunkID)
	assert.Equal(t, "c3", groups[0].Results[1].ChunkID)

	assert.Equal(t, "docB", groups[1].DocumentID)
	require.Len(t, groups[1].Results, 1)
}

func TestSearchGroupedEmptyQuery(t *testing.T) {
	s := newTestService(coretest.NewFakeDB(), &fixedProvider{})

	groups, err := s.SearchGrouped(context.Background(), "", Options{})
	require.NoError(t, err)
	assert.Nil(t, groups)
}
