package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// ProviderFactory builds an embedding provider bound to an API key.
type ProviderFactory func(ctx context.Context, apiKey string) (core.EmbeddingProvider, error)

// Generator batches chunk texts, calls the external embedding provider with
// retry/backoff, and maps results back to chunk identity positionally.
type Generator struct {
	factory   ProviderFactory
	keys      *KeyResolver
	model     string
	batchSize int
	retry     RetryPolicy

	mu        sync.Mutex
	providers map[string]core.EmbeddingProvider // keyed by API key
}

func NewGenerator(factory ProviderFactory, keys *KeyResolver, model string, batchSize int, retry RetryPolicy) *Generator {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Generator{
		factory:   factory,
		keys:      keys,
		model:     model,
		batchSize: batchSize,
		retry:     retry,
		providers: make(map[string]core.EmbeddingProvider),
	}
}

// Generate embeds all chunks for one document. Batches are issued strictly
// sequentially: batch i+1 only goes out after batch i resolves, so a single
// job never over-runs the provider's rate limit on its own. Exhausting
// retries on any batch fails the whole call; no partial result is returned.
func (g *Generator) Generate(ctx context.Context, chunks []models.DocumentChunk, orgID string) ([]models.EmbeddingResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	provider, err := g.providerFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	out := make([]models.EmbeddingResult, 0, len(chunks))
	for start := 0; start < len(chunks); start += g.batchSize {
		end := start + g.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}

		var vecs [][]float32
		err := g.retry.Do(ctx, func() error {
			var callErr error
			vecs, callErr = provider.EmbedTexts(ctx, texts)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %v", core.ErrEmbeddingFailed, start, end-1, err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors for %d texts",
				core.ErrEmbeddingFailed, start, end-1, len(vecs), len(batch))
		}

		// Response order mirrors input order; pair each vector back to its
		// originating chunk before anything touches storage.
		for i := range batch {
			out = append(out, models.EmbeddingResult{
				ChunkID:    batch[i].ID,
				Embedding:  vecs[i],
				Model:      g.model,
				TokenCount: batch[i].TokenCount,
			})
		}
	}
	return out, nil
}

// EmbedQuery is the single-item path used by semantic search.
func (g *Generator) EmbedQuery(ctx context.Context, orgID, query string) ([]float32, error) {
	provider, err := g.providerFor(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var vecs [][]float32
	err = g.retry.Do(ctx, func() error {
		var callErr error
		vecs, callErr = provider.EmbedTexts(ctx, []string{query})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: query embed: %v", core.ErrEmbeddingFailed, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: query embed returned %d vectors", core.ErrEmbeddingFailed, len(vecs))
	}
	return vecs[0], nil
}

func (g *Generator) providerFor(ctx context.Context, orgID string) (core.EmbeddingProvider, error) {
	apiKey, err := g.keys.Resolve(ctx, orgID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.providers[apiKey]; ok {
		return p, nil
	}
	p, err := g.factory(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}
	g.providers[apiKey] = p
	return p, nil
}
