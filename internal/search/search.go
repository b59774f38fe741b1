package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/embed"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// Options filters a semantic search.
type Options struct {
	OrganizationID string
	DocumentType   string
	MatchThreshold float32 // minimum similarity, default 0.7
	MatchCount     int     // maximum results, default 10
}

func (o Options) withDefaults() Options {
	if o.MatchThreshold <= 0 {
		o.MatchThreshold = 0.7
	}
	if o.MatchCount <= 0 {
		o.MatchCount = 10
	}
	return o
}

// Service embeds queries and retrieves nearest-neighbor chunks.
type Service struct {
	db        core.DbClient
	generator *embed.Generator
}

func NewService(db core.DbClient, generator *embed.Generator) *Service {
	return &Service{db: db, generator: generator}
}

// Search returns chunks similar to the query, similarity descending. An
// empty or whitespace query short-circuits to an empty result without
// touching the embedding provider.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]models.SemanticSearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	opts = opts.withDefaults()

	queryVec, err := s.generator.EmbedQuery(ctx, opts.OrganizationID, query)
	if err != nil {
		return nil, err
	}

	results, err := s.db.MatchChunks(ctx, queryVec, core.MatchOptions{
		OrganizationID: opts.OrganizationID,
		DocumentType:   opts.DocumentType,
		MatchThreshold: opts.MatchThreshold,
		MatchCount:     opts.MatchCount,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: match chunks: %v", core.ErrStorageFailed, err)
	}
	return results, nil
}

// SearchGrouped clusters results by source document for per-document
// multi-snippet display. Groups appear in order of their best hit; each
// group's members stay similarity-descending.
func (s *Service) SearchGrouped(ctx context.Context, query string, opts Options) ([]models.DocumentMatches, error) {
	results, err := s.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string]int)
	var groups []models.DocumentMatches
	for _, r := range results {
		idx, ok := byDoc[r.DocumentID]
		if !ok {
			idx = len(groups)
			byDoc[r.DocumentID] = idx
			groups = append(groups, models.DocumentMatches{
				DocumentID: r.DocumentID,
				Title:      r.Title,
			})
		}
		groups[idx].Results = append(groups[idx].Results, r)
	}
	return groups, nil
}
