package convert

import (
	"context"
	"fmt"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
)

// Service combines detection, the strategy registry and the fail-open
// conversion cache into the single entry point the upload path calls.
type Service struct {
	registry *Registry
	cache    *ConversionCache
}

func NewService(registry *Registry, cache *ConversionCache) *Service {
	return &Service{registry: registry, cache: cache}
}

func (s *Service) Detect(filename, mimeType string) (DocumentType, bool) {
	return s.registry.Detect(filename, mimeType)
}

// Convert turns raw uploaded bytes into normalized text, consulting the
// cache first. Byte-identical inputs never invoke the underlying converter
// twice while the cache holds the entry.
func (s *Service) Convert(ctx context.Context, filename, mimeType string, data []byte) (*Result, error) {
	docType, ok := s.registry.Detect(filename, mimeType)
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", core.ErrUnsupportedFormat, filename, mimeType)
	}

	hash := ContentHash(data)
	if cached := s.cache.Get(ctx, hash); cached != nil {
		return resultFromCached(cached), nil
	}

	res, err := s.registry.Convert(docType, data)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, hash, res)
	return res, nil
}

// RawHash exposes the cache key hash for the upload path's duplicate probe.
func (s *Service) RawHash(data []byte) string {
	return ContentHash(data)
}

func resultFromCached(cached *models.CachedConversion) *Result {
	meta := cached.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return &Result{
		Content:      cached.Content,
		Metadata:     meta,
		OriginalType: DocumentType(cached.OriginalType),
	}
}
