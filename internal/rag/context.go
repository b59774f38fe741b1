package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/haleth-io/vectorpipe/internal/models"
	"github.com/haleth-io/vectorpipe/internal/search"
)

// Separator placed between retrieved chunks in the assembled context.
const separator = "\n\n---\n\n"

// Options tunes context assembly on top of the search filters.
type Options struct {
	Search         search.Options
	IncludeMarkers bool // prefix each chunk with a [Document: ...] marker
}

// Context is a prompt-ready bundle of retrieved chunks with attribution.
type Context struct {
	Query       string                        `json:"query"`
	Results     []models.SemanticSearchResult `json:"results"`
	ContextText string                        `json:"context_text"`
	Sources     []models.Source               `json:"sources"`
}

// Builder assembles retrieved chunks into bounded RAG context.
type Builder struct {
	searcher *search.Service
}

func NewBuilder(searcher *search.Service) *Builder {
	return &Builder{searcher: searcher}
}

// BuildContext retrieves top-K chunks for the query and concatenates them
// in retrieval order, recording one source per contributing chunk in the
// same order for citation display.
func (b *Builder) BuildContext(ctx context.Context, query string, opts Options) (*Context, error) {
	results, err := b.searcher.Search(ctx, query, opts.Search)
	if err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(results))
	sources := make([]models.Source, 0, len(results))
	for _, r := range results {
		text := r.Content
		if opts.IncludeMarkers {
			text = fmt.Sprintf("[Document: %s (%s)]\n%s", r.Title, r.DocumentType, r.Content)
		}
		parts = append(parts, text)
		sources = append(sources, models.Source{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Path:       r.Path,
			ChunkIndex: r.ChunkIndex,
			Similarity: r.Similarity,
		})
	}

	return &Context{
		Query:       query,
		Results:     results,
		ContextText: strings.Join(parts, separator),
		Sources:     sources,
	}, nil
}

// FormatPrompt truncates the assembled context to maxChars — always from
// the end, never the middle — and optionally appends an enumerated source
// list.
func FormatPrompt(c *Context, maxChars int, includeSources bool) string {
	text := c.ContextText
	if maxChars > 0 && len(text) > maxChars {
		// Back up to a rune start so the byte cut never splits a
		// multi-byte character, then snap to a word boundary.
		cut := maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
		if sp := strings.LastIndexByte(text, ' '); sp > 0 {
			text = text[:sp]
		}
		text += "\n[context truncated]"
	}

	if !includeSources || len(c.Sources) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nSources:\n")
	for i, src := range c.Sources {
		fmt.Fprintf(&b, "%d. %s (chunk %d, similarity %.2f)\n", i+1, src.Title, src.ChunkIndex, src.Similarity)
	}
	return strings.TrimRight(b.String(), "\n")
}
