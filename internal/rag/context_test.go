package rag

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/core/coretest"
	"github.com/haleth-io/vectorpipe/internal/embed"
	"github.com/haleth-io/vectorpipe/internal/models"
	"github.com/haleth-io/vectorpipe/internal/search"
)

type staticProvider struct{}

func (staticProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

func newTestBuilder(db *coretest.FakeDB) *Builder {
	keys, _ := embed.NewKeyResolver(db, "", "global-key")
	gen := embed.NewGenerator(func(_ context.Context, _ string) (core.EmbeddingProvider, error) {
		return staticProvider{}, nil
	}, keys, "test-model", 100, embed.RetryPolicy{MaxAttempts: 1})
	return NewBuilder(search.NewService(db, gen))
}

func seedMatches(db *coretest.FakeDB) {
	db.MatchResults = []models.SemanticSearchResult{
		{ChunkID: "c1", DocumentID: "docA", Title: "Handbook", Path: "docs/handbook.pdf", DocumentType: "pdf", ChunkIndex: 2, Content: "Vacation policy is twenty days.", Similarity: 0.92},
		{ChunkID: "c2", DocumentID: "docB", Title: "FAQ", Path: "docs/faq.md", DocumentType: "md", ChunkIndex: 0, Content: "Sick days are unlimited.", Similarity: 0.81},
	}
}

func TestBuildContextConcatenatesInOrder(t *testing.T) {
	db := coretest.NewFakeDB()
	seedMatches(db)
	b := newTestBuilder(db)

	c, err := b.BuildContext(context.Background(), "vacation days?", Options{
		Search: search.Options{OrganizationID: "org1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "vacation days?", c.Query)
	assert.Equal(t,
		"Vacation policy is twenty days."+separator+"Sick days are unlimited.",
		c.ContextText)

	require.Len(t, c.Sources, 2)
	assert.Equal(t, "Handbook", c.Sources[0].Title)
	assert.Equal(t, 2, c.Sources[0].ChunkIndex)
	assert.Equal(t, "FAQ", c.Sources[1].Title)
}

func TestBuildContextWithMarkers(t *testing.T) {
	db := coretest.NewFakeDB()
	seedMatches(db)
	b := newTestBuilder(db)

	c, err := b.BuildContext(context.Background(), "vacation days?", Options{
		Search:         search.Options{OrganizationID: "org1"},
		IncludeMarkers: true,
	})
	require.NoError(t, err)

	assert.Contains(t, c.ContextText, "[Document: Handbook (pdf)]\nVacation policy is twenty days.")
	assert.Contains(t, c.ContextText, "[Document: FAQ (md)]\nSick days are unlimited.")
}

func TestBuildContextEmptyResults(t *testing.T) {
	b := newTestBuilder(coretest.NewFakeDB())

	c, err := b.BuildContext(context.Background(), "anything", Options{})
	require.NoError(t, err)
	assert.Empty(t, c.ContextText)
	assert.Empty(t, c.Sources)
}

func TestFormatPromptNoTruncation(t *testing.T) {
	c := &Context{ContextText: "short context"}
	assert.Equal(t, "short context", FormatPrompt(c, 1000, false))
	assert.Equal(t, "short context", FormatPrompt(c, 0, false))
}

func TestFormatPromptTruncatesFromEnd(t *testing.T) {
	c := &Context{ContextText: strings.Repeat("word ", 100)}
	got := FormatPrompt(c, 50, false)

	assert.True(t, strings.HasSuffix(got, "\n[context truncated]"))
	body := strings.TrimSuffix(got, "\n[context truncated]")
	assert.LessOrEqual(t, len(body), 50)
	// Word-snapped: never ends mid-word.
	assert.True(t, strings.HasSuffix(body, "word"))
	// The head of the context survives; only the tail is dropped.
	assert.True(t, strings.HasPrefix(body, "word word"))
}

func TestFormatPromptTruncationKeepsRunesIntact(t *testing.T) {
	// Space-free multi-byte text: the word snap can't help, so the byte
	// cut itself must land on a rune boundary.
	c := &Context{ContextText: strings.Repeat("日本語テキスト", 20)}
	got := FormatPrompt(c, 50, false)

	body := strings.TrimSuffix(got, "\n[context truncated]")
	assert.True(t, utf8.ValidString(body))
	assert.LessOrEqual(t, len(body), 50)
	assert.True(t, strings.HasPrefix(c.ContextText, body))
}

func TestFormatPromptWithSources(t *testing.T) {
	c := &Context{
		ContextText: "body",
		Sources: []models.Source{
			{Title: "Handbook", ChunkIndex: 2, Similarity: 0.92},
			{Title: "FAQ", ChunkIndex: 0, Similarity: 0.81},
		},
	}
	got := FormatPrompt(c, 0, true)

	assert.Contains(t, got, "Sources:")
	assert.Contains(t, got, "1. Handbook (chunk 2, similarity 0.92)")
	assert.Contains(t, got, "2. FAQ (chunk 0, similarity 0.81)")
}

func TestFormatPromptNoSourcesWhenEmpty(t *testing.T) {
	c := &Context{ContextText: "body"}
	assert.Equal(t, "body", FormatPrompt(c, 0, true))
}
