package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	middleware "github.com/haleth-io/vectorpipe/internal/api/middlewares"
	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/models"
	"github.com/haleth-io/vectorpipe/internal/rag"
	"github.com/haleth-io/vectorpipe/internal/search"
)

const defaultContextChars = 12000

type ChatHandler struct {
	builder *rag.Builder
	llm     core.LLMProvider
}

func NewChatHandler(builder *rag.Builder, llm core.LLMProvider) *ChatHandler {
	return &ChatHandler{builder: builder, llm: llm}
}

type ChatRequest struct {
	Query        string `json:"query"`
	DocumentType string `json:"document_type,omitempty"`
	MatchCount   int    `json:"match_count,omitempty"`
	MaxChars     int    `json:"max_chars,omitempty"`
}

type ChatResponse struct {
	Answer  string          `json:"answer"`
	Sources []models.Source `json:"sources"`
}

// Query retrieves context for the question and asks the LLM to answer
// from that context only.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orgID, ok := middleware.OrgID(ctx)
	if !ok {
		http.Error(w, "organization not found in context", http.StatusUnauthorized)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	ragCtx, err := h.builder.BuildContext(ctx, req.Query, rag.Options{
		Search: search.Options{
			OrganizationID: orgID,
			DocumentType:   req.DocumentType,
			MatchCount:     req.MatchCount,
		},
		IncludeMarkers: true,
	})
	if err != nil {
		searchError(w, err)
		return
	}

	maxChars := req.MaxChars
	if maxChars <= 0 {
		maxChars = defaultContextChars
	}

	systemPrompt := "You are an intelligent assistant answering based only on the given document content. If unsure, say 'I cannot find this in the documents.'"
	userPrompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", rag.FormatPrompt(ragCtx, maxChars, false), req.Query)

	answer, err := h.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		http.Error(w, fmt.Sprintf("LLM failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer, Sources: ragCtx.Sources})
}
