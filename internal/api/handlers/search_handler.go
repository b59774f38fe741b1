package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	middleware "github.com/haleth-io/vectorpipe/internal/api/middlewares"
	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/search"
)

type SearchHandler struct {
	searcher *search.Service
}

func NewSearchHandler(searcher *search.Service) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

type SearchRequest struct {
	Query          string  `json:"query"`
	DocumentType   string  `json:"document_type,omitempty"`
	MatchThreshold float32 `json:"match_threshold,omitempty"`
	MatchCount     int     `json:"match_count,omitempty"`
	Grouped        bool    `json:"grouped,omitempty"`
}

// Search runs semantic retrieval over the organization's chunks. With
// "grouped" set, results are clustered by source document.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		http.Error(w, "organization not found in context", http.StatusUnauthorized)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	opts := search.Options{
		OrganizationID: orgID,
		DocumentType:   req.DocumentType,
		MatchThreshold: req.MatchThreshold,
		MatchCount:     req.MatchCount,
	}

	if req.Grouped {
		groups, err := h.searcher.SearchGrouped(r.Context(), req.Query, opts)
		if err != nil {
			searchError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
		return
	}

	results, err := h.searcher.Search(r.Context(), req.Query, opts)
	if err != nil {
		searchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func searchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrMissingCredential):
		http.Error(w, "no embedding credential configured", http.StatusPreconditionFailed)
	case errors.Is(err, core.ErrRateLimited):
		http.Error(w, "embedding provider rate limited, try again later", http.StatusTooManyRequests)
	default:
		http.Error(w, fmt.Sprintf("search failed: %v", err), http.StatusInternalServerError)
	}
}
