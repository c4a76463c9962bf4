package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"rasoi-ai/internal/contextutil"
	"rasoi-ai/internal/orchestrator"
)

// QueryService routes a user query to the appropriate answering backend.
type QueryService interface {
	HandleQuery(ctx context.Context, queryText string) orchestrator.Response
}

// QueryHandler handles HTTP requests for assistant queries.
type QueryHandler struct {
	service QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(service QueryService) *QueryHandler {
	return &QueryHandler{service: service}
}

// QueryRequest represents the HTTP request payload for assistant queries.
type QueryRequest struct {
	QueryText string `json:"query_text"`
	UserID    string `json:"user_id,omitempty"`
}

// QueryResponse represents the HTTP response payload for assistant queries.
type QueryResponse struct {
	ResponseText string `json:"response_text"`
	Intent       string `json:"intent"`
	Source       string `json:"source"`
}

// ServeHTTP handles HTTP requests for assistant queries.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.QueryText) == "" {
		logger.WarnContext(ctx, "empty query in request")
		writeError(w, http.StatusBadRequest, "query_text is required")
		return
	}

	result := h.service.HandleQuery(ctx, req.QueryText)

	writeJSON(w, http.StatusOK, QueryResponse{
		ResponseText: result.ResponseText,
		Intent:       result.Intent,
		Source:       result.Source,
	})
}
