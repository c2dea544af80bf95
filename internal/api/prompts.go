package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
)

// PromptStore persists prompt results in the prompt-log namespace.
type PromptStore interface {
	AddPromptResult(ctx context.Context, entry index.PromptEntry) error
	PromptResults(ctx context.Context, limit int) ([]index.PromptEntry, error)
	DeletePromptResults(ctx context.Context, pattern string) (int64, error)
}

type promptHandler struct {
	store     PromptStore
	completer Orchestrator
	limit     int
	logger    log.Logger
}

func (h *promptHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := h.limit
	if limit < 1 {
		limit = 1000
	}
	limit = parseIntParam(r, "limit", limit, 1, MaxDocumentLimit)

	entries, err := h.store.PromptResults(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list prompt results", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list prompt results")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prompts": entries,
		"total":   len(entries),
		"limit":   limit,
	})
}

// RunPromptRequest is the request body for POST /api/prompts.
type RunPromptRequest struct {
	Prompt   string `json:"prompt"`
	Filename string `json:"filename,omitempty"`
}

// run executes the prompt against the completion backend and stores the
// result under a fresh ID in the prompt-log namespace.
func (h *promptHandler) run(w http.ResponseWriter, r *http.Request) {
	var req RunPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt_required", "prompt is required")
		return
	}
	if len(req.Prompt) > MaxQuestionLength {
		writeError(w, http.StatusBadRequest, "prompt_too_long", "prompt exceeds maximum length")
		return
	}

	result, err := h.completer.Complete(r.Context(), req.Prompt)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, "cancelled", "request cancelled")
			return
		}
		h.logger.Error("prompt completion failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "completion_failed", "completion backend unavailable")
		return
	}

	entry := index.PromptEntry{
		ID:       uuid.New().String(),
		Filename: req.Filename,
		Prompt:   req.Prompt,
		Result:   result,
	}
	if err := h.store.AddPromptResult(r.Context(), entry); err != nil {
		h.logger.Error("failed to store prompt result", "error", err, "id", entry.ID)
		writeError(w, http.StatusInternalServerError, "store_failed", "failed to store prompt result")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *promptHandler) deleteByPattern(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	deleted, err := h.store.DeletePromptResults(r.Context(), pattern)
	if err != nil {
		h.logger.Error("failed to delete prompt results", "error", err, "pattern", pattern)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete prompt results")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
