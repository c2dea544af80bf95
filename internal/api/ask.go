package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/rag"
)

// MaxQuestionLength bounds question and prompt inputs.
const MaxQuestionLength = 10000

// Orchestrator is the question-answering surface the handlers call.
type Orchestrator interface {
	AskWith(ctx context.Context, question string, history []rag.Turn, opts rag.Options) (*rag.Answer, error)
	Options() rag.Options
	Summarize(ctx context.Context, text, style string) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

type askHandler struct {
	orchestrator Orchestrator
	prompts      PromptStore
	logger       log.Logger
}

// AskRequest is the request body for POST /api/ask.
// Template and temperature override the configured values when set.
type AskRequest struct {
	Question    string     `json:"question"`
	History     []rag.Turn `json:"history,omitempty"`
	TopK        int        `json:"top_k,omitempty"`
	Template    string     `json:"template,omitempty"`
	Temperature *float32   `json:"temperature,omitempty"`
}

func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question_required", "question is required")
		return
	}
	if len(req.Question) > MaxQuestionLength {
		writeError(w, http.StatusBadRequest, "question_too_long", "question exceeds maximum length")
		return
	}

	opts := h.orchestrator.Options()
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}
	if req.Template != "" {
		opts.Template = req.Template
	}
	if req.Temperature != nil {
		// Same range config enforces, 0.0 deterministic to 1.0 maximum.
		if *req.Temperature < 0.0 || *req.Temperature > 1.0 {
			writeError(w, http.StatusBadRequest, "invalid_temperature",
				"temperature must be between 0.0 and 1.0")
			return
		}
		opts.Temperature = *req.Temperature
	}

	answer, err := h.orchestrator.AskWith(r.Context(), req.Question, req.History, opts)
	if err != nil {
		h.logger.Error("ask failed", "error", err)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusRequestTimeout, "cancelled", "request cancelled")
		case errors.Is(err, rag.ErrCompletionUnavailable), errors.Is(err, rag.ErrRetrievalFailed):
			writeError(w, http.StatusServiceUnavailable, "backend_unavailable", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "ask_failed", "failed to answer question")
		}
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// SummaryRequest is the request body for POST /api/summaries.
type SummaryRequest struct {
	Text  string `json:"text"`
	Style string `json:"style"`
}

// SummaryResponse is the response body for POST /api/summaries.
type SummaryResponse struct {
	Summary string `json:"summary"`
	Style   string `json:"style"`
}

func (h *askHandler) summarize(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Style == "" {
		req.Style = rag.StyleConcise
	}

	summary, err := h.orchestrator.Summarize(r.Context(), req.Text, req.Style)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, "cancelled", "request cancelled")
			return
		}
		h.logger.Error("summarize failed", "error", err, "style", req.Style)
		writeError(w, http.StatusBadRequest, "summarize_failed", err.Error())
		return
	}

	// Summaries land in the prompt log so they can be revisited later.
	entry := index.PromptEntry{
		ID:     uuid.New().String(),
		Prompt: rag.SummaryPrompt(req.Text, req.Style),
		Result: summary,
	}
	if err := h.prompts.AddPromptResult(r.Context(), entry); err != nil {
		h.logger.Warn("storing summary failed", "error", err, "id", entry.ID)
	}

	writeJSON(w, http.StatusOK, SummaryResponse{Summary: summary, Style: req.Style})
}
