package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/translate"
)

type translationHandler struct {
	translator translate.Translator
	logger     log.Logger
}

// TranslationRequest is the request body for POST /api/translations.
type TranslationRequest struct {
	Text string `json:"text"`
	To   string `json:"to"`
}

// TranslationResponse is the response body for POST /api/translations.
type TranslationResponse struct {
	Text string `json:"text"`
	To   string `json:"to"`
}

func (h *translationHandler) translate(w http.ResponseWriter, r *http.Request) {
	if h.translator == nil {
		writeError(w, http.StatusServiceUnavailable, "translator_unavailable", "translation is not configured")
		return
	}

	var req TranslationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if req.Text == "" || req.To == "" {
		writeError(w, http.StatusBadRequest, "fields_required", "text and to are required")
		return
	}

	translated, err := h.translator.Translate(r.Context(), req.Text, req.To)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, "cancelled", "request cancelled")
			return
		}
		h.logger.Error("translation failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "translation_failed", "translation service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, TranslationResponse{Text: translated, To: req.To})
}

func (h *translationHandler) languages(w http.ResponseWriter, r *http.Request) {
	if h.translator == nil {
		writeError(w, http.StatusServiceUnavailable, "translator_unavailable", "translation is not configured")
		return
	}

	languages, err := h.translator.Languages(r.Context())
	if err != nil {
		h.logger.Error("failed to list languages", "error", err)
		writeError(w, http.StatusServiceUnavailable, "languages_failed", "translation service unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"languages": languages})
}
