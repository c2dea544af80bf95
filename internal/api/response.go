package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON sends data as a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already on the wire at this point.
		slog.Error("encoding response body", "error", err)
	}
}

// ErrorResponse is the error body every handler returns. Error is a stable
// machine-readable code ("question_required", "backend_unavailable", ...),
// Message the human-readable detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
