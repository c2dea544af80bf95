package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/ingest"
	"github.com/docsage/docsage/internal/log"
)

// Document listing bounds.
const (
	DefaultDocumentLimit = 100
	MaxDocumentLimit     = 100000
	MaxBatchSize         = 100
)

// Ingestor runs document ingestion and index deletions.
type Ingestor interface {
	IngestBatch(ctx context.Context, docs []ingest.Document) (*ingest.Report, error)
	DeleteEmbedding(ctx context.Context, key string) error
	DeleteFile(ctx context.Context, filename string) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// DocumentStore lists indexed chunks.
type DocumentStore interface {
	GetAll(ctx context.Context, limit int) ([]index.Entry, error)
}

type documentHandler struct {
	ingestor  Ingestor
	documents DocumentStore
	logger    log.Logger
}

// IngestRequest is the request body for POST /api/documents.
type IngestRequest struct {
	Documents []ingest.Document `json:"documents"`
}

func (h *documentHandler) ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, "documents_required", "at least one document is required")
		return
	}
	if len(req.Documents) > MaxBatchSize {
		writeError(w, http.StatusBadRequest, "batch_too_large", "too many documents in one batch")
		return
	}
	for _, doc := range req.Documents {
		if doc.Source == "" {
			writeError(w, http.StatusBadRequest, "source_required", "every document needs a source")
			return
		}
	}

	report, err := h.ingestor.IngestBatch(r.Context(), req.Documents)
	if err != nil {
		h.logger.Error("ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "ingestion failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultDocumentLimit, 1, MaxDocumentLimit)

	entries, err := h.documents.GetAll(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
		"limit":   limit,
	})
}

func (h *documentHandler) deleteOne(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key_required", "embedding key is required")
		return
	}

	if err := h.ingestor.DeleteEmbedding(r.Context(), key); err != nil {
		h.logger.Error("failed to delete embedding", "error", err, "key", key)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete embedding")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": key})
}

// deleteMany deletes by filename or everything, selected by query parameter.
func (h *documentHandler) deleteMany(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("all") == "true":
		deleted, err := h.ingestor.DeleteAll(r.Context())
		if err != nil {
			h.logger.Error("failed to delete all embeddings", "error", err)
			writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete embeddings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})

	case q.Get("filename") != "":
		filename := q.Get("filename")
		deleted, err := h.ingestor.DeleteFile(r.Context(), filename)
		if err != nil {
			h.logger.Error("failed to delete file embeddings", "error", err, "filename", filename)
			writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete embeddings")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})

	default:
		writeError(w, http.StatusBadRequest, "selector_required", "provide ?filename= or ?all=true")
	}
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, minVal, maxVal int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
