package api

import (
	"context"
	"net/http"
	"time"

	"github.com/docsage/docsage/internal/log"
)

// readyTimeout bounds the whole readiness sweep.
const readyTimeout = 15 * time.Second

// Check is a named readiness probe for one collaborator
// (completion backend, embedder, index, translator).
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// CheckResult reports the outcome of a single readiness probe.
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RunChecks executes all probes and reports each collaborator independently.
// A failing probe never short-circuits the rest.
func RunChecks(ctx context.Context, checks []Check) (results []CheckResult, ok bool) {
	ok = true
	for _, c := range checks {
		r := CheckResult{Name: c.Name, Status: "ok"}
		if err := c.Probe(ctx); err != nil {
			r.Status = "failed"
			r.Error = err.Error()
			ok = false
		}
		results = append(results, r)
	}
	return results, ok
}

type healthHandler struct {
	checks []Check
	logger log.Logger
}

func newHealthHandler(checks []Check, logger log.Logger) *healthHandler {
	return &healthHandler{checks: checks, logger: logger}
}

func (h *healthHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readiness probes every collaborator and returns 503 if any fails.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results, ok := RunChecks(ctx, h.checks)
	status := http.StatusOK
	if !ok {
		h.logger.Error("readiness check failed", "results", results)
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"ready":  ok,
		"checks": results,
	})
}
