// Package api provides the HTTP REST surface for docsage.
//
// Endpoints:
//
//	GET  /health            liveness probe
//	GET  /ready             readiness probe (pings collaborators)
//	POST /api/ask           answer a question over the indexed corpus
//	POST /api/documents     ingest a batch of documents
//	GET  /api/documents     list indexed chunks (key + metadata)
//	DELETE /api/documents/{key}   delete a single chunk
//	DELETE /api/documents   delete by ?filename= or ?all=true
//	GET  /api/prompts       list stored prompt results
//	POST /api/prompts       run a prompt and store the result
//	DELETE /api/prompts     delete stored results by ?pattern=
//	POST /api/summaries     summarize text in a given style
//	POST /api/translations  translate text
//	GET  /api/languages     list supported translation languages
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/translate"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3400"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds request header reads to limit slow-client abuse.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Generous because ask and ingest wait on model backends.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// ServerConfig contains the collaborators the server exposes.
type ServerConfig struct {
	Logger         log.Logger
	Orchestrator   Orchestrator         // Required
	Ingestor       Ingestor             // Required
	Documents      DocumentStore        // Required
	Prompts        PromptStore          // Required
	Translator     translate.Translator // Optional: nil disables translation endpoints
	Checks         []Check              // Readiness probes, run by GET /ready
	PromptLogLimit int                  // Listing cap for GET /api/prompts
}

// Server is the HTTP server for the docsage REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger
}

// NewServer creates a server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	if cfg.Documents == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Prompts == nil {
		return nil, errors.New("prompt store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()

	hh := newHealthHandler(cfg.Checks, logger)
	hh.registerRoutes(mux)

	ah := &askHandler{orchestrator: cfg.Orchestrator, prompts: cfg.Prompts, logger: logger}
	mux.HandleFunc("POST /api/ask", ah.ask)
	mux.HandleFunc("POST /api/summaries", ah.summarize)

	dh := &documentHandler{
		ingestor:  cfg.Ingestor,
		documents: cfg.Documents,
		logger:    logger,
	}
	mux.HandleFunc("POST /api/documents", dh.ingest)
	mux.HandleFunc("GET /api/documents", dh.list)
	mux.HandleFunc("DELETE /api/documents/{key}", dh.deleteOne)
	mux.HandleFunc("DELETE /api/documents", dh.deleteMany)

	ph := &promptHandler{
		store:     cfg.Prompts,
		completer: cfg.Orchestrator,
		limit:     cfg.PromptLogLimit,
		logger:    logger,
	}
	mux.HandleFunc("GET /api/prompts", ph.list)
	mux.HandleFunc("POST /api/prompts", ph.run)
	mux.HandleFunc("DELETE /api/prompts", ph.deleteByPattern)

	th := &translationHandler{translator: cfg.Translator, logger: logger}
	mux.HandleFunc("POST /api/translations", th.translate)
	mux.HandleFunc("GET /api/languages", th.languages)

	return &Server{mux: mux, logger: logger}, nil
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery, then logging, then routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
