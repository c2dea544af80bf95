// Package app wires the application together: configuration, logging,
// tracing, the database pool, the Genkit provider plugins, and the
// docsage components built on top of them.
package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docsage/docsage/internal/api"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/embedding"
	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/ingest"
	"github.com/docsage/docsage/internal/layout"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/translate"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	DBPool *pgxpool.Pool

	Index        *index.Store
	Embedding    *embedding.Provider
	Orchestrator *rag.Orchestrator
	Pipeline     *ingest.Pipeline
	Analyzer     layout.Analyzer
	Translator   translate.Translator // nil when not configured

	otelCleanup func()
	cancel      context.CancelFunc
}

// Close releases all resources. Safe to call after a failed Setup.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

// Checks returns the readiness probes for every collaborator, used by
// GET /ready and the doctor command. Each probe exercises the real
// dependency, so a sweep confirms the deployment end to end.
func (a *App) Checks() []api.Check {
	checks := []api.Check{
		{
			Name: "index",
			Probe: func(ctx context.Context) error {
				if err := a.DBPool.Ping(ctx); err != nil {
					return fmt.Errorf("database unreachable: %w", err)
				}
				if _, err := a.Index.Exists(ctx, index.NamespaceContent); err != nil {
					return fmt.Errorf("content namespace probe: %w", err)
				}
				return nil
			},
		},
		{
			Name: "embedding",
			Probe: func(ctx context.Context) error {
				_, err := a.Embedding.Embed(ctx, "healthcheck")
				return err
			},
		},
		{
			Name: "completion",
			Probe: func(ctx context.Context) error {
				_, err := a.Orchestrator.Complete(ctx, "Reply with the single word OK.")
				return err
			},
		},
	}

	if a.Translator != nil {
		checks = append(checks, api.Check{
			Name: "translator",
			Probe: func(ctx context.Context) error {
				_, err := a.Translator.Languages(ctx)
				return err
			},
		})
	}

	return checks
}
