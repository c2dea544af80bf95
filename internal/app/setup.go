package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/docsage/docsage/db"
	"github.com/docsage/docsage/internal/config"
	"github.com/docsage/docsage/internal/embedding"
	"github.com/docsage/docsage/internal/extract"
	"github.com/docsage/docsage/internal/index"
	"github.com/docsage/docsage/internal/ingest"
	"github.com/docsage/docsage/internal/layout"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/translate"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup, call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	logger := provideLogger(cfg)
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}

	a.Embedding, err = embedding.New(embedder, cfg.Dimensions, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}

	a.Index, err = index.New(pool, cfg.Dimensions, logger)
	if err != nil {
		return nil, fmt.Errorf("creating index store: %w", err)
	}
	// Both namespaces are provisioned up front so the first request never
	// pays the schema cost. Each provisioning call is independent.
	if err := a.Index.EnsureContent(ctx); err != nil {
		return nil, fmt.Errorf("provisioning content namespace: %w", err)
	}
	if err := a.Index.EnsurePromptLog(ctx); err != nil {
		return nil, fmt.Errorf("provisioning prompt-log namespace: %w", err)
	}

	completer, err := rag.NewGenkitCompleter(g, cfg.FullModelName(), cfg.MaxTokens, logger)
	if err != nil {
		return nil, fmt.Errorf("creating completer: %w", err)
	}

	a.Orchestrator, err = rag.New(a.Embedding, a.Index, completer, rag.Options{
		TopK:        cfg.TopK,
		Template:    cfg.PromptTemplate,
		Temperature: cfg.Temperature,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	a.Analyzer, err = provideAnalyzer(cfg, logger)
	if err != nil {
		return nil, err
	}

	extractor, err := extract.New(a.Analyzer, cfg.PagesPerGroup)
	if err != nil {
		return nil, fmt.Errorf("creating extractor: %w", err)
	}

	a.Pipeline, err = ingest.New(extractor, a.Embedding, a.Index, logger)
	if err != nil {
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	a.Translator, err = provideTranslator(cfg, logger)
	if err != nil {
		return nil, err
	}

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideLogger builds the application logger from config.
func provideLogger(cfg *config.Config) log.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}

// provideOtelShutdown registers an OTLP HTTP span exporter with Genkit's
// tracer provider. Must run before provideGenkit. Returns a no-op cleanup
// when no endpoint is configured.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)
	logger.Debug("trace export enabled", "endpoint", cfg.OTLPEndpoint)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	var g *genkit.Genkit

	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery).
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	default: // "openai"
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the provider plugin.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Ollama embedders are keyed by server address (registered in provideGenkit).
		return ollama.Embedder(g, cfg.OllamaHost)
	default: // "openai" auto-registers embedders in Init()
		return genkit.LookupEmbedder(g, api.NewName(config.ProviderOpenAI, cfg.EmbedderModel))
	}
}

// provideAnalyzer selects the layout analyzer: the hosted layout service
// when an endpoint is configured, the built-in HTML analyzer otherwise.
func provideAnalyzer(cfg *config.Config, logger log.Logger) (layout.Analyzer, error) {
	if cfg.LayoutEndpoint != "" {
		client, err := layout.NewClient(cfg.LayoutEndpoint, cfg.LayoutKey, logger)
		if err != nil {
			return nil, fmt.Errorf("creating layout client: %w", err)
		}
		return client, nil
	}
	return layout.NewHTMLAnalyzer(), nil
}

// provideTranslator creates the translation client when configured.
func provideTranslator(cfg *config.Config, logger log.Logger) (translate.Translator, error) {
	if cfg.TranslatorEndpoint == "" || cfg.TranslatorKey == "" {
		return nil, nil
	}
	client, err := translate.New(cfg.TranslatorEndpoint, cfg.TranslatorKey, cfg.TranslatorRegion, logger)
	if err != nil {
		return nil, fmt.Errorf("creating translator: %w", err)
	}
	return client, nil
}
