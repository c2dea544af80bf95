package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider and API key validation
	switch c.Provider {
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, ProviderOpenAI)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
	default:
		return fmt.Errorf("%w: %q is not supported, must be one of: %v",
			ErrInvalidProvider, c.Provider, []string{ProviderOpenAI, ProviderOllama})
	}

	// 2. Completion model validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	// Temperature range: 0.0 (deterministic) to 1.0 (maximum creativity)
	if c.Temperature < 0.0 || c.Temperature > 1.0 {
		return fmt.Errorf("%w: must be between 0.0 and 1.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 128000 {
		return fmt.Errorf("%w: must be between 1 and 128,000, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// 3. Embedding validation
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// The store schema is created with this width; every vector written or
	// searched must match it.
	if c.Dimensions < 1 || c.Dimensions > 16000 {
		return fmt.Errorf("%w: must be between 1 and 16,000, got %d", ErrInvalidDimensions, c.Dimensions)
	}

	// 4. Retrieval validation
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("%w: must be between 1 and 50, got %d", ErrInvalidTopK, c.TopK)
	}

	if c.PagesPerGroup < 1 || c.PagesPerGroup > 100 {
		return fmt.Errorf("%w: must be between 1 and 100, got %d", ErrInvalidPagesPerGroup, c.PagesPerGroup)
	}

	if c.PromptLogLimit < 1 || c.PromptLogLimit > MaxPromptLogLimit {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidPromptLogLimit, MaxPromptLogLimit, c.PromptLogLimit)
	}

	// 5. PostgreSQL validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "docsage_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password in config.yaml for production deployments")
	}

	// Modern SSL modes only; allow/prefer are deprecated and MITM-vulnerable.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// NormalizePromptLogLimit clamps a listing limit to the configured range.
// A non-positive limit falls back to the configured default.
func (c *Config) NormalizePromptLogLimit(limit int) int {
	if limit <= 0 {
		return c.PromptLogLimit
	}
	if limit > MaxPromptLogLimit {
		return MaxPromptLogLimit
	}
	return limit
}
