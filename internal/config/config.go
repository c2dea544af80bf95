// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.docsage/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider selection, completion model, temperature, max tokens
//   - Embedding: embedder model and vector dimensions
//   - Retrieval: top-k, custom prompt template, pages-per-chunk grouping
//   - Storage: PostgreSQL connection (see storage.go)
//   - Services: layout analysis and translation endpoints
//
// Security: sensitive data (passwords, API keys) is never logged; config
// directory uses 0750 permissions.
//
// Error handling uses sentinel errors so callers can check categories with
// errors.Is() while still seeing the offending value in the message.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the completion model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidDimensions indicates the embedding dimensions are out of range.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidTopK indicates the retrieval top-k value is out of range.
	ErrInvalidTopK = errors.New("invalid top-k")

	// ErrInvalidPagesPerGroup indicates the chunk grouping factor is out of range.
	ErrInvalidPagesPerGroup = errors.New("invalid pages per group")

	// ErrInvalidPromptLogLimit indicates the prompt log listing limit is out of range.
	ErrInvalidPromptLogLimit = errors.New("invalid prompt log limit")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	// DefaultEmbedderModel is the default embedding model.
	DefaultEmbedderModel = "text-embedding-3-small"

	// DefaultDimensions is the vector width the store schema is created with.
	// Changing it requires re-ingesting every document.
	DefaultDimensions = 1536

	// DefaultTopK is how many chunks retrieval feeds into the prompt.
	DefaultTopK = 4

	// DefaultPagesPerGroup controls how many source pages merge into one chunk.
	DefaultPagesPerGroup = 2

	// DefaultPromptLogLimit caps how many prompt log entries a listing returns.
	DefaultPromptLogLimit = 1000

	// MaxPromptLogLimit is the absolute listing cap to keep responses bounded.
	MaxPromptLogLimit = 100000
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI provider and completion model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "openai" (default) or "ollama"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gpt-4o-mini", "llama3.3"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	Dimensions    int    `mapstructure:"dimensions" json:"dimensions"`

	// Retrieval configuration
	TopK           int    `mapstructure:"top_k" json:"top_k"`
	PromptTemplate string `mapstructure:"prompt_template" json:"prompt_template"` // empty means built-in default
	PagesPerGroup  int    `mapstructure:"pages_per_group" json:"pages_per_group"`
	PromptLogLimit int    `mapstructure:"prompt_log_limit" json:"prompt_log_limit"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Layout analysis service (optional; the built-in HTML analyzer is used when unset)
	LayoutEndpoint string `mapstructure:"layout_endpoint" json:"layout_endpoint"`
	LayoutKey      string `mapstructure:"layout_key" json:"layout_key"` // SENSITIVE: masked in MarshalJSON

	// Translation service (optional)
	TranslatorEndpoint string `mapstructure:"translator_endpoint" json:"translator_endpoint"`
	TranslatorKey      string `mapstructure:"translator_key" json:"translator_key"` // SENSITIVE: masked in MarshalJSON
	TranslatorRegion   string `mapstructure:"translator_region" json:"translator_region"`

	// HTTP server configuration (serve mode)
	ServerAddr string `mapstructure:"server_addr" json:"server_addr"`

	// Observability configuration
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"` // empty disables trace export

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".docsage")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model_name", "gpt-4o-mini")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 1000)

	// Ollama defaults
	v.SetDefault("ollama_host", "http://localhost:11434")

	// Embedding defaults
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("dimensions", DefaultDimensions)

	// Retrieval defaults
	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("pages_per_group", DefaultPagesPerGroup)
	v.SetDefault("prompt_log_limit", DefaultPromptLogLimit)

	// PostgreSQL defaults (matching docker-compose.yml)
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "docsage")
	v.SetDefault("postgres_password", "docsage_dev_password")
	v.SetDefault("postgres_db_name", "docsage")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Server defaults
	v.SetDefault("server_addr", "127.0.0.1:3400")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
// Secrets come only through the environment, never through config.yaml
// checked into a repo.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "DOCSAGE_PROVIDER")
	mustBind("model_name", "DOCSAGE_MODEL_NAME")
	mustBind("ollama_host", "DOCSAGE_OLLAMA_HOST")
	mustBind("embedder_model", "DOCSAGE_EMBEDDER_MODEL")
	mustBind("server_addr", "DOCSAGE_SERVER_ADDR")
	mustBind("otlp_endpoint", "DOCSAGE_OTLP_ENDPOINT")

	mustBind("layout_endpoint", "DOCSAGE_LAYOUT_ENDPOINT")
	mustBind("layout_key", "DOCSAGE_LAYOUT_KEY")
	mustBind("translator_endpoint", "DOCSAGE_TRANSLATOR_ENDPOINT")
	mustBind("translator_key", "DOCSAGE_TRANSLATOR_KEY")
	mustBind("translator_region", "DOCSAGE_TRANSLATOR_REGION")

	// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin, not
	// via Viper. Validation checks its presence when provider is "openai".
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Short secrets are fully masked; longer ones keep the first and last two
// characters for debug utility. This defends against accidental logging of
// real secrets, not against compromised logs.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - LayoutKey
//   - TranslatorKey
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.LayoutKey = maskSecret(a.LayoutKey)
	a.TranslatorKey = maskSecret(a.TranslatorKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "openai/gpt-4o-mini", "ollama/llama3.3".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return c.Provider + "/" + c.ModelName
}

// FullEmbedderName returns the provider-qualified embedder name for Genkit.
func (c *Config) FullEmbedderName() string {
	if strings.Contains(c.EmbedderModel, "/") {
		return c.EmbedderModel
	}
	return c.Provider + "/" + c.EmbedderModel
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
