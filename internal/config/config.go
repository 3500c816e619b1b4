package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	RedisURL     string        `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	StoreBackend string        `env:"STORE_BACKEND" envDefault:"redis"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"./chronicle.db"`
	DataDir      string        `env:"DATA_DIR" envDefault:"./data"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	LLMProvider      string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	ModelName        string        `env:"MODEL_NAME" envDefault:"claude-sonnet-4-5"`
	SummaryModelName string        `env:"SUMMARY_MODEL_NAME"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	VeniceAPIKey     string        `env:"VENICE_API_KEY"`
	OracleTimeout    time.Duration `env:"ORACLE_TIMEOUT" envDefault:"90s"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	WorkerID     string `env:"WORKER_ID"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.SummaryModelName == "" {
		cfg.SummaryModelName = cfg.ModelName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks combinations env tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "venice":
		if c.VeniceAPIKey == "" {
			return fmt.Errorf("VENICE_API_KEY is required for the venice provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
