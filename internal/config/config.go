package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	pkgRetry "github.com/futig/news-rag/internal/pkg/retry"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendQdrant   = "qdrant"

	ProviderMock   = "mock"
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds the application configuration
type Config struct {
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	IndexCfg     IndexConfig     `envPrefix:"INDEX_"`
	DatabaseCfg  DatabaseConfig  `envPrefix:"DB_"`
	QdrantCfg    QdrantConfig    `envPrefix:"QDRANT_"`
	IngestCfg    IngestConfig    `envPrefix:"INGEST_"`
	RetrievalCfg RetrievalConfig `envPrefix:"RETRIEVAL_"`

	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`

	SourceCfg   SourceConfig   `envPrefix:"SOURCE_"`
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`
	MCPCfg      MCPConfig      `envPrefix:"MCP_"`
	WebhookCfg  WebhookConfig  `envPrefix:"WEBHOOK_"`
	TracingCfg  TracingConfig

	ChunkSize int `env:"CHUNK_SIZE" envDefault:"200"`

	// Replaces both model providers with deterministic local fakes.
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

type IndexConfig struct {
	Backend    string `env:"BACKEND" envDefault:"memory"`
	Collection string `env:"COLLECTION" envDefault:"news"`
	SQLiteDir  string `env:"SQLITE_DIR" envDefault:"./data/index"`
}

type DatabaseConfig struct {
	URL               string        `env:"URL,expand" envDefault:"${DATABASE_URL}"`
	MaxConns          int           `env:"MAX_CONNS" envDefault:"25"`
	MinConns          int           `env:"MIN_CONNS" envDefault:"2"`
	MaxConnLifetime   time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime   time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
	HealthCheckPeriod time.Duration `env:"HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

type QdrantConfig struct {
	Host   string `env:"HOST" envDefault:"localhost"`
	Port   int    `env:"PORT" envDefault:"6334"`
	APIKey string `env:"API_KEY"`
	UseTLS bool   `env:"USE_TLS" envDefault:"false"`
}

type IngestConfig struct {
	BatchSize   int `env:"BATCH_SIZE" envDefault:"32"`
	Concurrency int `env:"CONCURRENCY" envDefault:"4"`
}

type RetrievalConfig struct {
	TopK     int           `env:"TOP_K" envDefault:"10"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"10m"`
}

type EmbeddingConfig struct {
	HTTPClientConfig
	Provider  string               `env:"PROVIDER" envDefault:"jina"`
	Model     string               `env:"MODEL" envDefault:"jina-embeddings-v2-base-en"`
	Dimension int                  `env:"DIMENSION" envDefault:"0"`
	RateRPS   float64              `env:"RATE_LIMIT_RPS" envDefault:"0"`
	RateBurst int                  `env:"RATE_LIMIT_BURST" envDefault:"1"`
	Retry     pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type LLMConfig struct {
	HTTPClientConfig
	Provider string               `env:"PROVIDER" envDefault:"gemini"`
	Model    string               `env:"MODEL" envDefault:"gemini-2.0-flash"`
	Retry    pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

type SourceConfig struct {
	CorpusPath    string        `env:"CORPUS_PATH" envDefault:"./data/news.json"`
	FeedURLs      []string      `env:"FEED_URLS" envSeparator:","`
	MaxArticles   int           `env:"MAX_ARTICLES" envDefault:"50"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT" envDefault:"20s"`
	WatchDebounce time.Duration `env:"WATCH_DEBOUNCE" envDefault:"2s"`
}

type TelegramConfig struct {
	BotToken           string `env:"BOT_TOKEN"`
	UpdateTimeout      int    `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitBurst     int    `env:"RATE_LIMIT_BURST" envDefault:"3"`
	ShutdownTimeout    int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"` // seconds

	AnswerTimeout time.Duration `env:"ANSWER_TIMEOUT" envDefault:"2m"`

	// HistorySize 0 disables /history.
	HistorySize int           `env:"HISTORY_SIZE" envDefault:"10"`
	HistoryTTL  time.Duration `env:"HISTORY_TTL" envDefault:"24h"`
}

type MCPConfig struct {
	Transport string `env:"TRANSPORT" envDefault:"stdio"`
	Addr      string `env:"ADDR" envDefault:":8090"`
}

// WebhookConfig points at an endpoint notified after every ingestion run.
// An empty SERVICE_URL disables notifications.
type WebhookConfig struct {
	HTTPClientConfig
}

type TracingConfig struct {
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"news-rag"`
}

// LoadConfig reads the -env flag and loads the matching configuration.
func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load loads .env.<environment> (if present) and parses the process
// environment on top of it.
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Missing env files are fine: in containers variables are set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var problems []string

	switch cfg.IndexCfg.Backend {
	case BackendMemory, BackendSQLite, BackendQdrant:
	case BackendPostgres:
		if cfg.DatabaseCfg.URL == "" {
			problems = append(problems, "DB_URL (or DATABASE_URL) is required for the postgres index backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("INDEX_BACKEND must be one of memory, sqlite, postgres, qdrant, got %q", cfg.IndexCfg.Backend))
	}

	if cfg.IndexCfg.Collection == "" {
		problems = append(problems, "INDEX_COLLECTION must not be empty")
	}

	if cfg.ChunkSize < 1 {
		problems = append(problems, fmt.Sprintf("CHUNK_SIZE must be positive, got %d", cfg.ChunkSize))
	}

	if cfg.IngestCfg.BatchSize < 1 || cfg.IngestCfg.BatchSize > 2048 {
		problems = append(problems, fmt.Sprintf("INGEST_BATCH_SIZE must be between 1 and 2048, got %d", cfg.IngestCfg.BatchSize))
	}

	if cfg.IngestCfg.Concurrency < 1 || cfg.IngestCfg.Concurrency > 64 {
		problems = append(problems, fmt.Sprintf("INGEST_CONCURRENCY must be between 1 and 64, got %d", cfg.IngestCfg.Concurrency))
	}

	if cfg.RetrievalCfg.TopK < 1 {
		problems = append(problems, fmt.Sprintf("RETRIEVAL_TOP_K must be positive, got %d", cfg.RetrievalCfg.TopK))
	}

	if cfg.EmbeddingCfg.Dimension < 0 {
		problems = append(problems, fmt.Sprintf("EMBEDDING_DIMENSION must not be negative, got %d", cfg.EmbeddingCfg.Dimension))
	}

	if !cfg.EnableMocks {
		switch cfg.EmbeddingCfg.Provider {
		case ProviderMock, ProviderJina, ProviderOpenAI:
		default:
			problems = append(problems, fmt.Sprintf("EMBEDDING_PROVIDER must be one of mock, jina, openai, got %q", cfg.EmbeddingCfg.Provider))
		}
		switch cfg.LLMCfg.Provider {
		case ProviderMock, ProviderGemini, ProviderOpenAI:
		default:
			problems = append(problems, fmt.Sprintf("LLM_PROVIDER must be one of mock, gemini, openai, got %q", cfg.LLMCfg.Provider))
		}
	}

	if cfg.EmbeddingCfg.Retry.Attempts < 1 {
		problems = append(problems, "EMBEDDING_RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.LLMCfg.Retry.Attempts < 1 {
		problems = append(problems, "LLM_RETRY_ATTEMPTS must be at least 1")
	}

	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		problems = append(problems, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		problems = append(problems, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}

	if cfg.TelegramCfg.HistorySize < 0 || cfg.TelegramCfg.HistorySize > 100 {
		problems = append(problems, fmt.Sprintf("TELEGRAM_HISTORY_SIZE must be between 0 and 100, got %d", cfg.TelegramCfg.HistorySize))
	}

	if cfg.MCPCfg.Transport != "stdio" && cfg.MCPCfg.Transport != "http" {
		problems = append(problems, fmt.Sprintf("MCP_TRANSPORT must be stdio or http, got %q", cfg.MCPCfg.Transport))
	}

	if cfg.DatabaseCfg.MaxConns < 1 || cfg.DatabaseCfg.MaxConns > 200 {
		problems = append(problems, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DatabaseCfg.MaxConns))
	}

	if cfg.DatabaseCfg.MinConns < 0 || cfg.DatabaseCfg.MinConns > cfg.DatabaseCfg.MaxConns {
		problems = append(problems, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DatabaseCfg.MaxConns, cfg.DatabaseCfg.MinConns))
	}

	if len(problems) > 0 {
		return errors.New("configuration validation errors:\n  - " + strings.Join(problems, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
