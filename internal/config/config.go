package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Vector backends.
const (
	VectorBackendPgVector = "pgvector"
	VectorBackendQdrant   = "qdrant"
	VectorBackendSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	OpenAIAPIKey  string
	OpenAIBaseURL string

	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingTimeout    time.Duration
	EmbeddingRateLimit  float64
	EmbeddingRateBurst  int

	LLMModel           string
	LLMTimeout         time.Duration
	LLMMaxTokens       int
	LLMDetailMaxTokens int

	DBDriver    string
	DatabaseURL string
	DBPath      string

	VectorBackend    string
	QdrantURL        string
	QdrantCollection string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ShareTTL      time.Duration
	PublicBaseURL string

	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	StoreBatchSize int

	RetrievalLimit       int
	DetailRetrievalLimit int
	MaxContextChars      int

	BatchFailurePolicy      string
	ContinueOnDocumentError bool

	MaxUploadBytes int64
	PDFToTextPath  string
	PromptsFile    string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or up to five parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4-turbo"),
		DBDriver:           strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBPath:             getEnv("DB_PATH", "./data/gilda.db"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", "")),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "gilda_chunks"),
		RedisAddr:          getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		BatchFailurePolicy: strings.ToLower(getEnv("BATCH_FAILURE_POLICY", "abort")),
		PDFToTextPath:      getEnv("PDFTOTEXT_PATH", "pdftotext"),
		PromptsFile:        getEnv("PROMPTS_FILE", ""),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}

	ints := []struct {
		key string
		def int
		dst *int
		min int
	}{
		{"EMBEDDING_DIMENSIONS", 1536, &cfg.EmbeddingDimensions, 1},
		{"EMBEDDING_RATE_BURST", 10, &cfg.EmbeddingRateBurst, 1},
		{"LLM_MAX_TOKENS", 1000, &cfg.LLMMaxTokens, 1},
		{"LLM_DETAIL_MAX_TOKENS", 1000, &cfg.LLMDetailMaxTokens, 1},
		{"REDIS_DB", 0, &cfg.RedisDB, 0},
		{"CHUNK_SIZE", 2000, &cfg.ChunkSize, 1},
		{"CHUNK_OVERLAP", 500, &cfg.ChunkOverlap, 0},
		{"EMBED_BATCH_SIZE", 50, &cfg.EmbedBatchSize, 1},
		{"STORE_BATCH_SIZE", 25, &cfg.StoreBatchSize, 1},
		{"RETRIEVAL_LIMIT", 15, &cfg.RetrievalLimit, 1},
		{"DETAIL_RETRIEVAL_LIMIT", 10, &cfg.DetailRetrievalLimit, 1},
		{"MAX_CONTEXT_CHARS", 300000, &cfg.MaxContextChars, 1},
	}
	for _, v := range ints {
		n, err := getEnvInt(v.key, v.def)
		if err != nil {
			return nil, err
		}
		if n < v.min {
			return nil, fmt.Errorf("%s must be at least %d", v.key, v.min)
		}
		*v.dst = n
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"EMBEDDING_TIMEOUT", 30 * time.Second, &cfg.EmbeddingTimeout},
		{"LLM_TIMEOUT", 60 * time.Second, &cfg.LLMTimeout},
		{"SHARE_TTL", 720 * time.Hour, &cfg.ShareTTL},
	}
	for _, v := range durations {
		d, err := getEnvDuration(v.key, v.def)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, fmt.Errorf("%s must be greater than 0", v.key)
		}
		*v.dst = d
	}

	rateStr := getEnv("EMBEDDING_RATE_LIMIT", "5")
	cfg.EmbeddingRateLimit, err = strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_RATE_LIMIT must be a number: %w", err)
	}
	if cfg.EmbeddingRateLimit <= 0 {
		return nil, fmt.Errorf("EMBEDDING_RATE_LIMIT must be greater than 0")
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 50<<20)
	if err != nil {
		return nil, err
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be greater than 0")
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	cfg.ContinueOnDocumentError, err = strconv.ParseBool(getEnv("CONTINUE_ON_DOCUMENT_ERROR", "false"))
	if err != nil {
		return nil, fmt.Errorf("CONTINUE_ON_DOCUMENT_ERROR must be a boolean: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.DBDriver == DriverSQLite {
		// Create ./data directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER is %s", DriverPostgres)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %s or %s, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}

	if c.VectorBackend == "" {
		if c.DBDriver == DriverPostgres {
			c.VectorBackend = VectorBackendPgVector
		} else {
			c.VectorBackend = VectorBackendSQLite
		}
	}
	switch c.VectorBackend {
	case VectorBackendPgVector:
		if c.DBDriver != DriverPostgres {
			return fmt.Errorf("VECTOR_BACKEND %s requires DB_DRIVER %s", VectorBackendPgVector, DriverPostgres)
		}
	case VectorBackendSQLite:
		if c.DBDriver != DriverSQLite {
			return fmt.Errorf("VECTOR_BACKEND %s requires DB_DRIVER %s", VectorBackendSQLite, DriverSQLite)
		}
	case VectorBackendQdrant:
	default:
		return fmt.Errorf("VECTOR_BACKEND must be one of pgvector, qdrant, sqlite, got %q", c.VectorBackend)
	}

	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	if c.BatchFailurePolicy != "abort" && c.BatchFailurePolicy != "continue" {
		return fmt.Errorf("BATCH_FAILURE_POLICY must be abort or continue, got %q", c.BatchFailurePolicy)
	}
	return nil
}

// loadDotEnv loads the first .env found in the working directory or its parents.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}
