package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Database settings
	Database DatabaseConfig

	// Embedding provider configuration
	Embedding EmbeddingConfig

	// Chunking defaults (seed values for the live settings store)
	Chunking ChunkingConfig

	// Search defaults
	Search SearchConfig

	// Reranker / cross-encoder configuration
	Reranker RerankerConfig

	// Upload limits
	Upload UploadConfig

	// Extraction service for binary document formats
	Extraction ExtractionConfig

	// Storage configuration
	Storage StorageConfig

	// Ingestion queue and worker pool configuration
	Ingest IngestConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"3600s"` // long for SSE streams
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"3600s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"corpora"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"corpora"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// EmbeddingConfig holds embedding provider settings
type EmbeddingConfig struct {
	// BaseURL of the embedding provider (Ollama-compatible API)
	BaseURL string `env:"EMBEDDING_BASE_URL" envDefault:"http://localhost:11434"`

	// Model name used for embedding requests
	Model string `env:"EMBEDDING_MODEL" envDefault:"nomic-embed-text"`

	// Dimension of the produced vectors
	Dimension int `env:"EMBEDDING_DIMENSION" envDefault:"768"`

	// BatchSize is the number of texts embedded per provider round-trip
	BatchSize int `env:"EMBEDDING_BATCH_SIZE" envDefault:"16"`

	// Timeout per embedding request
	Timeout time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"60s"`

	// MaxRequestsPerSecond throttles calls to the provider; 0 means unlimited
	MaxRequestsPerSecond float64 `env:"EMBEDDING_MAX_RPS" envDefault:"0"`

	// Disable embedding network calls (for testing; a no-op client is used)
	NetworkDisabled bool `env:"EMBEDDING_NETWORK_DISABLED" envDefault:"false"`
}

// IsEnabled returns true if the embedding provider is configured
func (e *EmbeddingConfig) IsEnabled() bool {
	if e.NetworkDisabled {
		return false
	}
	return e.BaseURL != "" && e.Model != ""
}

// ChunkingConfig holds default chunking settings. These seed the live
// settings store on first boot; runtime changes go through the settings API.
type ChunkingConfig struct {
	// Strategy: "fixed", "recursive" or "semantic"
	Strategy string `env:"CHUNKING_STRATEGY" envDefault:"recursive"`

	// ChunkSize is the target chunk size in estimated tokens
	ChunkSize int `env:"CHUNKING_CHUNK_SIZE" envDefault:"1000"`

	// ChunkOverlap is the number of estimated tokens shared between
	// adjacent chunks
	ChunkOverlap int `env:"CHUNKING_CHUNK_OVERLAP" envDefault:"200"`

	// MinChunkSize drops trailing fragments smaller than this, in
	// estimated tokens
	MinChunkSize int `env:"CHUNKING_MIN_CHUNK_SIZE" envDefault:"50"`
}

// SearchConfig holds default retrieval settings
type SearchConfig struct {
	// TopK is the default number of results returned
	TopK int `env:"SEARCH_TOP_K" envDefault:"10"`

	// MaxTopK caps the requested result count
	MaxTopK int `env:"SEARCH_MAX_TOP_K" envDefault:"100"`

	// CandidateMultiplier widens per-leg retrieval before fusion
	CandidateMultiplier int `env:"SEARCH_CANDIDATE_MULTIPLIER" envDefault:"4"`

	// MinScore filters results below this score after reranking (0 disables)
	MinScore float64 `env:"SEARCH_MIN_SCORE" envDefault:"0"`

	// RRFK is the rank-fusion constant
	RRFK int `env:"SEARCH_RRF_K" envDefault:"60"`
}

// RerankerConfig holds reranker settings
type RerankerConfig struct {
	// Type: "none", "rrf" or "cross_encoder"
	Type string `env:"RERANKER_TYPE" envDefault:"rrf"`

	// BaseURL of the scoring LLM (Ollama-compatible API)
	BaseURL string `env:"RERANKER_BASE_URL" envDefault:"http://localhost:11434"`

	// Model name for cross-encoder relevance scoring
	Model string `env:"RERANKER_MODEL" envDefault:"qwen2.5:3b"`

	// Timeout per scoring request
	Timeout time.Duration `env:"RERANKER_TIMEOUT" envDefault:"30s"`
}

// UploadConfig holds upload validation settings
type UploadConfig struct {
	// MaxFileSizeMB is the maximum accepted upload size
	MaxFileSizeMB int `env:"UPLOAD_MAX_FILE_SIZE_MB" envDefault:"100"`

	// AllowedExtensions is the comma-separated allowlist (empty allows all
	// extensions the parser registry supports)
	AllowedExtensions string `env:"UPLOAD_ALLOWED_EXTENSIONS" envDefault:""`
}

// MaxFileSizeBytes returns the maximum upload size in bytes
func (u *UploadConfig) MaxFileSizeBytes() int64 {
	return int64(u.MaxFileSizeMB) * 1024 * 1024
}

// AllowedExtensionList returns the parsed extension allowlist
func (u *UploadConfig) AllowedExtensionList() []string {
	if u.AllowedExtensions == "" {
		return nil
	}
	parts := strings.Split(u.AllowedExtensions, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, ".") {
			p = "." + p
		}
		out = append(out, p)
	}
	return out
}

// ExtractionConfig holds the extraction service configuration used for
// binary document formats (PDF, DOCX, ...)
type ExtractionConfig struct {
	// Enabled determines if the extraction service parser is registered
	Enabled bool `env:"EXTRACTION_ENABLED" envDefault:"false"`

	// ServiceURL is the extraction service URL
	ServiceURL string `env:"EXTRACTION_SERVICE_URL" envDefault:"http://localhost:8000"`

	// Timeout per extraction request
	Timeout time.Duration `env:"EXTRACTION_TIMEOUT" envDefault:"300s"`
}

// StorageConfig holds content store configuration
type StorageConfig struct {
	// Backend: "s3" or "fs"
	Backend string `env:"STORAGE_BACKEND" envDefault:"fs"`

	// RootDir is the base directory for the filesystem backend
	RootDir string `env:"STORAGE_ROOT_DIR" envDefault:"./data/blobs"`

	// Endpoint is the MinIO/S3 endpoint URL
	Endpoint string `env:"S3_ENDPOINT" envDefault:"localhost:9000"`
	// AccessKeyID is the access key ID
	AccessKeyID string `env:"S3_ACCESS_KEY" envDefault:""`
	// SecretAccessKey is the secret access key
	SecretAccessKey string `env:"S3_SECRET_KEY" envDefault:""`
	// Bucket is the bucket name
	Bucket string `env:"S3_BUCKET" envDefault:"corpora"`
	// UseSSL determines if SSL should be used
	UseSSL bool `env:"S3_USE_SSL" envDefault:"false"`
	// Region is the bucket region (for S3 compatibility)
	Region string `env:"S3_REGION" envDefault:"us-east-1"`
}

// UseS3 returns true if the S3 backend is selected and configured
func (s *StorageConfig) UseS3() bool {
	return s.Backend == "s3" && s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// IngestConfig holds queue and worker pool configuration
type IngestConfig struct {
	// QueueCapacity bounds the in-memory job queue
	QueueCapacity int `env:"INGEST_QUEUE_CAPACITY" envDefault:"1000"`

	// Workers is the worker pool size
	Workers int `env:"INGEST_WORKERS" envDefault:"4"`

	// ProgressInterval throttles progress broadcasts per job
	ProgressInterval time.Duration `env:"INGEST_PROGRESS_INTERVAL" envDefault:"250ms"`

	// JobRetention is how long finished job statuses are kept in memory
	JobRetention time.Duration `env:"INGEST_JOB_RETENTION" envDefault:"1h"`

	// CleanupSchedule is the cron expression for the job-status sweeper
	CleanupSchedule string `env:"INGEST_CLEANUP_SCHEDULE" envDefault:"*/10 * * * *"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("embedding_model", cfg.Embedding.Model),
	)

	return cfg, nil
}
