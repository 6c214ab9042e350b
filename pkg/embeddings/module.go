package embeddings

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/corpora-dev/corpora/internal/config"
)

// NewNoopService creates a service with a noop client (for testing)
func NewNoopService(log *slog.Logger) *Service {
	return &Service{
		client:  NewNoopClient(),
		log:     log,
		enabled: false,
	}
}

// Module provides the embeddings fx.Module
var Module = fx.Module("embeddings",
	fx.Provide(NewService),
)

// Service provides embedding generation with automatic client selection
type Service struct {
	client  Client
	log     *slog.Logger
	enabled bool
}

// NewService creates a new embeddings service
func NewService(cfg *config.Config, log *slog.Logger) *Service {
	embCfg := cfg.Embedding

	if !embCfg.IsEnabled() {
		log.Info("embeddings service disabled - no configuration provided")
		return &Service{
			client:  NewNoopClient(),
			log:     log,
			enabled: false,
		}
	}

	client, err := NewOllamaClient(OllamaConfig{
		BaseURL:   embCfg.BaseURL,
		Model:     embCfg.Model,
		Dimension: embCfg.Dimension,
		Timeout:   embCfg.Timeout,
	}, WithLogger(log), WithRateLimit(embCfg.MaxRequestsPerSecond))
	if err != nil {
		log.Error("failed to initialize embeddings client", slog.String("error", err.Error()))
		return &Service{
			client:  NewNoopClient(),
			log:     log,
			enabled: false,
		}
	}

	log.Info("embeddings client initialized",
		slog.String("base_url", embCfg.BaseURL),
		slog.String("model", embCfg.Model),
		slog.Int("dimension", embCfg.Dimension),
	)

	return &Service{
		client:  client,
		log:     log,
		enabled: true,
	}
}

// IsEnabled returns true if embeddings are available
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// Embed generates an embedding for a single text
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.client.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.client.EmbedBatch(ctx, texts)
}

// Dimensions returns the vector dimension of the active model
func (s *Service) Dimensions() int {
	return s.client.Dimensions()
}

// ModelID returns the identifier of the active model
func (s *Service) ModelID() string {
	return s.client.ModelID()
}
