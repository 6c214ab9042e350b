package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/corpora-dev/corpora/internal/config"
	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/chunker"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Service publishes a live-mutable settings snapshot. Readers call
// Snapshot() once at operation entry and work from that copy; writers go
// through Update, which persists the change and swaps in a new snapshot.
type Service struct {
	repo *Repository
	log  *slog.Logger

	snapshot atomic.Pointer[Snapshot]

	mu       sync.Mutex
	watchers []chan struct{}
}

// NewService creates the settings service seeded from static configuration
func NewService(repo *Repository, cfg *config.Config, log *slog.Logger) *Service {
	s := &Service{
		repo: repo,
		log:  log.With(logger.Scope("settings.svc")),
	}
	defaults := defaultSnapshot(cfg)
	s.snapshot.Store(&defaults)
	return s
}

// defaultSnapshot derives the initial settings from environment config
func defaultSnapshot(cfg *config.Config) Snapshot {
	return Snapshot{
		Embedding: EmbeddingSettings{
			Provider:       "ollama",
			Model:          cfg.Embedding.Model,
			Dimensions:     cfg.Embedding.Dimension,
			BaseURL:        cfg.Embedding.BaseURL,
			BatchSize:      cfg.Embedding.BatchSize,
			TimeoutSeconds: int(cfg.Embedding.Timeout.Seconds()),
		},
		Chunking: ChunkingSettings{
			Strategy:                 cfg.Chunking.Strategy,
			MaxChunkSize:             cfg.Chunking.ChunkSize,
			Overlap:                  cfg.Chunking.ChunkOverlap,
			MinChunkSize:             cfg.Chunking.MinChunkSize,
			SemanticThreshold:        0.75,
			RecursiveSeparators:      chunker.DefaultSeparators,
			RespectDocumentStructure: true,
		},
		Search: SearchSettings{
			Mode:         "Hybrid",
			TopK:         cfg.Search.TopK,
			Reranker:     cfg.Reranker.Type,
			RRFK:         cfg.Search.RRFK,
			VectorWeight: 0.5,
			MinimumScore: cfg.Search.MinScore,
		},
		Upload: UploadSettings{
			MaxFileSizeMB:      cfg.Upload.MaxFileSizeMB,
			AllowedExtensions:  cfg.Upload.AllowedExtensionList(),
			DefaultPath:        "/",
			ParallelWorkers:    cfg.Ingest.Workers,
			AutoStartIngestion: true,
			BatchSize:          cfg.Embedding.BatchSize,
		},
		Storage: StorageSettings{
			VectorStoreProvider:   "postgres",
			DocumentStoreProvider: "postgres",
			FileStorageProvider:   cfg.Storage.Backend,
			LocalStorageRootPath:  cfg.Storage.RootDir,
			Minio: MinioSettings{
				Endpoint:   cfg.Storage.Endpoint,
				BucketName: cfg.Storage.Bucket,
			},
		},
	}
}

// Load overlays stored settings rows onto the seeded defaults. Called once
// at startup.
func (s *Service) Load(ctx context.Context) error {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	next := *s.snapshot.Load()
	for _, row := range rows {
		if err := applyCategory(&next, row.Category, row.Value); err != nil {
			s.log.Warn("ignoring malformed settings row",
				slog.String("category", row.Category),
				logger.Error(err))
		}
	}
	s.snapshot.Store(&next)

	s.log.Info("settings loaded", slog.Int("stored_categories", len(rows)))
	return nil
}

// Snapshot returns the current immutable settings view
func (s *Service) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Watch returns a channel that receives a signal after every settings
// change, and a function to end the watch.
func (s *Service) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Update validates, persists and publishes one category's new value
func (s *Service) Update(ctx context.Context, category string, value json.RawMessage) (*Snapshot, error) {
	next := *s.snapshot.Load()
	if err := applyCategory(&next, category, value); err != nil {
		return nil, apperror.ErrValidation.WithMessage("invalid settings payload").WithInternal(err)
	}

	canonical, err := marshalCategory(&next, category)
	if err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}

	if err := s.repo.Upsert(ctx, category, canonical); err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	s.snapshot.Store(&next)
	s.notify()

	s.log.Info("settings updated", slog.String("category", category))
	return &next, nil
}

func (s *Service) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// applyCategory unmarshals a value into the right snapshot field
func applyCategory(snap *Snapshot, category string, value json.RawMessage) error {
	switch category {
	case CategoryEmbedding:
		return json.Unmarshal(value, &snap.Embedding)
	case CategoryChunking:
		return json.Unmarshal(value, &snap.Chunking)
	case CategorySearch:
		return json.Unmarshal(value, &snap.Search)
	case CategoryUpload:
		return json.Unmarshal(value, &snap.Upload)
	case CategoryStorage:
		return json.Unmarshal(value, &snap.Storage)
	default:
		return apperror.ErrBadRequest.WithMessage("unknown settings category: " + category)
	}
}

// marshalCategory serializes the canonical form of one category
func marshalCategory(snap *Snapshot, category string) (json.RawMessage, error) {
	switch category {
	case CategoryEmbedding:
		return json.Marshal(snap.Embedding)
	case CategoryChunking:
		return json.Marshal(snap.Chunking)
	case CategorySearch:
		return json.Marshal(snap.Search)
	case CategoryUpload:
		return json.Marshal(snap.Upload)
	case CategoryStorage:
		return json.Marshal(snap.Storage)
	default:
		return nil, apperror.ErrBadRequest.WithMessage("unknown settings category: " + category)
	}
}

// Category returns one category's current value from the snapshot
func (s *Service) Category(category string) (json.RawMessage, error) {
	snap := s.Snapshot()
	return marshalCategory(&snap, category)
}
