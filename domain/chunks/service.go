package chunks

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corpora-dev/corpora/pkg/chunker"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Service handles business logic for chunks
type Service struct {
	repo *Repository
	log  *slog.Logger
}

// NewService creates a new chunks service
func NewService(repo *Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(logger.Scope("chunks.svc")),
	}
}

// ListByDocument returns a document's chunks in index order
func (s *Service) ListByDocument(ctx context.Context, documentID string) (*ListChunksResponse, error) {
	dtos, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return &ListChunksResponse{
		Data:       dtos,
		TotalCount: len(dtos),
	}, nil
}

// StoreChunks persists the output of a chunking run together with the
// embeddings produced for it. Rows and vectors are written in one
// transaction so a crashed run leaves nothing half-indexed.
func (s *Service) StoreChunks(ctx context.Context, documentID string, parts []chunker.Chunk, vectors [][]float32, vectorMeta map[string]string) error {
	if len(parts) == 0 {
		return nil
	}

	entities := make([]*Chunk, len(parts))
	for i, p := range parts {
		metadata := make(map[string]string, len(p.Metadata)+len(vectorMeta))
		for k, v := range p.Metadata {
			metadata[k] = v
		}
		for k, v := range vectorMeta {
			metadata[k] = v
		}

		entities[i] = &Chunk{
			ID:          uuid.NewString(),
			DocumentID:  documentID,
			ChunkIndex:  p.Index,
			Content:     p.Content,
			TokenCount:  p.TokenCount,
			StartOffset: p.StartOffset,
			EndOffset:   p.EndOffset,
			Metadata:    metadata,
		}
	}

	return s.repo.InsertBatch(ctx, entities, vectors)
}

// DeleteByDocument removes every chunk of a document
func (s *Service) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	return s.repo.DeleteByDocument(ctx, documentID)
}

// CountByDocument returns the number of chunks for a document
func (s *Service) CountByDocument(ctx context.Context, documentID string) (int, error) {
	return s.repo.CountByDocument(ctx, documentID)
}
