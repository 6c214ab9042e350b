package folders

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/corpora-dev/corpora/internal/jobs"
	"github.com/corpora-dev/corpora/internal/storage"
	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Service handles folder business logic
type Service struct {
	repo  *Repository
	queue *jobs.Queue
	store storage.Store
	log   *slog.Logger
}

// NewService creates a new folders service
func NewService(repo *Repository, queue *jobs.Queue, store storage.Store, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		queue: queue,
		store: store,
		log:   log.With(logger.Scope("folders.svc")),
	}
}

// List returns all folders in a container
func (s *Service) List(ctx context.Context, containerID string) (*ListResult, error) {
	result, err := s.repo.List(ctx, containerID)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return result, nil
}

// Create registers a folder path in a container
func (s *Service) Create(ctx context.Context, containerID string, req CreateFolderRequest) (*Folder, error) {
	path := NormalizePath(req.Path)
	if path == "/" {
		return nil, apperror.ErrValidation.WithMessage("folder path must not be empty")
	}

	folder := &Folder{
		ID:          uuid.NewString(),
		ContainerID: containerID,
		Path:        path,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, folder); err != nil {
		return nil, err
	}

	s.log.Info("folder created",
		slog.String("container_id", containerID),
		slog.String("path", path))
	return folder, nil
}

// Delete removes a folder and everything under it: in-flight ingestion
// jobs are cancelled, document rows cascade away, and blobs are removed
// best-effort afterwards.
func (s *Service) Delete(ctx context.Context, containerID, path string) (*DeleteResponse, error) {
	path = NormalizePath(path)
	if path == "/" {
		return nil, apperror.ErrValidation.WithMessage("cannot delete the root folder")
	}

	folder, err := s.repo.GetByPath(ctx, containerID, path)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	if folder == nil {
		return nil, apperror.ErrNotFound.WithMessage("Folder not found")
	}

	documentIDs, err := s.repo.ListDocumentIDsUnder(ctx, containerID, path)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	for _, documentID := range documentIDs {
		s.queue.CancelByDocumentID(documentID)
	}

	storageKeys, err := s.repo.ListStorageKeysUnder(ctx, containerID, path)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	foldersDeleted, documentsDeleted, err := s.repo.DeleteCascade(ctx, containerID, path)
	if err != nil {
		return nil, err
	}

	// Blob cleanup after the rows are gone; a leftover blob is harmless
	for _, key := range storageKeys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Warn("failed to delete blob for removed document",
				slog.String("key", key),
				logger.Error(err))
		}
	}

	s.log.Info("folder deleted",
		slog.String("container_id", containerID),
		slog.String("path", path),
		slog.Int("folders", foldersDeleted),
		slog.Int("documents", documentsDeleted))

	return &DeleteResponse{
		Status:           "deleted",
		FoldersDeleted:   foldersDeleted,
		DocumentsDeleted: documentsDeleted,
	}, nil
}
