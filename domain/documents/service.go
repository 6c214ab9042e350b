package documents

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

// Service handles document business logic
type Service struct {
	repo  *Repository
	queue *jobs.Queue
	store storage.Store
	log   *slog.Logger
}

// NewService creates a new documents service
func NewService(repo *Repository, queue *jobs.Queue, store storage.Store, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		queue: queue,
		store: store,
		log:   log.With(logger.Scope("documents.svc")),
	}
}

// List retrieves documents with pagination and filtering
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	return result, nil
}

// GetByID retrieves a single document scoped to a container
func (s *Service) GetByID(ctx context.Context, containerID, documentID string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}
	if doc == nil || doc.ContainerID != containerID {
		return nil, apperror.ErrDocumentNotFound
	}
	return doc, nil
}

// UploadParams carries everything the handler extracted from a multipart
// upload after the bytes have been persisted to the content store.
type UploadParams struct {
	ContainerID string
	FileName    string
	ContentType string
	Path        string
	ContentHash string
	SizeBytes   int64
	StorageKey  string
	Strategy    string
	AutoStart   bool
}

// CreateFromUpload records the document row and, when auto-start is on,
// enqueues an ingestion job. Re-uploading to an existing path reuses the
// row: the previous job is cancelled and the old blob removed.
func (s *Service) CreateFromUpload(ctx context.Context, p UploadParams) (*UploadResponse, error) {
	existing, err := s.repo.GetByPath(ctx, p.ContainerID, p.Path)
	if err != nil {
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	doc := &Document{
		ID:          uuid.NewString(),
		ContainerID: p.ContainerID,
		FileName:    p.FileName,
		ContentType: p.ContentType,
		Path:        p.Path,
		StorageKey:  p.StorageKey,
		ContentHash: p.ContentHash,
		SizeBytes:   p.SizeBytes,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	var staleKey string
	if existing != nil {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
		s.queue.CancelByDocumentID(existing.ID)
		if existing.StorageKey != "" && existing.StorageKey != p.StorageKey {
			staleKey = existing.StorageKey
		}
	}

	if err := s.repo.Upsert(ctx, doc); err != nil {
		return nil, err
	}

	if staleKey != "" {
		if err := s.store.Delete(ctx, staleKey); err != nil {
			s.log.Warn("failed to delete replaced blob",
				slog.String("key", staleKey), logger.Error(err))
		}
	}

	resp := &UploadResponse{Document: doc}
	if p.AutoStart {
		job := jobs.Job{
			JobID:      uuid.NewString(),
			DocumentID: doc.ID,
			StorageKey: doc.StorageKey,
			Options: jobs.IngestionOptions{
				DocumentID:  doc.ID,
				FileName:    doc.FileName,
				ContentType: doc.ContentType,
				ContainerID: doc.ContainerID,
				Path:        doc.Path,
				Strategy:    p.Strategy,
			},
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return nil, apperror.ErrQueueFull.WithInternal(err)
		}
		resp.JobID = job.JobID
	}

	return resp, nil
}

// Delete removes a document: any in-flight ingestion job is cancelled
// first, then the row (chunks and vectors cascade), then the blob.
func (s *Service) Delete(ctx context.Context, containerID, documentID string) (*DeleteResponse, error) {
	doc, err := s.GetByID(ctx, containerID, documentID)
	if err != nil {
		return nil, err
	}

	cancelled := s.queue.CancelByDocumentID(documentID)

	deleted, err := s.repo.Delete(ctx, containerID, documentID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, apperror.ErrDocumentNotFound
	}

	if doc.StorageKey != "" {
		if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
			s.log.Warn("failed to delete blob for removed document",
				slog.String("key", doc.StorageKey),
				logger.Error(err))
		}
	}

	s.log.Info("document deleted",
		slog.String("id", documentID),
		slog.Int("cancelled_jobs", cancelled))

	return &DeleteResponse{Status: "deleted", CancelledJobs: cancelled}, nil
}
