package reindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corpora-dev/corpora/domain/documents"
	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/internal/jobs"
	"github.com/corpora-dev/corpora/internal/storage"
	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Service decides, per document, whether the stored index is stale and
// re-enqueues the stale ones through the regular ingestion queue.
type Service struct {
	docs     *documents.Repository
	store    storage.Store
	settings *settings.Service
	queue    *jobs.Queue
	log      *slog.Logger
}

// NewService creates the reindex service
func NewService(
	docs *documents.Repository,
	store storage.Store,
	settingsSvc *settings.Service,
	queue *jobs.Queue,
	log *slog.Logger,
) *Service {
	return &Service{
		docs:     docs,
		store:    store,
		settings: settingsSvc,
		queue:    queue,
		log:      log.With(logger.Scope("reindex.svc")),
	}
}

// Reindex evaluates every document in the container and enqueues the
// ones whose decision calls for it
func (s *Service) Reindex(ctx context.Context, containerID string, req *Request) (*Summary, error) {
	docs, err := s.docs.ListByContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}

	snap := s.settings.Snapshot()
	chunkingFP := snap.Chunking.Fingerprint()
	embeddingFP := snap.Embedding.Fingerprint()

	summary := &Summary{
		BatchID:        uuid.NewString(),
		TotalDocuments: len(docs),
		ReasonCounts:   make(map[Reason]int),
		Documents:      make([]DocumentDecision, 0, len(docs)),
	}

	for i := range docs {
		doc := &docs[i]
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reason := s.decide(ctx, doc, req, chunkingFP, embeddingFP)
		decision := DocumentDecision{
			DocumentID: doc.ID,
			FileName:   doc.FileName,
			Reason:     reason,
		}

		switch reason {
		case ReasonFileNotFound, ReasonUnchanged:
			summary.SkippedCount++
		case ReasonError:
			decision.Error = "could not hash stored file"
			summary.FailedCount++
		default:
			jobID, err := s.enqueue(ctx, doc, req.StrategyOverride, summary.BatchID)
			if err != nil {
				decision.Error = errorMessage(err)
				summary.FailedCount++
			} else {
				decision.Enqueued = true
				decision.JobID = jobID
				summary.EnqueuedCount++
			}
		}

		summary.ReasonCounts[reason]++
		summary.Documents = append(summary.Documents, decision)
	}

	s.log.Info("reindex batch evaluated",
		slog.String("batch_id", summary.BatchID),
		slog.String("container_id", containerID),
		slog.Int("total", summary.TotalDocuments),
		slog.Int("enqueued", summary.EnqueuedCount),
		slog.Int("skipped", summary.SkippedCount),
		slog.Int("failed", summary.FailedCount))

	return summary, nil
}

// decide classifies one document. The first matching rule wins, so the
// order here is the staleness policy.
func (s *Service) decide(ctx context.Context, doc *documents.Document, req *Request, chunkingFP, embeddingFP map[string]string) Reason {
	if req.Force {
		return ReasonForced
	}

	exists, err := s.store.Exists(ctx, doc.StorageKey)
	if err != nil || !exists {
		if err != nil {
			s.log.Warn("storage probe failed",
				slog.String("document_id", doc.ID), logger.Error(err))
		}
		return ReasonFileNotFound
	}

	hash, err := s.hashStored(ctx, doc.StorageKey)
	if err != nil {
		s.log.Warn("content hash failed",
			slog.String("document_id", doc.ID), logger.Error(err))
		return ReasonError
	}
	if hash != doc.ContentHash {
		return ReasonContentChanged
	}

	if req.DetectSettingsChanges {
		if !settings.FingerprintMatches(doc.Metadata, chunkingFP) {
			return ReasonChunkingSettingsChanged
		}
		if !settings.FingerprintMatches(doc.Metadata, embeddingFP) {
			return ReasonEmbeddingSettingsChanged
		}
	}

	if doc.LastIndexedAt == nil || doc.Status != documents.StatusReady {
		return ReasonNeverIndexed
	}
	return ReasonUnchanged
}

// enqueue clears the stored chunks and puts the document back on the
// ingestion queue under its existing ID
func (s *Service) enqueue(ctx context.Context, doc *documents.Document, strategyOverride, batchID string) (string, error) {
	if err := s.docs.ResetForReindex(ctx, doc.ID); err != nil {
		return "", err
	}

	job := jobs.Job{
		JobID:      uuid.NewString(),
		DocumentID: doc.ID,
		StorageKey: doc.StorageKey,
		BatchID:    batchID,
		Options: jobs.IngestionOptions{
			DocumentID:  doc.ID,
			FileName:    doc.FileName,
			ContentType: doc.ContentType,
			ContainerID: doc.ContainerID,
			Path:        doc.Path,
			Strategy:    strategyOverride,
		},
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return "", apperror.ErrQueueFull.WithInternal(err)
	}
	return job.JobID, nil
}

// hashStored streams the stored blob through sha256
func (s *Service) hashStored(ctx context.Context, key string) (string, error) {
	reader, err := s.store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	h := sha256.New()
	if _, err := io.Copy(h, reader); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func errorMessage(err error) string {
	if appErr, ok := err.(*apperror.Error); ok {
		return appErr.Message
	}
	return err.Error()
}
