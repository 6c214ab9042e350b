package documents

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/pgutils"
)

// Repository handles document database operations
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new documents repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("documents.repo")),
	}
}

// List retrieves documents with cursor pagination and filtering
func (r *Repository) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Limit <= 0 {
		params.Limit = 100
	}
	if params.Limit > 500 {
		params.Limit = 500
	}

	query := r.db.NewSelect().
		Model((*Document)(nil)).
		Where("container_id = ?", params.ContainerID)

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.PathPrefix != "" {
		query = query.Where("path LIKE ?", params.PathPrefix+"%")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	countQuery := r.db.NewSelect().
		Model((*Document)(nil)).
		Where("container_id = ?", params.ContainerID)
	if params.Status != nil {
		countQuery = countQuery.Where("status = ?", *params.Status)
	}
	if params.PathPrefix != "" {
		countQuery = countQuery.Where("path LIKE ?", params.PathPrefix+"%")
	}

	total, err := countQuery.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	documents := []Document{}
	err = query.
		Order("created_at DESC", "id DESC").
		Limit(params.Limit+1). // +1 to detect if there are more
		Scan(ctx, &documents)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var nextCursor *string
	if len(documents) > params.Limit {
		documents = documents[:params.Limit]
		last := documents[len(documents)-1]
		cursorJSON, _ := json.Marshal(Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		encoded := base64.URLEncoding.EncodeToString(cursorJSON)
		nextCursor = &encoded
	}

	return &ListResult{
		Documents:  documents,
		Total:      total,
		NextCursor: nextCursor,
	}, nil
}

// ListByContainer retrieves every document in a container, for reindexing
func (r *Repository) ListByContainer(ctx context.Context, containerID string) ([]Document, error) {
	documents := []Document{}
	err := r.db.NewSelect().
		Model(&documents).
		Where("container_id = ?", containerID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents by container: %w", err)
	}
	return documents, nil
}

// GetByID retrieves a single document by ID. Returns nil, nil when absent.
func (r *Repository) GetByID(ctx context.Context, documentID string) (*Document, error) {
	var doc Document
	err := r.db.NewSelect().
		Model(&doc).
		Where("id = ?", documentID).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	return &doc, nil
}

// GetByPath retrieves a document by its container-scoped path
func (r *Repository) GetByPath(ctx context.Context, containerID, path string) (*Document, error) {
	var doc Document
	err := r.db.NewSelect().
		Model(&doc).
		Where("container_id = ?", containerID).
		Where("path = ?", path).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by path: %w", err)
	}

	return &doc, nil
}

// Upsert inserts the document or, when the id already exists, overwrites
// the mutable columns. This is how reindex reuses the same row.
func (r *Repository) Upsert(ctx context.Context, doc *Document) error {
	doc.UpdatedAt = time.Now().UTC()

	_, err := r.db.NewInsert().
		Model(doc).
		On("CONFLICT (id) DO UPDATE").
		Set("container_id = EXCLUDED.container_id").
		Set("file_name = EXCLUDED.file_name").
		Set("content_type = EXCLUDED.content_type").
		Set("path = EXCLUDED.path").
		Set("storage_key = EXCLUDED.storage_key").
		Set("content_hash = EXCLUDED.content_hash").
		Set("size_bytes = EXCLUDED.size_bytes").
		Set("metadata = EXCLUDED.metadata").
		Set("status = EXCLUDED.status").
		Set("error_message = EXCLUDED.error_message").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return apperror.ErrConflict.WithMessage("A document already exists at this path")
		}
		if pgutils.IsForeignKeyViolation(err) {
			return apperror.ErrContainerNotFound
		}
		r.log.Error("failed to upsert document", logger.Error(err), slog.String("id", doc.ID))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// UpdateStatus sets the document status and error message
func (r *Repository) UpdateStatus(ctx context.Context, documentID string, status Status, errorMessage string) error {
	_, err := r.db.NewUpdate().
		Model((*Document)(nil)).
		Set("status = ?", status).
		Set("error_message = ?", errorMessage).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", documentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

// MarkReady finalizes a successful indexing run
func (r *Repository) MarkReady(ctx context.Context, documentID string, chunkCount int) error {
	now := time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model((*Document)(nil)).
		Set("status = ?", StatusReady).
		Set("error_message = ''").
		Set("chunk_count = ?", chunkCount).
		Set("last_indexed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", documentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark document ready: %w", err)
	}
	return nil
}

// ResetForReindex clears a document's chunks (vectors cascade away) and
// resets its status in one transaction, preparing it for a requeue.
func (r *Repository) ResetForReindex(ctx context.Context, documentID string) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			TableExpr("kb.chunks").
			Where("document_id = ?", documentID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear chunks: %w", err)
		}

		if _, err := tx.NewUpdate().
			Model((*Document)(nil)).
			Set("status = ?", StatusPending).
			Set("chunk_count = 0").
			Set("error_message = ''").
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", documentID).
			Exec(ctx); err != nil {
			return fmt.Errorf("reset status: %w", err)
		}

		return nil
	})

	if err != nil {
		r.log.Error("failed to reset document for reindex",
			logger.Error(err), slog.String("id", documentID))
		return apperror.ErrDatabase.WithInternal(err)
	}
	return nil
}

// Delete removes a document. Chunks and vectors cascade via FK. Returns
// true if a row was deleted.
func (r *Repository) Delete(ctx context.Context, containerID, documentID string) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*Document)(nil)).
		Where("id = ?", documentID).
		Where("container_id = ?", containerID).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete document", logger.Error(err), slog.String("id", documentID))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ParseCursor decodes a base64-encoded cursor
func ParseCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}

	return &cursor, nil
}
