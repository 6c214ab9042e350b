package containers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/pgutils"
)

// Repository handles container database operations
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new containers repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("containers.repo")),
	}
}

// List retrieves all containers with document and folder counts
func (r *Repository) List(ctx context.Context) (*ListResult, error) {
	containers := []Container{}
	err := r.db.NewSelect().
		TableExpr("kb.containers AS c").
		ColumnExpr("c.*").
		ColumnExpr("(SELECT COUNT(*)::int FROM kb.documents d WHERE d.container_id = c.id) AS document_count").
		ColumnExpr("(SELECT COUNT(*)::int FROM kb.folders f WHERE f.container_id = c.id AND f.path != '/') AS folder_count").
		Order("c.name ASC").
		Scan(ctx, &containers)
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	return &ListResult{Containers: containers, Total: len(containers)}, nil
}

// GetByID retrieves a single container by ID
func (r *Repository) GetByID(ctx context.Context, containerID string) (*Container, error) {
	var container Container
	err := r.db.NewSelect().
		Model(&container).
		Where("id = ?", containerID).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get container: %w", err)
	}

	return &container, nil
}

// GetByName retrieves a container by name (case-insensitive)
func (r *Repository) GetByName(ctx context.Context, name string) (*Container, error) {
	var container Container
	err := r.db.NewSelect().
		Model(&container).
		Where("LOWER(name) = LOWER(?)", name).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get container by name: %w", err)
	}

	return &container, nil
}

// Create inserts a new container
func (r *Repository) Create(ctx context.Context, container *Container) error {
	_, err := r.db.NewInsert().
		Model(container).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return apperror.ErrConflict.WithMessage("Container with this name already exists")
		}
		r.log.Error("failed to create container", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// Update updates mutable container fields
func (r *Repository) Update(ctx context.Context, containerID string, description *string) (*Container, error) {
	query := r.db.NewUpdate().
		Model((*Container)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", containerID)

	if description != nil {
		query = query.Set("description = ?", *description)
	}

	result, err := query.Exec(ctx)
	if err != nil {
		r.log.Error("failed to update container", logger.Error(err), slog.String("id", containerID))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, containerID)
}

// CountContents returns the number of documents and non-root folders held
// by a container. Deletion is refused while either is non-zero.
func (r *Repository) CountContents(ctx context.Context, containerID string) (documents int, folders int, err error) {
	documents, err = r.db.NewSelect().
		TableExpr("kb.documents").
		Where("container_id = ?", containerID).
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count documents: %w", err)
	}

	folders, err = r.db.NewSelect().
		TableExpr("kb.folders").
		Where("container_id = ?", containerID).
		Where("path != '/'").
		Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count folders: %w", err)
	}

	return documents, folders, nil
}

// Delete removes an empty container. Returns true if a row was deleted.
func (r *Repository) Delete(ctx context.Context, containerID string) (bool, error) {
	result, err := r.db.NewDelete().
		Model((*Container)(nil)).
		Where("id = ?", containerID).
		Exec(ctx)

	if err != nil {
		r.log.Error("failed to delete container", logger.Error(err), slog.String("id", containerID))
		return false, apperror.ErrDatabase.WithInternal(err)
	}

	n, _ := result.RowsAffected()
	return n > 0, nil
}
