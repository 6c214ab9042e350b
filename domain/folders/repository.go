package folders

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/pgutils"
)

// Repository handles folder database operations
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new folders repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("folders.repo")),
	}
}

// List retrieves all folders in a container with document counts
func (r *Repository) List(ctx context.Context, containerID string) (*ListResult, error) {
	folders := []Folder{}
	err := r.db.NewSelect().
		TableExpr("kb.folders AS f").
		ColumnExpr("f.*").
		ColumnExpr("(SELECT COUNT(*)::int FROM kb.documents d WHERE d.container_id = f.container_id AND d.path LIKE f.path || '%') AS document_count").
		Where("f.container_id = ?", containerID).
		Order("f.path ASC").
		Scan(ctx, &folders)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	return &ListResult{Folders: folders, Total: len(folders)}, nil
}

// GetByPath retrieves a folder by its normalized path
func (r *Repository) GetByPath(ctx context.Context, containerID, path string) (*Folder, error) {
	var folder Folder
	err := r.db.NewSelect().
		Model(&folder).
		Where("container_id = ?", containerID).
		Where("path = ?", path).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return &folder, nil
}

// Create inserts a new folder
func (r *Repository) Create(ctx context.Context, folder *Folder) error {
	_, err := r.db.NewInsert().
		Model(folder).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return apperror.ErrConflict.WithMessage("Folder already exists")
		}
		if pgutils.IsForeignKeyViolation(err) {
			return apperror.ErrContainerNotFound
		}
		r.log.Error("failed to create folder", logger.Error(err))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// ListDocumentIDsUnder returns the ids of all documents whose path falls
// under the folder prefix.
func (r *Repository) ListDocumentIDsUnder(ctx context.Context, containerID, pathPrefix string) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		TableExpr("kb.documents").
		Column("id").
		Where("container_id = ?", containerID).
		Where("path LIKE ?", pathPrefix+"%").
		Scan(ctx, &ids)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("list documents under folder: %w", err)
	}
	return ids, nil
}

// ListStorageKeysUnder returns the storage keys of all documents under the
// folder prefix, for blob cleanup after cascade deletion.
func (r *Repository) ListStorageKeysUnder(ctx context.Context, containerID, pathPrefix string) ([]string, error) {
	var keys []string
	err := r.db.NewSelect().
		TableExpr("kb.documents").
		Column("storage_key").
		Where("container_id = ?", containerID).
		Where("path LIKE ?", pathPrefix+"%").
		Where("storage_key != ''").
		Scan(ctx, &keys)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("list storage keys under folder: %w", err)
	}
	return keys, nil
}

// DeleteCascade removes the folder, all descendant folders, and all
// documents under the prefix in one transaction. Chunks and vectors go
// with their documents via FK cascade.
func (r *Repository) DeleteCascade(ctx context.Context, containerID, pathPrefix string) (foldersDeleted, documentsDeleted int, err error) {
	err = r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewDelete().
			TableExpr("kb.documents").
			Where("container_id = ?", containerID).
			Where("path LIKE ?", pathPrefix+"%").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete documents: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			documentsDeleted = int(n)
		}

		result, err = tx.NewDelete().
			Model((*Folder)(nil)).
			Where("container_id = ?", containerID).
			Where("path LIKE ?", pathPrefix+"%").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete folders: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			foldersDeleted = int(n)
		}

		return nil
	})

	if err != nil {
		r.log.Error("failed to delete folder cascade",
			logger.Error(err),
			slog.String("container_id", containerID),
			slog.String("path", pathPrefix))
		return 0, 0, apperror.ErrDatabase.WithInternal(err)
	}

	return foldersDeleted, documentsDeleted, nil
}
