package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/corpora-dev/corpora/pkg/logger"
)

// Repository handles settings persistence
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new settings repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("settings.repo")),
	}
}

// GetAll loads every stored settings row
func (r *Repository) GetAll(ctx context.Context) ([]Setting, error) {
	rows := []Setting{}
	err := r.db.NewSelect().
		Model(&rows).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return rows, nil
}

// Upsert stores one category's value, replacing any previous row
func (r *Repository) Upsert(ctx context.Context, category string, value json.RawMessage) error {
	row := &Setting{
		Category:  category,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (category) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", category, err)
	}
	return nil
}
