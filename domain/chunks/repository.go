package chunks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/pgutils"
)

// insertBatchSize bounds the number of rows per INSERT statement
const insertBatchSize = 200

// Repository handles database operations for chunks and their vectors
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new chunks repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("chunks.repo")),
	}
}

// InsertBatch persists chunks and their embeddings in one transaction.
// Chunks and vectors are aligned by index; a chunk whose vector slot is
// nil gets no vector row.
func (r *Repository) InsertBatch(ctx context.Context, chunks []*Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if vectors != nil && len(vectors) != len(chunks) {
		return fmt.Errorf("chunk/vector count mismatch: %d != %d", len(chunks), len(vectors))
	}

	now := time.Now().UTC()
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for start := 0; start < len(chunks); start += insertBatchSize {
			end := start + insertBatchSize
			if end > len(chunks) {
				end = len(chunks)
			}
			batch := chunks[start:end]

			if _, err := tx.NewInsert().Model(&batch).Exec(ctx); err != nil {
				return fmt.Errorf("insert chunks: %w", err)
			}

			if vectors == nil {
				continue
			}
			for i, c := range batch {
				vec := vectors[start+i]
				if len(vec) == 0 {
					continue
				}
				if err := upsertVector(ctx, tx, c, vec); err != nil {
					return err
				}
			}
		}
		return nil
	})

	if err != nil {
		r.log.Error("failed to insert chunk batch", logger.Error(err),
			slog.String("document_id", chunks[0].DocumentID),
			slog.Int("count", len(chunks)))
		return apperror.ErrDatabase.WithInternal(err)
	}

	return nil
}

// upsertVector writes one embedding row. The vector literal is formatted
// in Go because bun has no native pgvector type.
func upsertVector(ctx context.Context, tx bun.Tx, c *Chunk, vec []float32) error {
	metadata := map[string]string{
		"documentId": c.DocumentID,
	}
	for _, k := range []string{"containerId", "modelId", "ChunkIndex"} {
		if v, ok := c.Metadata[k]; ok {
			metadata[k] = v
		}
	}

	_, err := tx.NewRaw(
		`INSERT INTO kb.chunk_vectors (chunk_id, embedding, metadata)
		 VALUES (?, ?::vector, ?)
		 ON CONFLICT (chunk_id) DO UPDATE
		 SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
		c.ID, pgutils.FormatVector(vec), mustJSON(metadata),
	).Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert chunk vector: %w", err)
	}
	return nil
}

// ListByDocument returns a document's chunks in index order with a flag
// marking whether each one has an embedding
func (r *Repository) ListByDocument(ctx context.Context, documentID string) ([]*ChunkDTO, error) {
	var rows []*chunkWithEmbedding

	err := r.db.NewSelect().
		TableExpr("kb.chunks AS c").
		ColumnExpr("c.*").
		ColumnExpr("cv.chunk_id IS NOT NULL AS has_embedding").
		Join("LEFT JOIN kb.chunk_vectors AS cv ON cv.chunk_id = c.id").
		Where("c.document_id = ?", documentID).
		Order("c.chunk_index ASC").
		Scan(ctx, &rows)
	if err != nil {
		r.log.Error("failed to list chunks", logger.Error(err), slog.String("document_id", documentID))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	dtos := make([]*ChunkDTO, len(rows))
	for i, row := range rows {
		dtos[i] = row.toDTO()
	}
	return dtos, nil
}

// DeleteByDocument removes every chunk of a document. Vectors cascade.
func (r *Repository) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	result, err := r.db.NewDelete().
		Model((*Chunk)(nil)).
		Where("document_id = ?", documentID).
		Exec(ctx)
	if err != nil {
		r.log.Error("failed to delete chunks", logger.Error(err), slog.String("document_id", documentID))
		return 0, apperror.ErrDatabase.WithInternal(err)
	}

	n, _ := result.RowsAffected()
	return int(n), nil
}

// mustJSON marshals a map that cannot fail to marshal
func mustJSON(v map[string]string) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// CountByDocument returns the number of chunks for a document
func (r *Repository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	count, err := r.db.NewSelect().
		Model((*Chunk)(nil)).
		Where("document_id = ?", documentID).
		Count(ctx)
	if err != nil {
		return 0, apperror.ErrDatabase.WithInternal(err)
	}
	return count, nil
}
