package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/uptrace/bun"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/mathutil"
	"github.com/corpora-dev/corpora/pkg/pgutils"
)

// Repository runs the retrieval legs against kb.chunks and kb.chunk_vectors
type Repository struct {
	db  bun.IDB
	log *slog.Logger
}

// NewRepository creates a new search repository
func NewRepository(db bun.IDB, log *slog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With(logger.Scope("search.repo")),
	}
}

// Params are the inputs of a single retrieval leg
type Params struct {
	ContainerID string
	Query       string
	Vector      []float32
	Limit       int

	// Optional scope filters
	DocumentID string
	PathPrefix string
}

// scopeClause renders the optional document and path filters. The caller
// embeds the returned fragment after the container condition.
func (p Params) scopeClause() (string, []any) {
	var clause strings.Builder
	var args []any
	if p.DocumentID != "" {
		clause.WriteString(" AND c.document_id = ?")
		args = append(args, p.DocumentID)
	}
	if p.PathPrefix != "" {
		clause.WriteString(" AND d.path LIKE ?")
		args = append(args, p.PathPrefix+"%")
	}
	return clause.String(), args
}

// VectorSearch retrieves the chunks nearest to the query vector by cosine
// distance. Scores are 1 - distance so that higher means closer.
func (r *Repository) VectorSearch(ctx context.Context, params Params) ([]*Result, error) {
	if len(params.Vector) == 0 {
		return nil, apperror.ErrBadRequest.WithMessage("query vector required for vector search")
	}

	limit := mathutil.ClampLimit(params.Limit, 20, 400)
	vectorStr := pgutils.FormatVector(params.Vector)
	scope, scopeArgs := params.scopeClause()

	query := `
		SELECT c.id, c.document_id, d.container_id, d.file_name, d.content_type, d.path, c.chunk_index, c.content, c.metadata,
			   (1 - (cv.embedding <=> ?::vector)) AS score
		FROM kb.chunk_vectors cv
		JOIN kb.chunks c ON c.id = cv.chunk_id
		JOIN kb.documents d ON d.id = c.document_id
		WHERE d.container_id = ?` + scope + `
		ORDER BY cv.embedding <=> ?::vector
		LIMIT ?
	`

	args := append([]any{vectorStr, params.ContainerID}, scopeArgs...)
	args = append(args, vectorStr, limit)
	results, err := r.scanResults(ctx, SourceVector, query, args...)
	if err != nil {
		r.log.Error("vector search failed", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	// Cosine similarity lands in [-1, 1]; relevance scores never leave [0, 1]
	for _, res := range results {
		res.Score = mathutil.Clamp01(res.Score)
	}
	return results, nil
}

// KeywordSearch runs full-text retrieval over the stored tsvector column.
// Raw ts_rank scores are min-max normalized into [0, 1]; a single-value
// distribution maps to 1 so rank order survives.
func (r *Repository) KeywordSearch(ctx context.Context, params Params) ([]*Result, error) {
	sanitized := SanitizeQuery(params.Query)
	if sanitized == "" {
		return nil, nil
	}

	limit := mathutil.ClampLimit(params.Limit, 20, 400)
	scope, scopeArgs := params.scopeClause()

	query := `
		SELECT c.id, c.document_id, d.container_id, d.file_name, d.content_type, d.path, c.chunk_index, c.content, c.metadata,
			   ts_rank(c.tsv, plainto_tsquery('english', ?)) AS score
		FROM kb.chunks c
		JOIN kb.documents d ON d.id = c.document_id
		WHERE c.tsv @@ plainto_tsquery('english', ?)
		  AND d.container_id = ?` + scope + `
		ORDER BY score DESC
		LIMIT ?
	`

	args := append([]any{sanitized, sanitized, params.ContainerID}, scopeArgs...)
	args = append(args, limit)
	results, err := r.scanResults(ctx, SourceKeyword, query, args...)
	if err != nil {
		r.log.Error("keyword search failed", logger.Error(err))
		return nil, apperror.ErrDatabase.WithInternal(err)
	}

	scores := make([]float32, len(results))
	for i, res := range results {
		scores[i] = res.Score
	}
	scores = mathutil.MinMaxNormalize(scores)
	for i, res := range results {
		res.Score = scores[i]
	}

	return results, nil
}

// scanResults executes a leg query and maps the rows
func (r *Repository) scanResults(ctx context.Context, source, query string, args ...any) ([]*Result, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		res := &Result{Source: source}
		var metadata metadataMap
		if err := rows.Scan(&res.ChunkID, &res.DocumentID, &res.ContainerID, &res.FileName,
			&res.ContentType, &res.Path, &res.ChunkIndex, &res.Content, &metadata, &res.Score); err != nil {
			return nil, err
		}
		res.Metadata = hitMetadata(metadata, res)
		results = append(results, res)
	}
	return results, rows.Err()
}

// hitMetadata overlays the identifying document fields on the stored chunk
// metadata so every hit is self-describing
func hitMetadata(stored map[string]string, res *Result) map[string]string {
	out := make(map[string]string, len(stored)+6)
	for k, v := range stored {
		out[k] = v
	}
	out["documentId"] = res.DocumentID
	out["containerId"] = res.ContainerID
	out["fileName"] = res.FileName
	out["contentType"] = res.ContentType
	out["chunkIndex"] = strconv.Itoa(res.ChunkIndex)
	out["source"] = res.Source
	return out
}

// metadataMap scans a jsonb column into a string map
type metadataMap map[string]string

func (m *metadataMap) Scan(src any) error {
	if src == nil {
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return nil
}

// SanitizeQuery strips everything except letters, digits, whitespace,
// hyphens and underscores before the text is handed to plainto_tsquery.
func SanitizeQuery(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
