package chunks

import (
	"time"

	"github.com/uptrace/bun"
)

// Chunk is one contiguous span of extracted document text from kb.chunks.
// The lexical search vector (tsv) is a generated column and never written
// from Go.
type Chunk struct {
	bun.BaseModel `bun:"table:kb.chunks,alias:c"`

	ID         string `bun:"id,pk" json:"id"`
	DocumentID string `bun:"document_id" json:"documentId"`

	ChunkIndex  int    `bun:"chunk_index" json:"chunkIndex"`
	Content     string `bun:"content" json:"content"`
	TokenCount  int    `bun:"token_count" json:"tokenCount"`
	StartOffset int    `bun:"start_offset" json:"startOffset"`
	EndOffset   int    `bun:"end_offset" json:"endOffset"`

	Metadata map[string]string `bun:"metadata,type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `bun:"created_at" json:"createdAt"`
}

// ChunkVector is the dense embedding row for a chunk. It lives in its own
// table so vectors cascade away with the chunk and can be re-dimensioned
// without touching chunk text.
type ChunkVector struct {
	bun.BaseModel `bun:"table:kb.chunk_vectors,alias:cv"`

	ChunkID   string            `bun:"chunk_id,pk" json:"chunkId"`
	Embedding []float32         `bun:"-" json:"-"`
	Metadata  map[string]string `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
}

// ChunkDTO is the response shape for chunk listings
type ChunkDTO struct {
	ID           string            `json:"id"`
	DocumentID   string            `json:"documentId"`
	ChunkIndex   int               `json:"chunkIndex"`
	Content      string            `json:"content"`
	TokenCount   int               `json:"tokenCount"`
	StartOffset  int               `json:"startOffset"`
	EndOffset    int               `json:"endOffset"`
	HasEmbedding bool              `json:"hasEmbedding"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    string            `json:"createdAt"`
}

// chunkWithEmbedding joins a chunk with its vector presence flag
type chunkWithEmbedding struct {
	Chunk
	HasEmbedding bool `bun:"has_embedding"`
}

func (c *chunkWithEmbedding) toDTO() *ChunkDTO {
	return &ChunkDTO{
		ID:           c.ID,
		DocumentID:   c.DocumentID,
		ChunkIndex:   c.ChunkIndex,
		Content:      c.Content,
		TokenCount:   c.TokenCount,
		StartOffset:  c.StartOffset,
		EndOffset:    c.EndOffset,
		HasEmbedding: c.HasEmbedding,
		Metadata:     c.Metadata,
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}

// ListChunksResponse is the response for listing a document's chunks
type ListChunksResponse struct {
	Data       []*ChunkDTO `json:"data"`
	TotalCount int         `json:"totalCount"`
}
