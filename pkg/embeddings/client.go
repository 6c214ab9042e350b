// Package embeddings provides embedding generation functionality.
package embeddings

import (
	"context"
)

// DefaultDimension is the default embedding dimension (768 for nomic-embed-text)
const DefaultDimension = 768

// Client provides embedding generation functionality
type Client interface {
	// Embed generates an embedding vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple texts.
	// The result is index-aligned with the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension produced by the model
	Dimensions() int

	// ModelID returns the identifier of the model producing the vectors
	ModelID() string
}

// NoopClient is a no-op implementation that returns nil embeddings.
// Used when embeddings are disabled.
type NoopClient struct{}

// NewNoopClient creates a new NoopClient
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// Embed returns nil, nil (no embedding available)
func (c *NoopClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// EmbedBatch returns nil, nil (no embeddings available)
func (c *NoopClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

// Dimensions returns 0 (no vectors produced)
func (c *NoopClient) Dimensions() int {
	return 0
}

// ModelID returns "noop"
func (c *NoopClient) ModelID() string {
	return "noop"
}
