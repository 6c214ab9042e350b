// Package storage provides the content store used to hold raw uploaded
// document bytes. Two backends are available: S3-compatible object storage
// (MinIO in development) and a local filesystem store.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"go.uber.org/fx"

	"github.com/corpora-dev/corpora/internal/config"
	"github.com/google/uuid"
)

var Module = fx.Module("storage",
	fx.Provide(
		fx.Annotate(
			NewStore,
			fx.As(new(Store)),
		),
	),
)

// Store is the content store abstraction. Keys are opaque strings produced
// by GenerateDocumentKey.
type Store interface {
	// Save writes an object and returns metadata about the stored bytes.
	Save(ctx context.Context, key string, data io.Reader, size int64, opts SaveOptions) (*SaveResult, error)

	// Open returns a reader for the object. The caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the object is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// SaveOptions configures a save operation
type SaveOptions struct {
	ContentType        string
	ContentDisposition string
	Metadata           map[string]string
}

// SaveResult contains information about a stored object
type SaveResult struct {
	Key         string
	ETag        string
	Size        int64
	ContentType string
}

// NewStore selects the backend from configuration.
func NewStore(cfg *config.Config, log *slog.Logger) (Store, error) {
	if cfg.Storage.UseS3() {
		return NewS3Store(&cfg.Storage, log)
	}
	return NewFSStore(cfg.Storage.RootDir, log)
}

// GenerateDocumentKey creates a storage key for a document.
// Format: {containerId}/{uuid}-{sanitized_filename}
func GenerateDocumentKey(containerID, filename string) string {
	sanitized := SanitizeFilename(filename)
	id := uuid.New().String()
	return fmt.Sprintf("%s/%s-%s", containerID, id, sanitized)
}

// SanitizeFilename cleans a filename for storage
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}

	// Replace special characters with underscores
	re := regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	sanitized := re.ReplaceAllString(filename, "_")

	// Collapse multiple underscores
	re = regexp.MustCompile(`_{2,}`)
	sanitized = re.ReplaceAllString(sanitized, "_")

	// Trim leading/trailing underscores
	sanitized = strings.Trim(sanitized, "_")

	// Lowercase
	sanitized = strings.ToLower(sanitized)

	// Limit length
	if len(sanitized) > 200 {
		sanitized = sanitized[:200]
	}

	if sanitized == "" {
		return "unnamed"
	}

	return sanitized
}
