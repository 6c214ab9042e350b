package documents

import (
	"time"

	"github.com/uptrace/bun"
)

// Status is the indexing lifecycle of a document
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusReady      Status = "Ready"
	StatusFailed     Status = "Failed"
)

// Document represents a document entity from kb.documents table
type Document struct {
	bun.BaseModel `bun:"table:kb.documents"`

	ID          string `bun:"id,pk" json:"id"`
	ContainerID string `bun:"container_id" json:"containerId"`

	FileName    string `bun:"file_name" json:"fileName"`
	ContentType string `bun:"content_type" json:"contentType"`
	Path        string `bun:"path" json:"path"`
	StorageKey  string `bun:"storage_key" json:"storageKey"`

	ContentHash string `bun:"content_hash" json:"contentHash"`
	SizeBytes   int64  `bun:"size_bytes" json:"sizeBytes"`
	ChunkCount  int    `bun:"chunk_count" json:"chunkCount"`

	Status       Status `bun:"status" json:"status"`
	ErrorMessage string `bun:"error_message" json:"errorMessage,omitempty"`

	// Metadata carries file attributes plus the IndexedWith:* fingerprint
	// recorded at indexing time
	Metadata map[string]string `bun:"metadata,type:jsonb" json:"metadata,omitempty"`

	CreatedAt     time.Time  `bun:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `bun:"updated_at" json:"updatedAt"`
	LastIndexedAt *time.Time `bun:"last_indexed_at" json:"lastIndexedAt,omitempty"`
}

// ListParams contains parameters for listing documents
type ListParams struct {
	ContainerID string
	Limit       int
	Cursor      *Cursor
	Status      *Status
	PathPrefix  string
}

// Cursor represents a pagination cursor
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// ListResult contains the result of listing documents
type ListResult struct {
	Documents  []Document `json:"documents"`
	Total      int        `json:"total"`
	NextCursor *string    `json:"next_cursor,omitempty"`
}

// UploadResponse is the response for file upload
type UploadResponse struct {
	Document *Document `json:"document"`
	JobID    string    `json:"jobId,omitempty"`
}

// BatchUploadResult is the response for batch file upload
type BatchUploadResult struct {
	Summary BatchUploadSummary      `json:"summary"`
	Results []BatchUploadFileResult `json:"results"`
}

// BatchUploadSummary contains counts for batch upload results
type BatchUploadSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BatchUploadFileResult represents the result for a single file in a batch
type BatchUploadFileResult struct {
	FileName   string  `json:"fileName"`
	Status     string  `json:"status"` // "success" or "failed"
	DocumentID *string `json:"documentId,omitempty"`
	JobID      *string `json:"jobId,omitempty"`
	Error      *string `json:"error,omitempty"`
}

// DeleteResponse is the response for delete operations
type DeleteResponse struct {
	Status        string `json:"status"`
	CancelledJobs int    `json:"cancelledJobs"`
}
