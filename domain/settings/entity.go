package settings

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// Setting represents one category row from kb.settings. The value is an
// opaque JSON blob; typed access goes through Snapshot.
type Setting struct {
	bun.BaseModel `bun:"table:kb.settings"`

	Category  string          `bun:"category,pk" json:"category"`
	Value     json.RawMessage `bun:"value,type:jsonb" json:"value"`
	UpdatedAt time.Time       `bun:"updated_at" json:"updatedAt"`
}

// Setting categories
const (
	CategoryEmbedding = "Embedding"
	CategoryChunking  = "Chunking"
	CategorySearch    = "Search"
	CategoryUpload    = "Upload"
	CategoryStorage   = "Storage"
)

// Categories lists every recognized settings category
var Categories = []string{
	CategoryEmbedding,
	CategoryChunking,
	CategorySearch,
	CategoryUpload,
	CategoryStorage,
}

// EmbeddingSettings configure the embedding provider.
type EmbeddingSettings struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Dimensions     int    `json:"dimensions"`
	BaseURL        string `json:"baseUrl,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	BatchSize      int    `json:"batchSize"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// ChunkingSettings configure the chunking strategy.
type ChunkingSettings struct {
	Strategy                 string   `json:"strategy"`
	MaxChunkSize             int      `json:"maxChunkSize"`
	Overlap                  int      `json:"overlap"`
	MinChunkSize             int      `json:"minChunkSize"`
	SemanticThreshold        float64  `json:"semanticThreshold"`
	RecursiveSeparators      []string `json:"recursiveSeparators,omitempty"`
	RespectDocumentStructure bool     `json:"respectDocumentStructure"`
}

// SearchSettings configure the hybrid searcher.
type SearchSettings struct {
	Mode                 string  `json:"mode"`
	TopK                 int     `json:"topK"`
	Reranker             string  `json:"reranker"`
	RRFK                 int     `json:"rrfK"`
	VectorWeight         float64 `json:"vectorWeight"`
	MinimumScore         float64 `json:"minimumScore"`
	CrossEncoderModel    string  `json:"crossEncoderModel,omitempty"`
	EnableQueryExpansion bool    `json:"enableQueryExpansion"`
	IncludeWebSearch     bool    `json:"includeWebSearch"`
}

// UploadSettings configure uploads and the ingestion worker pool.
type UploadSettings struct {
	MaxFileSizeMB      int      `json:"maxFileSizeMb"`
	AllowedExtensions  []string `json:"allowedExtensions"`
	DefaultPath        string   `json:"defaultPath"`
	ParallelWorkers    int      `json:"parallelWorkers"`
	AutoStartIngestion bool     `json:"autoStartIngestion"`
	BatchSize          int      `json:"batchSize"`
}

// MinioSettings configure an S3-compatible blob backend.
type MinioSettings struct {
	Endpoint   string `json:"endpoint"`
	AccessKey  string `json:"accessKey"`
	SecretKey  string `json:"secretKey"`
	BucketName string `json:"bucketName"`
	UseSSL     bool   `json:"useSsl"`
}

// AzureBlobSettings configure an Azure blob backend.
type AzureBlobSettings struct {
	ConnectionString string `json:"connectionString"`
	ContainerName    string `json:"containerName"`
}

// StorageSettings select storage providers.
type StorageSettings struct {
	VectorStoreProvider   string            `json:"vectorStoreProvider"`
	DocumentStoreProvider string            `json:"documentStoreProvider"`
	FileStorageProvider   string            `json:"fileStorageProvider"`
	Minio                 MinioSettings     `json:"minio"`
	LocalStorageRootPath  string            `json:"localStorageRootPath"`
	AzureBlob             AzureBlobSettings `json:"azureBlob"`
}

// Snapshot is an immutable view of every category, taken once at operation
// entry so a concurrent settings change cannot tear a single run.
type Snapshot struct {
	Embedding EmbeddingSettings `json:"embedding"`
	Chunking  ChunkingSettings  `json:"chunking"`
	Search    SearchSettings    `json:"search"`
	Upload    UploadSettings    `json:"upload"`
	Storage   StorageSettings   `json:"storage"`
}

// Fingerprint metadata keys recorded on every indexed document
const (
	KeyChunkingStrategy    = "IndexedWith:ChunkingStrategy"
	KeyChunkingMaxSize     = "IndexedWith:ChunkingMaxSize"
	KeyChunkingOverlap     = "IndexedWith:ChunkingOverlap"
	KeyEmbeddingProvider   = "IndexedWith:EmbeddingProvider"
	KeyEmbeddingModel      = "IndexedWith:EmbeddingModel"
	KeyEmbeddingDimensions = "IndexedWith:EmbeddingDimensions"
)

// Fingerprint returns the chunking parameter fingerprint recorded in
// document metadata at indexing time.
func (s ChunkingSettings) Fingerprint() map[string]string {
	return map[string]string{
		KeyChunkingStrategy: s.Strategy,
		KeyChunkingMaxSize:  strconv.Itoa(s.MaxChunkSize),
		KeyChunkingOverlap:  strconv.Itoa(s.Overlap),
	}
}

// Fingerprint returns the embedding parameter fingerprint recorded in
// document metadata at indexing time.
func (s EmbeddingSettings) Fingerprint() map[string]string {
	return map[string]string{
		KeyEmbeddingProvider:   s.Provider,
		KeyEmbeddingModel:      s.Model,
		KeyEmbeddingDimensions: strconv.Itoa(s.Dimensions),
	}
}

// FingerprintMatches compares a stored metadata map against a fingerprint.
// Every fingerprint key must be present and equal.
func FingerprintMatches(metadata map[string]string, fingerprint map[string]string) bool {
	for k, v := range fingerprint {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
