package reindex

// Reason explains why a document was or was not re-enqueued
type Reason string

const (
	ReasonForced                   Reason = "Forced"
	ReasonFileNotFound             Reason = "FileNotFound"
	ReasonError                    Reason = "Error"
	ReasonContentChanged           Reason = "ContentChanged"
	ReasonChunkingSettingsChanged  Reason = "ChunkingSettingsChanged"
	ReasonEmbeddingSettingsChanged Reason = "EmbeddingSettingsChanged"
	ReasonNeverIndexed             Reason = "NeverIndexed"
	ReasonUnchanged                Reason = "Unchanged"
)

// Request is the reindex request body
type Request struct {
	Force                 bool   `json:"force,omitempty"`
	DetectSettingsChanges bool   `json:"detectSettingsChanges,omitempty"`
	StrategyOverride      string `json:"strategyOverride,omitempty"`
}

// DocumentDecision records the outcome for one document in a batch
type DocumentDecision struct {
	DocumentID string `json:"documentId"`
	FileName   string `json:"fileName"`
	Reason     Reason `json:"reason"`
	Enqueued   bool   `json:"enqueued"`
	JobID      string `json:"jobId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Summary is the reindex response for a container
type Summary struct {
	BatchID        string             `json:"batchId"`
	TotalDocuments int                `json:"totalDocuments"`
	EnqueuedCount  int                `json:"enqueuedCount"`
	SkippedCount   int                `json:"skippedCount"`
	FailedCount    int                `json:"failedCount"`
	ReasonCounts   map[Reason]int     `json:"reasonCounts"`
	Documents      []DocumentDecision `json:"documents"`
}
