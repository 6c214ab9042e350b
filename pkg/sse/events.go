package sse

// IngestEventType represents the type of SSE event in an ingestion progress stream.
type IngestEventType string

const (
	// EventProgress is emitted on each stage transition or progress update.
	EventProgress IngestEventType = "progress"

	// EventCompleted is emitted when a job finishes successfully.
	EventCompleted IngestEventType = "completed"

	// EventError is emitted when a job fails.
	EventError IngestEventType = "error"

	// EventDone is the final event, signaling end of stream.
	EventDone IngestEventType = "done"
)

// ProgressEvent reports the current stage of an ingestion job.
type ProgressEvent struct {
	Type       string  `json:"type"`
	JobID      string  `json:"jobId"`
	DocumentID string  `json:"documentId"`
	Stage      string  `json:"stage"`
	Progress   float64 `json:"progress"`
	Message    string  `json:"message,omitempty"`
}

// NewProgressEvent creates a new progress event.
func NewProgressEvent(jobID, documentID, stage string, progress float64, message string) ProgressEvent {
	return ProgressEvent{
		Type:       string(EventProgress),
		JobID:      jobID,
		DocumentID: documentID,
		Stage:      stage,
		Progress:   progress,
		Message:    message,
	}
}

// CompletedEvent is emitted when a job finishes successfully.
type CompletedEvent struct {
	Type       string `json:"type"`
	JobID      string `json:"jobId"`
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
}

// NewCompletedEvent creates a new completed event.
func NewCompletedEvent(jobID, documentID string, chunkCount int) CompletedEvent {
	return CompletedEvent{
		Type:       string(EventCompleted),
		JobID:      jobID,
		DocumentID: documentID,
		ChunkCount: chunkCount,
	}
}

// ErrorEvent is emitted when a job fails.
type ErrorEvent struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
	Error string `json:"error"`
}

// NewErrorEvent creates a new error event.
func NewErrorEvent(jobID, errMsg string) ErrorEvent {
	return ErrorEvent{
		Type:  string(EventError),
		JobID: jobID,
		Error: errMsg,
	}
}

// DoneEvent is the final event signaling end of stream.
type DoneEvent struct {
	Type string `json:"type"`
}

// NewDoneEvent creates a new done event.
func NewDoneEvent() DoneEvent {
	return DoneEvent{
		Type: string(EventDone),
	}
}
