package sse

import (
	"testing"
)

func TestNewProgressEvent(t *testing.T) {
	tests := []struct {
		name     string
		jobID    string
		docID    string
		stage    string
		progress float64
		message  string
	}{
		{
			name:     "parsing stage",
			jobID:    "job-123",
			docID:    "doc-456",
			stage:    "parsing",
			progress: 0.1,
			message:  "",
		},
		{
			name:     "embedding stage with message",
			jobID:    "job-123",
			docID:    "doc-456",
			stage:    "embedding",
			progress: 0.6,
			message:  "batch 3/5",
		},
		{
			name:     "zero progress",
			jobID:    "job-abc",
			docID:    "doc-def",
			stage:    "pending",
			progress: 0,
			message:  "",
		},
		{
			name:     "full progress",
			jobID:    "550e8400-e29b-41d4-a716-446655440000",
			docID:    "doc-1",
			stage:    "persisting",
			progress: 1.0,
			message:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewProgressEvent(tt.jobID, tt.docID, tt.stage, tt.progress, tt.message)

			if event.Type != string(EventProgress) {
				t.Errorf("Type = %q, want %q", event.Type, string(EventProgress))
			}
			if event.JobID != tt.jobID {
				t.Errorf("JobID = %q, want %q", event.JobID, tt.jobID)
			}
			if event.DocumentID != tt.docID {
				t.Errorf("DocumentID = %q, want %q", event.DocumentID, tt.docID)
			}
			if event.Stage != tt.stage {
				t.Errorf("Stage = %q, want %q", event.Stage, tt.stage)
			}
			if event.Progress != tt.progress {
				t.Errorf("Progress = %v, want %v", event.Progress, tt.progress)
			}
			if event.Message != tt.message {
				t.Errorf("Message = %q, want %q", event.Message, tt.message)
			}
		})
	}
}

func TestNewCompletedEvent(t *testing.T) {
	tests := []struct {
		name       string
		jobID      string
		docID      string
		chunkCount int
	}{
		{
			name:       "typical completion",
			jobID:      "job-123",
			docID:      "doc-456",
			chunkCount: 42,
		},
		{
			name:       "empty document",
			jobID:      "job-789",
			docID:      "doc-000",
			chunkCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewCompletedEvent(tt.jobID, tt.docID, tt.chunkCount)

			if event.Type != string(EventCompleted) {
				t.Errorf("Type = %q, want %q", event.Type, string(EventCompleted))
			}
			if event.JobID != tt.jobID {
				t.Errorf("JobID = %q, want %q", event.JobID, tt.jobID)
			}
			if event.DocumentID != tt.docID {
				t.Errorf("DocumentID = %q, want %q", event.DocumentID, tt.docID)
			}
			if event.ChunkCount != tt.chunkCount {
				t.Errorf("ChunkCount = %d, want %d", event.ChunkCount, tt.chunkCount)
			}
		})
	}
}

func TestNewErrorEvent(t *testing.T) {
	tests := []struct {
		name   string
		jobID  string
		errMsg string
	}{
		{
			name:   "simple error message",
			jobID:  "job-123",
			errMsg: "something went wrong",
		},
		{
			name:   "empty error message",
			jobID:  "job-456",
			errMsg: "",
		},
		{
			name:   "detailed error message",
			jobID:  "job-789",
			errMsg: "error: embedding provider unavailable: timeout after 30s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := NewErrorEvent(tt.jobID, tt.errMsg)

			if event.Type != string(EventError) {
				t.Errorf("Type = %q, want %q", event.Type, string(EventError))
			}
			if event.JobID != tt.jobID {
				t.Errorf("JobID = %q, want %q", event.JobID, tt.jobID)
			}
			if event.Error != tt.errMsg {
				t.Errorf("Error = %q, want %q", event.Error, tt.errMsg)
			}
		})
	}
}

func TestNewDoneEvent(t *testing.T) {
	event := NewDoneEvent()

	if event.Type != string(EventDone) {
		t.Errorf("Type = %q, want %q", event.Type, string(EventDone))
	}
}

func TestIngestEventTypeConstants(t *testing.T) {
	// Verify constants have expected values
	tests := []struct {
		name     string
		constant IngestEventType
		expected string
	}{
		{"EventProgress", EventProgress, "progress"},
		{"EventCompleted", EventCompleted, "completed"},
		{"EventError", EventError, "error"},
		{"EventDone", EventDone, "done"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, string(tt.constant), tt.expected)
			}
		})
	}
}
