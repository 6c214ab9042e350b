// Package jobs provides the in-memory ingestion job queue: a bounded FIFO
// of pending work plus thread-safe registries for job status and per-job
// cancellation. Workers drain the queue; the broadcaster observes the
// status registry and publishes throttled progress updates.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/corpora-dev/corpora/pkg/logger"
)

// State is the lifecycle state of a job
type State string

const (
	StateQueued     State = "Queued"
	StateProcessing State = "Processing"
	StateCompleted  State = "Completed"
	StateFailed     State = "Failed"
)

// Terminal reports whether a state is absorbing
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Phase is the current step of an in-flight ingestion
type Phase string

const (
	PhaseParsing   Phase = "Parsing"
	PhaseChunking  Phase = "Chunking"
	PhaseEmbedding Phase = "Embedding"
	PhaseStoring   Phase = "Storing"
	PhaseComplete  Phase = "Complete"
)

// CancelledMessage is the error message recorded for cancelled jobs
const CancelledMessage = "cancelled"

// IngestionOptions carry the per-document parameters of an ingestion run.
type IngestionOptions struct {
	DocumentID  string            `json:"documentId,omitempty"`
	FileName    string            `json:"fileName,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	ContainerID string            `json:"containerId"`
	Path        string            `json:"path,omitempty"`
	Strategy    string            `json:"strategy,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Job is one unit of ingestion work.
type Job struct {
	JobID      string           `json:"jobId"`
	DocumentID string           `json:"documentId"`
	StorageKey string           `json:"storageKey"`
	Options    IngestionOptions `json:"options"`
	BatchID    string           `json:"batchId,omitempty"`
}

// Status is the observable lifecycle of a job.
type Status struct {
	JobID           string     `json:"jobId"`
	DocumentID      string     `json:"documentId"`
	State           State      `json:"state"`
	CurrentPhase    Phase      `json:"currentPhase,omitempty"`
	PercentComplete float64    `json:"percentComplete"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Stats summarizes the status registry.
type Stats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DefaultCapacity bounds the queue when no capacity is configured
const DefaultCapacity = 1000

// Queue is a bounded FIFO of ingestion jobs. Enqueue blocks when full and
// Dequeue blocks when empty; both release on context cancellation. The
// status and cancel registries are owned by the queue so that cancellation
// by document id can reach both queued and in-flight jobs.
type Queue struct {
	jobs chan Job
	log  *slog.Logger

	mu             sync.Mutex
	statuses       map[string]*Status
	cancels        map[string]context.CancelFunc
	dropped        map[string]bool   // queued jobs cancelled before dequeue
	processingDocs map[string]string // documentID -> jobID
}

// NewQueue creates a queue with the given capacity
func NewQueue(capacity int, log *slog.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		jobs:           make(chan Job, capacity),
		log:            log.With(logger.Scope("jobs.queue")),
		statuses:       make(map[string]*Status),
		cancels:        make(map[string]context.CancelFunc),
		dropped:        make(map[string]bool),
		processingDocs: make(map[string]string),
	}
}

// Enqueue registers the job as Queued and offers it to the queue,
// blocking while the queue is full.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	q.statuses[job.JobID] = &Status{
		JobID:      job.JobID,
		DocumentID: job.DocumentID,
		State:      StateQueued,
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		delete(q.statuses, job.JobID)
		q.mu.Unlock()
		return ctx.Err()
	}
}

// Dequeue blocks until a job is available, skipping jobs cancelled while
// queued. ok is false when the context is done. The job stays Queued
// until AcquireDocument grants it the per-document slot, so no two jobs
// for one document ever report Processing at the same time.
func (q *Queue) Dequeue(ctx context.Context) (Job, bool) {
	for {
		select {
		case job := <-q.jobs:
			q.mu.Lock()
			if q.dropped[job.JobID] {
				delete(q.dropped, job.JobID)
				q.mu.Unlock()
				continue
			}
			q.mu.Unlock()
			return job, true
		case <-ctx.Done():
			return Job{}, false
		}
	}
}

// GetStatus returns a snapshot of one job's status
func (q *Queue) GetStatus(jobID string) (Status, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.statuses[jobID]
	if !ok {
		return Status{}, false
	}
	return *st, true
}

// Snapshot returns a copy of every tracked status
func (q *Queue) Snapshot() []Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Status, 0, len(q.statuses))
	for _, st := range q.statuses {
		out = append(out, *st)
	}
	return out
}

// Update atomically modifies a job's status. completedAt is stamped when
// the job enters a terminal state.
func (q *Queue) Update(jobID string, state State, phase Phase, pct float64, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	st, ok := q.statuses[jobID]
	if !ok {
		return
	}
	if st.State.Terminal() {
		return
	}

	st.State = state
	if phase != "" {
		st.CurrentPhase = phase
	}
	if pct >= 0 {
		st.PercentComplete = pct
	}
	if errMsg != "" {
		st.ErrorMessage = errMsg
	}
	if state.Terminal() {
		now := time.Now().UTC()
		st.CompletedAt = &now
	}
}

// SetProgress updates the phase and percentage of an in-flight job
func (q *Queue) SetProgress(jobID string, phase Phase, pct float64) {
	q.Update(jobID, StateProcessing, phase, pct, "")
}

// RegisterCancel associates a cancellation handle with an in-flight job
func (q *Queue) RegisterCancel(jobID string, cancel context.CancelFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancels[jobID] = cancel
}

// UnregisterCancel removes a job's cancellation handle
func (q *Queue) UnregisterCancel(jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.cancels, jobID)
}

// CancelByDocumentID trips the cancellation handle of any in-flight job
// for the document and drops not-yet-dequeued jobs for it. Returns the
// number of jobs affected.
func (q *Queue) CancelByDocumentID(documentID string) int {
	q.mu.Lock()

	cancelled := 0
	var toCancel []context.CancelFunc
	for jobID, st := range q.statuses {
		if st.DocumentID != documentID || st.State.Terminal() {
			continue
		}
		switch st.State {
		case StateQueued:
			q.dropped[jobID] = true
			now := time.Now().UTC()
			st.State = StateFailed
			st.ErrorMessage = CancelledMessage
			st.CompletedAt = &now
			cancelled++
		case StateProcessing:
			if cancel, ok := q.cancels[jobID]; ok {
				toCancel = append(toCancel, cancel)
				cancelled++
			}
		}
	}
	q.mu.Unlock()

	for _, cancel := range toCancel {
		cancel()
	}

	if cancelled > 0 {
		q.log.Info("cancelled jobs for document",
			slog.String("document_id", documentID),
			slog.Int("count", cancelled))
	}
	return cancelled
}

// ErrJobCancelled reports a job cancelled while it waited for its
// per-document slot
var ErrJobCancelled = errors.New("job cancelled while waiting for document")

// AcquireDocument blocks until no other job is processing the document,
// enforcing at-most-one concurrent ingestion per document. The job is
// marked Processing only once the slot is held.
func (q *Queue) AcquireDocument(ctx context.Context, documentID, jobID string) error {
	for {
		q.mu.Lock()
		if st, ok := q.statuses[jobID]; ok && st.State.Terminal() {
			q.mu.Unlock()
			return ErrJobCancelled
		}
		holder, busy := q.processingDocs[documentID]
		if !busy || holder == jobID {
			q.processingDocs[documentID] = jobID
			if st, ok := q.statuses[jobID]; ok {
				now := time.Now().UTC()
				st.State = StateProcessing
				st.CurrentPhase = ""
				st.PercentComplete = 0
				st.StartedAt = &now
			}
			q.mu.Unlock()
			return nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// ReleaseDocument releases the per-document processing slot
func (q *Queue) ReleaseDocument(documentID, jobID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.processingDocs[documentID] == jobID {
		delete(q.processingDocs, documentID)
	}
}

// Cleanup evicts terminal statuses older than maxAge. Returns the number
// of entries removed.
func (q *Queue) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)

	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for jobID, st := range q.statuses {
		if st.CompletedAt != nil && st.CompletedAt.Before(cutoff) {
			delete(q.statuses, jobID)
			delete(q.dropped, jobID)
			removed++
		}
	}

	if removed > 0 {
		q.log.Debug("cleaned up job statuses", slog.Int("removed", removed))
	}
	return removed
}

// GetStats counts statuses by state
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var stats Stats
	for _, st := range q.statuses {
		switch st.State {
		case StateQueued:
			stats.Queued++
		case StateProcessing:
			stats.Processing++
		case StateCompleted:
			stats.Completed++
		case StateFailed:
			stats.Failed++
		}
	}
	return stats
}

// Len returns the number of jobs waiting in the queue
func (q *Queue) Len() int {
	return len(q.jobs)
}
