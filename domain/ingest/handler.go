package ingest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/domain/documents"
	"github.com/corpora-dev/corpora/internal/jobs"
	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/sse"
)

// Handler exposes job status, queue stats and the progress event stream
type Handler struct {
	queue       *jobs.Queue
	broadcaster *jobs.Broadcaster
	docs        *documents.Repository
	log         *slog.Logger
}

// NewHandler creates a new ingest handler
func NewHandler(queue *jobs.Queue, broadcaster *jobs.Broadcaster, docs *documents.Repository, log *slog.Logger) *Handler {
	return &Handler{
		queue:       queue,
		broadcaster: broadcaster,
		docs:        docs,
		log:         log.With(logger.Scope("ingest.handler")),
	}
}

// List handles GET /api/jobs
func (h *Handler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"jobs": h.queue.Snapshot(),
	})
}

// GetByID handles GET /api/jobs/:jobId
func (h *Handler) GetByID(c echo.Context) error {
	status, ok := h.queue.GetStatus(c.Param("jobId"))
	if !ok {
		return apperror.ErrJobNotFound
	}
	return c.JSON(http.StatusOK, status)
}

// Stats handles GET /api/jobs/stats
func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.queue.GetStats())
}

// Stream handles GET /api/jobs/:jobId/stream. It subscribes to the
// broadcaster and relays progress events until the job reaches a terminal
// state or the client disconnects.
func (h *Handler) Stream(c echo.Context) error {
	jobID := c.Param("jobId")
	if _, ok := h.queue.GetStatus(jobID); !ok {
		return apperror.ErrJobNotFound
	}

	updates, unsubscribe := h.broadcaster.Subscribe(jobID)
	defer unsubscribe()

	writer := sse.NewWriter(c.Response())
	if err := writer.Start(); err != nil {
		return err
	}
	defer writer.Close()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if err := h.writeStatus(ctx, writer, st); err != nil {
				return nil
			}
			if st.State.Terminal() {
				_ = writer.WriteEvent(string(sse.EventDone), sse.NewDoneEvent())
				return nil
			}
		}
	}
}

// writeStatus maps a job status onto the SSE event vocabulary
func (h *Handler) writeStatus(ctx context.Context, writer *sse.Writer, st jobs.Status) error {
	switch st.State {
	case jobs.StateCompleted:
		chunkCount := 0
		if doc, err := h.docs.GetByID(ctx, st.DocumentID); err == nil && doc != nil {
			chunkCount = doc.ChunkCount
		}
		return writer.WriteEvent(string(sse.EventCompleted),
			sse.NewCompletedEvent(st.JobID, st.DocumentID, chunkCount))
	case jobs.StateFailed:
		return writer.WriteEvent(string(sse.EventError),
			sse.NewErrorEvent(st.JobID, st.ErrorMessage))
	default:
		return writer.WriteEvent(string(sse.EventProgress),
			sse.NewProgressEvent(st.JobID, st.DocumentID, string(st.CurrentPhase), st.PercentComplete, ""))
	}
}
