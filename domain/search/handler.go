package search

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/sse"
)

// MaxQueryLength caps the accepted query size
const MaxQueryLength = 800

// Handler handles HTTP requests for container-scoped search
type Handler struct {
	svc *Service
}

// NewHandler creates a new search handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Search handles POST /api/containers/:containerId/search
func (h *Handler) Search(c echo.Context) error {
	containerID := c.Param("containerId")

	var req Request
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if len(req.Query) > MaxQueryLength {
		return apperror.ErrBadRequest.WithMessage("query must be 800 characters or less")
	}

	resp, err := h.svc.Search(c.Request().Context(), containerID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// SearchStream handles POST /api/containers/:containerId/search/stream,
// emitting each result as a server-sent event
func (h *Handler) SearchStream(c echo.Context) error {
	containerID := c.Param("containerId")

	var req Request
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	if len(req.Query) > MaxQueryLength {
		return apperror.ErrBadRequest.WithMessage("query must be 800 characters or less")
	}

	writer := sse.NewWriter(c.Response())
	writer.Start()
	defer writer.Close()

	ctx := c.Request().Context()
	err := h.svc.SearchStream(ctx, containerID, &req, func(res *Result) error {
		return writer.WriteEvent("result", res)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		msg := err.Error()
		if appErr, ok := err.(*apperror.Error); ok {
			msg = appErr.Message
		}
		return writer.WriteEvent(string(sse.EventError), map[string]string{"error": msg})
	}

	return writer.WriteEvent(string(sse.EventDone), sse.NewDoneEvent())
}
