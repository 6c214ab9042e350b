package reindex

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/pkg/apperror"
)

// Handler handles HTTP requests for reindexing
type Handler struct {
	svc *Service
}

// NewHandler creates a new reindex handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Reindex handles POST /api/containers/:containerId/reindex
func (h *Handler) Reindex(c echo.Context) error {
	containerID := c.Param("containerId")

	req := Request{DetectSettingsChanges: true}
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	summary, err := h.svc.Reindex(c.Request().Context(), containerID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
