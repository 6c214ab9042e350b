package chunks

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/domain/documents"
	"github.com/corpora-dev/corpora/pkg/apperror"
)

// Handler handles HTTP requests for chunks
type Handler struct {
	svc  *Service
	docs *documents.Service
}

// NewHandler creates a new chunks handler
func NewHandler(svc *Service, docs *documents.Service) *Handler {
	return &Handler{svc: svc, docs: docs}
}

// ListByDocument handles GET /api/containers/:containerId/documents/:id/chunks
func (h *Handler) ListByDocument(c echo.Context) error {
	documentID := c.Param("id")
	if documentID == "" {
		return apperror.ErrBadRequest.WithMessage("document id required")
	}

	// Verify the document exists inside this container before listing
	if _, err := h.docs.GetByID(c.Request().Context(), c.Param("containerId"), documentID); err != nil {
		return err
	}

	response, err := h.svc.ListByDocument(c.Request().Context(), documentID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, response)
}
