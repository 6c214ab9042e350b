package documents

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/internal/storage"
	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Handler handles document HTTP requests
type Handler struct {
	svc   *Service
	store storage.Store
	log   *slog.Logger
}

// NewHandler creates a new documents handler
func NewHandler(svc *Service, store storage.Store, log *slog.Logger) *Handler {
	return &Handler{
		svc:   svc,
		store: store,
		log:   log.With(logger.Scope("documents.handler")),
	}
}

// List handles GET /api/containers/:containerId/documents
func (h *Handler) List(c echo.Context) error {
	params := ListParams{
		ContainerID: c.Param("containerId"),
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := parsePositiveInt(limitStr, 1, 500)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("limit must be between 1 and 500")
		}
		params.Limit = limit
	}

	if cursorStr := c.QueryParam("cursor"); cursorStr != "" {
		cursor, err := ParseCursor(cursorStr)
		if err != nil {
			return apperror.ErrBadRequest.WithMessage("invalid cursor")
		}
		params.Cursor = cursor
	}

	if statusStr := c.QueryParam("status"); statusStr != "" {
		status := Status(statusStr)
		switch status {
		case StatusPending, StatusProcessing, StatusReady, StatusFailed:
			params.Status = &status
		default:
			return apperror.ErrBadRequest.WithMessage("invalid status filter")
		}
	}

	if prefix := c.QueryParam("path"); prefix != "" {
		params.PathPrefix = prefix
	}

	result, err := h.svc.List(c.Request().Context(), params)
	if err != nil {
		return err
	}

	if result.NextCursor != nil {
		c.Response().Header().Set("x-next-cursor", *result.NextCursor)
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID handles GET /api/containers/:containerId/documents/:id
func (h *Handler) GetByID(c echo.Context) error {
	documentID := c.Param("id")
	if documentID == "" {
		return apperror.ErrBadRequest.WithMessage("document id required")
	}

	doc, err := h.svc.GetByID(c.Request().Context(), c.Param("containerId"), documentID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, doc)
}

// Download handles GET /api/containers/:containerId/documents/:id/download.
// Streams the original bytes from the content store.
func (h *Handler) Download(c echo.Context) error {
	documentID := c.Param("id")
	if documentID == "" {
		return apperror.ErrBadRequest.WithMessage("document id required")
	}

	doc, err := h.svc.GetByID(c.Request().Context(), c.Param("containerId"), documentID)
	if err != nil {
		return err
	}
	if doc.StorageKey == "" {
		return apperror.ErrNotFound.WithMessage("No original file stored for this document")
	}

	reader, err := h.store.Open(c.Request().Context(), doc.StorageKey)
	if err != nil {
		return apperror.ErrStorage.WithInternal(err)
	}
	defer reader.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, doc.FileName))

	return c.Stream(http.StatusOK, contentType, reader)
}

// Delete handles DELETE /api/containers/:containerId/documents/:id
func (h *Handler) Delete(c echo.Context) error {
	documentID := c.Param("id")
	if documentID == "" {
		return apperror.ErrBadRequest.WithMessage("document id required")
	}

	response, err := h.svc.Delete(c.Request().Context(), c.Param("containerId"), documentID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, response)
}

// parsePositiveInt parses a string as an int and validates it's within bounds
func parsePositiveInt(s string, min, max int) (int, error) {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, apperror.ErrBadRequest
		}
		n = n*10 + int(c-'0')
		if n > max {
			return 0, apperror.ErrBadRequest
		}
	}
	if n < min {
		return 0, apperror.ErrBadRequest
	}
	return n, nil
}
