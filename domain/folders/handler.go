package folders

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Handler handles folder HTTP requests
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates a new folders handler
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log.With(logger.Scope("folders.handler")),
	}
}

// List handles GET /api/containers/:containerId/folders
func (h *Handler) List(c echo.Context) error {
	containerID := c.Param("containerId")
	if containerID == "" {
		return apperror.ErrBadRequest.WithMessage("container id required")
	}

	result, err := h.svc.List(c.Request().Context(), containerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Create handles POST /api/containers/:containerId/folders
func (h *Handler) Create(c echo.Context) error {
	containerID := c.Param("containerId")
	if containerID == "" {
		return apperror.ErrBadRequest.WithMessage("container id required")
	}

	var req CreateFolderRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	folder, err := h.svc.Create(c.Request().Context(), containerID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, folder)
}

// Delete handles DELETE /api/containers/:containerId/folders?path=/reports/
func (h *Handler) Delete(c echo.Context) error {
	containerID := c.Param("containerId")
	if containerID == "" {
		return apperror.ErrBadRequest.WithMessage("container id required")
	}

	path := c.QueryParam("path")
	if path == "" {
		return apperror.ErrBadRequest.WithMessage("path query parameter required")
	}

	result, err := h.svc.Delete(c.Request().Context(), containerID, path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
