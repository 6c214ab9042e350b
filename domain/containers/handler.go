package containers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Handler handles container HTTP requests
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates a new containers handler
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log.With(logger.Scope("containers.handler")),
	}
}

// List handles GET /api/containers
func (h *Handler) List(c echo.Context) error {
	result, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetByID handles GET /api/containers/:id
func (h *Handler) GetByID(c echo.Context) error {
	containerID := c.Param("id")
	if containerID == "" {
		return apperror.ErrBadRequest.WithMessage("container id required")
	}

	container, err := h.svc.Resolve(c.Request().Context(), containerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, container)
}

// Create handles POST /api/containers
func (h *Handler) Create(c echo.Context) error {
	var req CreateContainerRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	container, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, container)
}

// Update handles PATCH /api/containers/:id
func (h *Handler) Update(c echo.Context) error {
	containerID := c.Param("id")
	if containerID == "" {
		return apperror.ErrBadRequest.WithMessage("container id required")
	}

	var req UpdateContainerRequest
	if err := c.Bind(&req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}

	container, err := h.svc.Update(c.Request().Context(), containerID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, container)
}

// Delete handles DELETE /api/containers/:id
func (h *Handler) Delete(c echo.Context) error {
	containerID := c.Param("id")
	if containerID == "" {
		return apperror.ErrBadRequest.WithMessage("container id required")
	}

	if err := h.svc.Delete(c.Request().Context(), containerID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResponse{Status: "deleted"})
}
