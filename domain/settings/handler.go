package settings

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/corpora-dev/corpora/pkg/apperror"
	"github.com/corpora-dev/corpora/pkg/logger"
)

// Handler handles settings HTTP requests
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log.With(logger.Scope("settings.handler")),
	}
}

// GetAll handles GET /api/settings
func (h *Handler) GetAll(c echo.Context) error {
	snap := h.svc.Snapshot()
	return c.JSON(http.StatusOK, snap)
}

// GetCategory handles GET /api/settings/:category
func (h *Handler) GetCategory(c echo.Context) error {
	category := c.Param("category")

	value, err := h.svc.Category(category)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, value)
}

// Update handles PUT /api/settings/:category
func (h *Handler) Update(c echo.Context) error {
	category := c.Param("category")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return apperror.ErrBadRequest.WithMessage("failed to read request body")
	}
	if !json.Valid(body) {
		return apperror.ErrBadRequest.WithMessage("request body must be valid JSON")
	}

	snap, err := h.svc.Update(c.Request().Context(), category, body)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, snap)
}
