package reindex

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the reindex routes
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	e.POST("/api/containers/:containerId/reindex", handler.Reindex)
}
