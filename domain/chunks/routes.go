package chunks

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the chunks routes
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	e.GET("/api/containers/:containerId/documents/:id/chunks", handler.ListByDocument)
}
