package search

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the search routes
func RegisterRoutes(e *echo.Echo, handler *Handler) {
	group := e.Group("/api/containers/:containerId/search")
	group.POST("", handler.Search)
	group.POST("/stream", handler.SearchStream)
}
