package folders

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers folder routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/containers/:containerId/folders")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("", h.Delete)
}
