package settings

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers settings routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/settings")
	g.GET("", h.GetAll)
	g.GET("/:category", h.GetCategory)
	g.PUT("/:category", h.Update)
}
