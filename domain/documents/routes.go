package documents

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers document routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, uploadHandler *UploadHandler) {
	g := e.Group("/api/containers/:containerId/documents")

	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.GET("/:id/download", h.Download)

	g.POST("", uploadHandler.Upload)
	g.POST("/batch", uploadHandler.UploadBatch)

	g.DELETE("/:id", h.Delete)
}
