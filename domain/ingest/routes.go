package ingest

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers the job status routes
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api/jobs")

	g.GET("", h.List)
	g.GET("/stats", h.Stats)
	g.GET("/:jobId", h.GetByID)
	g.GET("/:jobId/stream", h.Stream)
}
