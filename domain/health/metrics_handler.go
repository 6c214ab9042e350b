package health

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corpora-dev/corpora/internal/jobs"
	"github.com/corpora-dev/corpora/internal/metrics"
)

// MetricsHandler exposes service metrics, both as JSON and in Prometheus
// exposition format.
type MetricsHandler struct {
	queue    *jobs.Queue
	registry *prometheus.Registry
}

// NewMetricsHandler creates a new metrics handler and registers the
// queue gauges on the shared registry
func NewMetricsHandler(queue *jobs.Queue, m *metrics.Metrics) *MetricsHandler {
	states := []struct {
		name string
		fn   func(jobs.Stats) int
	}{
		{"queued", func(s jobs.Stats) int { return s.Queued }},
		{"processing", func(s jobs.Stats) int { return s.Processing }},
		{"completed", func(s jobs.Stats) int { return s.Completed }},
		{"failed", func(s jobs.Stats) int { return s.Failed }},
	}
	for _, state := range states {
		fn := state.fn
		m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "corpora",
			Subsystem: "ingest",
			Name:      "jobs_" + state.name,
			Help:      "Number of ingestion jobs in the " + state.name + " state.",
		}, func() float64 { return float64(fn(queue.GetStats())) }))
	}

	m.Registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "corpora",
		Subsystem: "ingest",
		Name:      "queue_depth",
		Help:      "Jobs currently waiting in the queue buffer.",
	}, func() float64 { return float64(queue.Len()) }))

	return &MetricsHandler{
		queue:    queue,
		registry: m.Registry,
	}
}

// Prometheus serves the exposition endpoint
func (h *MetricsHandler) Prometheus() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
}

// JobMetrics returns the queue counters as JSON
func (h *MetricsHandler) JobMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"jobs":       h.queue.GetStats(),
		"queueDepth": h.queue.Len(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
