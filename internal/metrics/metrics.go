// Package metrics holds the process-wide Prometheus registry and the
// counters incremented by the ingestion and search paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

// Module provides the metrics registry via fx
var Module = fx.Module("metrics",
	fx.Provide(New),
)

// Metrics bundles the registry with the service counters
type Metrics struct {
	Registry *prometheus.Registry

	DocumentsIngested prometheus.Counter
	ChunksStored      prometheus.Counter
	SearchesServed    prometheus.Counter
}

// New creates the registry with runtime collectors and service counters
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: registry,
		DocumentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpora",
			Subsystem: "ingest",
			Name:      "documents_ingested_total",
			Help:      "Documents that completed ingestion successfully.",
		}),
		ChunksStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpora",
			Subsystem: "ingest",
			Name:      "chunks_stored_total",
			Help:      "Chunks persisted across all ingestion runs.",
		}),
		SearchesServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corpora",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests served.",
		}),
	}
	registry.MustRegister(m.DocumentsIngested, m.ChunksStored, m.SearchesServed)
	return m
}
