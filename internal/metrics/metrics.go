// Package metrics exposes Prometheus instrumentation for ingest runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "census_contrib"

// Metrics owns a private registry so several runs (and tests) never collide
// on the global default registerer.
type Metrics struct {
	registry *prometheus.Registry

	// Per-iterator item latency
	iteratorItemDuration *prometheus.HistogramVec
	iteratorItemsTotal   *prometheus.CounterVec

	// Ingest run metrics
	ingestRunsTotal   *prometheus.CounterVec
	ingestRowsTotal   *prometheus.CounterVec
	ingestRunDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		iteratorItemDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "iterator_item_duration_seconds",
				Help:      "Time taken by an iterator to produce one item",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"iterator"},
		),
		iteratorItemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "iterator_items_total",
				Help:      "Total number of items produced by an iterator",
			},
			[]string{"iterator"},
		),
		ingestRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "ingest_runs_total",
				Help:      "Total number of ingest runs",
			},
			[]string{"source", "status"}, // status: success, error
		),
		ingestRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "ingest_rows_total",
				Help:      "Total number of embedding rows written",
			},
			[]string{"source"},
		),
		ingestRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "ingest_run_duration_seconds",
				Help:      "Ingest run duration in seconds",
				Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900, 3600},
			},
			[]string{"source"},
		),
	}

	m.registry.MustRegister(
		m.iteratorItemDuration,
		m.iteratorItemsTotal,
		m.ingestRunsTotal,
		m.ingestRowsTotal,
		m.ingestRunDuration,
	)

	return m
}

// IteratorObserver returns an observer that records item latency for the
// named iterator. It plugs into timing.WithObserver.
func (m *Metrics) IteratorObserver(name string) prometheus.Observer {
	hist := m.iteratorItemDuration.WithLabelValues(name)
	items := m.iteratorItemsTotal.WithLabelValues(name)
	return prometheus.ObserverFunc(func(seconds float64) {
		hist.Observe(seconds)
		items.Inc()
	})
}

// ObserveRun records the outcome of one ingest run.
func (m *Metrics) ObserveRun(source string, rows int, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ingestRunsTotal.WithLabelValues(source, status).Inc()
	m.ingestRowsTotal.WithLabelValues(source).Add(float64(rows))
	m.ingestRunDuration.WithLabelValues(source).Observe(seconds)
}

// Gatherer returns the registry backing these metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
