package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the fitment engine
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    prometheus.CounterVec
	HTTPRequestDuration  prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.GaugeVec

	// Mapping store metrics
	MappingMutationsTotal prometheus.CounterVec
	MappingConflictsTotal prometheus.Counter

	// Import pipeline metrics
	ImportRowsTotal prometheus.CounterVec
	ImportDuration  prometheus.Histogram
}

// NewMetricsRegistry initializes and returns a new MetricsRegistry with all metrics
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		HTTPRequestsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitment_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitment_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fitment_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		MappingMutationsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitment_mapping_mutations_total",
				Help: "Total mapping mutations by change kind",
			},
			[]string{"kind"},
		),
		MappingConflictsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fitment_mapping_conflicts_total",
				Help: "Optimistic-concurrency conflicts surfaced to callers",
			},
		),

		ImportRowsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitment_import_rows_total",
				Help: "Total import rows by outcome (created, merged, skipped)",
			},
			[]string{"outcome"},
		),
		ImportDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fitment_import_duration_seconds",
				Help:    "Import pipeline execution time in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
	}
}
