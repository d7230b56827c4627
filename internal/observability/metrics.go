package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for an
// ingestion run. They live on a private registry so one process can run the
// pipeline several times (tests, repeated invocations) without collisions.
type Metrics struct {
	RowsRead     prometheus.Counter
	RowsAccepted prometheus.Counter
	RowsRejected *prometheus.CounterVec // labels: reason
	Stage        prometheus.Gauge       // numeric pipeline.Stage
	RunDuration  prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates all pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polling_etl",
			Name:      "rows_read_total",
			Help:      "Total data rows read from the source sheet.",
		}),
		RowsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polling_etl",
			Name:      "rows_accepted_total",
			Help:      "Total rows converted into polling place records.",
		}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polling_etl",
			Name:      "rows_rejected_total",
			Help:      "Total rows rejected by the converter, by reason.",
		}, []string{"reason"}),
		Stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "polling_etl",
			Name:      "pipeline_stage",
			Help:      "Current pipeline stage (0 idle through 7 done, 8 failed).",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "polling_etl",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last completed run.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polling_etl",
			Name:      "geocode_requests_total",
			Help:      "External geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polling_etl",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "polling_etl",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "polling_etl",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding is enabled for the run, 0 otherwise.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.RowsRead,
		m.RowsAccepted,
		m.RowsRejected,
		m.Stage,
		m.RunDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// Gatherer exposes the registry backing these metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the current metric values in the Prometheus text
// format, for pickup by the node_exporter textfile collector. The file is
// replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
