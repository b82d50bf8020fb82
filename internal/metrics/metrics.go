// Package metrics exposes Prometheus instrumentation for the ingestion
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	// Latency: how long each source fetch took, including retries.
	FetchDuration *prometheus.HistogramVec

	// Traffic: unified entries produced per source.
	EntriesTotal *prometheus.CounterVec

	// Errors: underlying fetch failures by classification.
	ErrorsTotal *prometheus.CounterVec

	// Saturation: circuit breaker state per source (0=closed, 1=open).
	BreakerState *prometheus.GaugeVec
}

// New registers the collectors with reg.
// When reg is nil a private registry is used, so callers that don't
// export metrics can still pass the result around safely.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FetchDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigil_fetch_duration_seconds",
			Help:    "Histogram of per-source fetch latencies including retries.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source", "status"}),

		EntriesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_entries_total",
			Help: "Total number of unified entries produced.",
		}, []string{"source"}),

		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_fetch_errors_total",
			Help: "Total number of underlying fetch failures by kind.",
		}, []string{"source", "kind"}),

		BreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "vigil_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 0.5=half-open).",
		}, []string{"source"}),
	}
}
