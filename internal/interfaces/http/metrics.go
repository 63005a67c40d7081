package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRegistry holds the Prometheus collectors exposed at /metrics.
// Collectors register into a per-instance registry so building a second
// MetricsRegistry (tests, repeated wiring) never collides with the first.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RecalculateDuration *prometheus.HistogramVec
	RecalculateTotal    *prometheus.CounterVec
	PipelineConfidence  *prometheus.GaugeVec
}

// NewMetricsRegistry builds and registers the scoring engine's collectors.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),
		RecalculateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dealscore_recalculate_duration_seconds",
				Help:    "Duration of a single deal recalculation.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"trigger_source", "result"},
		),
		RecalculateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealscore_recalculate_total",
				Help: "Total recalculations by trigger source and result.",
			},
			[]string{"trigger_source", "result"},
		),
		PipelineConfidence: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dealscore_pipeline_average_confidence",
				Help: "Average confidence score per pipeline bucket.",
			},
			[]string{"bucket"},
		),
	}

	m.registry.MustRegister(
		m.RecalculateDuration,
		m.RecalculateTotal,
		m.PipelineConfidence,
	)

	return m
}

// Handler returns the promhttp handler for the /metrics route.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
