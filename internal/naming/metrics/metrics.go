package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions   *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shadow_naming_transitions_total",
			Help: "Domain state transitions by kind and result",
		}, []string{"kind", "result"}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shadow_naming_store_duration_seconds",
			Help:    "Latency of naming operations against the document store",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncTransition(kind, result string) {
	m.Transitions.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveStore(operation string, start time.Time) {
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
