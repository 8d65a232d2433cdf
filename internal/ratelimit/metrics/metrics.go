package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions      *prometheus.CounterVec
	TrackedWindows prometheus.Gauge
	SweptWindows   prometheus.Counter
}

// New registers the admission metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shadow_ratelimit_decisions_total",
			Help: "Admission decisions by outcome",
		}, []string{"decision"}),
		TrackedWindows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shadow_ratelimit_tracked_windows",
			Help: "Number of client keys with a rate window in memory",
		}),
		SweptWindows: factory.NewCounter(prometheus.CounterOpts{
			Name: "shadow_ratelimit_swept_windows_total",
			Help: "Expired rate windows removed by housekeeping sweeps",
		}),
	}
}

func (m *Metrics) RecordAllowed() {
	m.Decisions.WithLabelValues("allowed").Inc()
}

func (m *Metrics) RecordRejected() {
	m.Decisions.WithLabelValues("rejected").Inc()
}

func (m *Metrics) SetTrackedWindows(n int) {
	m.TrackedWindows.Set(float64(n))
}

func (m *Metrics) AddSwept(n int) {
	m.SweptWindows.Add(float64(n))
}
