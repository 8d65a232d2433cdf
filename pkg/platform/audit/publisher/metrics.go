package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Emitted prometheus.Counter
	Dropped prometheus.Counter
	Failed  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "shadow_audit_events_emitted_total",
			Help: "Audit events accepted by the publisher",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "shadow_audit_events_dropped_total",
			Help: "Audit events dropped because the async buffer was full",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "shadow_audit_events_failed_total",
			Help: "Audit appends that returned an error, inline or from the async worker",
		}),
	}
}

// Nil receivers are allowed so the publisher works without metrics.

func (m *Metrics) incEmitted() {
	if m != nil {
		m.Emitted.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

func (m *Metrics) incFailed() {
	if m != nil {
		m.Failed.Inc()
	}
}
