package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts compliance writes. A nil *Metrics records nothing.
type Metrics struct {
	EventsEmitted   *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers compliance audit metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onekyc_audit_compliance_emitted_total",
			Help: "Compliance audit events persisted, by action",
		}, []string{"action"}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "onekyc_audit_compliance_persist_failures_total",
			Help: "Compliance audit events that failed to persist",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "onekyc_audit_compliance_persist_duration_seconds",
			Help:    "Time spent writing compliance audit events",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) emitted(action string, seconds float64) {
	if m == nil {
		return
	}
	m.EventsEmitted.WithLabelValues(action).Inc()
	m.PersistDuration.Observe(seconds)
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}
