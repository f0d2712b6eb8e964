package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification engine.
type Metrics struct {
	// Provider calls by provider and outcome (OK, DEGRADED, SKIPPED)
	ProviderCalls *prometheus.CounterVec

	// Provider call latency by provider
	ProviderLatency *prometheus.HistogramVec

	// Evidence items accepted by kind
	EvidenceIngested *prometheus.CounterVec

	// Final statuses reached by Process and reviewer actions
	DecisionOutcome *prometheus.CounterVec

	// Full Process latency
	ProcessLatency prometheus.Histogram

	// UKN draws that hit an existing number
	UKNCollisions prometheus.Counter

	// Circuit breakers opening, by provider
	BreakerOpened *prometheus.CounterVec
}

// New registers the engine metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onekyc_provider_calls_total",
			Help: "External provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),

		ProviderLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "onekyc_provider_duration_seconds",
			Help:    "Duration of external provider calls",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),

		EvidenceIngested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onekyc_evidence_ingested_total",
			Help: "Evidence items attached to cases by kind",
		}, []string{"kind"}),

		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onekyc_decision_outcomes_total",
			Help: "Case outcomes by status and actor type",
		}, []string{"status", "actor"}), // actor: "system", "reviewer"

		ProcessLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "onekyc_process_duration_seconds",
			Help:    "Duration of the automated verification pipeline",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		UKNCollisions: f.NewCounter(prometheus.CounterOpts{
			Name: "onekyc_ukn_collisions_total",
			Help: "Generated verification numbers that were already taken",
		}),

		BreakerOpened: f.NewCounterVec(prometheus.CounterOpts{
			Name: "onekyc_provider_breaker_opened_total",
			Help: "Circuit breaker openings by provider",
		}, []string{"provider"}),
	}
}

func (m *Metrics) ObserveProviderCall(provider, outcome string, d time.Duration) {
	if m != nil {
		m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
		m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementProviderSkipped(provider string) {
	if m != nil {
		m.ProviderCalls.WithLabelValues(provider, "SKIPPED").Inc()
	}
}

func (m *Metrics) IncrementEvidence(kind string) {
	if m != nil {
		m.EvidenceIngested.WithLabelValues(kind).Inc()
	}
}

// IncrementOutcome records a case reaching status.
func (m *Metrics) IncrementOutcome(status, actor string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(status, actor).Inc()
	}
}

func (m *Metrics) ObserveProcessLatency(d time.Duration) {
	if m != nil {
		m.ProcessLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementUKNCollision() {
	if m != nil {
		m.UKNCollisions.Inc()
	}
}

func (m *Metrics) IncrementBreakerOpened(provider string) {
	if m != nil {
		m.BreakerOpened.WithLabelValues(provider).Inc()
	}
}
