package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics counts per-client outcomes of the portfolio operators.
type LifecycleMetrics struct {
	outcomes *prometheus.CounterVec
	clients  *prometheus.HistogramVec
}

// NewLifecycleMetrics registers the lifecycle metrics on reg. A nil registerer
// yields a no-op recorder.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_outcomes_total",
		Help:      "Clients processed by portfolio operators, by outcome.",
	}, []string{"operator", "outcome"})
	clients := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_eligible_clients",
		Help:      "Eligible clients found per operator run.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"operator"})
	reg.MustRegister(outcomes, clients)
	return &LifecycleMetrics{outcomes: outcomes, clients: clients}
}

// IncOutcome counts one client outcome for operator.
func (m *LifecycleMetrics) IncOutcome(operator, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(operator), normalizeLabel(outcome)).Inc()
}

// ObserveEligible records the size of an operator's eligible set.
func (m *LifecycleMetrics) ObserveEligible(operator string, count int) {
	if m == nil || m.clients == nil {
		return
	}
	m.clients.WithLabelValues(normalizeLabel(operator)).Observe(float64(count))
}
