package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "markethub"

// Metrics groups the collectors emitted by the settlement core.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	checkoutOutcomes  *prometheus.CounterVec
	checkoutDuration  prometheus.Histogram
	stockDecrements   *prometheus.CounterVec
	grantChanges      *prometheus.CounterVec
	permissionResults *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkoutOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checkout_store_outcomes_total",
				Help:      "Per-store checkout outcomes by result kind.",
			},
			[]string{"outcome"},
		),
		checkoutDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "checkout_duration_seconds",
				Help:      "Duration of a whole checkout call in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		stockDecrements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stock_decrements_total",
				Help:      "Conditional stock decrements by result.",
			},
			[]string{"result"},
		),
		grantChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_grant_changes_total",
				Help:      "Access grant mutations by action.",
			},
			[]string{"action"},
		),
		permissionResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "permission_decisions_total",
				Help:      "Permission resolver decisions.",
			},
			[]string{"decision"},
		),
	}
	reg.MustRegister(m.checkoutOutcomes, m.checkoutDuration, m.stockDecrements, m.grantChanges, m.permissionResults)
	return m
}

func (m *Metrics) CheckoutStore(outcome string) {
	if m == nil {
		return
	}
	m.checkoutOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CheckoutDuration(start time.Time) {
	if m == nil {
		return
	}
	m.checkoutDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) StockDecrement(result string) {
	if m == nil {
		return
	}
	m.stockDecrements.WithLabelValues(result).Inc()
}

func (m *Metrics) GrantChange(action string) {
	if m == nil {
		return
	}
	m.grantChanges.WithLabelValues(action).Inc()
}

func (m *Metrics) PermissionDecision(allowed bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.permissionResults.WithLabelValues(decision).Inc()
}
