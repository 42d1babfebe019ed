// services/metrics.go
package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Metrics wraps the collectors tracking claim engine health.
type Metrics struct {
	claims            *prometheus.CounterVec
	payoutAmount      prometheus.Counter
	capRemaining      prometheus.Gauge
	ownershipFailures prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsRegistry *Metrics
)

// NewMetrics returns the lazily registered process-wide collectors.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = &Metrics{
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "holder_rewards",
				Name:      "claims_total",
				Help:      "Claim attempts segmented by user-visible outcome.",
			}, []string{"outcome"}),
			payoutAmount: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "holder_rewards",
				Name:      "payout_amount_total",
				Help:      "Total reward amount sent to wallets.",
			}),
			capRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "holder_rewards",
				Name:      "cap_remaining",
				Help:      "Remaining daily payout budget after the last reservation.",
			}),
			ownershipFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "holder_rewards",
				Name:      "ownership_check_failures_total",
				Help:      "On-chain ownership lookups that failed and excluded a holding.",
			}),
		}
		prometheus.MustRegister(
			metricsRegistry.claims,
			metricsRegistry.payoutAmount,
			metricsRegistry.capRemaining,
			metricsRegistry.ownershipFailures,
		)
	})
	return metricsRegistry
}

func (m *Metrics) RecordOutcome(outcome Outcome) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) RecordPayout(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.payoutAmount.Add(amount.InexactFloat64())
}

func (m *Metrics) RecordCapRemaining(remaining decimal.Decimal) {
	if m == nil {
		return
	}
	m.capRemaining.Set(remaining.InexactFloat64())
}

func (m *Metrics) RecordOwnershipFailure() {
	if m == nil {
		return
	}
	m.ownershipFailures.Inc()
}
