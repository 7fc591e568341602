// Package metrics holds the prometheus collectors of the split service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tabsplit"

// Metrics groups every collector the service updates
type Metrics struct {
	SplitsCommitted   *prometheus.CounterVec
	PaymentEvents     *prometheus.CounterVec
	PaymentTimeouts   prometheus.Counter
	BillsReconciled   prometheus.Counter
	ActiveSessions    prometheus.Gauge
	PersistFailures   prometheus.Counter
	FanoutPublished   prometheus.Counter
	FanoutDropped     *prometheus.CounterVec
	FanoutSubscribers prometheus.Gauge
	OutboxPublished   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SplitsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "splits_committed_total",
			Help:      "Split commits by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		PaymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment lifecycle events by type and outcome.",
		}, []string{"type", "outcome"}),
		PaymentTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_timeouts_total",
			Help:      "Processing payments returned to pending by the sweep.",
		}),
		BillsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bills_reconciled_total",
			Help:      "Split sessions that reached full payment.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_in_memory",
			Help:      "Split sessions held by the reconciliation store.",
		}),
		PersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Failed attempts to persist a split session.",
		}),
		FanoutPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_published_total",
			Help:      "Notifications handed to the fanout hub.",
		}),
		FanoutDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_dropped_total",
			Help:      "Notifications dropped, by reason.",
		}, []string{"reason"}),
		FanoutSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fanout_subscribers",
			Help:      "Open room subscriptions.",
		}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages handled by the poller, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.SplitsCommitted,
		m.PaymentEvents,
		m.PaymentTimeouts,
		m.BillsReconciled,
		m.ActiveSessions,
		m.PersistFailures,
		m.FanoutPublished,
		m.FanoutDropped,
		m.FanoutSubscribers,
		m.OutboxPublished,
	)
	return m
}

// NewNop returns collectors registered on a private registry, for tests and tools
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
