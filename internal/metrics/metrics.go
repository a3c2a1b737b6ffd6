// Package metrics exposes prometheus collectors for transitions, policy sync,
// notification delivery and sweeps. A nil *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quotaguard"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeNoop    = "noop"
)

type Metrics struct {
	transitions   *prometheus.CounterVec
	policySync    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sweepAccounts *prometheus.CounterVec
	sweepDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Block state transitions by operation and outcome.",
		}, []string{"operation", "outcome"}),
		policySync: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_sync_total",
			Help:      "Policy document mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and outcome.",
		}, []string{"channel", "outcome"}),
		sweepAccounts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_accounts_total",
			Help:      "Accounts processed by the expiration sweep by pass and outcome.",
		}, []string{"pass", "outcome"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of a full expiration sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

func (m *Metrics) Transition(operation, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) PolicySync(operation string, ok bool) {
	if m == nil {
		return
	}
	m.policySync.WithLabelValues(operation, outcome(ok)).Inc()
}

func (m *Metrics) Notification(channel string, ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, outcome(ok)).Inc()
}

func (m *Metrics) SweepAccount(pass string, ok bool) {
	if m == nil {
		return
	}
	m.sweepAccounts.WithLabelValues(pass, outcome(ok)).Inc()
}

func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}
