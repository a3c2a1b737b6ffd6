package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCountByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transition("BLOCK", OutcomeSuccess)
	m.Transition("BLOCK", OutcomeSuccess)
	m.PolicySync("add_deny", false)
	m.Notification("primary", true)
	m.SweepAccount("expire", true)
	m.ObserveSweep(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("BLOCK", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.policySync.WithLabelValues("add_deny", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("primary", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepAccounts.WithLabelValues("expire", OutcomeSuccess)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweepDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Transition("BLOCK", OutcomeSuccess)
		m.PolicySync("remove_deny", true)
		m.Notification("fallback", false)
		m.SweepAccount("protection", false)
		m.ObserveSweep(time.Second)
	})
}
