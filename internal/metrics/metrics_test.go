package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Operation("withdraw", "")
		m.Withdrawal("", 10, 1)
		m.Suspicious()
		m.BreakerTripped()
		m.SetPaused(false)
		m.ProposalTransition("approved")
		m.HookTriggered("jitosol", 5)
		m.CrankRun("hooks")
	})
}

func TestWithdrawal(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Withdrawal("", 1000, 3)
	m.Withdrawal("", 500, 1)
	m.Withdrawal("SpendingLimitExceeded", 9000, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.withdrawals.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.withdrawals.WithLabelValues("SpendingLimitExceeded")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.withdrawnAmount))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.feesCollected))
}

func TestBreaker(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Suspicious()
	m.Suspicious()
	m.BreakerTripped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.suspicious))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerTrips))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paused))

	m.SetPaused(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.paused))
}

func TestOperationDefaultsToOK(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Operation("vote", "")
	m.Operation("vote", "ProposalExpired")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("vote", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("vote", "ProposalExpired")))
}

func TestHooksAndProposals(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.HookTriggered("jitosol", 400)
	m.ProposalTransition("executed")
	m.CrankRun("hooks")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.hookTriggers.WithLabelValues("jitosol")))
	assert.Equal(t, 400.0, testutil.ToFloat64(m.deployedAmount.WithLabelValues("jitosol")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.proposals.WithLabelValues("executed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.crankRuns.WithLabelValues("hooks")))
}
