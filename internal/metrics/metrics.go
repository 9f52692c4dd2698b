// Package metrics exposes Prometheus instruments for the NeoBank engines.
//
// A nil *Metrics is valid and records nothing, so engines and tests that
// do not care about metrics pass nil.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "neobank"

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds every instrument. Build it with New.
type Metrics struct {
	operations      *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	withdrawnAmount prometheus.Counter
	feesCollected   prometheus.Counter
	suspicious      prometheus.Counter
	breakerTrips    prometheus.Counter
	paused          prometheus.Gauge
	proposals       *prometheus.CounterVec
	hookTriggers    *prometheus.CounterVec
	deployedAmount  *prometheus.CounterVec
	crankRuns       *prometheus.CounterVec
}

// New registers the instruments with reg. Pass prometheus.NewRegistry() in
// tests to avoid collisions on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Engine operations by name and error code",
		}, []string{"operation", "code"}),
		withdrawals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "requests_total",
			Help:      "Withdrawal requests by outcome code",
		}, []string{"code"}),
		withdrawnAmount: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "amount_total",
			Help:      "Gross amount withdrawn in base units",
		}),
		feesCollected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "withdrawal",
			Name:      "fees_total",
			Help:      "Fees moved to the treasury in base units",
		}),
		suspicious: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "suspicious_total",
			Help:      "Withdrawals refused for a blocked destination",
		}),
		breakerTrips: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "trips_total",
			Help:      "Number of times the circuit breaker paused the bank",
		}),
		paused: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "paused",
			Help:      "1 while the bank is paused",
		}),
		proposals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governance",
			Name:      "proposal_transitions_total",
			Help:      "Proposal status transitions by resulting status",
		}, []string{"status"}),
		hookTriggers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "triggers_total",
			Help:      "Successful hook triggers by protocol",
		}, []string{"protocol"}),
		deployedAmount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hooks",
			Name:      "deployed_amount_total",
			Help:      "Amount dispatched to yield connectors by protocol",
		}, []string{"protocol"}),
		crankRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crank",
			Name:      "runs_total",
			Help:      "Crank passes by job",
		}, []string{"job"}),
	}
}

// Operation records one engine operation. code is "" on success.
func (m *Metrics) Operation(name, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = OutcomeOK
	}
	m.operations.WithLabelValues(name, code).Inc()
}

// Withdrawal records a withdrawal outcome. code is "" on success.
func (m *Metrics) Withdrawal(code string, amount, fee uint64) {
	if m == nil {
		return
	}
	if code == "" {
		m.withdrawals.WithLabelValues(OutcomeOK).Inc()
		m.withdrawnAmount.Add(float64(amount))
		m.feesCollected.Add(float64(fee))
		return
	}
	m.withdrawals.WithLabelValues(code).Inc()
}

// Suspicious records a blocked destination.
func (m *Metrics) Suspicious() {
	if m == nil {
		return
	}
	m.suspicious.Inc()
}

// BreakerTripped records an automatic pause.
func (m *Metrics) BreakerTripped() {
	if m == nil {
		return
	}
	m.breakerTrips.Inc()
	m.paused.Set(1)
}

// SetPaused mirrors the bank's pause flag.
func (m *Metrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.paused.Set(1)
		return
	}
	m.paused.Set(0)
}

// ProposalTransition records a proposal reaching status.
func (m *Metrics) ProposalTransition(status string) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(status).Inc()
}

// HookTriggered records a successful trigger.
func (m *Metrics) HookTriggered(protocol string, amount uint64) {
	if m == nil {
		return
	}
	m.hookTriggers.WithLabelValues(protocol).Inc()
	m.deployedAmount.WithLabelValues(protocol).Add(float64(amount))
}

// CrankRun records one crank pass.
func (m *Metrics) CrankRun(job string) {
	if m == nil {
		return
	}
	m.crankRuns.WithLabelValues(job).Inc()
}
