package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerScenario funds alice's agent and withdraws once so assertions have
// something to look at.
func ledgerScenario(assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "assertions",
		Description: "assertion fixture",
		Start:       DefaultStart,
		Steps: []Step{
			{Action: "bank.initialize", Actor: "admin", Args: map[string]any{"fee_bps": 100}},
			{Action: "agent.register", Actor: "alice", Args: map[string]any{"name": "a", "spending_limit": 1000}},
			{Action: "airdrop", Args: map[string]any{"to": "alice", "amount": 1000}},
			{Action: "agent.deposit", Actor: "alice", Args: map[string]any{"amount": 1000}},
			{Action: "withdraw", Actor: "alice", Args: map[string]any{"destination": "bob", "amount": 500}},
		},
		Assertions: assertions,
	}
}

func TestAssertions_Pass(t *testing.T) {
	result, err := Run(ledgerScenario(
		Assertion{Type: AssertEventContains, Kind: "withdrawal", Subject: "alice"},
		Assertion{Type: AssertEventOrder, Kinds: []string{"bank_initialized", "agent_registered", "deposit", "withdrawal"}},
		Assertion{Type: AssertEventCount, Kind: "deposit", Count: 1},
		Assertion{Type: AssertBalance, Account: "bob", Equals: uptr(495)},
		Assertion{Type: AssertBalance, Account: "treasury", Equals: uptr(5)},
		Assertion{Type: AssertFinalState, Table: "agent", Key: "alice", Expect: map[string]any{
			"current_period_spend": 500,
			"staked_amount":        800,
			"name":                 "a",
		}},
		Assertion{Type: AssertFinalState, Table: "bank", Expect: map[string]any{"total_fees_collected": 5, "breaker": "armed"}},
		Assertion{Type: AssertSupplyBalanced},
	))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      string
	}{
		{
			name:      "missing event",
			assertion: Assertion{Type: AssertEventContains, Kind: "withdrawal", Subject: "bob"},
			want:      "not found in audit log",
		},
		{
			name:      "wrong order",
			assertion: Assertion{Type: AssertEventOrder, Kinds: []string{"withdrawal", "deposit"}},
			want:      "withdrawal (pos 5) should be before deposit (pos 4)",
		},
		{
			name:      "absent kind",
			assertion: Assertion{Type: AssertEventOrder, Kinds: []string{"deposit", "proposal_created"}},
			want:      "missing kind: proposal_created",
		},
		{
			name:      "count",
			assertion: Assertion{Type: AssertEventCount, Kind: "withdrawal", Count: 2},
			want:      "Actual: 1 events",
		},
		{
			name:      "balance",
			assertion: Assertion{Type: AssertBalance, Account: "bob", Equals: uptr(500)},
			want:      "Actual: 495",
		},
		{
			name:      "state mismatch",
			assertion: Assertion{Type: AssertFinalState, Table: "agent", Key: "alice", Expect: map[string]any{"current_period_spend": 1}},
			want:      "current_period_spend: expected 1, got 500",
		},
		{
			name:      "state missing record",
			assertion: Assertion{Type: AssertFinalState, Table: "agent", Key: "bob", Expect: map[string]any{"name": "b"}},
			want:      `final_state agent "bob"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(ledgerScenario(tt.assertion))
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.want)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	result, err := Run(ledgerScenario(Assertion{Type: AssertEventCount, Kind: "withdrawal", Count: 0}))
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Full trace:")
	assert.Contains(t, result.Errors[0], "[5] withdraw alice -> ok [withdrawal]")
}

func TestMatchFields(t *testing.T) {
	got := map[string]any{"a": uint64(3), "b": true, "c": "x"}

	assert.Empty(t, matchFields(got, map[string]any{"a": 3, "b": true, "c": "x"}))
	assert.Empty(t, matchFields(got, nil))
	assert.Equal(t, []string{"a: expected 4, got 3", "d: missing"},
		matchFields(got, map[string]any{"a": 4, "d": 1}))
}
