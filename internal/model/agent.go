package model

import "unicode/utf8"

// MaxAgentNameLen bounds Agent.Name in characters.
const MaxAgentNameLen = 32

// Agent is a principal's custody account. Agents are keyed by owner; there
// is at most one per principal.
type Agent struct {
	Owner              Identity
	Name               string
	SpendingLimit      uint64
	PeriodDuration     int64
	CurrentPeriodStart int64
	CurrentPeriodSpend uint64
	TotalDeposited     uint64
	StakedAmount       uint64
	LastYieldTimestamp int64
	CreatedAt          int64
}

// Vault returns the agent's fund-holding account.
func (a *Agent) Vault() Identity {
	return VaultAddress(a.Owner)
}

// PeriodEnd returns the instant the current period stops covering spend.
func (a *Agent) PeriodEnd() int64 {
	return SaturatingAddTime(a.CurrentPeriodStart, a.PeriodDuration)
}

// PeriodElapsed reports whether at is strictly past the current period.
func (a *Agent) PeriodElapsed(at int64) bool {
	return at > a.PeriodEnd()
}

// RollPeriod starts a new period at `at` when the current one has elapsed.
// It reports whether a reset happened.
func (a *Agent) RollPeriod(at int64) bool {
	if !a.PeriodElapsed(at) {
		return false
	}
	a.CurrentPeriodStart = at
	a.CurrentPeriodSpend = 0
	return true
}

// RemainingLimit is the spend still available in the current period.
func (a *Agent) RemainingLimit() uint64 {
	return SaturatingSub(a.SpendingLimit, a.CurrentPeriodSpend)
}

// ValidAgentName reports whether name fits the on-ledger bound.
func ValidAgentName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > 0 && n <= MaxAgentNameLen
}

// Delegate is a secondary identity allowed to act on an agent's behalf.
type Delegate struct {
	Agent          Identity
	Delegate       Identity
	CanSpend       bool
	CanManageYield bool
	// ValidUntil is the expiry instant; 0 means no expiry.
	ValidUntil int64
	CreatedAt  int64
}

// Expired reports whether the authorization has lapsed at `at`.
// A delegate is valid while now < ValidUntil.
func (d *Delegate) Expired(at int64) bool {
	return d.ValidUntil != 0 && at >= d.ValidUntil
}
