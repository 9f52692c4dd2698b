package model

import (
	"fmt"
	"strings"
)

// DefaultAutoPauseThreshold is the breaker threshold set at bank creation.
const DefaultAutoPauseThreshold = 10

// PauseReason records why the bank is paused.
type PauseReason uint8

const (
	PauseNone PauseReason = iota
	PauseSecurity
	PauseMaintenance
	PauseUpgrade
)

var pauseReasonNames = [...]string{"none", "security", "maintenance", "upgrade"}

// String returns the lowercase reason name.
func (r PauseReason) String() string {
	if int(r) < len(pauseReasonNames) {
		return pauseReasonNames[r]
	}
	return fmt.Sprintf("PauseReason(%d)", uint8(r))
}

// ParsePauseReason accepts the names produced by String.
func ParsePauseReason(s string) (PauseReason, error) {
	for i, name := range pauseReasonNames {
		if strings.EqualFold(s, name) {
			return PauseReason(i), nil
		}
	}
	return PauseNone, fmt.Errorf("unknown pause reason %q", s)
}

// BreakerState is the circuit breaker's two-state view of BankConfig.
type BreakerState string

const (
	BreakerArmed   BreakerState = "armed"
	BreakerTripped BreakerState = "tripped"
)

// BankConfig is the process-wide configuration record. There is exactly one
// and it is passed explicitly into every operation that needs it.
type BankConfig struct {
	Admin                   Identity
	FeeBps                  uint16
	Paused                  bool
	PauseReason             PauseReason
	SuspiciousActivityCount uint64
	AutoPauseThreshold      uint64
	LastSecurityCheck       int64
	TotalFeesCollected      uint64
	CreatedAt               int64
}

// BreakerEnabled reports whether automatic pausing is active.
func (c *BankConfig) BreakerEnabled() bool {
	return c.AutoPauseThreshold > 0
}

// BreakerDue reports whether the accumulated suspicious count has reached
// the threshold.
func (c *BankConfig) BreakerDue() bool {
	return c.BreakerEnabled() && c.SuspiciousActivityCount >= c.AutoPauseThreshold
}

// Breaker returns the breaker state. A pause with any reason other than
// Security leaves the breaker armed.
func (c *BankConfig) Breaker() BreakerState {
	if c.Paused && c.PauseReason == PauseSecurity {
		return BreakerTripped
	}
	return BreakerArmed
}
