// Package risk classifies withdrawal destinations.
//
// Classification is a deterministic, side-effect-free function of the
// address bytes. Callers decide what to do with a blocked result.
package risk

import "github.com/roach88/neobank/internal/model"

// Reason explains a classification.
type Reason uint8

const (
	ReasonSafe              Reason = 0
	ReasonSuspiciousPattern Reason = 2
	ReasonBlacklisted       Reason = 3
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonSafe:
		return "safe"
	case ReasonSuspiciousPattern:
		return "suspicious_pattern"
	case ReasonBlacklisted:
		return "blacklisted"
	default:
		return "unknown"
	}
}

// BlockScore is the score above which a destination is blocked even when
// marked safe.
const BlockScore = 80

// Result is a classification outcome.
type Result struct {
	IsSafe    bool   `json:"is_safe"`
	RiskScore uint8  `json:"risk_score"`
	Reason    Reason `json:"reason"`
}

// Blocked reports whether a withdrawal to the destination must be refused.
func (r Result) Blocked() bool {
	return !r.IsSafe || r.RiskScore > BlockScore
}

// Classify screens an address:
//   - all-zero bytes: {false, 100, blacklisted}
//   - all bytes identical and nonzero: {false, 95, suspicious_pattern}
//   - anything else: {true, 0, safe}
func Classify(addr model.Identity) Result {
	if addr.IsZero() {
		return Result{IsSafe: false, RiskScore: 100, Reason: ReasonBlacklisted}
	}
	first := addr[0]
	for _, b := range addr[1:] {
		if b != first {
			return Result{IsSafe: true, RiskScore: 0, Reason: ReasonSafe}
		}
	}
	return Result{IsSafe: false, RiskScore: 95, Reason: ReasonSuspiciousPattern}
}

// Screener is the classification seam used by the withdrawal engine.
type Screener interface {
	Classify(addr model.Identity) Result
}

// ScreenerFunc adapts a function to Screener.
type ScreenerFunc func(model.Identity) Result

// Classify calls f.
func (f ScreenerFunc) Classify(addr model.Identity) Result { return f(addr) }

// Default is the byte-pattern screener.
var Default Screener = ScreenerFunc(Classify)
