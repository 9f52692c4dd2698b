package model

import (
	"fmt"
	"strings"
)

// ConditionKind names a HookCondition variant.
type ConditionKind string

const (
	ConditionBalanceAbove ConditionKind = "balance_above"
	ConditionTimeElapsed  ConditionKind = "time_elapsed"
	ConditionYieldAbove   ConditionKind = "yield_above"
)

// HookCondition is the trigger condition of a YieldStrategy. The set of
// variants is closed: BalanceAbove, TimeElapsed and YieldAbove.
type HookCondition interface {
	Kind() ConditionKind
	// Param is the variant's single numeric payload.
	Param() uint64
	isHookCondition()
}

// BalanceAbove is met when the staked amount reaches Threshold.
type BalanceAbove struct{ Threshold uint64 }

// TimeElapsed is met when Interval seconds have passed since the last
// trigger.
type TimeElapsed struct{ Interval uint64 }

// YieldAbove is met when pending yield reaches Threshold.
type YieldAbove struct{ Threshold uint64 }

func (BalanceAbove) Kind() ConditionKind { return ConditionBalanceAbove }
func (TimeElapsed) Kind() ConditionKind  { return ConditionTimeElapsed }
func (YieldAbove) Kind() ConditionKind   { return ConditionYieldAbove }

func (c BalanceAbove) Param() uint64 { return c.Threshold }
func (c TimeElapsed) Param() uint64  { return c.Interval }
func (c YieldAbove) Param() uint64   { return c.Threshold }

func (BalanceAbove) isHookCondition() {}
func (TimeElapsed) isHookCondition()  {}
func (YieldAbove) isHookCondition()   {}

// NewHookCondition rebuilds a condition from its stored form.
func NewHookCondition(kind ConditionKind, param uint64) (HookCondition, error) {
	switch kind {
	case ConditionBalanceAbove:
		return BalanceAbove{Threshold: param}, nil
	case ConditionTimeElapsed:
		return TimeElapsed{Interval: param}, nil
	case ConditionYieldAbove:
		return YieldAbove{Threshold: param}, nil
	default:
		return nil, fmt.Errorf("unknown hook condition %q", kind)
	}
}

// YieldProtocol is the destination of a yield deployment.
type YieldProtocol uint8

const (
	ProtocolInternal YieldProtocol = iota
	ProtocolJupiter
	ProtocolMeteora
	ProtocolMarinade
	ProtocolJitoSOL
)

var protocolNames = [...]string{"internal", "jupiter", "meteora", "marinade", "jitosol"}

// Protocols lists every protocol in declaration order.
func Protocols() []YieldProtocol {
	return []YieldProtocol{ProtocolInternal, ProtocolJupiter, ProtocolMeteora, ProtocolMarinade, ProtocolJitoSOL}
}

// String returns the lowercase protocol name.
func (p YieldProtocol) String() string {
	if int(p) < len(protocolNames) {
		return protocolNames[p]
	}
	return fmt.Sprintf("YieldProtocol(%d)", uint8(p))
}

// Valid reports whether p is a declared protocol.
func (p YieldProtocol) Valid() bool {
	return int(p) < len(protocolNames)
}

// ParseYieldProtocol accepts the names produced by String.
func ParseYieldProtocol(s string) (YieldProtocol, error) {
	for i, name := range protocolNames {
		if strings.EqualFold(s, name) {
			return YieldProtocol(i), nil
		}
	}
	return 0, ErrInvalidProtocol.With("protocol", s)
}

// YieldStrategy is an agent's single yield deployment hook.
type YieldStrategy struct {
	Agent            Identity
	Condition        HookCondition
	Protocol         YieldProtocol
	DeployPercentage uint8
	Enabled          bool
	LastTriggered    int64
	TriggerCount     uint64
}
