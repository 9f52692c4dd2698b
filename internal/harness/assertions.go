package harness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
)

// final_state tables.
const (
	tableBank     = "bank"
	tableAgent    = "agent"
	tableProposal = "proposal"
	tableStrategy = "strategy"
)

// AssertionError is returned when an assertion fails. It carries the
// trace so the failure can be read without rerunning the scenario.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s %v\n", ev.Seq, ev.Action, ev.Actor, ev.Outcome, ev.Events)
	}
	return buf.String()
}

// AssertionContext provides ledger access for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result and the
// ledger. Returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string

	for i, assertion := range assertions {
		var err error
		if actx == nil || actx.Store == nil {
			err = fmt.Errorf("assertion[%d]: %s requires ledger context", i, assertion.Type)
		} else {
			err = evaluate(actx, assertion)
		}

		var aerr *AssertionError
		if errors.As(err, &aerr) {
			aerr.Trace = result.Trace
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(actx *AssertionContext, a Assertion) error {
	switch a.Type {
	case AssertEventContains:
		return assertEventContains(actx, a)
	case AssertEventOrder:
		return assertEventOrder(actx, a)
	case AssertEventCount:
		return assertEventCount(actx, a)
	case AssertBalance:
		return assertBalance(actx, a)
	case AssertFinalState:
		return assertFinalState(actx, a)
	case AssertSupplyBalanced:
		return assertSupplyBalanced(actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// subjectOf maps an assertion subject to the stored event subject.
// Literal subjects ("bank", "governance", "proposal/<id>") pass through.
func subjectOf(label string) (string, error) {
	if label == "" || label == "bank" || label == "governance" || strings.HasPrefix(label, "proposal/") {
		return label, nil
	}
	id, err := Resolve(label)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (actx *AssertionContext) events(a Assertion) ([]audit.Event, error) {
	subject, err := subjectOf(a.Subject)
	if err != nil {
		return nil, err
	}
	return actx.Store.Events(actx.Ctx, store.EventFilter{
		Subject: subject,
		Kind:    audit.Kind(a.Kind),
	})
}

// assertEventContains checks that at least one event of the kind exists,
// optionally for the subject.
func assertEventContains(actx *AssertionContext, a Assertion) error {
	events, err := actx.events(a)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return &AssertionError{
			Type:     AssertEventContains,
			Expected: fmt.Sprintf("event %s (subject %q)", a.Kind, a.Subject),
			Actual:   "not found in audit log",
		}
	}
	return nil
}

// assertEventOrder checks that the kinds first appear in the given order.
// Intervening events are allowed.
func assertEventOrder(actx *AssertionContext, a Assertion) error {
	events, err := actx.events(Assertion{Subject: a.Subject})
	if err != nil {
		return err
	}

	positions := make(map[string]int)
	for i, ev := range events {
		kind := string(ev.Kind)
		if _, seen := positions[kind]; !seen {
			positions[kind] = i + 1
		}
	}

	for _, kind := range a.Kinds {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("all kinds present: %v", a.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", kind),
			}
		}
	}
	for i := 1; i < len(a.Kinds); i++ {
		prev, curr := a.Kinds[i-1], a.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertEventOrder,
				Expected: fmt.Sprintf("kinds in order: %v", a.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
			}
		}
	}
	return nil
}

// assertEventCount checks the exact number of events of the kind.
func assertEventCount(actx *AssertionContext, a Assertion) error {
	events, err := actx.events(a)
	if err != nil {
		return err
	}
	if len(events) != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events (subject %q)", a.Count, a.Kind, a.Subject),
			Actual:   fmt.Sprintf("%d events", len(events)),
		}
	}
	return nil
}

func assertBalance(actx *AssertionContext, a Assertion) error {
	addr, err := Resolve(a.Account)
	if err != nil {
		return err
	}
	var bal uint64
	if err := actx.Store.View(actx.Ctx, func(tx *store.Tx) error {
		bal, err = tx.Balance(addr)
		return err
	}); err != nil {
		return err
	}
	if bal != *a.Equals {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s balance %d", a.Account, *a.Equals),
			Actual:   fmt.Sprintf("%d", bal),
		}
	}
	return nil
}

func assertSupplyBalanced(actx *AssertionContext) error {
	r, err := actx.Store.CheckSupply(actx.Ctx)
	if err != nil {
		return err
	}
	if !r.Balanced() {
		return &AssertionError{
			Type:     AssertSupplyBalanced,
			Expected: fmt.Sprintf("held == minted (%d)", r.Minted),
			Actual:   fmt.Sprintf("held %d", r.Held),
		}
	}
	return nil
}

// assertFinalState loads one record and subset-matches its fields.
func assertFinalState(actx *AssertionContext, a Assertion) error {
	var fields map[string]any
	err := actx.Store.View(actx.Ctx, func(tx *store.Tx) error {
		var err error
		fields, err = stateOf(tx, a.Table, a.Key)
		return err
	})
	if err != nil {
		return fmt.Errorf("final_state %s %q: %w", a.Table, a.Key, err)
	}

	if mismatches := matchFields(fields, a.Expect); len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %q matches %v", a.Table, a.Key, a.Expect),
			Actual:   strings.Join(mismatches, "; "),
		}
	}
	return nil
}

// stateOf renders a record as the field map final_state matches against.
func stateOf(tx *store.Tx, table, key string) (map[string]any, error) {
	switch table {
	case tableBank:
		c, err := tx.Bank()
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"fee_bps":                   c.FeeBps,
			"paused":                    c.Paused,
			"pause_reason":              c.PauseReason.String(),
			"breaker":                   string(c.Breaker()),
			"suspicious_activity_count": c.SuspiciousActivityCount,
			"auto_pause_threshold":      c.AutoPauseThreshold,
			"total_fees_collected":      c.TotalFeesCollected,
		}, nil

	case tableAgent:
		owner, err := Resolve(key)
		if err != nil {
			return nil, err
		}
		ag, err := tx.Agent(owner)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"name":                 ag.Name,
			"spending_limit":       ag.SpendingLimit,
			"period_duration":      ag.PeriodDuration,
			"current_period_start": ag.CurrentPeriodStart,
			"current_period_spend": ag.CurrentPeriodSpend,
			"total_deposited":      ag.TotalDeposited,
			"staked_amount":        ag.StakedAmount,
			"last_yield_timestamp": ag.LastYieldTimestamp,
		}, nil

	case tableProposal:
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("proposal key: %w", err)
		}
		p, err := tx.Proposal(id)
		if err != nil {
			return nil, err
		}
		fields := proposalResult(p)
		fields["amount"] = p.Amount
		fields["memo"] = p.Memo
		fields["executed_at"] = p.ExecutedAt
		fields["expires_at"] = p.ExpiresAt
		return fields, nil

	case tableStrategy:
		agent, err := Resolve(key)
		if err != nil {
			return nil, err
		}
		s, err := tx.Strategy(agent)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"condition":         string(s.Condition.Kind()),
			"param":             s.Condition.Param(),
			"protocol":          s.Protocol.String(),
			"deploy_percentage": s.DeployPercentage,
			"enabled":           s.Enabled,
			"trigger_count":     s.TriggerCount,
			"last_triggered":    s.LastTriggered,
		}, nil

	default:
		return nil, model.ErrNotFound.With("table", table)
	}
}

// matchFields subset-matches want against got and describes each mismatch.
// Scalars compare by their printed form, so a YAML 3000 matches a uint64
// 3000.
func matchFields(got, want map[string]any) []string {
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		actual, ok := got[k]
		if !ok {
			out = append(out, fmt.Sprintf("%s: missing", k))
			continue
		}
		if !valuesEqual(actual, want[k]) {
			out = append(out, fmt.Sprintf("%s: expected %v, got %v", k, want[k], actual))
		}
	}
	return out
}

func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}
