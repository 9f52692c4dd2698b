package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/connector"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/governance"
	"github.com/roach88/neobank/internal/hooks"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
	"github.com/roach88/neobank/internal/testutil"
)

// Harness executes scenario steps against the real engines over an
// isolated ledger, with a manual clock and sequential operation ids.
type Harness struct {
	store    *store.Store
	clock    *testutil.ManualClock
	accounts *accounts.Service
	engine   *engine.Engine
	gov      *governance.Engine
	hooks    *hooks.Engine
	logger   *slog.Logger

	// lastSeq is the highest audit sequence already attributed to a step.
	lastSeq int64
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes engine logs to l instead of discarding them.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a scenario in a fresh in-memory ledger and evaluates its
// expectations, the ledger invariants after every step, and the final
// assertions.
//
// Domain rejections are outcomes, not failures: they are checked against
// the step's expect clause. Any other error (a malformed argument or a
// storage failure) aborts the run.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewManualClock(scenario.Start)
	env := engine.NewEnv(st,
		engine.WithClock(clock),
		engine.WithOpIDs(engine.NewSequenceGenerator(scenario.Name)),
		engine.WithLogger(cfg.logger),
	)
	h := &Harness{
		store:    st,
		clock:    clock,
		accounts: accounts.New(env),
		engine:   engine.New(env),
		gov:      governance.New(env),
		hooks:    hooks.New(env, connector.Default(model.StakePoolAddress())),
		logger:   cfg.logger,
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		n := max(step.Repeat, 1)
		for rep := 0; rep < n; rep++ {
			if err := h.executeStep(ctx, i, step, result); err != nil {
				return nil, err
			}
		}
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step, records it in the trace and checks its
// expectation and the ledger invariants.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	run := actions[step.Action]

	var actor model.Identity
	if step.Actor != "" {
		id, err := Resolve(step.Actor)
		if err != nil {
			return fmt.Errorf("steps[%d]: actor: %w", index, err)
		}
		actor = id
	}

	a := &args{m: step.Args, actor: actor}
	out, opErr := run(ctx, h, a)
	if a.err != nil {
		return fmt.Errorf("steps[%d] %s: %w", index, step.Action, a.err)
	}

	outcome := OutcomeOK
	if opErr != nil {
		code := model.CodeOf(opErr)
		if code == "" {
			return fmt.Errorf("steps[%d] %s: %w", index, step.Action, opErr)
		}
		outcome = string(code)
		out = nil
	}

	kinds, err := h.newEvents(ctx)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}

	seq := result.AddStep(TraceEvent{
		Action:  step.Action,
		Actor:   step.Actor,
		Outcome: outcome,
		Result:  out,
		Events:  kinds,
	})
	h.logger.Info("scenario step",
		"seq", seq,
		"action", step.Action,
		"actor", step.Actor,
		"outcome", outcome,
	)

	want := OutcomeOK
	if step.Expect != nil {
		want = step.Expect.Code
	}
	if outcome != want {
		detail := ""
		if opErr != nil {
			detail = ": " + opErr.Error()
		}
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s%s", seq, step.Action, want, outcome, detail))
	}
	if step.Expect != nil {
		for _, msg := range matchFields(out, step.Expect.Result) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", seq, step.Action, msg))
		}
	}

	violations, err := CheckInvariants(ctx, h.store)
	if err != nil {
		return fmt.Errorf("steps[%d]: %w", index, err)
	}
	for _, v := range violations {
		result.AddError(fmt.Sprintf("step %d (%s): invariant violated: %s", seq, step.Action, v))
	}
	return nil
}

// newEvents returns the kinds of audit events appended since the last call.
func (h *Harness) newEvents(ctx context.Context) ([]string, error) {
	events, err := h.store.Events(ctx, store.EventFilter{AfterSeq: h.lastSeq})
	if err != nil {
		return nil, err
	}
	kinds := make([]string, len(events))
	for i, ev := range events {
		kinds[i] = string(ev.Kind)
		h.lastSeq = ev.Seq
	}
	return kinds, nil
}

// Resolve maps a scenario label to an identity:
//
//	treasury        the protocol treasury
//	stake_pool      the default liquid-staking pool
//	vault:<label>   the vault of <label>'s agent
//	pattern:<n>     32 copies of byte n (0 is blacklisted, others suspicious)
//	id:<base58>     a literal identity
//	anything else   a stable identity derived from the label
func Resolve(label string) (model.Identity, error) {
	switch {
	case label == "":
		return model.Identity{}, fmt.Errorf("empty identity label")
	case label == "treasury":
		return model.TreasuryAddress(), nil
	case label == "stake_pool":
		return model.StakePoolAddress(), nil
	case strings.HasPrefix(label, "vault:"):
		owner, err := Resolve(strings.TrimPrefix(label, "vault:"))
		if err != nil {
			return model.Identity{}, err
		}
		return model.VaultAddress(owner), nil
	case strings.HasPrefix(label, "pattern:"):
		b, err := strconv.ParseUint(strings.TrimPrefix(label, "pattern:"), 10, 8)
		if err != nil {
			return model.Identity{}, fmt.Errorf("identity %q: %w", label, err)
		}
		return testutil.Repeated(byte(b)), nil
	case strings.HasPrefix(label, "id:"):
		return model.ParseIdentity(strings.TrimPrefix(label, "id:"))
	default:
		return testutil.ID(label), nil
	}
}
