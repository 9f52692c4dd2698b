// Package hooks runs agent yield strategies: a condition that, once met,
// deploys a percentage of the agent's staked funds to a protocol.
//
// Triggering is permissionless. Anyone may call Trigger for any agent;
// the strategy's own condition is the only gate.
package hooks

import (
	"context"
	"fmt"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/connector"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/model"
)

// Engine runs yield hook operations.
type Engine struct {
	env        *engine.Env
	connectors *connector.Registry
}

// New creates a hooks Engine dispatching to connectors.
func New(env *engine.Env, connectors *connector.Registry) *Engine {
	return &Engine{env: env, connectors: connectors}
}

// Strategy is the caller-supplied part of a YieldStrategy.
type Strategy struct {
	Condition        model.HookCondition
	Protocol         model.YieldProtocol
	DeployPercentage uint8
	Enabled          bool
}

// Configure creates or replaces the agent's strategy. The owner or a
// delegate with the manage-yield permission may call it. Replacing a
// strategy resets its trigger history.
func (h *Engine) Configure(ctx context.Context, agent, authority model.Identity, s Strategy) (model.YieldStrategy, error) {
	var out model.YieldStrategy
	_, err := h.env.Update(ctx, "hook.configure", func(op *engine.Op) error {
		if s.DeployPercentage > 100 {
			return model.ErrInvalidPercentage.With("percentage", fmt.Sprint(s.DeployPercentage))
		}
		if !s.Protocol.Valid() {
			return model.ErrInvalidProtocol.With("protocol", s.Protocol.String())
		}
		if s.Condition == nil {
			return model.ErrHookConditionNotMet.With("reason", "missing condition")
		}
		a, err := op.Tx.Agent(agent)
		if err != nil {
			return err
		}
		if err := engine.Authorize(op.Tx, a.Owner, authority, engine.PermManageYield, op.Now); err != nil {
			return err
		}

		out = model.YieldStrategy{
			Agent:            agent,
			Condition:        s.Condition,
			Protocol:         s.Protocol,
			DeployPercentage: s.DeployPercentage,
			Enabled:          s.Enabled,
		}
		if err := op.Tx.PutStrategy(out); err != nil {
			return err
		}
		op.Logger().Info("hook configured",
			"agent", agent.String(),
			"authority", authority.String(),
			"condition", string(s.Condition.Kind()),
			"protocol", s.Protocol.String(),
			"percentage", s.DeployPercentage,
			"enabled", s.Enabled,
		)
		return op.Emit(audit.KindHookConfigured, agent.String(), audit.Fields{
			"authority":  authority,
			"condition":  string(s.Condition.Kind()),
			"param":      s.Condition.Param(),
			"protocol":   s.Protocol.String(),
			"percentage": s.DeployPercentage,
			"enabled":    s.Enabled,
		})
	})
	return out, err
}

// Evaluation is a condition check against the current state.
type Evaluation struct {
	Met    bool   `json:"condition_met"`
	Reason string `json:"reason"`
	// Observed is the value compared against the condition parameter.
	Observed uint64 `json:"observed"`
}

// Evaluate checks a strategy's condition for agent at instant now.
func Evaluate(s model.YieldStrategy, agent model.Agent, now int64) Evaluation {
	switch c := s.Condition.(type) {
	case model.BalanceAbove:
		return Evaluation{
			Met:      agent.StakedAmount >= c.Threshold,
			Observed: agent.StakedAmount,
			Reason:   fmt.Sprintf("balance %d vs threshold %d", agent.StakedAmount, c.Threshold),
		}
	case model.TimeElapsed:
		elapsed := now - s.LastTriggered
		if elapsed < 0 {
			elapsed = 0
		}
		return Evaluation{
			Met:      uint64(elapsed) >= c.Interval,
			Observed: uint64(elapsed),
			Reason:   fmt.Sprintf("elapsed %ds vs interval %ds", elapsed, c.Interval),
		}
	case model.YieldAbove:
		pending := model.PendingYield(agent.StakedAmount, now-agent.LastYieldTimestamp)
		return Evaluation{
			Met:      pending >= c.Threshold,
			Observed: pending,
			Reason:   fmt.Sprintf("pending_yield %d vs threshold %d", pending, c.Threshold),
		}
	default:
		return Evaluation{Reason: fmt.Sprintf("unknown condition %T", s.Condition)}
	}
}

// TriggerResult is the outcome of a successful trigger.
type TriggerResult struct {
	Agent        model.Identity      `json:"agent"`
	Protocol     model.YieldProtocol `json:"-"`
	Amount       uint64              `json:"amount"`
	TriggerCount uint64              `json:"trigger_count"`
	At           int64               `json:"at"`
	Reason       string              `json:"reason"`
}

// Trigger fires agent's strategy if its condition holds, deploying
// floor(staked * percentage / 100) through the protocol connector.
func (h *Engine) Trigger(ctx context.Context, agent model.Identity) (TriggerResult, error) {
	out := TriggerResult{Agent: agent}
	_, err := h.env.Update(ctx, "hook.trigger", func(op *engine.Op) error {
		cfg, err := op.Tx.Bank()
		if err != nil {
			return err
		}
		if cfg.Paused {
			return model.ErrBankPaused.With("reason", cfg.PauseReason.String())
		}
		s, err := op.Tx.Strategy(agent)
		if err != nil {
			return err
		}
		if !s.Enabled {
			return model.ErrHookDisabled.With("agent", agent.String())
		}
		a, err := op.Tx.Agent(agent)
		if err != nil {
			return err
		}
		ev := Evaluate(s, a, op.Now)
		if !ev.Met {
			return model.ErrHookConditionNotMet.With("reason", ev.Reason)
		}

		amount, err := model.DeployAmount(a.StakedAmount, s.DeployPercentage)
		if err != nil {
			return err
		}
		conn, err := h.connectors.Lookup(s.Protocol)
		if err != nil {
			return err
		}
		if err := conn.Deploy(op, connector.Deployment{
			Agent:    agent,
			Vault:    a.Vault(),
			Protocol: s.Protocol,
			Amount:   amount,
		}); err != nil {
			return err
		}

		s.LastTriggered = op.Now
		if s.TriggerCount, err = model.CheckedAdd(s.TriggerCount, 1); err != nil {
			return err
		}
		if err := op.Tx.PutStrategy(s); err != nil {
			return err
		}

		out.Protocol = s.Protocol
		out.Amount = amount
		out.TriggerCount = s.TriggerCount
		out.At = op.Now
		out.Reason = ev.Reason
		op.Logger().Info("hook triggered",
			"agent", agent.String(),
			"protocol", s.Protocol.String(),
			"amount", amount,
			"trigger_count", s.TriggerCount,
		)
		return op.Emit(audit.KindHookTriggered, agent.String(), audit.Fields{
			"protocol":      s.Protocol.String(),
			"amount":        amount,
			"trigger_count": s.TriggerCount,
			"reason":        ev.Reason,
		})
	})
	if err != nil {
		return TriggerResult{}, err
	}
	h.env.Metrics.HookTriggered(out.Protocol.String(), out.Amount)
	return out, nil
}

// Status is a read-only view of a strategy.
type Status struct {
	Agent            model.Identity `json:"agent"`
	Enabled          bool           `json:"enabled"`
	Condition        string         `json:"condition"`
	Param            uint64         `json:"param"`
	Protocol         string         `json:"protocol"`
	DeployPercentage uint8          `json:"deploy_percentage"`
	ConditionMet     bool           `json:"condition_met"`
	Reason           string         `json:"reason"`
	TriggerCount     uint64         `json:"trigger_count"`
	LastTriggered    int64          `json:"last_triggered"`
}

// CheckStatus evaluates agent's strategy without changing anything.
func (h *Engine) CheckStatus(ctx context.Context, agent model.Identity) (Status, error) {
	var out Status
	_, err := h.env.View(ctx, "hook.status", func(op *engine.Op) error {
		s, err := op.Tx.Strategy(agent)
		if err != nil {
			return err
		}
		a, err := op.Tx.Agent(agent)
		if err != nil {
			return err
		}
		ev := Evaluate(s, a, op.Now)
		out = Status{
			Agent:            agent,
			Enabled:          s.Enabled,
			Condition:        string(s.Condition.Kind()),
			Param:            s.Condition.Param(),
			Protocol:         s.Protocol.String(),
			DeployPercentage: s.DeployPercentage,
			ConditionMet:     ev.Met,
			Reason:           ev.Reason,
			TriggerCount:     s.TriggerCount,
			LastTriggered:    s.LastTriggered,
		}
		return nil
	})
	return out, err
}

// StakeWithdrawal is the outcome of a successful WithdrawStake.
type StakeWithdrawal struct {
	Agent    model.Identity `json:"agent"`
	Protocol string         `json:"protocol"`
	Amount   uint64         `json:"amount"`
	At       int64          `json:"at"`
}

// WithdrawStake returns amount of the agent's deployed funds from its
// strategy's protocol to the vault. The owner or a delegate with the
// manage-yield permission may call it. Only connectors that hold real
// funds support withdrawal; the rest fail InvalidProtocol.
func (h *Engine) WithdrawStake(ctx context.Context, agent, authority model.Identity, amount uint64) (StakeWithdrawal, error) {
	out := StakeWithdrawal{Agent: agent, Amount: amount}
	_, err := h.env.Update(ctx, "hook.withdraw", func(op *engine.Op) error {
		cfg, err := op.Tx.Bank()
		if err != nil {
			return err
		}
		if cfg.Paused {
			return model.ErrBankPaused.With("reason", cfg.PauseReason.String())
		}
		a, err := op.Tx.Agent(agent)
		if err != nil {
			return err
		}
		if err := engine.Authorize(op.Tx, a.Owner, authority, engine.PermManageYield, op.Now); err != nil {
			return err
		}
		s, err := op.Tx.Strategy(agent)
		if err != nil {
			return err
		}
		conn, err := h.connectors.Lookup(s.Protocol)
		if err != nil {
			return err
		}
		w, ok := conn.(connector.Withdrawer)
		if !ok {
			return model.ErrInvalidProtocol.With("protocol", s.Protocol.String())
		}
		if err := w.Withdraw(op, connector.Withdrawal{
			Agent:  agent,
			Vault:  a.Vault(),
			Amount: amount,
		}); err != nil {
			return err
		}
		out.Protocol = s.Protocol.String()
		out.At = op.Now
		return nil
	})
	if err != nil {
		return StakeWithdrawal{}, err
	}
	return out, nil
}

// Strategies returns every configured strategy ordered by agent.
func (h *Engine) Strategies(ctx context.Context) ([]model.YieldStrategy, error) {
	var out []model.YieldStrategy
	_, err := h.env.View(ctx, "hook.list", func(op *engine.Op) error {
		var err error
		out, err = op.Tx.Strategies()
		return err
	})
	return out, err
}
