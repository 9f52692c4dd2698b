package harness

import (
	"context"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/hooks"
	"github.com/roach88/neobank/internal/model"
)

// actionFunc performs one step. The returned map becomes the trace result;
// it is ignored when the operation fails.
type actionFunc func(ctx context.Context, h *Harness, a *args) (map[string]any, error)

// actions maps step action names to engine calls. The actor is the caller
// identity wherever the operation has one.
var actions = map[string]actionFunc{
	"clock.advance": func(_ context.Context, h *Harness, a *args) (map[string]any, error) {
		return map[string]any{"now": h.clock.Advance(a.i64("seconds", 0))}, nil
	},

	"bank.initialize": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		cfg, err := h.accounts.InitializeBank(ctx, a.actor, a.u16("fee_bps", 0))
		return map[string]any{"fee_bps": cfg.FeeBps}, err
	},
	"bank.set_threshold": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		st, err := h.engine.UpdateAutoPauseThreshold(ctx, a.actor, a.u64("threshold", 0))
		return map[string]any{"threshold": st.AutoPauseThreshold}, err
	},
	"bank.pause": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		reason, err := model.ParsePauseReason(a.str("reason", "maintenance"))
		if err != nil {
			a.fail("reason", "%v", err)
			return nil, nil
		}
		st, err := h.engine.SetPaused(ctx, a.actor, true, reason)
		return map[string]any{"paused": st.Paused, "reason": st.PauseReason}, err
	},
	"bank.unpause": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		st, err := h.engine.SetPaused(ctx, a.actor, false, model.PauseNone)
		return map[string]any{"paused": st.Paused, "reason": st.PauseReason}, err
	},
	"bank.reset_breaker": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		st, err := h.engine.ResetSecurityCounter(ctx, a.actor)
		return map[string]any{"suspicious_activity_count": st.SuspiciousActivityCount}, err
	},

	"airdrop": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		bal, err := h.accounts.Airdrop(ctx, a.id("to"), a.u64("amount", 0))
		return map[string]any{"balance": bal}, err
	},

	"agent.register": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		ag, err := h.accounts.RegisterAgent(ctx, accounts.Registration{
			Owner:          a.actor,
			Name:           a.str("name", "agent"),
			SpendingLimit:  a.u64("spending_limit", 0),
			PeriodDuration: a.i64("period_duration", accounts.DefaultPeriodDuration),
		})
		return map[string]any{
			"spending_limit":  ag.SpendingLimit,
			"period_duration": ag.PeriodDuration,
		}, err
	},
	"agent.deposit": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		ag, err := h.accounts.Deposit(ctx, a.actor, a.u64("amount", 0))
		return map[string]any{
			"total_deposited": ag.TotalDeposited,
			"staked_amount":   ag.StakedAmount,
		}, err
	},
	"agent.accrue": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		acc, err := h.accounts.AccrueYield(ctx, a.id("agent"))
		return map[string]any{"owed": acc.Owed, "paid": acc.Paid}, err
	},

	"delegate.add": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		d, err := h.engine.AddDelegate(ctx, a.actor, engine.DelegateGrant{
			Delegate:       a.id("delegate"),
			CanSpend:       a.flag("can_spend", false),
			CanManageYield: a.flag("can_manage_yield", false),
			ValidUntil:     a.i64("valid_until", 0),
		})
		return map[string]any{
			"can_spend":        d.CanSpend,
			"can_manage_yield": d.CanManageYield,
			"valid_until":      d.ValidUntil,
		}, err
	},
	"delegate.revoke": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		return nil, h.engine.RevokeDelegate(ctx, a.actor, a.id("delegate"))
	},

	"withdraw": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		r, err := h.engine.RequestWithdrawal(ctx, engine.WithdrawalRequest{
			Agent:       a.id("agent"),
			Authority:   a.actor,
			Destination: a.id("destination"),
			Amount:      a.u64("amount", 0),
		})
		return map[string]any{
			"fee":          r.Fee,
			"net":          r.Net,
			"period_spend": r.PeriodSpend,
			"period_reset": r.PeriodReset,
		}, err
	},
	"intent.validate": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		req := engine.IntentRequest{
			Agent:  a.id("agent"),
			Amount: a.u64("amount", 0),
			Memo:   a.str("memo", ""),
		}
		if _, ok := a.get("execution_time"); ok {
			at := a.i64("execution_time", 0)
			req.ExecutionTime = &at
		}
		v, err := h.engine.ValidateIntent(ctx, req)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"valid":           v.Valid,
			"remaining_limit": v.RemainingLimit,
			"reason":          v.Reason,
		}, nil
	},

	"gov.initialize": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		reg, err := h.gov.Initialize(ctx, a.actor, a.ids("admins"), a.u8("threshold", 0))
		return map[string]any{"admin_count": reg.AdminCount, "threshold": reg.Threshold}, err
	},
	"gov.propose": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		p, err := h.gov.CreateProposal(ctx, a.actor, a.id("destination"), a.u64("amount", 0), a.str("memo", ""))
		return proposalResult(p), err
	},
	"gov.vote": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		p, err := h.gov.VoteProposal(ctx, a.actor, a.u64("id", 0), a.flag("approve", true))
		return proposalResult(p), err
	},
	"gov.execute": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		p, err := h.gov.ExecuteProposal(ctx, a.u64("id", 0), a.id("destination"))
		return proposalResult(p), err
	},

	"hook.configure": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		cond, err := model.NewHookCondition(model.ConditionKind(a.str("condition", "")), a.u64("param", 0))
		if err != nil {
			a.fail("condition", "%v", err)
			return nil, nil
		}
		proto, err := model.ParseYieldProtocol(a.str("protocol", "internal"))
		if err != nil {
			return nil, err
		}
		s, err := h.hooks.Configure(ctx, a.id("agent"), a.actor, hooks.Strategy{
			Condition:        cond,
			Protocol:         proto,
			DeployPercentage: a.u8("percentage", 0),
			Enabled:          a.flag("enabled", true),
		})
		return map[string]any{
			"protocol": s.Protocol.String(),
			"enabled":  s.Enabled,
		}, err
	},
	"hook.trigger": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		r, err := h.hooks.Trigger(ctx, a.id("agent"))
		return map[string]any{"amount": r.Amount, "trigger_count": r.TriggerCount}, err
	},
	"hook.withdraw": func(ctx context.Context, h *Harness, a *args) (map[string]any, error) {
		r, err := h.hooks.WithdrawStake(ctx, a.id("agent"), a.actor, a.u64("amount", 0))
		return map[string]any{"amount": r.Amount}, err
	},
}

func proposalResult(p model.TreasuryProposal) map[string]any {
	return map[string]any{
		"id":            p.ID,
		"status":        p.Status.String(),
		"votes_for":     p.VotesFor,
		"votes_against": p.VotesAgainst,
	}
}
