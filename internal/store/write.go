package store

import (
	"fmt"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/model"
)

// PutBank inserts or replaces the bank configuration.
func (t *Tx) PutBank(cfg model.BankConfig) error {
	var a amounts
	count := a.to("suspicious_activity_count", cfg.SuspiciousActivityCount)
	threshold := a.to("auto_pause_threshold", cfg.AutoPauseThreshold)
	fees := a.to("total_fees_collected", cfg.TotalFeesCollected)
	if a.err != nil {
		return fmt.Errorf("put bank: %w", a.err)
	}

	return t.exec("put bank", `
		INSERT INTO bank_config
		(id, admin, fee_bps, paused, pause_reason, suspicious_activity_count,
		 auto_pause_threshold, last_security_check, total_fees_collected, created_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			admin = excluded.admin,
			fee_bps = excluded.fee_bps,
			paused = excluded.paused,
			pause_reason = excluded.pause_reason,
			suspicious_activity_count = excluded.suspicious_activity_count,
			auto_pause_threshold = excluded.auto_pause_threshold,
			last_security_check = excluded.last_security_check,
			total_fees_collected = excluded.total_fees_collected
	`,
		cfg.Admin.String(),
		int(cfg.FeeBps),
		boolToInt(cfg.Paused),
		int(cfg.PauseReason),
		count,
		threshold,
		cfg.LastSecurityCheck,
		fees,
		cfg.CreatedAt,
	)
}

// SetBalance writes an account balance, creating the account if needed.
func (t *Tx) SetBalance(addr model.Identity, balance uint64) error {
	bal, err := toDB("balance", balance)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return t.exec("set balance", `
		INSERT INTO accounts (address, balance) VALUES (?, ?)
		ON CONFLICT(address) DO UPDATE SET balance = excluded.balance
	`, addr.String(), bal)
}

// PutAgent inserts or replaces an agent.
func (t *Tx) PutAgent(ag model.Agent) error {
	var a amounts
	limit := a.to("spending_limit", ag.SpendingLimit)
	spend := a.to("current_period_spend", ag.CurrentPeriodSpend)
	deposited := a.to("total_deposited", ag.TotalDeposited)
	staked := a.to("staked_amount", ag.StakedAmount)
	if a.err != nil {
		return fmt.Errorf("put agent: %w", a.err)
	}

	return t.exec("put agent", `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			name = excluded.name,
			spending_limit = excluded.spending_limit,
			period_duration = excluded.period_duration,
			current_period_start = excluded.current_period_start,
			current_period_spend = excluded.current_period_spend,
			total_deposited = excluded.total_deposited,
			staked_amount = excluded.staked_amount,
			last_yield_timestamp = excluded.last_yield_timestamp
	`,
		ag.Owner.String(),
		ag.Name,
		limit,
		ag.PeriodDuration,
		ag.CurrentPeriodStart,
		spend,
		deposited,
		staked,
		ag.LastYieldTimestamp,
		ag.CreatedAt,
	)
}

// PutDelegate inserts or replaces a delegate. The agent must exist.
func (t *Tx) PutDelegate(d model.Delegate) error {
	return t.exec("put delegate", `
		INSERT INTO delegates (`+delegateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent, delegate) DO UPDATE SET
			can_spend = excluded.can_spend,
			can_manage_yield = excluded.can_manage_yield,
			valid_until = excluded.valid_until,
			created_at = excluded.created_at
	`,
		d.Agent.String(),
		d.Delegate.String(),
		boolToInt(d.CanSpend),
		boolToInt(d.CanManageYield),
		d.ValidUntil,
		d.CreatedAt,
	)
}

// DeleteDelegate removes a delegate. Returns NotFound if it does not exist.
func (t *Tx) DeleteDelegate(agent, delegate model.Identity) error {
	res, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM delegates WHERE agent = ? AND delegate = ?`,
		agent.String(), delegate.String())
	if err != nil {
		return fmt.Errorf("delete delegate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete delegate: %w", err)
	}
	if n == 0 {
		return notFound("delegate", agent.String()+"/"+delegate.String())
	}
	return nil
}

// PutStrategy inserts or replaces an agent's yield strategy.
func (t *Tx) PutStrategy(s model.YieldStrategy) error {
	if s.Condition == nil {
		return fmt.Errorf("put strategy: missing condition")
	}
	var a amounts
	param := a.to("condition_param", s.Condition.Param())
	count := a.to("trigger_count", s.TriggerCount)
	if a.err != nil {
		return fmt.Errorf("put strategy: %w", a.err)
	}

	return t.exec("put strategy", `
		INSERT INTO yield_strategies (`+strategyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent) DO UPDATE SET
			condition_kind = excluded.condition_kind,
			condition_param = excluded.condition_param,
			protocol = excluded.protocol,
			deploy_percentage = excluded.deploy_percentage,
			enabled = excluded.enabled,
			last_triggered = excluded.last_triggered,
			trigger_count = excluded.trigger_count
	`,
		s.Agent.String(),
		string(s.Condition.Kind()),
		param,
		int(s.Protocol),
		int(s.DeployPercentage),
		boolToInt(s.Enabled),
		s.LastTriggered,
		count,
	)
}

// SetStakePosition records what agent holds in pool.
func (t *Tx) SetStakePosition(agent, pool model.Identity, amount uint64) error {
	v, err := toDB("amount", amount)
	if err != nil {
		return fmt.Errorf("set stake position: %w", err)
	}
	return t.exec("set stake position", `
		INSERT INTO stake_positions (agent, pool, amount) VALUES (?, ?, ?)
		ON CONFLICT(agent, pool) DO UPDATE SET amount = excluded.amount
	`, agent.String(), pool.String(), v)
}

// PutRegistry inserts or replaces the admin registry.
func (t *Tx) PutRegistry(r model.AdminRegistry) error {
	admins, err := marshalAdmins(r.Members())
	if err != nil {
		return fmt.Errorf("put registry: %w", err)
	}
	proposals, err := toDB("proposal_count", r.ProposalCount)
	if err != nil {
		return fmt.Errorf("put registry: %w", err)
	}

	return t.exec("put registry", `
		INSERT INTO admin_registry (id, admins, admin_count, threshold, proposal_count, created_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			admins = excluded.admins,
			admin_count = excluded.admin_count,
			threshold = excluded.threshold,
			proposal_count = excluded.proposal_count
	`,
		admins,
		int(r.AdminCount),
		int(r.Threshold),
		proposals,
		r.CreatedAt,
	)
}

// PutProposal inserts or replaces a proposal.
func (t *Tx) PutProposal(p model.TreasuryProposal) error {
	var a amounts
	id := a.to("id", p.ID)
	amount := a.to("amount", p.Amount)
	if a.err != nil {
		return fmt.Errorf("put proposal: %w", a.err)
	}

	return t.exec("put proposal", `
		INSERT INTO proposals (`+proposalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			votes_for = excluded.votes_for,
			votes_against = excluded.votes_against,
			executed_at = excluded.executed_at
	`,
		id,
		p.Proposer.String(),
		p.Destination.String(),
		amount,
		p.Memo,
		int(p.Status),
		int(p.VotesFor),
		int(p.VotesAgainst),
		p.CreatedAt,
		p.ExpiresAt,
		p.ExecutedAt,
	)
}

// AppendEvent writes an audit event and returns it with Seq assigned.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: re-appending an event
// with the same content-addressed ID returns the original sequence number.
func (t *Tx) AppendEvent(ev audit.Event) (audit.Event, error) {
	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return ev, fmt.Errorf("append event: %w", err)
	}

	if err := t.exec("append event", `
		INSERT INTO events (id, op_id, kind, subject, payload, at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ev.ID, ev.OpID, string(ev.Kind), ev.Subject, payload, ev.At); err != nil {
		return ev, err
	}

	if err := t.tx.QueryRowContext(t.ctx,
		`SELECT seq FROM events WHERE id = ?`, ev.ID,
	).Scan(&ev.Seq); err != nil {
		return ev, fmt.Errorf("append event: read seq: %w", err)
	}
	return ev, nil
}
