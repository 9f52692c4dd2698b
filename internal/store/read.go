package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/neobank/internal/model"
)

// Bank returns the bank configuration, or NotFound before initialization.
func (t *Tx) Bank() (model.BankConfig, error) {
	var (
		cfg                         model.BankConfig
		admin                       string
		paused, reason              int
		count, threshold, totalFees int64
	)
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT admin, fee_bps, paused, pause_reason, suspicious_activity_count,
		       auto_pause_threshold, last_security_check, total_fees_collected, created_at
		FROM bank_config WHERE id = 1
	`).Scan(&admin, &cfg.FeeBps, &paused, &reason, &count, &threshold,
		&cfg.LastSecurityCheck, &totalFees, &cfg.CreatedAt)
	if err != nil {
		return cfg, scanErr(err, "bank_config", "1")
	}

	if cfg.Admin, err = parseIdentity("admin", admin); err != nil {
		return cfg, err
	}
	cfg.Paused = paused != 0
	cfg.PauseReason = model.PauseReason(reason)

	var a amounts
	cfg.SuspiciousActivityCount = a.from("suspicious_activity_count", count)
	cfg.AutoPauseThreshold = a.from("auto_pause_threshold", threshold)
	cfg.TotalFeesCollected = a.from("total_fees_collected", totalFees)
	return cfg, a.err
}

// Balance returns an account's balance. Unknown accounts hold zero.
func (t *Tx) Balance(addr model.Identity) (uint64, error) {
	var bal int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT balance FROM accounts WHERE address = ?`, addr.String(),
	).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return fromDB("balance", bal)
}

const agentColumns = `owner, name, spending_limit, period_duration, current_period_start,
	current_period_spend, total_deposited, staked_amount, last_yield_timestamp, created_at`

func scanAgent(row scanner) (model.Agent, error) {
	var (
		a                               model.Agent
		owner                           string
		limit, spend, deposited, staked int64
	)
	if err := row.Scan(&owner, &a.Name, &limit, &a.PeriodDuration, &a.CurrentPeriodStart,
		&spend, &deposited, &staked, &a.LastYieldTimestamp, &a.CreatedAt); err != nil {
		return a, err
	}
	var err error
	if a.Owner, err = parseIdentity("owner", owner); err != nil {
		return a, err
	}
	var c amounts
	a.SpendingLimit = c.from("spending_limit", limit)
	a.CurrentPeriodSpend = c.from("current_period_spend", spend)
	a.TotalDeposited = c.from("total_deposited", deposited)
	a.StakedAmount = c.from("staked_amount", staked)
	return a, c.err
}

// Agent returns the agent owned by owner.
func (t *Tx) Agent(owner model.Identity) (model.Agent, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+agentColumns+` FROM agents WHERE owner = ?`, owner.String())
	a, err := scanAgent(row)
	if err != nil {
		return a, scanErr(err, "agent", owner.String())
	}
	return a, nil
}

// Agents returns every agent ordered by owner.
// Returns an empty slice (not nil) when there are none.
func (t *Tx) Agents() ([]model.Agent, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+agentColumns+` FROM agents ORDER BY owner COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	agents := []model.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

const delegateColumns = `agent, delegate, can_spend, can_manage_yield, valid_until, created_at`

func scanDelegate(row scanner) (model.Delegate, error) {
	var (
		d                  model.Delegate
		agent, delegate    string
		canSpend, canYield int
	)
	if err := row.Scan(&agent, &delegate, &canSpend, &canYield, &d.ValidUntil, &d.CreatedAt); err != nil {
		return d, err
	}
	var err error
	if d.Agent, err = parseIdentity("agent", agent); err != nil {
		return d, err
	}
	if d.Delegate, err = parseIdentity("delegate", delegate); err != nil {
		return d, err
	}
	d.CanSpend = canSpend != 0
	d.CanManageYield = canYield != 0
	return d, nil
}

// Delegate returns the delegate record for (agent, delegate).
func (t *Tx) Delegate(agent, delegate model.Identity) (model.Delegate, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+delegateColumns+` FROM delegates WHERE agent = ? AND delegate = ?`,
		agent.String(), delegate.String())
	d, err := scanDelegate(row)
	if err != nil {
		return d, scanErr(err, "delegate", agent.String()+"/"+delegate.String())
	}
	return d, nil
}

// Delegates returns every delegate of an agent ordered by delegate identity.
func (t *Tx) Delegates(agent model.Identity) ([]model.Delegate, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+delegateColumns+` FROM delegates WHERE agent = ? ORDER BY delegate COLLATE BINARY ASC`,
		agent.String())
	if err != nil {
		return nil, fmt.Errorf("query delegates: %w", err)
	}
	defer rows.Close()

	out := []model.Delegate{}
	for rows.Next() {
		d, err := scanDelegate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delegate: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delegates: %w", err)
	}
	return out, nil
}

const strategyColumns = `agent, condition_kind, condition_param, protocol, deploy_percentage,
	enabled, last_triggered, trigger_count`

func scanStrategy(row scanner) (model.YieldStrategy, error) {
	var (
		s                      model.YieldStrategy
		agent, kind            string
		param, count           int64
		protocol, pct, enabled int
	)
	if err := row.Scan(&agent, &kind, &param, &protocol, &pct, &enabled, &s.LastTriggered, &count); err != nil {
		return s, err
	}
	var err error
	if s.Agent, err = parseIdentity("agent", agent); err != nil {
		return s, err
	}
	var c amounts
	p := c.from("condition_param", param)
	s.TriggerCount = c.from("trigger_count", count)
	if c.err != nil {
		return s, c.err
	}
	if s.Condition, err = model.NewHookCondition(model.ConditionKind(kind), p); err != nil {
		return s, err
	}
	s.Protocol = model.YieldProtocol(protocol)
	s.DeployPercentage = uint8(pct)
	s.Enabled = enabled != 0
	return s, nil
}

// Strategy returns the agent's yield strategy.
func (t *Tx) Strategy(agent model.Identity) (model.YieldStrategy, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+strategyColumns+` FROM yield_strategies WHERE agent = ?`, agent.String())
	s, err := scanStrategy(row)
	if err != nil {
		return s, scanErr(err, "yield_strategy", agent.String())
	}
	return s, nil
}

// Strategies returns every yield strategy ordered by agent.
func (t *Tx) Strategies() ([]model.YieldStrategy, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+strategyColumns+` FROM yield_strategies ORDER BY agent COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	out := []model.YieldStrategy{}
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategies: %w", err)
	}
	return out, nil
}

// StakePosition returns what agent holds in pool. No position reads as zero.
func (t *Tx) StakePosition(agent, pool model.Identity) (uint64, error) {
	var amount int64
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT amount FROM stake_positions WHERE agent = ? AND pool = ?`,
		agent.String(), pool.String(),
	).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read stake position: %w", err)
	}
	return fromDB("amount", amount)
}

// Registry returns the admin registry, or NotFound before governance is
// initialized.
func (t *Tx) Registry() (model.AdminRegistry, error) {
	var (
		r         model.AdminRegistry
		admins    string
		proposals int64
	)
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT admins, admin_count, threshold, proposal_count, created_at
		FROM admin_registry WHERE id = 1
	`).Scan(&admins, &r.AdminCount, &r.Threshold, &proposals, &r.CreatedAt)
	if err != nil {
		return r, scanErr(err, "admin_registry", "1")
	}

	members, err := unmarshalAdmins(admins)
	if err != nil {
		return r, err
	}
	if len(members) != int(r.AdminCount) || len(members) > model.MaxAdmins {
		return r, fmt.Errorf("admin_registry: %d admins stored, count is %d", len(members), r.AdminCount)
	}
	copy(r.Admins[:], members)

	if r.ProposalCount, err = fromDB("proposal_count", proposals); err != nil {
		return r, err
	}
	return r, nil
}

const proposalColumns = `id, proposer, destination, amount, memo, status, votes_for,
	votes_against, created_at, expires_at, executed_at`

func scanProposal(row scanner) (model.TreasuryProposal, error) {
	var (
		p                     model.TreasuryProposal
		id, amount            int64
		proposer, destination string
		status                int
	)
	if err := row.Scan(&id, &proposer, &destination, &amount, &p.Memo, &status,
		&p.VotesFor, &p.VotesAgainst, &p.CreatedAt, &p.ExpiresAt, &p.ExecutedAt); err != nil {
		return p, err
	}
	var err error
	if p.Proposer, err = parseIdentity("proposer", proposer); err != nil {
		return p, err
	}
	if p.Destination, err = parseIdentity("destination", destination); err != nil {
		return p, err
	}
	var c amounts
	p.ID = c.from("id", id)
	p.Amount = c.from("amount", amount)
	p.Status = model.ProposalStatus(status)
	return p, c.err
}

// Proposal returns a proposal by id.
func (t *Tx) Proposal(id uint64) (model.TreasuryProposal, error) {
	key := strconv.FormatUint(id, 10)
	dbID, err := toDB("proposal id", id)
	if err != nil {
		return model.TreasuryProposal{}, notFound("proposal", key)
	}
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, dbID)
	p, err := scanProposal(row)
	if err != nil {
		return p, scanErr(err, "proposal", key)
	}
	return p, nil
}

// Proposals returns every proposal ordered by id.
func (t *Tx) Proposals() ([]model.TreasuryProposal, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+proposalColumns+` FROM proposals ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	out := []model.TreasuryProposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proposals: %w", err)
	}
	return out, nil
}
