package accounts

import (
	"context"
	"errors"
	"strconv"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/model"
)

// Service runs account operations against an engine environment.
type Service struct {
	env *engine.Env
}

// New creates a Service.
func New(env *engine.Env) *Service {
	return &Service{env: env}
}

// InitializeBank creates the bank configuration with admin as the bank
// administrator. It may run once per ledger.
func (s *Service) InitializeBank(ctx context.Context, admin model.Identity, feeBps uint16) (model.BankConfig, error) {
	var cfg model.BankConfig
	_, err := s.env.Update(ctx, "bank.init", func(op *engine.Op) error {
		if feeBps > model.BasisPointsDenominator {
			return model.ErrInvalidFeeRate.With("fee_bps", strconv.Itoa(int(feeBps)))
		}
		if admin.IsZero() {
			return model.ErrInvalidAuthority.With("admin", admin.String())
		}
		_, err := op.Tx.Bank()
		switch {
		case err == nil:
			return model.ErrAlreadyInitialized.With("record", "bank_config")
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		cfg = model.BankConfig{
			Admin:              admin,
			FeeBps:             feeBps,
			AutoPauseThreshold: model.DefaultAutoPauseThreshold,
			CreatedAt:          op.Now,
		}
		if err := op.Tx.PutBank(cfg); err != nil {
			return err
		}
		op.Logger().Info("bank initialized", "admin", admin.String(), "fee_bps", feeBps)
		return op.Emit(audit.KindBankInitialized, "bank", audit.Fields{
			"admin":                admin,
			"fee_bps":              feeBps,
			"auto_pause_threshold": cfg.AutoPauseThreshold,
		})
	})
	return cfg, err
}

// DefaultPeriodDuration is the spending period callers use when they have
// no preference: one day.
const DefaultPeriodDuration int64 = 86_400

// Registration describes a new agent.
type Registration struct {
	Owner          model.Identity
	Name           string
	SpendingLimit  uint64
	PeriodDuration int64
}

// RegisterAgent creates owner's agent. The first spending period starts now.
func (s *Service) RegisterAgent(ctx context.Context, r Registration) (model.Agent, error) {
	var agent model.Agent
	_, err := s.env.Update(ctx, "agent.register", func(op *engine.Op) error {
		if !model.ValidAgentName(r.Name) {
			return model.ErrInvalidName.With("name", r.Name)
		}
		_, err := op.Tx.Agent(r.Owner)
		switch {
		case err == nil:
			return model.ErrAlreadyInitialized.With("agent", r.Owner.String())
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		agent = model.Agent{
			Owner:              r.Owner,
			Name:               r.Name,
			SpendingLimit:      r.SpendingLimit,
			PeriodDuration:     r.PeriodDuration,
			CurrentPeriodStart: op.Now,
			CreatedAt:          op.Now,
		}
		if err := op.Tx.PutAgent(agent); err != nil {
			return err
		}
		op.Logger().Info("agent registered",
			"agent", r.Owner.String(),
			"name", r.Name,
			"spending_limit", r.SpendingLimit,
			"period_duration", r.PeriodDuration,
		)
		return op.Emit(audit.KindAgentRegistered, r.Owner.String(), audit.Fields{
			"name":            r.Name,
			"vault":           agent.Vault(),
			"spending_limit":  r.SpendingLimit,
			"period_duration": r.PeriodDuration,
		})
	})
	return agent, err
}

// Deposit moves amount from the owner's account into the agent vault.
// 80% of everything ever deposited counts as staked for yield.
func (s *Service) Deposit(ctx context.Context, owner model.Identity, amount uint64) (model.Agent, error) {
	var agent model.Agent
	_, err := s.env.Update(ctx, "agent.deposit", func(op *engine.Op) error {
		var err error
		if agent, err = op.Tx.Agent(owner); err != nil {
			return err
		}
		if err := op.Move(owner, agent.Vault(), amount); err != nil {
			return err
		}
		if agent.TotalDeposited, err = model.CheckedAdd(agent.TotalDeposited, amount); err != nil {
			return err
		}
		agent.StakedAmount = model.StakedShare(agent.TotalDeposited)
		if agent.LastYieldTimestamp == 0 {
			agent.LastYieldTimestamp = op.Now
		}
		if err := op.Tx.PutAgent(agent); err != nil {
			return err
		}
		op.Logger().Info("deposit", "agent", owner.String(), "amount", amount, "total", agent.TotalDeposited)
		return op.Emit(audit.KindDeposit, owner.String(), audit.Fields{
			"amount":          amount,
			"total_deposited": agent.TotalDeposited,
			"staked_amount":   agent.StakedAmount,
		})
	})
	return agent, err
}

// Accrual describes one AccrueYield call.
type Accrual struct {
	Agent model.Identity `json:"agent"`
	// Owed is the yield earned since the last accrual.
	Owed uint64 `json:"owed"`
	// Paid is what the treasury could cover; less than Owed when short.
	Paid    uint64 `json:"paid"`
	Elapsed int64  `json:"elapsed"`
	Staked  uint64 `json:"staked_amount"`
}

// AccrueYield pays the agent's pending yield from the treasury into its
// vault. A short treasury pays what it holds. The accrual clock only moves
// when time has passed, and nothing happens while nothing is staked.
func (s *Service) AccrueYield(ctx context.Context, owner model.Identity) (Accrual, error) {
	out := Accrual{Agent: owner}
	_, err := s.env.Update(ctx, "agent.accrue", func(op *engine.Op) error {
		agent, err := op.Tx.Agent(owner)
		if err != nil {
			return err
		}
		out.Staked = agent.StakedAmount
		if agent.StakedAmount == 0 {
			return nil
		}
		out.Elapsed = op.Now - agent.LastYieldTimestamp
		if out.Elapsed <= 0 {
			out.Elapsed = 0
			return nil
		}

		out.Owed = model.PendingYield(agent.StakedAmount, out.Elapsed)
		if out.Owed > 0 {
			treasury, err := op.Tx.Balance(model.TreasuryAddress())
			if err != nil {
				return err
			}
			out.Paid = min(out.Owed, treasury)
			if out.Paid < out.Owed {
				op.Logger().Warn("treasury short, paying partial yield",
					"agent", owner.String(), "owed", out.Owed, "paid", out.Paid)
			}
			if out.Paid > 0 {
				if err := op.Move(model.TreasuryAddress(), agent.Vault(), out.Paid); err != nil {
					return err
				}
				if agent.StakedAmount, err = model.CheckedAdd(agent.StakedAmount, out.Paid); err != nil {
					return err
				}
				if agent.TotalDeposited, err = model.CheckedAdd(agent.TotalDeposited, out.Paid); err != nil {
					return err
				}
			}
		}
		agent.LastYieldTimestamp = op.Now
		out.Staked = agent.StakedAmount
		if err := op.Tx.PutAgent(agent); err != nil {
			return err
		}
		return op.Emit(audit.KindYieldAccrued, owner.String(), audit.Fields{
			"owed":    out.Owed,
			"paid":    out.Paid,
			"elapsed": out.Elapsed,
			"staked":  agent.StakedAmount,
		})
	})
	return out, err
}

// Airdrop credits amount to any account out of thin air. Development only.
func (s *Service) Airdrop(ctx context.Context, to model.Identity, amount uint64) (uint64, error) {
	var balance uint64
	_, err := s.env.Update(ctx, "airdrop", func(op *engine.Op) error {
		if err := op.Mint(to, amount); err != nil {
			return err
		}
		var err error
		if balance, err = op.Tx.Balance(to); err != nil {
			return err
		}
		return op.Emit(audit.KindAirdrop, to.String(), audit.Fields{
			"amount": amount,
		})
	})
	return balance, err
}

// Agent returns owner's agent together with its vault balance.
func (s *Service) Agent(ctx context.Context, owner model.Identity) (model.Agent, uint64, error) {
	var (
		agent   model.Agent
		balance uint64
	)
	_, err := s.env.View(ctx, "agent.show", func(op *engine.Op) error {
		var err error
		if agent, err = op.Tx.Agent(owner); err != nil {
			return err
		}
		balance, err = op.Tx.Balance(agent.Vault())
		return err
	})
	return agent, balance, err
}

// Balance returns the balance of any account.
func (s *Service) Balance(ctx context.Context, addr model.Identity) (uint64, error) {
	var balance uint64
	_, err := s.env.View(ctx, "balance", func(op *engine.Op) error {
		var err error
		balance, err = op.Tx.Balance(addr)
		return err
	})
	return balance, err
}
