package engine

import (
	"context"
	"strconv"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/metrics"
	"github.com/roach88/neobank/internal/model"
)

// WithdrawalRequest asks to move Amount out of Agent's vault.
type WithdrawalRequest struct {
	// Agent is the owner identity of the agent being debited.
	Agent model.Identity
	// Authority is the caller: the owner or one of its delegates.
	Authority   model.Identity
	Destination model.Identity
	Amount      uint64
}

// WithdrawalReceipt describes a committed withdrawal.
type WithdrawalReceipt struct {
	OpID        string
	Agent       model.Identity
	Authority   model.Identity
	Destination model.Identity
	Amount      uint64
	Fee         uint64
	Net         uint64
	PeriodSpend uint64
	PeriodStart int64
	PeriodReset bool
	At          int64
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// RequestWithdrawal validates and executes a withdrawal.
//
// Checks run in this order and each fails fast:
//  1. bank paused                   -> BankPaused
//  2. authority                     -> InvalidAuthority, UnauthorizedDelegate, DelegateExpired
//  3. destination screening         -> SuspiciousDestination (counter increment persists)
//  4. breaker threshold reached     -> BankPaused (pause persists)
//  5. period elapsed                -> period reset (staged)
//  6. period spend + amount > limit -> SpendingLimitExceeded
//  7. vault balance < amount        -> InsufficientFunds
//
// On success the fee goes to the treasury and the net amount to the
// destination. Everything from step 5 on commits together or not at all.
func (e *Engine) RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (WithdrawalReceipt, error) {
	var (
		rcpt    WithdrawalReceipt
		flagged bool
		tripped bool
	)

	res, err := e.env.Update(ctx, "withdraw", func(op *Op) error {
		log := op.Logger().With("agent", req.Agent.String(), "authority", req.Authority.String())

		cfg, err := op.Tx.Bank()
		if err != nil {
			return err
		}
		if cfg.Paused {
			return model.ErrBankPaused.With("reason", cfg.PauseReason.String())
		}

		agent, err := op.Tx.Agent(req.Agent)
		if err != nil {
			return err
		}
		if err := Authorize(op.Tx, agent.Owner, req.Authority, PermSpend, op.Now); err != nil {
			return err
		}

		screen := e.env.Screener.Classify(req.Destination)
		if screen.Blocked() {
			cfg.SuspiciousActivityCount = saturatingInc(cfg.SuspiciousActivityCount)
			if err := op.Tx.PutBank(cfg); err != nil {
				return err
			}
			if err := op.Emit(audit.KindSuspiciousActivity, req.Agent.String(), audit.Fields{
				"authority":   req.Authority,
				"destination": req.Destination,
				"amount":      req.Amount,
				"risk_score":  screen.RiskScore,
				"reason":      screen.Reason.String(),
				"count":       cfg.SuspiciousActivityCount,
			}); err != nil {
				return err
			}
			log.Warn("suspicious destination refused",
				"destination", req.Destination.String(),
				"risk_score", screen.RiskScore,
				"reason", screen.Reason.String(),
				"count", cfg.SuspiciousActivityCount,
			)
			flagged = true
			return op.CommitAndFail(model.ErrSuspiciousDestination.
				With("destination", req.Destination.String()).
				With("risk_score", strconv.Itoa(int(screen.RiskScore))).
				With("reason", screen.Reason.String()))
		}

		if cfg.BreakerDue() {
			cfg.Paused = true
			cfg.PauseReason = model.PauseSecurity
			if err := op.Tx.PutBank(cfg); err != nil {
				return err
			}
			if err := op.Emit(audit.KindBreakerTripped, "bank", audit.Fields{
				"count":     cfg.SuspiciousActivityCount,
				"threshold": cfg.AutoPauseThreshold,
				"agent":     req.Agent,
			}); err != nil {
				return err
			}
			log.Error("circuit breaker tripped, bank paused",
				"count", cfg.SuspiciousActivityCount,
				"threshold", cfg.AutoPauseThreshold,
			)
			tripped = true
			return op.CommitAndFail(model.ErrBankPaused.With("reason", model.PauseSecurity.String()))
		}

		reset := agent.RollPeriod(op.Now)

		spend, err := model.CheckedAdd(agent.CurrentPeriodSpend, req.Amount)
		if err != nil || spend > agent.SpendingLimit {
			return model.ErrSpendingLimitExceeded.
				With("limit", u64(agent.SpendingLimit)).
				With("period_spend", u64(agent.CurrentPeriodSpend)).
				With("amount", u64(req.Amount))
		}

		vault := agent.Vault()
		balance, err := op.Tx.Balance(vault)
		if err != nil {
			return err
		}
		if balance < req.Amount {
			return model.ErrInsufficientFunds.
				With("balance", u64(balance)).
				With("amount", u64(req.Amount))
		}

		fee, net, err := model.SplitFee(req.Amount, cfg.FeeBps)
		if err != nil {
			return err
		}
		agent.CurrentPeriodSpend = spend

		if fee > 0 {
			if err := op.Move(vault, model.TreasuryAddress(), fee); err != nil {
				return err
			}
			if cfg.TotalFeesCollected, err = model.CheckedAdd(cfg.TotalFeesCollected, fee); err != nil {
				return err
			}
			if err := op.Tx.PutBank(cfg); err != nil {
				return err
			}
		}
		if err := op.Move(vault, req.Destination, net); err != nil {
			return err
		}
		if err := op.Tx.PutAgent(agent); err != nil {
			return err
		}

		rcpt = WithdrawalReceipt{
			Agent:       agent.Owner,
			Authority:   req.Authority,
			Destination: req.Destination,
			Amount:      req.Amount,
			Fee:         fee,
			Net:         net,
			PeriodSpend: agent.CurrentPeriodSpend,
			PeriodStart: agent.CurrentPeriodStart,
			PeriodReset: reset,
		}
		if err := op.Emit(audit.KindWithdrawal, req.Agent.String(), audit.Fields{
			"authority":    req.Authority,
			"destination":  req.Destination,
			"amount":       req.Amount,
			"fee":          fee,
			"net":          net,
			"period_spend": agent.CurrentPeriodSpend,
			"period_reset": reset,
		}); err != nil {
			return err
		}

		log.Info("withdrawal executed",
			"destination", req.Destination.String(),
			"amount", req.Amount,
			"fee", fee,
			"period_spend", agent.CurrentPeriodSpend,
		)
		return nil
	})

	if flagged {
		e.env.Metrics.Suspicious()
	}
	if tripped {
		e.env.Metrics.BreakerTripped()
	}
	code := string(model.CodeOf(err))
	if err != nil && code == "" {
		code = metrics.OutcomeFailed
	}
	e.env.Metrics.Withdrawal(code, req.Amount, rcpt.Fee)
	if err != nil {
		return WithdrawalReceipt{}, err
	}

	rcpt.OpID = res.OpID
	rcpt.At = res.At
	return rcpt, nil
}

func saturatingInc(v uint64) uint64 {
	if v == ^uint64(0) {
		return v
	}
	return v + 1
}
