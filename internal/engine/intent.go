package engine

import (
	"context"

	"github.com/roach88/neobank/internal/model"
)

// Intent rejection reasons.
const (
	ReasonSpendingLimitExceeded = "spending_limit_exceeded"
	ReasonInsufficientFunds     = "insufficient_funds"
)

// IntentRequest is a dry-run withdrawal.
type IntentRequest struct {
	Agent  model.Identity
	Amount uint64
	Memo   string
	// ExecutionTime replaces the host clock when non-nil.
	ExecutionTime *int64
}

// IntentValidation is the outcome of ValidateIntent.
type IntentValidation struct {
	Valid              bool   `json:"valid"`
	RemainingLimit     uint64 `json:"remaining_limit"`
	VaultBalance       uint64 `json:"vault_balance"`
	CurrentPeriodSpend uint64 `json:"current_period_spend"`
	PeriodResetsAt     int64  `json:"period_resets_at"`
	// Reason is empty when Valid.
	Reason    string `json:"reason,omitempty"`
	Memo      string `json:"memo,omitempty"`
	CheckedAt int64  `json:"checked_at"`
}

// Err returns the typed error matching Reason, or nil when valid.
func (v IntentValidation) Err() error {
	switch v.Reason {
	case "":
		return nil
	case ReasonSpendingLimitExceeded:
		return model.ErrIntentWouldExceedLimit
	case ReasonInsufficientFunds:
		return model.ErrIntentInsufficientFunds
	default:
		return model.ErrIntentWouldExceedLimit.With("reason", v.Reason)
	}
}

// ValidateIntent replays the period, limit and balance checks of
// RequestWithdrawal at ExecutionTime (default: now) without mutating
// anything. It does not consult the risk screener or the breaker.
//
// A rejected intent is reported through the result, not as an error;
// errors are reserved for a missing agent or a storage failure.
func (e *Engine) ValidateIntent(ctx context.Context, req IntentRequest) (IntentValidation, error) {
	var out IntentValidation
	_, err := e.env.View(ctx, "intent", func(op *Op) error {
		agent, err := op.Tx.Agent(req.Agent)
		if err != nil {
			return err
		}
		balance, err := op.Tx.Balance(agent.Vault())
		if err != nil {
			return err
		}

		at := op.Now
		if req.ExecutionTime != nil {
			at = *req.ExecutionTime
		}
		// agent is a local copy; the roll is never written back.
		agent.RollPeriod(at)

		out = IntentValidation{
			RemainingLimit:     agent.RemainingLimit(),
			VaultBalance:       balance,
			CurrentPeriodSpend: agent.CurrentPeriodSpend,
			PeriodResetsAt:     agent.PeriodEnd(),
			Memo:               model.TruncateMemo(req.Memo),
			CheckedAt:          at,
		}
		switch {
		case req.Amount > out.RemainingLimit:
			out.Reason = ReasonSpendingLimitExceeded
		case balance < req.Amount:
			out.Reason = ReasonInsufficientFunds
		default:
			out.Valid = true
		}

		op.Logger().Debug("intent validated",
			"agent", req.Agent.String(),
			"amount", req.Amount,
			"valid", out.Valid,
			"reason", out.Reason,
		)
		return nil
	})
	return out, err
}
