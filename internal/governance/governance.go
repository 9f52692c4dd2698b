package governance

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/model"
)

// Engine runs treasury governance operations.
type Engine struct {
	env *engine.Env
}

// New creates a governance Engine.
func New(env *engine.Env) *Engine {
	return &Engine{env: env}
}

func idString(id uint64) string { return strconv.FormatUint(id, 10) }

func proposalSubject(id uint64) string { return "proposal/" + idString(id) }

// Initialize creates the admin registry. Only the bank admin may call it,
// and only once.
func (g *Engine) Initialize(ctx context.Context, caller model.Identity, admins []model.Identity, threshold uint8) (model.AdminRegistry, error) {
	var reg model.AdminRegistry
	_, err := g.env.Update(ctx, "gov.init", func(op *engine.Op) error {
		cfg, err := op.Tx.Bank()
		if err != nil {
			return err
		}
		if cfg.Admin != caller {
			return model.ErrUnauthorized.With("caller", caller.String())
		}
		_, err = op.Tx.Registry()
		switch {
		case err == nil:
			return model.ErrAlreadyInitialized.With("record", "admin_registry")
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		if reg, err = model.NewAdminRegistry(admins, threshold); err != nil {
			return err
		}
		reg.CreatedAt = op.Now
		if err := op.Tx.PutRegistry(reg); err != nil {
			return err
		}
		members := make([]string, 0, reg.AdminCount)
		for _, a := range reg.Members() {
			members = append(members, a.String())
		}
		op.Logger().Info("governance initialized", "admins", reg.AdminCount, "threshold", reg.Threshold)
		return op.Emit(audit.KindGovernanceInitialized, "governance", audit.Fields{
			"admins":    members,
			"threshold": reg.Threshold,
		})
	})
	return reg, err
}

// CreateProposal opens a treasury spend. The proposer's own vote counts
// for it. The treasury balance is checked here and again at execution.
func (g *Engine) CreateProposal(ctx context.Context, proposer, destination model.Identity, amount uint64, memo string) (model.TreasuryProposal, error) {
	var p model.TreasuryProposal
	_, err := g.env.Update(ctx, "gov.propose", func(op *engine.Op) error {
		reg, err := op.Tx.Registry()
		if err != nil {
			return err
		}
		if !reg.IsAdmin(proposer) {
			return model.ErrNotAdmin.With("caller", proposer.String())
		}
		if err := requireTreasury(op, amount); err != nil {
			return err
		}

		p = model.TreasuryProposal{
			ID:          reg.ProposalCount,
			Proposer:    proposer,
			Destination: destination,
			Amount:      amount,
			Memo:        model.TruncateMemo(memo),
			Status:      model.ProposalPending,
			VotesFor:    1,
			CreatedAt:   op.Now,
			ExpiresAt:   model.SaturatingAddTime(op.Now, model.ProposalTTL),
		}
		if reg.ProposalCount, err = model.CheckedAdd(reg.ProposalCount, 1); err != nil {
			return err
		}
		if err := op.Tx.PutRegistry(reg); err != nil {
			return err
		}
		if err := op.Tx.PutProposal(p); err != nil {
			return err
		}

		op.Logger().Info("proposal created",
			"proposal", p.ID,
			"proposer", proposer.String(),
			"destination", destination.String(),
			"amount", amount,
		)
		return op.Emit(audit.KindProposalCreated, proposalSubject(p.ID), audit.Fields{
			"proposer":    proposer,
			"destination": destination,
			"amount":      amount,
			"memo":        p.Memo,
			"expires_at":  p.ExpiresAt,
			"threshold":   reg.Threshold,
		})
	})
	if err == nil {
		g.env.Metrics.ProposalTransition(model.ProposalPending.String())
	}
	return p, err
}

// VoteProposal records voter's ballot. Reaching threshold approves the
// proposal; exceeding admin_count - threshold votes against rejects it.
//
// Ballots are not deduplicated per admin; every call counts.
func (g *Engine) VoteProposal(ctx context.Context, voter model.Identity, id uint64, approve bool) (model.TreasuryProposal, error) {
	var p model.TreasuryProposal
	_, err := g.env.Update(ctx, "gov.vote", func(op *engine.Op) error {
		reg, err := op.Tx.Registry()
		if err != nil {
			return err
		}
		if !reg.IsAdmin(voter) {
			return model.ErrNotAdmin.With("caller", voter.String())
		}
		if p, err = op.Tx.Proposal(id); err != nil {
			return err
		}
		if p.Status != model.ProposalPending {
			return model.ErrProposalNotPending.With("status", p.Status.String())
		}
		if op.Now > p.ExpiresAt {
			if err := expire(op, &p); err != nil {
				return err
			}
			return op.CommitAndFail(model.ErrProposalExpired.With("proposal", idString(id)))
		}

		if approve {
			p.VotesFor = saturatingInc8(p.VotesFor)
		} else {
			p.VotesAgainst = saturatingInc8(p.VotesAgainst)
		}
		switch {
		case p.VotesFor >= reg.Threshold:
			p.Status = model.ProposalApproved
		case p.VotesAgainst > reg.AdminCount-reg.Threshold:
			p.Status = model.ProposalRejected
		}
		if err := op.Tx.PutProposal(p); err != nil {
			return err
		}

		op.Logger().Info("vote recorded",
			"proposal", id,
			"voter", voter.String(),
			"approve", approve,
			"votes_for", p.VotesFor,
			"votes_against", p.VotesAgainst,
			"status", p.Status.String(),
		)
		return op.Emit(audit.KindVoteRecorded, proposalSubject(id), audit.Fields{
			"voter":         voter,
			"approve":       approve,
			"votes_for":     p.VotesFor,
			"votes_against": p.VotesAgainst,
			"status":        p.Status.String(),
		})
	})
	switch {
	case err == nil && p.Status != model.ProposalPending:
		g.env.Metrics.ProposalTransition(p.Status.String())
	case errors.Is(err, model.ErrProposalExpired):
		g.env.Metrics.ProposalTransition(model.ProposalExpired.String())
	}
	return p, err
}

// ExecuteProposal pays out an approved proposal. Anyone may call it;
// destination must match the proposal.
func (g *Engine) ExecuteProposal(ctx context.Context, id uint64, destination model.Identity) (model.TreasuryProposal, error) {
	var p model.TreasuryProposal
	_, err := g.env.Update(ctx, "gov.execute", func(op *engine.Op) error {
		cfg, err := op.Tx.Bank()
		if err != nil {
			return err
		}
		if cfg.Paused {
			return model.ErrBankPaused.With("reason", cfg.PauseReason.String())
		}
		if p, err = op.Tx.Proposal(id); err != nil {
			return err
		}
		if p.Status != model.ProposalApproved {
			return model.ErrProposalNotApproved.With("status", p.Status.String())
		}
		if destination != p.Destination {
			return model.ErrInvalidDestination.With("destination", destination.String())
		}
		if err := requireTreasury(op, p.Amount); err != nil {
			return err
		}
		if err := op.Move(model.TreasuryAddress(), p.Destination, p.Amount); err != nil {
			return err
		}
		p.Status = model.ProposalExecuted
		p.ExecutedAt = op.Now
		if err := op.Tx.PutProposal(p); err != nil {
			return err
		}

		op.Logger().Info("proposal executed",
			"proposal", id,
			"destination", p.Destination.String(),
			"amount", p.Amount,
		)
		return op.Emit(audit.KindProposalExecuted, proposalSubject(id), audit.Fields{
			"destination": p.Destination,
			"amount":      p.Amount,
		})
	})
	if err == nil {
		g.env.Metrics.ProposalTransition(model.ProposalExecuted.String())
	}
	return p, err
}

// Proposal returns one proposal.
func (g *Engine) Proposal(ctx context.Context, id uint64) (model.TreasuryProposal, error) {
	var p model.TreasuryProposal
	_, err := g.env.View(ctx, "gov.show", func(op *engine.Op) error {
		var err error
		p, err = op.Tx.Proposal(id)
		return err
	})
	return p, err
}

// Proposals returns every proposal ordered by id.
func (g *Engine) Proposals(ctx context.Context) ([]model.TreasuryProposal, error) {
	var out []model.TreasuryProposal
	_, err := g.env.View(ctx, "gov.list", func(op *engine.Op) error {
		var err error
		out, err = op.Tx.Proposals()
		return err
	})
	return out, err
}

// Registry returns the admin registry.
func (g *Engine) Registry(ctx context.Context) (model.AdminRegistry, error) {
	var reg model.AdminRegistry
	_, err := g.env.View(ctx, "gov.registry", func(op *engine.Op) error {
		var err error
		reg, err = op.Tx.Registry()
		return err
	})
	return reg, err
}

func requireTreasury(op *engine.Op, amount uint64) error {
	balance, err := op.Tx.Balance(model.TreasuryAddress())
	if err != nil {
		return err
	}
	if balance < amount {
		return model.ErrInsufficientTreasuryFunds.
			With("balance", strconv.FormatUint(balance, 10)).
			With("amount", strconv.FormatUint(amount, 10))
	}
	return nil
}

func expire(op *engine.Op, p *model.TreasuryProposal) error {
	if !p.Status.CanTransition(model.ProposalExpired) {
		return fmt.Errorf("expire proposal %d: illegal transition from %s", p.ID, p.Status)
	}
	p.Status = model.ProposalExpired
	if err := op.Tx.PutProposal(*p); err != nil {
		return err
	}
	op.Logger().Info("proposal expired", "proposal", p.ID, "expires_at", p.ExpiresAt)
	return op.Emit(audit.KindProposalExpired, proposalSubject(p.ID), audit.Fields{
		"expires_at": p.ExpiresAt,
	})
}

func saturatingInc8(v uint8) uint8 {
	if v == ^uint8(0) {
		return v
	}
	return v + 1
}
