package engine

import (
	"context"
	"errors"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
)

// Permission is a delegated capability.
type Permission int

const (
	PermSpend Permission = iota
	PermManageYield
)

// Authorize checks that authority may act on owner's agent with perm at
// instant now.
//
// The owner is always authorized. Otherwise a delegate record must exist
// (InvalidAuthority), carry the permission (UnauthorizedDelegate), and not
// have expired (DelegateExpired), checked in that order.
func Authorize(tx *store.Tx, owner, authority model.Identity, perm Permission, now int64) error {
	if authority == owner {
		return nil
	}

	d, err := tx.Delegate(owner, authority)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrInvalidAuthority.With("authority", authority.String())
	}
	if err != nil {
		return err
	}

	allowed := d.CanSpend
	if perm == PermManageYield {
		allowed = d.CanManageYield
	}
	if !allowed {
		return model.ErrUnauthorizedDelegate.With("delegate", authority.String())
	}
	if d.Expired(now) {
		return model.ErrDelegateExpired.With("delegate", authority.String())
	}
	return nil
}

// DelegateGrant describes the permissions given to a delegate.
type DelegateGrant struct {
	Delegate       model.Identity
	CanSpend       bool
	CanManageYield bool
	// ValidUntil is the expiry instant; 0 means no expiry.
	ValidUntil int64
}

// AddDelegate grants or replaces a delegate on the owner's agent.
func (e *Engine) AddDelegate(ctx context.Context, owner model.Identity, g DelegateGrant) (model.Delegate, error) {
	var out model.Delegate
	_, err := e.env.Update(ctx, "delegate.add", func(op *Op) error {
		if _, err := op.Tx.Agent(owner); err != nil {
			return err
		}
		out = model.Delegate{
			Agent:          owner,
			Delegate:       g.Delegate,
			CanSpend:       g.CanSpend,
			CanManageYield: g.CanManageYield,
			ValidUntil:     g.ValidUntil,
			CreatedAt:      op.Now,
		}
		if err := op.Tx.PutDelegate(out); err != nil {
			return err
		}
		return op.Emit(audit.KindDelegateAdded, owner.String(), audit.Fields{
			"delegate":         g.Delegate,
			"can_spend":        g.CanSpend,
			"can_manage_yield": g.CanManageYield,
			"valid_until":      g.ValidUntil,
		})
	})
	return out, err
}

// RevokeDelegate removes a delegate. Fails NotFound if none exists.
func (e *Engine) RevokeDelegate(ctx context.Context, owner, delegate model.Identity) error {
	_, err := e.env.Update(ctx, "delegate.revoke", func(op *Op) error {
		if err := op.Tx.DeleteDelegate(owner, delegate); err != nil {
			return err
		}
		return op.Emit(audit.KindDelegateRemoved, owner.String(), audit.Fields{
			"delegate": delegate,
		})
	})
	return err
}

// ListDelegates returns the owner's delegates ordered by identity.
func (e *Engine) ListDelegates(ctx context.Context, owner model.Identity) ([]model.Delegate, error) {
	var out []model.Delegate
	_, err := e.env.View(ctx, "delegate.list", func(op *Op) error {
		if _, err := op.Tx.Agent(owner); err != nil {
			return err
		}
		var err error
		out, err = op.Tx.Delegates(owner)
		return err
	})
	return out, err
}
