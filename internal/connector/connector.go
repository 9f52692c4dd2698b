// Package connector dispatches yield deployments to protocol adapters.
//
// Internal, Jupiter, Meteora and Marinade only record the intent to
// deploy. JitoSOL moves the deploy amount out of the agent vault into the
// configured stake pool account and tracks the agent's position there, so
// the agent can later withdraw it back.
package connector

import (
	"sort"
	"strconv"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/model"
)

// Deployment is one yield hook dispatch.
type Deployment struct {
	Agent    model.Identity
	Vault    model.Identity
	Protocol model.YieldProtocol
	Amount   uint64
}

// Connector deploys funds to one protocol. Deploy runs inside the
// triggering operation, so anything it writes commits or rolls back with
// the trigger. It may fail only with InsufficientFunds or InvalidProtocol.
type Connector interface {
	Protocol() model.YieldProtocol
	Deploy(op *engine.Op, d Deployment) error
}

// Withdrawal returns deployed funds from a protocol to the agent vault.
type Withdrawal struct {
	Agent  model.Identity
	Vault  model.Identity
	Amount uint64
}

// Withdrawer is implemented by connectors that hold real funds. Withdraw
// runs inside the calling operation and fails InsufficientFunds when the
// agent's position is smaller than the amount.
type Withdrawer interface {
	Connector
	Withdraw(op *engine.Op, w Withdrawal) error
}

// Registry maps protocols to connectors.
type Registry struct {
	byProtocol map[model.YieldProtocol]Connector
}

// NewRegistry builds a registry. A later connector for the same protocol
// replaces an earlier one.
func NewRegistry(conns ...Connector) *Registry {
	r := &Registry{byProtocol: make(map[model.YieldProtocol]Connector, len(conns))}
	for _, c := range conns {
		r.byProtocol[c.Protocol()] = c
	}
	return r
}

// Default returns the standard set: intent recorders for every protocol
// except JitoSOL, which transfers to stakePool.
func Default(stakePool model.Identity) *Registry {
	return NewRegistry(
		NewRecorder(model.ProtocolInternal),
		NewRecorder(model.ProtocolJupiter),
		NewRecorder(model.ProtocolMeteora),
		NewRecorder(model.ProtocolMarinade),
		StakePool{Pool: stakePool},
	)
}

// Lookup returns the connector for p, or InvalidProtocol.
func (r *Registry) Lookup(p model.YieldProtocol) (Connector, error) {
	c, ok := r.byProtocol[p]
	if !ok {
		return nil, model.ErrInvalidProtocol.With("protocol", p.String())
	}
	return c, nil
}

// Protocols lists the registered protocols in enum order.
func (r *Registry) Protocols() []model.YieldProtocol {
	out := make([]model.YieldProtocol, 0, len(r.byProtocol))
	for p := range r.byProtocol {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Recorder logs and audits a deployment without moving funds.
type Recorder struct {
	protocol model.YieldProtocol
}

// NewRecorder returns an intent recorder for p.
func NewRecorder(p model.YieldProtocol) Recorder {
	return Recorder{protocol: p}
}

// Protocol implements Connector.
func (r Recorder) Protocol() model.YieldProtocol { return r.protocol }

// Deploy implements Connector.
func (r Recorder) Deploy(op *engine.Op, d Deployment) error {
	op.Logger().Info("yield deployment recorded",
		"protocol", r.protocol.String(),
		"agent", d.Agent.String(),
		"amount", d.Amount,
	)
	return op.Emit(audit.KindYieldInteract, d.Agent.String(), audit.Fields{
		"protocol": r.protocol.String(),
		"mode":     "intent",
		"amount":   d.Amount,
	})
}

// StakePool transfers the deployment from the vault to a liquid staking
// pool account.
type StakePool struct {
	Pool model.Identity
}

// Protocol implements Connector.
func (StakePool) Protocol() model.YieldProtocol { return model.ProtocolJitoSOL }

// Deploy implements Connector.
func (s StakePool) Deploy(op *engine.Op, d Deployment) error {
	if d.Protocol != model.ProtocolJitoSOL {
		return model.ErrInvalidProtocol.With("protocol", d.Protocol.String())
	}
	if err := op.Move(d.Vault, s.Pool, d.Amount); err != nil {
		return err
	}
	held, err := op.Tx.StakePosition(d.Agent, s.Pool)
	if err != nil {
		return err
	}
	if held, err = model.CheckedAdd(held, d.Amount); err != nil {
		return err
	}
	if err := op.Tx.SetStakePosition(d.Agent, s.Pool, held); err != nil {
		return err
	}
	op.Logger().Info("stake pool deposit",
		"agent", d.Agent.String(),
		"pool", s.Pool.String(),
		"amount", d.Amount,
	)
	return op.Emit(audit.KindYieldInteract, d.Agent.String(), audit.Fields{
		"protocol": model.ProtocolJitoSOL.String(),
		"mode":     "transfer",
		"pool":     s.Pool,
		"amount":   d.Amount,
	})
}

// Withdraw implements Withdrawer. Only the agent's own position can be
// withdrawn, never other agents' deposits in the same pool.
func (s StakePool) Withdraw(op *engine.Op, w Withdrawal) error {
	held, err := op.Tx.StakePosition(w.Agent, s.Pool)
	if err != nil {
		return err
	}
	if held < w.Amount {
		return model.ErrInsufficientFunds.With("position", strconv.FormatUint(held, 10))
	}
	if err := op.Move(s.Pool, w.Vault, w.Amount); err != nil {
		return err
	}
	if err := op.Tx.SetStakePosition(w.Agent, s.Pool, held-w.Amount); err != nil {
		return err
	}
	op.Logger().Info("stake pool withdrawal",
		"agent", w.Agent.String(),
		"pool", s.Pool.String(),
		"amount", w.Amount,
	)
	return op.Emit(audit.KindYieldInteract, w.Agent.String(), audit.Fields{
		"protocol": model.ProtocolJitoSOL.String(),
		"mode":     "withdraw",
		"pool":     s.Pool,
		"amount":   w.Amount,
	})
}
