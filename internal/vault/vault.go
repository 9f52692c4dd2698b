// Package vault implements the atomic fund-movement primitive every engine
// terminates in.
package vault

import (
	"io"
	"log/slog"
	"strconv"

	"github.com/roach88/neobank/internal/model"
)

// Ledger is the balance storage a transfer runs against. *store.Tx
// satisfies it; a transfer is atomic because it runs inside the caller's
// transaction.
type Ledger interface {
	Balance(addr model.Identity) (uint64, error)
	SetBalance(addr model.Identity, balance uint64) error
}

// Transfers moves funds between accounts.
type Transfers struct {
	logger *slog.Logger
}

// New creates a transfer service. A nil logger discards output.
func New(logger *slog.Logger) *Transfers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Transfers{logger: logger}
}

// Move debits from and credits to by amount. Fails InsufficientFunds when
// from holds less than amount; no partial transfer is ever written.
// Moving zero is a no-op.
func (t *Transfers) Move(l Ledger, from, to model.Identity, amount uint64) error {
	if amount == 0 {
		return nil
	}

	fromBal, err := l.Balance(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return model.ErrInsufficientFunds.
			With("account", from.String()).
			With("balance", strconv.FormatUint(fromBal, 10)).
			With("amount", strconv.FormatUint(amount, 10))
	}

	if from == to {
		return nil
	}

	toBal, err := l.Balance(to)
	if err != nil {
		return err
	}
	credited, err := model.CheckedAdd(toBal, amount)
	if err != nil {
		return err
	}

	if err := l.SetBalance(from, fromBal-amount); err != nil {
		return err
	}
	if err := l.SetBalance(to, credited); err != nil {
		return err
	}

	t.logger.Debug("funds moved",
		"from", from.String(),
		"to", to.String(),
		"amount", amount,
	)
	return nil
}

// Mint credits an account without a source. Only the development faucet
// calls this.
func (t *Transfers) Mint(l Ledger, to model.Identity, amount uint64) error {
	bal, err := l.Balance(to)
	if err != nil {
		return err
	}
	credited, err := model.CheckedAdd(bal, amount)
	if err != nil {
		return err
	}
	if err := l.SetBalance(to, credited); err != nil {
		return err
	}
	t.logger.Debug("funds minted", "to", to.String(), "amount", amount)
	return nil
}
