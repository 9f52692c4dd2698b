package vault

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neobank/internal/model"
)

// memLedger is an in-memory Ledger for tests.
type memLedger struct {
	balances map[model.Identity]uint64
	failSet  error
}

func newMemLedger() *memLedger {
	return &memLedger{balances: map[model.Identity]uint64{}}
}

func (m *memLedger) Balance(addr model.Identity) (uint64, error) {
	return m.balances[addr], nil
}

func (m *memLedger) SetBalance(addr model.Identity, balance uint64) error {
	if m.failSet != nil {
		return m.failSet
	}
	m.balances[addr] = balance
	return nil
}

func id(label string) model.Identity {
	return model.DeriveIdentity("vault/test", []byte(label))
}

func TestMove(t *testing.T) {
	l := newMemLedger()
	l.balances[id("a")] = 100
	tr := New(nil)

	require.NoError(t, tr.Move(l, id("a"), id("b"), 40))
	assert.Equal(t, uint64(60), l.balances[id("a")])
	assert.Equal(t, uint64(40), l.balances[id("b")])
}

func TestMove_InsufficientFunds(t *testing.T) {
	l := newMemLedger()
	l.balances[id("a")] = 10
	tr := New(nil)

	err := tr.Move(l, id("a"), id("b"), 11)
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	assert.Equal(t, uint64(10), l.balances[id("a")], "no partial transfer")
	assert.Equal(t, uint64(0), l.balances[id("b")])
}

func TestMove_ZeroIsNoop(t *testing.T) {
	l := newMemLedger()
	l.failSet = errors.New("must not write")

	assert.NoError(t, New(nil).Move(l, id("a"), id("b"), 0))
}

func TestMove_SelfTransfer(t *testing.T) {
	l := newMemLedger()
	l.balances[id("a")] = 10

	require.NoError(t, New(nil).Move(l, id("a"), id("a"), 10))
	assert.Equal(t, uint64(10), l.balances[id("a")])

	assert.ErrorIs(t, New(nil).Move(l, id("a"), id("a"), 11), model.ErrInsufficientFunds)
}

func TestMove_CreditOverflow(t *testing.T) {
	l := newMemLedger()
	l.balances[id("a")] = 10
	l.balances[id("b")] = math.MaxUint64

	err := New(nil).Move(l, id("a"), id("b"), 1)
	assert.ErrorIs(t, err, model.ErrArithmeticOverflow)
	assert.Equal(t, uint64(10), l.balances[id("a")])
}

func TestMint(t *testing.T) {
	l := newMemLedger()
	tr := New(nil)

	require.NoError(t, tr.Mint(l, id("a"), 5))
	require.NoError(t, tr.Mint(l, id("a"), 5))
	assert.Equal(t, uint64(10), l.balances[id("a")])

	assert.ErrorIs(t, tr.Mint(l, id("a"), math.MaxUint64), model.ErrArithmeticOverflow)
}
