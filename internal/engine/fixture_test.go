package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
	"github.com/roach88/neobank/internal/testutil"
)

const (
	t0          = int64(1_700_000_000)
	day         = int64(86_400)
	testFeeBps  = 100
	testLimit   = 5_000
	testDeposit = 10_000
	testAirdrop = 20_000
)

// fixture is an initialized bank with one funded agent owned by "owner".
type fixture struct {
	t     *testing.T
	ctx   context.Context
	clock *testutil.ManualClock
	store *store.Store
	env   *engine.Env
	eng   *engine.Engine
	acct  *accounts.Service

	admin model.Identity
	owner model.Identity
	dest  model.Identity
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "bank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewManualClock(t0)
	opts = append([]engine.Option{
		engine.WithClock(clock),
		engine.WithOpIDs(engine.NewSequenceGenerator("op")),
	}, opts...)
	env := engine.NewEnv(s, opts...)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		clock: clock,
		store: s,
		env:   env,
		eng:   engine.New(env),
		acct:  accounts.New(env),
		admin: testutil.ID("admin"),
		owner: testutil.ID("owner"),
		dest:  testutil.ID("dest"),
	}

	_, err = f.acct.InitializeBank(f.ctx, f.admin, testFeeBps)
	require.NoError(t, err)
	f.register(f.owner, testLimit, day)
	f.fund(f.owner, testDeposit)
	return f
}

func (f *fixture) register(owner model.Identity, limit uint64, period int64) {
	f.t.Helper()
	_, err := f.acct.RegisterAgent(f.ctx, accounts.Registration{
		Owner:          owner,
		Name:           "agent",
		SpendingLimit:  limit,
		PeriodDuration: period,
	})
	require.NoError(f.t, err)
}

func (f *fixture) fund(owner model.Identity, amount uint64) {
	f.t.Helper()
	_, err := f.acct.Airdrop(f.ctx, owner, testAirdrop)
	require.NoError(f.t, err)
	_, err = f.acct.Deposit(f.ctx, owner, amount)
	require.NoError(f.t, err)
}

func (f *fixture) balance(addr model.Identity) uint64 {
	f.t.Helper()
	b, err := f.acct.Balance(f.ctx, addr)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) bank() model.BankConfig {
	f.t.Helper()
	var cfg model.BankConfig
	require.NoError(f.t, f.store.View(f.ctx, func(tx *store.Tx) error {
		var err error
		cfg, err = tx.Bank()
		return err
	}))
	return cfg
}

func (f *fixture) putBank(mutate func(*model.BankConfig)) {
	f.t.Helper()
	require.NoError(f.t, f.store.Update(f.ctx, func(tx *store.Tx) error {
		cfg, err := tx.Bank()
		if err != nil {
			return err
		}
		mutate(&cfg)
		return tx.PutBank(cfg)
	}))
}

func (f *fixture) agent(owner model.Identity) model.Agent {
	f.t.Helper()
	a, _, err := f.acct.Agent(f.ctx, owner)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) withdraw(authority, dest model.Identity, amount uint64) (engine.WithdrawalReceipt, error) {
	return f.eng.RequestWithdrawal(f.ctx, engine.WithdrawalRequest{
		Agent:       f.owner,
		Authority:   authority,
		Destination: dest,
		Amount:      amount,
	})
}

func (f *fixture) eventKinds(subject string) []string {
	f.t.Helper()
	events, err := f.store.Events(f.ctx, store.EventFilter{Subject: subject})
	require.NoError(f.t, err)
	kinds := make([]string, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, string(ev.Kind))
	}
	return kinds
}

// gathered sums every sample of the named counter family in reg.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// gatheredGauge returns the value of the named gauge in reg.
func gatheredGauge(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}
