package hooks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neobank/internal/accounts"
	"github.com/roach88/neobank/internal/connector"
	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
	"github.com/roach88/neobank/internal/testutil"
)

const t0 = int64(1_700_000_000)

type hookFixture struct {
	ctx   context.Context
	clock *testutil.ManualClock
	hooks *Engine
	eng   *engine.Engine
	acct  *accounts.Service
	store *store.Store

	admin model.Identity
	owner model.Identity
	pool  model.Identity
}

// newHookFixture registers "owner" with 10_000 deposited (8_000 staked).
func newHookFixture(t *testing.T) *hookFixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "bank.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewManualClock(t0)
	env := engine.NewEnv(s, engine.WithClock(clock))
	f := &hookFixture{
		ctx:   context.Background(),
		clock: clock,
		eng:   engine.New(env),
		acct:  accounts.New(env),
		store: s,
		admin: testutil.ID("admin"),
		owner: testutil.ID("owner"),
		pool:  model.StakePoolAddress(),
	}
	f.hooks = New(env, connector.Default(f.pool))

	_, err = f.acct.InitializeBank(f.ctx, f.admin, 0)
	require.NoError(t, err)
	_, err = f.acct.RegisterAgent(f.ctx, accounts.Registration{Owner: f.owner, Name: "owner", SpendingLimit: 1_000})
	require.NoError(t, err)
	_, err = f.acct.Airdrop(f.ctx, f.owner, 10_000)
	require.NoError(t, err)
	_, err = f.acct.Deposit(f.ctx, f.owner, 10_000)
	require.NoError(t, err)
	return f
}

func (f *hookFixture) configure(t *testing.T, s Strategy) model.YieldStrategy {
	t.Helper()
	out, err := f.hooks.Configure(f.ctx, f.owner, f.owner, s)
	require.NoError(t, err)
	return out
}

func TestConfigure_Validation(t *testing.T) {
	f := newHookFixture(t)

	_, err := f.hooks.Configure(f.ctx, f.owner, f.owner, Strategy{
		Condition: model.BalanceAbove{Threshold: 1}, DeployPercentage: 101,
	})
	require.ErrorIs(t, err, model.ErrInvalidPercentage)

	_, err = f.hooks.Configure(f.ctx, f.owner, f.owner, Strategy{
		Condition: model.BalanceAbove{Threshold: 1}, Protocol: model.YieldProtocol(42),
	})
	require.ErrorIs(t, err, model.ErrInvalidProtocol)

	_, err = f.hooks.Configure(f.ctx, f.owner, testutil.ID("stranger"), Strategy{
		Condition: model.BalanceAbove{Threshold: 1},
	})
	require.ErrorIs(t, err, model.ErrInvalidAuthority)

	_, err = f.hooks.Configure(f.ctx, f.owner, f.owner, Strategy{DeployPercentage: 10})
	require.ErrorIs(t, err, model.ErrHookConditionNotMet)
	assert.True(t, model.IsClass(err, model.ClassState))
}

func TestConfigure_DelegateNeedsManageYield(t *testing.T) {
	f := newHookFixture(t)
	spender := testutil.ID("spender")
	manager := testutil.ID("manager")
	_, err := f.eng.AddDelegate(f.ctx, f.owner, engine.DelegateGrant{Delegate: spender, CanSpend: true})
	require.NoError(t, err)
	_, err = f.eng.AddDelegate(f.ctx, f.owner, engine.DelegateGrant{Delegate: manager, CanManageYield: true})
	require.NoError(t, err)

	s := Strategy{Condition: model.TimeElapsed{Interval: 60}, Enabled: true}
	_, err = f.hooks.Configure(f.ctx, f.owner, spender, s)
	require.ErrorIs(t, err, model.ErrUnauthorizedDelegate)

	got, err := f.hooks.Configure(f.ctx, f.owner, manager, s)
	require.NoError(t, err)
	assert.Equal(t, f.owner, got.Agent)
}

func TestConfigure_UpsertResetsHistory(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 1}, DeployPercentage: 10, Enabled: true})
	_, err := f.hooks.Trigger(f.ctx, f.owner)
	require.NoError(t, err)

	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 1}, DeployPercentage: 20, Enabled: true})
	status, err := f.hooks.CheckStatus(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.TriggerCount)
	assert.Equal(t, int64(0), status.LastTriggered)
	assert.Equal(t, uint8(20), status.DeployPercentage)
}

func TestTrigger_Conditions(t *testing.T) {
	tests := []struct {
		name      string
		condition model.HookCondition
		advance   int64
		wantMet   bool
		reason    string
	}{
		{"balance met", model.BalanceAbove{Threshold: 8_000}, 0, true, "balance 8000 vs threshold 8000"},
		{"balance unmet", model.BalanceAbove{Threshold: 8_001}, 0, false, "balance 8000 vs threshold 8001"},
		{"never triggered", model.TimeElapsed{Interval: 3_600}, 0, true, "elapsed 1700000000s vs interval 3600s"},
		// 8000 * 5% over one year = 400.
		{"yield met", model.YieldAbove{Threshold: 400}, model.SecondsPerYear, true, "pending_yield 400 vs threshold 400"},
		{"yield unmet", model.YieldAbove{Threshold: 401}, model.SecondsPerYear, false, "pending_yield 400 vs threshold 401"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHookFixture(t)
			f.configure(t, Strategy{Condition: tt.condition, DeployPercentage: 50, Enabled: true})
			f.clock.Advance(tt.advance)

			status, err := f.hooks.CheckStatus(f.ctx, f.owner)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMet, status.ConditionMet)
			assert.Equal(t, tt.reason, status.Reason)

			res, err := f.hooks.Trigger(f.ctx, f.owner)
			if !tt.wantMet {
				require.ErrorIs(t, err, model.ErrHookConditionNotMet)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(4_000), res.Amount)
			assert.Equal(t, uint64(1), res.TriggerCount)
		})
	}
}

func TestTrigger_TimeElapsedRearms(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.TimeElapsed{Interval: 60}, Enabled: true})

	_, err := f.hooks.Trigger(f.ctx, f.owner)
	require.NoError(t, err)

	f.clock.Advance(59)
	_, err = f.hooks.Trigger(f.ctx, f.owner)
	require.ErrorIs(t, err, model.ErrHookConditionNotMet)

	f.clock.Advance(1)
	res, err := f.hooks.Trigger(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.TriggerCount)
	assert.Equal(t, t0+60, res.At)
}

func TestTrigger_Guards(t *testing.T) {
	f := newHookFixture(t)

	_, err := f.hooks.Trigger(f.ctx, f.owner)
	require.ErrorIs(t, err, model.ErrNotFound)

	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 999_999}, Enabled: false})
	_, err = f.hooks.Trigger(f.ctx, f.owner)
	require.ErrorIs(t, err, model.ErrHookDisabled, "disabled is checked before the condition")

	_, err = f.eng.SetPaused(f.ctx, f.admin, true, model.PauseMaintenance)
	require.NoError(t, err)
	_, err = f.hooks.Trigger(f.ctx, f.owner)
	require.ErrorIs(t, err, model.ErrBankPaused)
}

func TestTrigger_RecorderMovesNothing(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 0}, Protocol: model.ProtocolMarinade, DeployPercentage: 100, Enabled: true})

	res, err := f.hooks.Trigger(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(8_000), res.Amount)

	_, vault, err := f.acct.Agent(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), vault)

	events, err := f.store.Events(f.ctx, store.EventFilter{Subject: f.owner.String(), Kind: "yield_interact"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "intent", events[0].Payload["mode"])
}

func TestTrigger_JitoSOLTransfersToPool(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 0}, Protocol: model.ProtocolJitoSOL, DeployPercentage: 25, Enabled: true})

	res, err := f.hooks.Trigger(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), res.Amount)

	_, vault, err := f.acct.Agent(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(8_000), vault)
	pool, err := f.acct.Balance(f.ctx, f.pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), pool)
}

func TestTrigger_JitoSOLShortVaultRollsBack(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 0}, Protocol: model.ProtocolJitoSOL, DeployPercentage: 100, Enabled: true})

	// Spend the vault down below the staked share.
	_, err := f.eng.RequestWithdrawal(f.ctx, engine.WithdrawalRequest{
		Agent: f.owner, Authority: f.owner, Destination: testutil.ID("shop"), Amount: 1_000,
	})
	require.NoError(t, err)
	f.clock.Advance(2 * 86_400)
	_, err = f.eng.RequestWithdrawal(f.ctx, engine.WithdrawalRequest{
		Agent: f.owner, Authority: f.owner, Destination: testutil.ID("shop"), Amount: 1_000,
	})
	require.NoError(t, err)
	f.clock.Advance(2 * 86_400)
	_, err = f.eng.RequestWithdrawal(f.ctx, engine.WithdrawalRequest{
		Agent: f.owner, Authority: f.owner, Destination: testutil.ID("shop"), Amount: 1_000,
	})
	require.NoError(t, err)

	_, err = f.hooks.Trigger(f.ctx, f.owner)
	require.ErrorIs(t, err, model.ErrInsufficientFunds)

	status, err := f.hooks.CheckStatus(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.TriggerCount)
}

func TestTrigger_UnregisteredConnector(t *testing.T) {
	f := newHookFixture(t)
	f.hooks.connectors = connector.NewRegistry(connector.NewRecorder(model.ProtocolInternal))
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 0}, Protocol: model.ProtocolMeteora, Enabled: true})

	_, err := f.hooks.Trigger(f.ctx, f.owner)
	require.ErrorIs(t, err, model.ErrInvalidProtocol)
}

func TestWithdrawStake_ReturnsOwnPosition(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 0}, Protocol: model.ProtocolJitoSOL, DeployPercentage: 25, Enabled: true})
	_, err := f.hooks.Trigger(f.ctx, f.owner)
	require.NoError(t, err)

	res, err := f.hooks.WithdrawStake(f.ctx, f.owner, f.owner, 1_500)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500), res.Amount)
	assert.Equal(t, "jitosol", res.Protocol)

	_, vault, err := f.acct.Agent(f.ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_500), vault)
	pool, err := f.acct.Balance(f.ctx, f.pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), pool)

	_, err = f.hooks.WithdrawStake(f.ctx, f.owner, f.owner, 501)
	require.ErrorIs(t, err, model.ErrInsufficientFunds)

	events, err := f.store.Events(f.ctx, store.EventFilter{Subject: f.owner.String(), Kind: "yield_interact"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "withdraw", events[1].Payload["mode"])
}

func TestWithdrawStake_CannotTakeOtherAgentsDeposit(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 0}, Protocol: model.ProtocolJitoSOL, Enabled: true})

	// Someone else's funds sit in the shared pool; owner has deployed nothing.
	_, err := f.acct.Airdrop(f.ctx, f.pool, 5_000)
	require.NoError(t, err)

	_, err = f.hooks.WithdrawStake(f.ctx, f.owner, f.owner, 1)
	require.ErrorIs(t, err, model.ErrInsufficientFunds)

	pool, err := f.acct.Balance(f.ctx, f.pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000), pool)
}

func TestWithdrawStake_Guards(t *testing.T) {
	f := newHookFixture(t)
	f.configure(t, Strategy{Condition: model.BalanceAbove{Threshold: 0}, Protocol: model.ProtocolMarinade, Enabled: true})

	_, err := f.hooks.WithdrawStake(f.ctx, f.owner, f.owner, 1)
	require.ErrorIs(t, err, model.ErrInvalidProtocol, "intent-only protocols hold nothing")

	_, err = f.hooks.WithdrawStake(f.ctx, f.owner, testutil.ID("stranger"), 1)
	require.ErrorIs(t, err, model.ErrInvalidAuthority)

	_, err = f.eng.SetPaused(f.ctx, f.admin, true, model.PauseMaintenance)
	require.NoError(t, err)
	_, err = f.hooks.WithdrawStake(f.ctx, f.owner, f.owner, 1)
	require.ErrorIs(t, err, model.ErrBankPaused)
}
