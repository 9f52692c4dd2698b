package store

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neobank/internal/model"
)

func TestBank_NotFoundBeforeInit(t *testing.T) {
	s := createTestStore(t)

	err := s.View(context.Background(), func(tx *Tx) error {
		_, err := tx.Bank()
		return err
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBank_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	want := model.BankConfig{
		Admin:                   testID("admin"),
		FeeBps:                  30,
		Paused:                  true,
		PauseReason:             model.PauseSecurity,
		SuspiciousActivityCount: 10,
		AutoPauseThreshold:      10,
		LastSecurityCheck:       500,
		TotalFeesCollected:      99,
		CreatedAt:               100,
	}
	mustUpdate(t, s, func(tx *Tx) error { return tx.PutBank(want) })

	// Update in place.
	want.Paused = false
	want.PauseReason = model.PauseNone
	mustUpdate(t, s, func(tx *Tx) error { return tx.PutBank(want) })

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		got, err := tx.Bank()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		return nil
	}))
}

func TestAgent_RoundTripAndList(t *testing.T) {
	s := createTestStore(t)
	a := createTestAgent(t, s, "alice")
	b := createTestAgent(t, s, "bob")

	a.CurrentPeriodSpend = 3000
	a.TotalDeposited = 10_000
	a.StakedAmount = 8000
	a.LastYieldTimestamp = 1500
	mustUpdate(t, s, func(tx *Tx) error { return tx.PutAgent(a) })

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		got, err := tx.Agent(a.Owner)
		require.NoError(t, err)
		assert.Equal(t, a, got)

		all, err := tx.Agents()
		require.NoError(t, err)
		require.Len(t, all, 2)
		owners := []model.Identity{all[0].Owner, all[1].Owner}
		assert.ElementsMatch(t, []model.Identity{a.Owner, b.Owner}, owners)
		assert.Less(t, all[0].Owner.String(), all[1].Owner.String())

		_, err = tx.Agent(testID("nobody"))
		assert.ErrorIs(t, err, model.ErrNotFound)
		return nil
	}))
}

func TestAgents_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		agents, err := tx.Agents()
		require.NoError(t, err)
		assert.NotNil(t, agents)
		assert.Empty(t, agents)
		return nil
	}))
}

func TestPutAgent_RejectsOutOfRangeAmount(t *testing.T) {
	s := createTestStore(t)
	a := model.Agent{Owner: testID("big"), Name: "big", SpendingLimit: math.MaxUint64}

	err := s.Update(context.Background(), func(tx *Tx) error { return tx.PutAgent(a) })
	assert.ErrorIs(t, err, model.ErrArithmeticOverflow)
}

func TestDelegate_Lifecycle(t *testing.T) {
	s := createTestStore(t)
	a := createTestAgent(t, s, "alice")
	d := model.Delegate{
		Agent:      a.Owner,
		Delegate:   testID("bot"),
		CanSpend:   true,
		ValidUntil: 9000,
		CreatedAt:  1000,
	}
	mustUpdate(t, s, func(tx *Tx) error { return tx.PutDelegate(d) })

	// Upsert replaces permissions.
	d.CanSpend = false
	d.CanManageYield = true
	mustUpdate(t, s, func(tx *Tx) error { return tx.PutDelegate(d) })

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		got, err := tx.Delegate(a.Owner, d.Delegate)
		require.NoError(t, err)
		assert.Equal(t, d, got)

		list, err := tx.Delegates(a.Owner)
		require.NoError(t, err)
		assert.Equal(t, []model.Delegate{d}, list)
		return nil
	}))

	mustUpdate(t, s, func(tx *Tx) error { return tx.DeleteDelegate(a.Owner, d.Delegate) })

	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.DeleteDelegate(a.Owner, d.Delegate)
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPutDelegate_RequiresAgent(t *testing.T) {
	s := createTestStore(t)
	d := model.Delegate{Agent: testID("ghost"), Delegate: testID("bot")}

	err := s.Update(context.Background(), func(tx *Tx) error { return tx.PutDelegate(d) })
	assert.Error(t, err, "foreign key must reject a delegate without an agent")
}

func TestStrategy_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	a := createTestAgent(t, s, "alice")

	conditions := []model.HookCondition{
		model.BalanceAbove{Threshold: 1000},
		model.TimeElapsed{Interval: 3600},
		model.YieldAbove{Threshold: 5},
	}
	for _, c := range conditions {
		want := model.YieldStrategy{
			Agent:            a.Owner,
			Condition:        c,
			Protocol:         model.ProtocolJitoSOL,
			DeployPercentage: 50,
			Enabled:          true,
			LastTriggered:    1200,
			TriggerCount:     3,
		}
		mustUpdate(t, s, func(tx *Tx) error { return tx.PutStrategy(want) })

		require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
			got, err := tx.Strategy(a.Owner)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			all, err := tx.Strategies()
			require.NoError(t, err)
			assert.Len(t, all, 1)
			return nil
		}))
	}
}

func TestStakePosition(t *testing.T) {
	s := createTestStore(t)
	a := createTestAgent(t, s, "alice")
	pool := testID("pool")

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		got, err := tx.StakePosition(a.Owner, pool)
		require.NoError(t, err)
		assert.Zero(t, got)
		return nil
	}))

	mustUpdate(t, s, func(tx *Tx) error { return tx.SetStakePosition(a.Owner, pool, 2_000) })
	mustUpdate(t, s, func(tx *Tx) error { return tx.SetStakePosition(a.Owner, pool, 500) })

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		got, err := tx.StakePosition(a.Owner, pool)
		require.NoError(t, err)
		assert.Equal(t, uint64(500), got)

		other, err := tx.StakePosition(a.Owner, testID("other-pool"))
		require.NoError(t, err)
		assert.Zero(t, other)
		return nil
	}))

	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.SetStakePosition(testID("ghost"), pool, 1)
	})
	assert.Error(t, err, "foreign key must reject a position without an agent")
}

func TestRegistry_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	reg, err := model.NewAdminRegistry([]model.Identity{testID("a"), testID("b"), testID("c")}, 2)
	require.NoError(t, err)
	reg.ProposalCount = 4
	reg.CreatedAt = 100
	mustUpdate(t, s, func(tx *Tx) error { return tx.PutRegistry(reg) })

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		got, err := tx.Registry()
		require.NoError(t, err)
		assert.Equal(t, reg, got)
		return nil
	}))
}

func TestProposal_RoundTripAndOrder(t *testing.T) {
	s := createTestStore(t)
	for _, id := range []uint64{2, 0, 1} {
		p := model.TreasuryProposal{
			ID:          id,
			Proposer:    testID("a"),
			Destination: testID("d"),
			Amount:      1000,
			Memo:        "ops",
			Status:      model.ProposalPending,
			VotesFor:    1,
			CreatedAt:   100,
			ExpiresAt:   100 + model.ProposalTTL,
		}
		mustUpdate(t, s, func(tx *Tx) error { return tx.PutProposal(p) })
	}

	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		all, err := tx.Proposals()
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, p := range all {
			assert.Equal(t, uint64(i), p.ID)
		}

		_, err = tx.Proposal(9)
		assert.ErrorIs(t, err, model.ErrNotFound)
		return nil
	}))

	// Status updates persist, immutable fields do not change.
	mustUpdate(t, s, func(tx *Tx) error {
		p, err := tx.Proposal(1)
		if err != nil {
			return err
		}
		p.Status = model.ProposalExecuted
		p.ExecutedAt = 200
		return tx.PutProposal(p)
	})
	require.NoError(t, s.View(context.Background(), func(tx *Tx) error {
		p, err := tx.Proposal(1)
		require.NoError(t, err)
		assert.Equal(t, model.ProposalExecuted, p.Status)
		assert.Equal(t, int64(200), p.ExecutedAt)
		assert.Equal(t, uint64(1000), p.Amount)
		return nil
	}))
}
