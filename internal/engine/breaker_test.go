package engine_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/neobank/internal/engine"
	"github.com/roach88/neobank/internal/metrics"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/testutil"
)

func TestBreakerOperations_RequireAdmin(t *testing.T) {
	f := newFixture(t)
	stranger := testutil.ID("stranger")

	_, err := f.eng.ResetSecurityCounter(f.ctx, stranger)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.eng.UpdateAutoPauseThreshold(f.ctx, stranger, 3)
	require.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = f.eng.SetPaused(f.ctx, stranger, true, model.PauseSecurity)
	require.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Equal(t, model.ClassAuthorization, model.CodeOf(err).Class())

	assert.False(t, f.bank().Paused)
}

func TestResetSecurityCounter(t *testing.T) {
	f := newFixture(t)
	f.putBank(func(cfg *model.BankConfig) {
		cfg.SuspiciousActivityCount = 12
		cfg.Paused = true
		cfg.PauseReason = model.PauseSecurity
	})
	f.clock.Advance(60)

	status, err := f.eng.ResetSecurityCounter(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.SuspiciousActivityCount)
	assert.Equal(t, t0+60, status.LastSecurityCheck)

	// Reset does not unpause.
	assert.True(t, status.Paused)
	assert.Equal(t, model.BreakerTripped, status.State)
	assert.Contains(t, f.eventKinds("bank"), "security_counter_reset")
}

func TestUpdateAutoPauseThreshold(t *testing.T) {
	f := newFixture(t)

	status, err := f.eng.UpdateAutoPauseThreshold(f.ctx, f.admin, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), status.AutoPauseThreshold)

	for i := 0; i < 2; i++ {
		_, err := f.withdraw(f.owner, model.Identity{}, 1)
		require.ErrorIs(t, err, model.ErrSuspiciousDestination)
	}
	_, err = f.withdraw(f.owner, f.dest, 1)
	require.ErrorIs(t, err, model.ErrBankPaused)
}

func TestSetPaused(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, engine.WithMetrics(metrics.New(reg)))

	status, err := f.eng.SetPaused(f.ctx, f.admin, true, model.PauseMaintenance)
	require.NoError(t, err)
	assert.True(t, status.Paused)
	assert.Equal(t, "maintenance", status.PauseReason)
	assert.Equal(t, model.BreakerArmed, status.State, "manual pause leaves the breaker armed")
	assert.Equal(t, float64(1), gatheredGauge(t, reg, "neobank_breaker_paused"))

	status, err = f.eng.SetPaused(f.ctx, f.admin, false, model.PauseMaintenance)
	require.NoError(t, err)
	assert.False(t, status.Paused)
	assert.Equal(t, "none", status.PauseReason, "unpausing clears the reason")
	assert.Equal(t, float64(0), gatheredGauge(t, reg, "neobank_breaker_paused"))
}

func TestBreakerStatus(t *testing.T) {
	f := newFixture(t)

	status, err := f.eng.BreakerStatus(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.BreakerStatus{
		State:              model.BreakerArmed,
		PauseReason:        "none",
		AutoPauseThreshold: model.DefaultAutoPauseThreshold,
	}, status)
}
