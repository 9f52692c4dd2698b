package engine

import (
	"context"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/store"
)

// BreakerStatus is a read-only view of the circuit breaker.
type BreakerStatus struct {
	State                   model.BreakerState `json:"state"`
	Paused                  bool               `json:"paused"`
	PauseReason             string             `json:"pause_reason"`
	SuspiciousActivityCount uint64             `json:"suspicious_activity_count"`
	AutoPauseThreshold      uint64             `json:"auto_pause_threshold"`
	LastSecurityCheck       int64              `json:"last_security_check"`
}

func statusOf(cfg model.BankConfig) BreakerStatus {
	return BreakerStatus{
		State:                   cfg.Breaker(),
		Paused:                  cfg.Paused,
		PauseReason:             cfg.PauseReason.String(),
		SuspiciousActivityCount: cfg.SuspiciousActivityCount,
		AutoPauseThreshold:      cfg.AutoPauseThreshold,
		LastSecurityCheck:       cfg.LastSecurityCheck,
	}
}

// requireAdmin loads the bank config and checks caller is its admin.
func requireAdmin(tx *store.Tx, caller model.Identity) (model.BankConfig, error) {
	cfg, err := tx.Bank()
	if err != nil {
		return cfg, err
	}
	if cfg.Admin != caller {
		return cfg, model.ErrUnauthorized.With("caller", caller.String())
	}
	return cfg, nil
}

// ResetSecurityCounter zeroes the suspicious-activity counter. It is the
// only way the counter decreases. It does not unpause the bank.
func (e *Engine) ResetSecurityCounter(ctx context.Context, caller model.Identity) (BreakerStatus, error) {
	var out BreakerStatus
	_, err := e.env.Update(ctx, "breaker.reset", func(op *Op) error {
		cfg, err := requireAdmin(op.Tx, caller)
		if err != nil {
			return err
		}
		previous := cfg.SuspiciousActivityCount
		cfg.SuspiciousActivityCount = 0
		cfg.LastSecurityCheck = op.Now
		if err := op.Tx.PutBank(cfg); err != nil {
			return err
		}
		op.Logger().Info("security counter reset", "previous", previous)
		out = statusOf(cfg)
		return op.Emit(audit.KindSecurityCounterReset, "bank", audit.Fields{
			"previous": previous,
		})
	})
	return out, err
}

// UpdateAutoPauseThreshold sets the breaker threshold. Zero disables the
// breaker.
func (e *Engine) UpdateAutoPauseThreshold(ctx context.Context, caller model.Identity, threshold uint64) (BreakerStatus, error) {
	var out BreakerStatus
	_, err := e.env.Update(ctx, "breaker.threshold", func(op *Op) error {
		cfg, err := requireAdmin(op.Tx, caller)
		if err != nil {
			return err
		}
		previous := cfg.AutoPauseThreshold
		cfg.AutoPauseThreshold = threshold
		if err := op.Tx.PutBank(cfg); err != nil {
			return err
		}
		op.Logger().Info("auto-pause threshold updated", "previous", previous, "threshold", threshold)
		out = statusOf(cfg)
		return op.Emit(audit.KindThresholdUpdated, "bank", audit.Fields{
			"previous":  previous,
			"threshold": threshold,
		})
	})
	return out, err
}

// SetPaused pauses or unpauses the bank. Unpausing clears the reason but
// leaves the suspicious-activity counter untouched, so a tripped breaker
// re-trips on the next withdrawal unless the counter is reset too.
func (e *Engine) SetPaused(ctx context.Context, caller model.Identity, paused bool, reason model.PauseReason) (BreakerStatus, error) {
	var out BreakerStatus
	_, err := e.env.Update(ctx, "bank.pause", func(op *Op) error {
		cfg, err := requireAdmin(op.Tx, caller)
		if err != nil {
			return err
		}
		cfg.Paused = paused
		cfg.PauseReason = model.PauseNone
		if paused {
			cfg.PauseReason = reason
		}
		if err := op.Tx.PutBank(cfg); err != nil {
			return err
		}
		op.Logger().Warn("pause state changed", "paused", paused, "reason", cfg.PauseReason.String())
		out = statusOf(cfg)
		return op.Emit(audit.KindPauseChanged, "bank", audit.Fields{
			"paused": paused,
			"reason": cfg.PauseReason.String(),
		})
	})
	if err == nil {
		e.env.Metrics.SetPaused(paused)
	}
	return out, err
}

// BreakerStatus returns the current breaker view.
func (e *Engine) BreakerStatus(ctx context.Context) (BreakerStatus, error) {
	var out BreakerStatus
	_, err := e.env.View(ctx, "breaker.status", func(op *Op) error {
		cfg, err := op.Tx.Bank()
		if err != nil {
			return err
		}
		out = statusOf(cfg)
		return nil
	})
	return out, err
}
