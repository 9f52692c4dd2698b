package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/model"
)

// Snapshot is a consistent point-in-time view of the whole ledger.
type Snapshot struct {
	// Bank is nil before the bank is initialized.
	Bank *model.BankConfig
	// Registry is nil before governance is initialized.
	Registry   *model.AdminRegistry
	Agents     []model.Agent
	Strategies []model.YieldStrategy
	Proposals  []model.TreasuryProposal
	// Balances maps base58 addresses to balances for every known account.
	Balances map[string]uint64
	LastSeq  int64
}

// Snapshot reads the whole ledger in one transaction.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.View(ctx, func(tx *Tx) error {
		bank, err := tx.Bank()
		switch {
		case err == nil:
			snap.Bank = &bank
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		reg, err := tx.Registry()
		switch {
		case err == nil:
			snap.Registry = &reg
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		if snap.Agents, err = tx.Agents(); err != nil {
			return err
		}
		if snap.Strategies, err = tx.Strategies(); err != nil {
			return err
		}
		if snap.Proposals, err = tx.Proposals(); err != nil {
			return err
		}
		if snap.Balances, err = tx.balances(); err != nil {
			return err
		}
		return tx.tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&snap.LastSeq)
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

func (t *Tx) balances() (map[string]uint64, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT address, balance FROM accounts ORDER BY address COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	out := map[string]uint64{}
	for rows.Next() {
		var (
			addr string
			bal  int64
		)
		if err := rows.Scan(&addr, &bal); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		if out[addr], err = fromDB("balance", bal); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return out, nil
}

// SupplyReport compares the funds held in accounts with the funds minted
// through the faucet. Every other operation moves funds between accounts,
// so the two must match.
type SupplyReport struct {
	Held   int64
	Minted int64
}

// Balanced reports whether no funds were created or destroyed.
func (r SupplyReport) Balanced() bool {
	return r.Held == r.Minted
}

// CheckSupply computes the supply report.
func (s *Store) CheckSupply(ctx context.Context) (SupplyReport, error) {
	var r SupplyReport
	err := s.View(ctx, func(tx *Tx) error {
		if err := tx.tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(balance), 0) FROM accounts`).Scan(&r.Held); err != nil {
			return fmt.Errorf("sum balances: %w", err)
		}
		if err := tx.tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(json_extract(payload, '$.amount')), 0)
			FROM events WHERE kind = ?
		`, string(audit.KindAirdrop)).Scan(&r.Minted); err != nil {
			return fmt.Errorf("sum airdrops: %w", err)
		}
		return nil
	})
	return r, err
}
