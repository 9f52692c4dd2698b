package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/neobank/internal/model"
)

// Tx is a ledger transaction handed to Update and View callbacks.
// A Tx must not be used after its callback returns.
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Context returns the context the transaction was opened with.
func (t *Tx) Context() context.Context {
	return t.ctx
}

func (t *Tx) exec(op, query string, args ...any) error {
	if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// notFound builds the domain error for a missing record.
func notFound(record, key string) error {
	return model.ErrNotFound.With("record", record).With("key", key)
}

// scanErr maps sql.ErrNoRows to a domain NotFound and wraps everything else.
func scanErr(err error, record, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(record, key)
	}
	return fmt.Errorf("read %s: %w", record, err)
}
