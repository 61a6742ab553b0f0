package store

import (
	"context"
	"database/sql"
	"time"

	platformpg "coursehub/internal/platform/postgres"
	dErrors "coursehub/pkg/domain-errors"
	txcontext "coursehub/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx runs a unit of work inside a single database transaction.
// The transaction is placed in the context so every store call within the
// callback executes against it; commit failures surface to the caller for
// classification, and any callback error rolls everything back with no
// partial state observable.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransient, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return platformpg.MapError(err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return platformpg.MapError(err)
	}
	return nil
}
