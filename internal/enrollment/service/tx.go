package service

import (
	"context"
	"sync"
	"time"

	dErrors "coursehub/pkg/domain-errors"
)

const defaultInMemoryTxTimeout = 5 * time.Second

// inMemoryTx is the coarse-lock transaction boundary used with the
// in-memory stores. It serializes units of work but has no rollback;
// callbacks compensate failed steps themselves (the service does).
type inMemoryTx struct {
	mu      sync.Mutex
	timeout time.Duration
}

// NewInMemoryTx returns a StoreTx for in-memory store wiring.
func NewInMemoryTx() StoreTx {
	return &inMemoryTx{}
}

func (t *inMemoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransient, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultInMemoryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransient, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}
