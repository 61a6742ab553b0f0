package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Publisher is the delivery surface the worker drives.
type Publisher interface {
	Publish(ctx context.Context, events []StoredEvent) error
}

const defaultBatchSize = 100

// Worker polls the outbox and publishes unpublished rows. Publish errors
// are logged and retried on the next tick; rows are only marked published
// after a successful produce.
type Worker struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewWorker(store Store, publisher Publisher, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		store:     store,
		publisher: publisher,
		interval:  interval,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain publishes batches until the outbox is empty or an error defers
// the remainder to the next tick.
func (w *Worker) drain(ctx context.Context) {
	for {
		events, err := w.store.FetchUnpublished(ctx, w.batchSize)
		if err != nil {
			w.logger.ErrorContext(ctx, "outbox fetch failed", "error", err)
			return
		}
		if len(events) == 0 {
			return
		}

		if err := w.publisher.Publish(ctx, events); err != nil {
			w.logger.ErrorContext(ctx, "outbox publish failed",
				"error", err,
				"batch_size", len(events),
			)
			return
		}

		seqs := make([]int64, 0, len(events))
		for _, ev := range events {
			seqs = append(seqs, ev.Seq)
		}
		if err := w.store.MarkPublished(ctx, seqs); err != nil {
			// Rows will be republished next tick; consumers dedupe on event ID.
			w.logger.ErrorContext(ctx, "outbox mark failed", "error", err)
			return
		}

		if len(events) < w.batchSize {
			return
		}
	}
}
