package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// capturePublisher records published batches and can be told to fail.
type capturePublisher struct {
	mu        sync.Mutex
	published []StoredEvent
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, events []StoredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, events...)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

type OutboxWorkerSuite struct {
	suite.Suite
	store     *InMemoryStore
	publisher *capturePublisher
	worker    *Worker
}

func TestOutboxWorkerSuite(t *testing.T) {
	suite.Run(t, new(OutboxWorkerSuite))
}

func (s *OutboxWorkerSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.publisher = &capturePublisher{}
	s.worker = NewWorker(s.store, s.publisher, time.Millisecond, discardLogger())
}

func (s *OutboxWorkerSuite) append(n int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		s.Require().NoError(s.store.Append(ctx, Event{
			ID:           "evt",
			Type:         TypeEnrollmentCreated,
			EnrollmentID: "e1",
			UserID:       "user-1",
			CourseID:     "course-1",
			OccurredAt:   time.Now().UTC(),
		}))
	}
}

func (s *OutboxWorkerSuite) TestDrain() {
	ctx := context.Background()

	s.Run("publishes pending rows and marks them", func() {
		s.append(3)

		s.worker.drain(ctx)

		s.Equal(3, s.publisher.count())
		s.Zero(s.store.Unpublished())
	})

	s.Run("draining an empty outbox is a no-op", func() {
		s.worker.drain(ctx)
		s.Equal(3, s.publisher.count())
	})

	s.Run("rows stay pending when publishing fails", func() {
		s.append(2)
		s.publisher.err = errors.New("broker down")

		s.worker.drain(ctx)

		s.Equal(2, s.store.Unpublished())

		// Recovery on the next tick republishes the same rows.
		s.publisher.err = nil
		s.worker.drain(ctx)
		s.Equal(5, s.publisher.count())
		s.Zero(s.store.Unpublished())
	})

	s.Run("drains past the batch size in one pass", func() {
		s.worker.batchSize = 2
		s.append(5)

		s.worker.drain(ctx)

		s.Zero(s.store.Unpublished())
	})
}

func (s *OutboxWorkerSuite) TestRunStopsOnCancel() {
	s.append(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx) }()

	s.Require().Eventually(func() bool {
		return s.store.Unpublished() == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.Require().ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("worker did not stop after cancellation")
	}
}
