package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// InMemoryStore keeps outbox rows in memory for tests and dev mode.
type InMemoryStore struct {
	mu        sync.Mutex
	nextSeq   int64
	rows      []memoryRow
	published map[int64]bool
}

type memoryRow struct {
	seq     int64
	typ     Type
	key     string
	payload []byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: make(map[int64]bool)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	s.rows = append(s.rows, memoryRow{
		seq:     s.nextSeq,
		typ:     event.Type,
		key:     event.CourseID,
		payload: payload,
	})
	return nil
}

func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []StoredEvent
	for _, row := range s.rows {
		if s.published[row.seq] {
			continue
		}
		out = append(out, StoredEvent{Seq: row.seq, Type: row.typ, Key: row.key, Payload: row.payload})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, seqs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range seqs {
		s.published[seq] = true
	}
	return nil
}

// Unpublished reports how many rows still await publication. Test helper.
func (s *InMemoryStore) Unpublished() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, row := range s.rows {
		if !s.published[row.seq] {
			count++
		}
	}
	return count
}
