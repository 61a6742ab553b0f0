// Package outbox implements the transactional outbox for enrollment events.
//
// The enrollment service appends an event row in the same transaction as
// the membership change; a background worker publishes unpublished rows to
// Kafka and marks them. Delivery is at-least-once; consumers deduplicate
// on the event ID. Ordering is per course via the record key.
package outbox

import (
	"context"
	"time"
)

// Type names an enrollment lifecycle event.
type Type string

const (
	TypeEnrollmentCreated Type = "enrollment.created"
	TypeEnrollmentDeleted Type = "enrollment.deleted"
)

// Event is the domain payload appended alongside the membership change.
type Event struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	EnrollmentID string    `json:"enrollment_id"`
	UserID       string    `json:"user_id"`
	CourseID     string    `json:"course_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// StoredEvent is an outbox row awaiting publication. Seq is the insertion
// order within the store; Key routes the record to a partition so events
// for one course stay ordered.
type StoredEvent struct {
	Seq     int64
	Type    Type
	Key     string
	Payload []byte
}

// Store is the outbox persistence surface. Append must participate in the
// ambient transaction when one is present in the context.
type Store interface {
	Append(ctx context.Context, event Event) error
	FetchUnpublished(ctx context.Context, limit int) ([]StoredEvent, error)
	MarkPublished(ctx context.Context, seqs []int64) error
}
