package models

import (
	"strings"
	"time"

	dErrors "coursehub/pkg/domain-errors"
)

// PublicationState gates whether a course accepts new enrollments.
// Only a published course does.
type PublicationState string

const (
	StateDraft     PublicationState = "DRAFT"
	StatePublished PublicationState = "PUBLISHED"
	StateArchived  PublicationState = "ARCHIVED"
)

// Course is the catalog entry students enroll into. StudentCount is a
// denormalized cache of live enrollment rows; it is mutated only inside
// the same transaction as the enrollment row change that justifies it.
type Course struct {
	ID           string
	Title        string
	Description  string
	State        PublicationState
	StudentCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCourse constructs a draft course, validating invariants.
func NewCourse(id, title, description string, now time.Time) (*Course, error) {
	title = strings.TrimSpace(title)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "course id is required")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "course title is required")
	}
	return &Course{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(description),
		State:       StateDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanPublish reports whether the course may transition to published.
func (c *Course) CanPublish() error {
	if c.State == StatePublished {
		return dErrors.New(dErrors.CodeInvariantViolation, "course is already published")
	}
	if c.State == StateArchived {
		return dErrors.New(dErrors.CodeInvariantViolation, "archived course cannot be republished")
	}
	return nil
}

// ApplyPublish transitions the course to published.
func (c *Course) ApplyPublish(now time.Time) {
	c.State = StatePublished
	c.UpdatedAt = now
}

// CanArchive reports whether the course may transition to archived.
// Archiving with live enrollments is allowed; existing students keep
// access while new enrollments are rejected.
func (c *Course) CanArchive() error {
	if c.State == StateArchived {
		return dErrors.New(dErrors.CodeInvariantViolation, "course is already archived")
	}
	return nil
}

// ApplyArchive transitions the course to archived.
func (c *Course) ApplyArchive(now time.Time) {
	c.State = StateArchived
	c.UpdatedAt = now
}

// IsPublished reports whether the course currently accepts enrollments.
func (c *Course) IsPublished() bool {
	return c.State == StatePublished
}

// Summary is the read-path projection joined onto enrollment listings.
type Summary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	State        string `json:"state"`
	StudentCount int    `json:"student_count"`
}

// Summarize projects the course into its listing summary.
func (c *Course) Summarize() Summary {
	return Summary{
		ID:           c.ID,
		Title:        c.Title,
		State:        string(c.State),
		StudentCount: c.StudentCount,
	}
}
