package models

import (
	"math"
	"strings"
	"time"

	coursemodels "coursehub/internal/course/models"
	dErrors "coursehub/pkg/domain-errors"
)

// Enrollment links one user to one course. The (UserID, CourseID) pair is
// unique across live rows; rows are created and deleted only through the
// enrollment service's transaction boundary and never updated in place.
type Enrollment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// NewEnrollment constructs an enrollment, validating invariants.
func NewEnrollment(id, userID, courseID string, now time.Time) (*Enrollment, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "enrollment id is required")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id is required")
	}
	if strings.TrimSpace(courseID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "course id is required")
	}
	return &Enrollment{
		ID:         id,
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: now,
	}, nil
}

// CreateEnrollmentRequest is the parsed body of an enrollment request.
// The user ID comes from the authenticated context, never the body.
type CreateEnrollmentRequest struct {
	CourseID string `json:"course_id"`
}

// Page is the caller-supplied pagination window.
type Page struct {
	Page  int
	Limit int
}

const maxPageLimit = 100

// Normalize clamps the window: page >= 1, limit in [1, 100]. Out-of-range
// values are corrected rather than rejected.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset returns the row offset for the normalized window. A page number
// large enough to overflow the multiplication saturates instead of going
// negative, so the window reads as past-the-end.
func (p Page) Offset() int {
	offset := (p.Page - 1) * p.Limit
	if offset < 0 || (p.Limit > 0 && offset/p.Limit != p.Page-1) {
		return math.MaxInt
	}
	return offset
}

// PageInfo is the pagination metadata returned alongside a listing.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageInfo computes metadata for a normalized window over total rows.
func NewPageInfo(p Page, total int) PageInfo {
	totalPages := (total + p.Limit - 1) / p.Limit
	return PageInfo{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: totalPages}
}

// EnrollmentWithCourse is a listing row with its joined course summary.
type EnrollmentWithCourse struct {
	Enrollment
	Course coursemodels.Summary `json:"course"`
}

// QueryFailed marks a degraded read: the page is empty (or the status is
// not-enrolled) because the store could not be reached, not because the
// data is absent.
const QueryFailed = "query_failed"

// EnrollmentPage is the read-path listing result. Error carries the
// QueryFailed marker when the store was unreachable; read paths degrade,
// they never propagate store failures to the caller.
type EnrollmentPage struct {
	Items      []EnrollmentWithCourse `json:"items"`
	Pagination PageInfo               `json:"pagination"`
	Error      string                 `json:"error,omitempty"`
}

// EnrollmentStatus reports whether a user holds a live enrollment in a
// course. On store failure IsEnrolled is false (fail closed) and Error
// carries the QueryFailed marker.
type EnrollmentStatus struct {
	IsEnrolled bool       `json:"is_enrolled"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}
