package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	coursemodels "coursehub/internal/course/models"
	"coursehub/internal/enrollment/models"
	dErrors "coursehub/pkg/domain-errors"
	"coursehub/pkg/platform/sentinel"
)

// CourseFinder is the read surface used to join course summaries onto
// listings. Wire the cache-decorated course store here; a momentarily
// stale summary is acceptable on this path.
type CourseFinder interface {
	FindByID(ctx context.Context, id string) (*coursemodels.Course, error)
}

// Query is the enrollment read path. It bypasses the transaction boundary
// and degrades on store failure instead of propagating it: a listing comes
// back empty with a marker, a status check fails closed.
type Query struct {
	enrollments EnrollmentStore
	courses     CourseFinder
	logger      *slog.Logger
}

func NewQuery(enrollments EnrollmentStore, courses CourseFinder, logger *slog.Logger) *Query {
	if logger == nil {
		logger = slog.Default()
	}
	return &Query{enrollments: enrollments, courses: courses, logger: logger}
}

// GetEnrollments returns one page of the user's enrollment history, newest
// first, with joined course summaries.
func (q *Query) GetEnrollments(ctx context.Context, userID string, page models.Page) models.EnrollmentPage {
	page = page.Normalize()

	total, err := q.enrollments.CountByUser(ctx, userID)
	if err != nil {
		return q.failedPage(ctx, userID, page, err)
	}

	rows, err := q.enrollments.ListByUser(ctx, userID, page.Offset(), page.Limit)
	if err != nil {
		return q.failedPage(ctx, userID, page, err)
	}

	items := make([]models.EnrollmentWithCourse, 0, len(rows))
	for _, enrollment := range rows {
		items = append(items, models.EnrollmentWithCourse{
			Enrollment: *enrollment,
			Course:     q.courseSummary(ctx, enrollment.CourseID),
		})
	}

	return models.EnrollmentPage{
		Items:      items,
		Pagination: models.NewPageInfo(page, total),
	}
}

// GetEnrollmentStatus reports whether userID holds a live enrollment in
// courseID. Absence of certainty is treated as not-enrolled, never as
// enrolled.
func (q *Query) GetEnrollmentStatus(ctx context.Context, userID, courseID string) (models.EnrollmentStatus, error) {
	if strings.TrimSpace(userID) == "" {
		return models.EnrollmentStatus{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if strings.TrimSpace(courseID) == "" {
		return models.EnrollmentStatus{}, dErrors.New(dErrors.CodeInvalidInput, "course id is required")
	}

	enrollment, err := q.enrollments.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.EnrollmentStatus{IsEnrolled: false}, nil
		}
		q.logger.WarnContext(ctx, "enrollment status check failed",
			"user_id", userID,
			"course_id", courseID,
			"error", err,
		)
		return models.EnrollmentStatus{IsEnrolled: false, Error: models.QueryFailed}, nil
	}

	enrolledAt := enrollment.EnrolledAt
	return models.EnrollmentStatus{IsEnrolled: true, EnrolledAt: &enrolledAt}, nil
}

// courseSummary resolves the joined summary, tolerating lookup failures:
// a listing row without its summary beats a failed page.
func (q *Query) courseSummary(ctx context.Context, courseID string) coursemodels.Summary {
	course, err := q.courses.FindByID(ctx, courseID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			q.logger.WarnContext(ctx, "course summary lookup failed",
				"course_id", courseID,
				"error", err,
			)
		}
		return coursemodels.Summary{ID: courseID}
	}
	return course.Summarize()
}

func (q *Query) failedPage(ctx context.Context, userID string, page models.Page, err error) models.EnrollmentPage {
	q.logger.WarnContext(ctx, "enrollment listing failed",
		"user_id", userID,
		"error", err,
	)
	return models.EnrollmentPage{
		Items:      []models.EnrollmentWithCourse{},
		Pagination: models.NewPageInfo(page, 0),
		Error:      models.QueryFailed,
	}
}
