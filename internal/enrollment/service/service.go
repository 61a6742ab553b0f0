package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	coursemodels "coursehub/internal/course/models"
	enrollmentmetrics "coursehub/internal/enrollment/metrics"
	"coursehub/internal/enrollment/models"
	"coursehub/internal/events/outbox"
	dErrors "coursehub/pkg/domain-errors"
	"coursehub/pkg/platform/sentinel"
)

// EnrollmentStore is the persistence surface for enrollment rows. Mutations
// must participate in the ambient transaction when one is present in the
// context.
type EnrollmentStore interface {
	Insert(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Enrollment, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// CourseStore is the slice of the course subsystem this module touches:
// read publication state, mutate exactly one field (the student counter),
// the latter only inside the same transaction as the membership change.
type CourseStore interface {
	FindByID(ctx context.Context, id string) (*coursemodels.Course, error)
	AdjustStudentCount(ctx context.Context, id string, delta int) error
}

// EventStore appends enrollment lifecycle events to the outbox within the
// ambient transaction.
type EventStore interface {
	Append(ctx context.Context, event outbox.Event) error
}

// StoreTx provides the transactional boundary for enrollment mutations.
// Implementations wrap a database transaction or, in-memory, a coarse lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the enrollment transaction core. It validates eligibility,
// then performs the membership change, the counter update, and the outbox
// append as one atomic unit of work. Correctness under concurrent requests
// is delegated to the store: the unique index on (user_id, course_id) is
// the duplicate guard, not the pre-check lookup. The service never retries
// internally; retryable failures are tagged so the caller can decide.
type Service struct {
	enrollments EnrollmentStore
	courses     CourseStore
	events      EventStore
	tx          StoreTx
	logger      *slog.Logger
	metrics     *enrollmentmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *enrollmentmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventStore(events EventStore) Option {
	return func(s *Service) { s.events = events }
}

func New(enrollments EnrollmentStore, courses CourseStore, tx StoreTx, opts ...Option) *Service {
	s := &Service{
		enrollments: enrollments,
		courses:     courses,
		tx:          tx,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEnrollment enrolls userID in the requested course.
//
// The duplicate pre-check gives a fast, friendly error on the common case
// but cannot close the race window: a second caller can pass it before the
// first caller's transaction commits. The store's unique constraint
// rejects the loser, surfaced here as the same conflict error.
func (s *Service) CreateEnrollment(ctx context.Context, userID string, req models.CreateEnrollmentRequest) (*models.Enrollment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	courseID := strings.TrimSpace(req.CourseID)
	if courseID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "course id is required")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, s.classifyReadErr(err, "course not found")
	}
	if !course.IsPublished() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "course is not published")
	}

	if _, err := s.enrollments.FindByUserAndCourse(ctx, userID, courseID); err == nil {
		s.metrics.IncrementConflict()
		return nil, dErrors.New(dErrors.CodeConflict, "user is already enrolled in this course")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.classifyReadErr(err, "course not found")
	}

	now := time.Now().UTC()
	enrollment, err := models.NewEnrollment(uuid.NewString(), userID, courseID, now)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.enrollments.Insert(txCtx, enrollment); err != nil {
			return err
		}
		if err := s.courses.AdjustStudentCount(txCtx, courseID, 1); err != nil {
			// A SQL transaction discards the insert on rollback; the
			// in-memory boundary has no rollback, so compensate explicitly.
			_ = s.enrollments.Delete(txCtx, enrollment.ID)
			return err
		}
		if s.events != nil {
			if err := s.events.Append(txCtx, outbox.Event{
				ID:           uuid.NewString(),
				Type:         outbox.TypeEnrollmentCreated,
				EnrollmentID: enrollment.ID,
				UserID:       userID,
				CourseID:     courseID,
				OccurredAt:   now,
			}); err != nil {
				_ = s.courses.AdjustStudentCount(txCtx, courseID, -1)
				_ = s.enrollments.Delete(txCtx, enrollment.ID)
				return err
			}
		}
		return nil
	})
	s.metrics.ObserveTx(start)
	if err != nil {
		return nil, s.classifyTxErr(ctx, err)
	}

	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "enrollment created",
		"enrollment_id", enrollment.ID,
		"user_id", userID,
		"course_id", courseID,
	)
	return enrollment, nil
}

// DeleteEnrollment removes an enrollment owned by userID and decrements
// the course counter in the same transaction.
func (s *Service) DeleteEnrollment(ctx context.Context, userID, enrollmentID string) (*models.Enrollment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if strings.TrimSpace(enrollmentID) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "enrollment id is required")
	}

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, s.classifyReadErr(err, "enrollment not found")
	}
	if enrollment.UserID != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to delete this enrollment")
	}

	start := time.Now()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.enrollments.Delete(txCtx, enrollment.ID); err != nil {
			return err
		}
		if err := s.courses.AdjustStudentCount(txCtx, enrollment.CourseID, -1); err != nil {
			_ = s.enrollments.Insert(txCtx, enrollment)
			return err
		}
		if s.events != nil {
			if err := s.events.Append(txCtx, outbox.Event{
				ID:           uuid.NewString(),
				Type:         outbox.TypeEnrollmentDeleted,
				EnrollmentID: enrollment.ID,
				UserID:       userID,
				CourseID:     enrollment.CourseID,
				OccurredAt:   time.Now().UTC(),
			}); err != nil {
				_ = s.courses.AdjustStudentCount(txCtx, enrollment.CourseID, 1)
				_ = s.enrollments.Insert(txCtx, enrollment)
				return err
			}
		}
		return nil
	})
	s.metrics.ObserveTx(start)
	if err != nil {
		return nil, s.classifyTxErr(ctx, err)
	}

	s.metrics.IncrementDeleted()
	s.logger.InfoContext(ctx, "enrollment deleted",
		"enrollment_id", enrollment.ID,
		"user_id", userID,
		"course_id", enrollment.CourseID,
	)
	return enrollment, nil
}

// classifyReadErr translates pre-transaction lookup failures.
func (s *Service) classifyReadErr(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "database operation failed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "enrollment lookup failed")
	}
}

// classifyTxErr translates a failed unit of work into the stable taxonomy.
// This is the single classification step for everything the store surfaces
// during commit; no driver detail leaks past it.
func (s *Service) classifyTxErr(ctx context.Context, err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeTransient):
		return err
	case errors.Is(err, sentinel.ErrConflict):
		s.metrics.IncrementConflict()
		return dErrors.Wrap(err, dErrors.CodeConflict, "user is already enrolled in this course")
	case errors.Is(err, sentinel.ErrConcurrentModification):
		return dErrors.Wrap(err, dErrors.CodeConcurrencyConflict, "concurrent update detected, please retry")
	case errors.Is(err, sentinel.ErrNotFound):
		// Course vanished between pre-check and commit.
		return dErrors.Wrap(err, dErrors.CodeNotFound, "course not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "course enrollment count is inconsistent")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "database operation failed")
	default:
		s.logger.WarnContext(ctx, "enrollment transaction failed", "error", err)
		return dErrors.Wrap(err, dErrors.CodeTransient, "transaction failed, please retry")
	}
}
