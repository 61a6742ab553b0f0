package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coursehub/internal/course/models"
	dErrors "coursehub/pkg/domain-errors"
	"coursehub/pkg/platform/sentinel"
)

// Store is the persistence surface the course service consumes.
type Store interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Update(ctx context.Context, course *models.Course) error
	ListPublished(ctx context.Context) ([]*models.Course, error)
}

// Invalidator drops cached course projections after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, id string)
}

// Service owns the course lifecycle: draft on creation, publish to open
// enrollment, archive to close it. The enrollment module reads publication
// state and mutates exactly one field here (the student counter), through
// its own transaction boundary.
type Service struct {
	courses     Store
	invalidator Invalidator
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

func New(courses Store, opts ...Option) *Service {
	s := &Service{courses: courses, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateCourse(ctx context.Context, title, description string) (*models.Course, error) {
	course, err := models.NewCourse(uuid.NewString(), title, description, time.Now().UTC())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.courses.Create(ctx, course); err != nil {
		return nil, s.wrapStoreErr(err, "failed to create course")
	}

	s.logger.InfoContext(ctx, "course created", "course_id", course.ID)
	return course, nil
}

func (s *Service) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "course id is required")
	}
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrapStoreErr(err, "failed to load course")
	}
	return course, nil
}

func (s *Service) ListPublished(ctx context.Context) ([]*models.Course, error) {
	courses, err := s.courses.ListPublished(ctx)
	if err != nil {
		return nil, s.wrapStoreErr(err, "failed to list courses")
	}
	return courses, nil
}

// PublishCourse opens the course for enrollment.
func (s *Service) PublishCourse(ctx context.Context, id string) (*models.Course, error) {
	return s.transition(ctx, id,
		func(c *models.Course) error { return c.CanPublish() },
		func(c *models.Course, now time.Time) { c.ApplyPublish(now) },
		"course published",
	)
}

// ArchiveCourse closes the course to new enrollment. Existing enrollments
// stay live.
func (s *Service) ArchiveCourse(ctx context.Context, id string) (*models.Course, error) {
	return s.transition(ctx, id,
		func(c *models.Course) error { return c.CanArchive() },
		func(c *models.Course, now time.Time) { c.ApplyArchive(now) },
		"course archived",
	)
}

func (s *Service) transition(
	ctx context.Context,
	id string,
	check func(*models.Course) error,
	apply func(*models.Course, time.Time),
	event string,
) (*models.Course, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "course id is required")
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrapStoreErr(err, "failed to load course")
	}

	if err := check(course); err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeInvalidState, dErrors.MessageOf(err))
		}
		return nil, err
	}

	apply(course, time.Now().UTC())
	if err := s.courses.Update(ctx, course); err != nil {
		return nil, s.wrapStoreErr(err, "failed to update course")
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, course.ID)
	}
	s.logger.InfoContext(ctx, event, "course_id", course.ID)
	return course, nil
}

func (s *Service) wrapStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "course not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "course already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "database operation failed")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
