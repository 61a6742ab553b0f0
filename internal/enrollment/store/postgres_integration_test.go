//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	coursemodels "coursehub/internal/course/models"
	coursestore "coursehub/internal/course/store"
	"coursehub/internal/enrollment/models"
	"coursehub/pkg/platform/sentinel"
	"coursehub/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg          *containers.PostgresContainer
	enrollments *Postgres
	courses     *coursestore.Postgres
	tx          *PostgresTx
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetPostgres(s.T())
	s.enrollments = NewPostgres(s.pg.DB)
	s.courses = coursestore.NewPostgres(s.pg.DB)
	s.tx = NewPostgresTx(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(),
		"enrollment_outbox", "enrollments", "courses",
	))
}

func (s *PostgresStoreSuite) seedCourse(id string) {
	course, err := coursemodels.NewCourse(id, "Course "+id, "", time.Now().UTC())
	s.Require().NoError(err)
	course.ApplyPublish(time.Now().UTC())
	s.Require().NoError(s.courses.Create(context.Background(), course))
}

func (s *PostgresStoreSuite) enrollment(userID, courseID string) *models.Enrollment {
	e, err := models.NewEnrollment(uuid.NewString(), userID, courseID, time.Now().UTC())
	s.Require().NoError(err)
	return e
}

func (s *PostgresStoreSuite) studentCount(courseID string) int {
	course, err := s.courses.FindByID(context.Background(), courseID)
	s.Require().NoError(err)
	return course.StudentCount
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()
	s.seedCourse("course-1")

	e := s.enrollment("user-1", "course-1")
	s.Require().NoError(s.enrollments.Insert(ctx, e))

	found, err := s.enrollments.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.UserID, found.UserID)
	s.Equal(e.CourseID, found.CourseID)

	byPair, err := s.enrollments.FindByUserAndCourse(ctx, "user-1", "course-1")
	s.Require().NoError(err)
	s.Equal(e.ID, byPair.ID)

	_, err = s.enrollments.FindByID(ctx, uuid.NewString())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUniqueIndexRejectsDuplicatePair() {
	ctx := context.Background()
	s.seedCourse("course-1")

	s.Require().NoError(s.enrollments.Insert(ctx, s.enrollment("user-1", "course-1")))

	err := s.enrollments.Insert(ctx, s.enrollment("user-1", "course-1"))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()
	s.seedCourse("course-1")

	e := s.enrollment("user-1", "course-1")
	s.Require().NoError(s.enrollments.Insert(ctx, e))
	s.Require().NoError(s.enrollments.Delete(ctx, e.ID))

	_, err := s.enrollments.FindByID(ctx, e.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.enrollments.Delete(ctx, e.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListOrderingAndPagination() {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		courseID := fmt.Sprintf("course-%d", i)
		s.seedCourse(courseID)
		e, err := models.NewEnrollment(
			fmt.Sprintf("e-%d", i), "user-1", courseID,
			base.Add(time.Duration(i)*time.Minute),
		)
		s.Require().NoError(err)
		s.Require().NoError(s.enrollments.Insert(ctx, e))
	}

	rows, err := s.enrollments.ListByUser(ctx, "user-1", 0, 3)
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal("e-4", rows[0].ID)
	s.Equal("e-2", rows[2].ID)

	rows, err = s.enrollments.ListByUser(ctx, "user-1", 3, 3)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("e-1", rows[0].ID)

	count, err := s.enrollments.CountByUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(5, count)
}

func (s *PostgresStoreSuite) TestAdjustStudentCount() {
	ctx := context.Background()
	s.seedCourse("course-1")

	s.Require().NoError(s.courses.AdjustStudentCount(ctx, "course-1", 1))
	s.Equal(1, s.studentCount("course-1"))

	s.Require().NoError(s.courses.AdjustStudentCount(ctx, "course-1", -1))
	s.Equal(0, s.studentCount("course-1"))

	s.Require().ErrorIs(s.courses.AdjustStudentCount(ctx, "course-1", -1), sentinel.ErrInvalidState)
	s.Require().ErrorIs(s.courses.AdjustStudentCount(ctx, "missing", 1), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRunInTxCommitsAtomically() {
	ctx := context.Background()
	s.seedCourse("course-1")

	e := s.enrollment("user-1", "course-1")
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.enrollments.Insert(txCtx, e); err != nil {
			return err
		}
		return s.courses.AdjustStudentCount(txCtx, "course-1", 1)
	})
	s.Require().NoError(err)

	_, err = s.enrollments.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(1, s.studentCount("course-1"))
}

func (s *PostgresStoreSuite) TestRunInTxRollsBackOnError() {
	ctx := context.Background()
	s.seedCourse("course-1")

	e := s.enrollment("user-1", "course-1")
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.enrollments.Insert(txCtx, e); err != nil {
			return err
		}
		// Force an underflow so the whole unit of work rolls back.
		return s.courses.AdjustStudentCount(txCtx, "course-1", -1)
	})
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)

	// Neither the row nor the counter survived.
	_, err = s.enrollments.FindByID(ctx, e.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(0, s.studentCount("course-1"))
}

func (s *PostgresStoreSuite) TestConcurrentInsertsSamePair() {
	ctx := context.Background()
	s.seedCourse("course-1")

	const racers = 8
	results := make([]error, racers)

	var g errgroup.Group
	for i := 0; i < racers; i++ {
		i := i
		g.Go(func() error {
			results[i] = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
				if err := s.enrollments.Insert(txCtx, s.enrollment("user-1", "course-1")); err != nil {
					return err
				}
				return s.courses.AdjustStudentCount(txCtx, "course-1", 1)
			})
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			s.Require().ErrorIs(err, sentinel.ErrConflict)
		}
	}
	s.Equal(1, successes)
	s.Equal(1, s.studentCount("course-1"))

	count, err := s.enrollments.CountByUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(1, count)
}
