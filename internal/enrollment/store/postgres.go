package store

import (
	"context"
	"database/sql"
	"fmt"

	"coursehub/internal/enrollment/models"
	platformpg "coursehub/internal/platform/postgres"
	"coursehub/pkg/platform/sentinel"
	txcontext "coursehub/pkg/platform/tx"
)

// Postgres persists enrollments in PostgreSQL. The unique index on
// (user_id, course_id) is the source of truth for duplicate-enrollment
// safety; the service's pre-check lookup is an optimization only.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Insert(ctx context.Context, enrollment *models.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, user_id, course_id, enrolled_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		enrollment.ID,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.EnrolledAt,
	)
	if err != nil {
		return platformpg.MapError(err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, enrolled_at
		FROM enrollments
		WHERE id = $1
	`
	var e models.Enrollment
	err := s.execer(ctx).QueryRowContext(ctx, query, id).
		Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt)
	if err != nil {
		return nil, platformpg.MapError(err)
	}
	return &e, nil
}

func (s *Postgres) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, enrolled_at
		FROM enrollments
		WHERE user_id = $1 AND course_id = $2
	`
	var e models.Enrollment
	err := s.execer(ctx).QueryRowContext(ctx, query, userID, courseID).
		Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt)
	if err != nil {
		return nil, platformpg.MapError(err)
	}
	return &e, nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return platformpg.MapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, enrolled_at
		FROM enrollments
		WHERE user_id = $1
		ORDER BY enrolled_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, platformpg.MapError(err)
	}
	defer rows.Close()

	var out []*models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt); err != nil {
			return nil, platformpg.MapError(err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, platformpg.MapError(err)
	}
	return out, nil
}

func (s *Postgres) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM enrollments WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, platformpg.MapError(err)
	}
	return count, nil
}
