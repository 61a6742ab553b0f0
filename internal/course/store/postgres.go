package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coursehub/internal/course/models"
	platformpg "coursehub/internal/platform/postgres"
	"coursehub/pkg/platform/sentinel"
	txcontext "coursehub/pkg/platform/tx"
)

// Postgres persists courses in PostgreSQL. Writes participate in an
// ambient transaction when one is present in the context.
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

func (s *Postgres) Create(ctx context.Context, course *models.Course) error {
	query := `
		INSERT INTO courses (id, title, description, state, student_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		course.ID,
		course.Title,
		course.Description,
		string(course.State),
		course.StudentCount,
		course.CreatedAt,
		course.UpdatedAt,
	)
	if err != nil {
		return platformpg.MapError(err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := `
		SELECT id, title, description, state, student_count, created_at, updated_at
		FROM courses
		WHERE id = $1
	`
	return s.scanCourse(s.execer(ctx).QueryRowContext(ctx, query, id))
}

func (s *Postgres) Update(ctx context.Context, course *models.Course) error {
	query := `
		UPDATE courses
		SET title = $2, description = $3, state = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		course.ID,
		course.Title,
		course.Description,
		string(course.State),
		course.UpdatedAt,
	)
	if err != nil {
		return platformpg.MapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListPublished(ctx context.Context) ([]*models.Course, error) {
	query := `
		SELECT id, title, description, state, student_count, created_at, updated_at
		FROM courses
		WHERE state = $1
		ORDER BY created_at DESC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, string(models.StatePublished))
	if err != nil {
		return nil, platformpg.MapError(err)
	}
	defer rows.Close()

	var out []*models.Course
	for rows.Next() {
		course, err := s.scanCourseRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, course)
	}
	if err := rows.Err(); err != nil {
		return nil, platformpg.MapError(err)
	}
	return out, nil
}

// AdjustStudentCount applies delta atomically at the row level. The guard in
// the WHERE clause keeps the counter non-negative; postgres row locking
// serializes concurrent increments on the same course.
func (s *Postgres) AdjustStudentCount(ctx context.Context, id string, delta int) error {
	query := `
		UPDATE courses
		SET student_count = student_count + $2, updated_at = now()
		WHERE id = $1 AND student_count + $2 >= 0
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, id, delta)
	if err != nil {
		return platformpg.MapError(err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust student count: %w", err)
	}
	if rows == 0 {
		// Distinguish a vanished course from an underflow attempt.
		if _, err := s.FindByID(ctx, id); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return sentinel.ErrNotFound
			}
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) scanCourse(row *sql.Row) (*models.Course, error) {
	var course models.Course
	var state string
	err := row.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&state,
		&course.StudentCount,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		return nil, platformpg.MapError(err)
	}
	course.State = models.PublicationState(state)
	return &course, nil
}

func (s *Postgres) scanCourseRows(rows *sql.Rows) (*models.Course, error) {
	var course models.Course
	var state string
	err := rows.Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&state,
		&course.StudentCount,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		return nil, platformpg.MapError(err)
	}
	course.State = models.PublicationState(state)
	return &course, nil
}
