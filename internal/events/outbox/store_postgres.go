package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	platformpg "coursehub/internal/platform/postgres"
	txcontext "coursehub/pkg/platform/tx"
)

// PostgresStore writes outbox rows to the enrollment_outbox table. Append
// joins the caller's transaction, so the event row commits atomically with
// the membership change.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox event: %w", err)
	}

	query := `
		INSERT INTO enrollment_outbox (event_id, event_type, record_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		event.CourseID,
		payload,
		event.OccurredAt,
	)
	if err != nil {
		return platformpg.MapError(err)
	}
	return nil
}

func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]StoredEvent, error) {
	query := `
		SELECT seq, event_type, record_key, payload
		FROM enrollment_outbox
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, platformpg.MapError(err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var typ string
		if err := rows.Scan(&ev.Seq, &typ, &ev.Key, &ev.Payload); err != nil {
			return nil, platformpg.MapError(err)
		}
		ev.Type = Type(typ)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, platformpg.MapError(err)
	}
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	query := `
		UPDATE enrollment_outbox
		SET published_at = now()
		WHERE seq = ANY($1)
	`
	_, err := s.db.ExecContext(ctx, query, pq.Array(seqs))
	if err != nil {
		return platformpg.MapError(err)
	}
	return nil
}
