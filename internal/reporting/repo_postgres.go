package reporting

import (
	"context"
	"database/sql"

	"setter-platform/internal/calls"
)

// PostgresRepo aggregates over the call_records table written by the calls
// package. Listing delegates to the calls repository so row decoding lives
// in one place.
type PostgresRepo struct {
	db       *sql.DB
	sessions *calls.PostgresRepo
}

func NewPostgresRepo(db *sql.DB, sessions *calls.PostgresRepo) *PostgresRepo {
	return &PostgresRepo{db: db, sessions: sessions}
}

func (r *PostgresRepo) CallStats(ctx context.Context) (CallStats, error) {
	var out CallStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE state = 'completed'),
			COALESCE(SUM(duration_seconds), 0),
			COUNT(*) FILTER (WHERE outcome = 'positive_meeting')
		FROM call_records`,
	).Scan(&out.TotalCalls, &out.CompletedCalls, &out.TotalDurationSeconds, &out.MeetingsScheduled)
	if err != nil {
		return CallStats{}, err
	}
	return out, nil
}

func (r *PostgresRepo) ListRecent(ctx context.Context, limit int) ([]calls.CallSession, error) {
	return r.sessions.ListRecent(ctx, limit)
}
