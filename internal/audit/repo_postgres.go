package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to an insert-only audit_events table.
//
// Expected schema:
//
//	CREATE TABLE audit_events (
//	    id            UUID PRIMARY KEY,
//	    type          TEXT NOT NULL,
//	    actor_user_id TEXT,
//	    actor_role    TEXT,
//	    ip_address    TEXT,
//	    call_id       TEXT,
//	    lead_id       TEXT,
//	    message       TEXT,
//	    metadata      JSONB,
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	meta := any(e.Metadata)
	if e.Metadata == "" {
		meta = nil
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(id, type, actor_user_id, actor_role, ip_address, call_id, lead_id, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress,
		e.CallID, e.LeadID, e.Message, meta, e.CreatedAt,
	)
	return err
}
