package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"setter-platform/pkg/utils"
)

// PostgresRepo stores session snapshots in call_records and appends every
// state observation to call_state_log for later inspection.
//
// Expected schema:
//
//	CREATE TABLE call_records (
//	    call_id          TEXT PRIMARY KEY,
//	    lead_id          TEXT NOT NULL,
//	    lead_name        TEXT NOT NULL DEFAULT '',
//	    phone_number     TEXT NOT NULL,
//	    provider_call_id TEXT NOT NULL DEFAULT '',
//	    state            TEXT NOT NULL,
//	    started_at       TIMESTAMPTZ NOT NULL,
//	    ended_at         TIMESTAMPTZ,
//	    duration_seconds INT NOT NULL DEFAULT 0,
//	    turns            JSONB NOT NULL DEFAULT '[]',
//	    outcome          TEXT NOT NULL DEFAULT '',
//	    meeting_time     TEXT NOT NULL DEFAULT '',
//	    recording_sid    TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX call_records_provider_idx ON call_records (provider_call_id);
//
//	CREATE TABLE call_state_log (
//	    id         BIGSERIAL PRIMARY KEY,
//	    call_id    TEXT NOT NULL,
//	    state      TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type PostgresRepo struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, clock: time.Now}
}

func (r *PostgresRepo) Save(ctx context.Context, s CallSession) error {
	if s.CallID == "" {
		return errors.New("calls: call_id required")
	}
	turns, err := json.Marshal(s.Turns)
	if err != nil {
		return fmt.Errorf("calls: turns marshal failed: %w", err)
	}
	outcome, meetingTime := "", ""
	if s.Outcome != nil {
		outcome = string(s.Outcome.Category)
		meetingTime = s.Outcome.MeetingTime
	}
	now := r.clock().UTC()

	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO call_records
				(call_id, lead_id, lead_name, phone_number, provider_call_id, state,
				 started_at, ended_at, duration_seconds, turns, outcome, meeting_time, recording_sid)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (call_id) DO UPDATE SET
				provider_call_id = EXCLUDED.provider_call_id,
				state            = EXCLUDED.state,
				ended_at         = EXCLUDED.ended_at,
				duration_seconds = EXCLUDED.duration_seconds,
				turns            = EXCLUDED.turns,
				outcome          = EXCLUDED.outcome,
				meeting_time     = EXCLUDED.meeting_time,
				recording_sid    = EXCLUDED.recording_sid`,
			s.CallID, s.LeadID, s.Lead.FullName(), s.Phone, s.ProviderCallID, string(s.State),
			s.StartedAt, s.EndedAt, s.DurationSeconds(), turns, outcome, meetingTime, s.RecordingSID,
		)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO call_state_log (call_id, state, created_at) VALUES ($1,$2,$3)`,
			s.CallID, string(s.State), now,
		)
		return err
	})
}

func (r *PostgresRepo) FindByCallID(ctx context.Context, callID string) (CallSession, bool, error) {
	return r.findOne(ctx, `WHERE call_id = $1`, callID)
}

func (r *PostgresRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (CallSession, bool, error) {
	if providerCallID == "" {
		return CallSession{}, false, nil
	}
	return r.findOne(ctx, `WHERE provider_call_id = $1`, providerCallID)
}

const sessionColumns = `call_id, lead_id, lead_name, phone_number, provider_call_id, state,
	started_at, ended_at, turns, outcome, meeting_time, recording_sid`

func (r *PostgresRepo) findOne(ctx context.Context, where string, arg any) (CallSession, bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM call_records `+where, arg)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CallSession{}, false, nil
	}
	if err != nil {
		return CallSession{}, false, err
	}
	return s, true, nil
}

// ListRecent returns snapshots newest-first, at most limit.
func (r *PostgresRepo) ListRecent(ctx context.Context, limit int) ([]CallSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM call_records ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CallSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (CallSession, error) {
	var (
		s           CallSession
		leadName    string
		state       string
		endedAt     sql.NullTime
		turnsRaw    []byte
		outcome     string
		meetingTime string
	)
	err := row.Scan(&s.CallID, &s.LeadID, &leadName, &s.Phone, &s.ProviderCallID, &state,
		&s.StartedAt, &endedAt, &turnsRaw, &outcome, &meetingTime, &s.RecordingSID)
	if err != nil {
		return CallSession{}, err
	}
	s.State = CallState(state)
	s.Lead.FirstName = leadName
	s.Lead.ID = s.LeadID
	s.Lead.Phone = s.Phone
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	if len(turnsRaw) > 0 {
		if err := json.Unmarshal(turnsRaw, &s.Turns); err != nil {
			return CallSession{}, fmt.Errorf("calls: turns unmarshal failed: %w", err)
		}
	}
	if outcome != "" {
		s.Outcome = &OutcomeResult{Category: OutcomeCategory(outcome), MeetingTime: meetingTime}
	}
	return s, nil
}
