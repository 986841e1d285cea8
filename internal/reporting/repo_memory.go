package reporting

import (
	"context"

	"setter-platform/internal/calls"
)

// MemoryRepo computes stats over an in-memory snapshot repository. Useful for
// tests and for running without Postgres.
type MemoryRepo struct {
	Sessions *calls.MemoryRepo
}

func NewMemoryRepo(sessions *calls.MemoryRepo) *MemoryRepo {
	return &MemoryRepo{Sessions: sessions}
}

func (r *MemoryRepo) CallStats(ctx context.Context) (CallStats, error) {
	all, err := r.Sessions.ListRecent(ctx, 0)
	if err != nil {
		return CallStats{}, err
	}
	var out CallStats
	for _, s := range all {
		out.TotalCalls++
		out.TotalDurationSeconds += s.DurationSeconds()
		if s.State == calls.StateCompleted {
			out.CompletedCalls++
		}
		if s.Outcome != nil && s.Outcome.Category == calls.OutcomePositiveMeeting {
			out.MeetingsScheduled++
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListRecent(ctx context.Context, limit int) ([]calls.CallSession, error) {
	return r.Sessions.ListRecent(ctx, limit)
}
