package reporting

import (
	"context"
	"errors"
	"math"

	"setter-platform/internal/calls"
)

// Repository abstracts read access to durable call records.
//
// Implementations query the same call_records table the session manager
// writes; reporting never mutates anything.

type Repository interface {
	CallStats(ctx context.Context) (CallStats, error)
	ListRecent(ctx context.Context, limit int) ([]calls.CallSession, error)
}

// ActiveCounter reports live in-memory sessions. Durable records lag the
// in-memory table, so the live count comes from the session manager.
type ActiveCounter interface {
	ActiveCount() int
}

type Service struct {
	repo   Repository
	active ActiveCounter
}

func NewService(repo Repository, active ActiveCounter) *Service {
	return &Service{repo: repo, active: active}
}

const recentCallLimit = 10

// DashboardSummary aggregates headline metrics and the recent-call table.
func (s *Service) DashboardSummary(ctx context.Context) (DashboardSummary, error) {
	if s.repo == nil {
		return DashboardSummary{}, errors.New("reporting: repository not configured")
	}

	stats, err := s.repo.CallStats(ctx)
	if err != nil {
		return DashboardSummary{}, err
	}
	recent, err := s.repo.ListRecent(ctx, recentCallLimit)
	if err != nil {
		return DashboardSummary{}, err
	}

	out := DashboardSummary{
		TotalCalls:        stats.TotalCalls,
		MinutesSpoken:     round1(float64(stats.TotalDurationSeconds) / 60),
		MeetingsScheduled: stats.MeetingsScheduled,
		RecentCalls:       make([]RecentCall, 0, len(recent)),
	}
	if stats.TotalCalls > 0 {
		out.SuccessRate = round1(float64(stats.CompletedCalls) / float64(stats.TotalCalls) * 100)
	}
	if s.active != nil {
		out.ActiveCalls = s.active.ActiveCount()
	}

	for _, c := range recent {
		row := RecentCall{
			CallID:          c.CallID,
			LeadName:        c.Lead.FullName(),
			Phone:           c.Phone,
			State:           string(c.State),
			StartedAt:       c.StartedAt,
			DurationSeconds: c.DurationSeconds(),
		}
		if c.Outcome != nil {
			row.Outcome = string(c.Outcome.Category)
			row.MeetingTime = c.Outcome.MeetingTime
		}
		out.RecentCalls = append(out.RecentCalls, row)
	}
	return out, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
