package reporting

import (
	"context"
	"testing"
	"time"

	"setter-platform/internal/calls"
	"setter-platform/internal/leads"
)

type fixedActive int

func (f fixedActive) ActiveCount() int { return int(f) }

func seedSessions(t *testing.T) *calls.MemoryRepo {
	t.Helper()
	repo := calls.NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()

	save := func(s calls.CallSession) {
		if err := repo.Save(context.Background(), s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	end1 := now.Add(90 * time.Second)
	save(calls.CallSession{
		CallID:    "c1",
		Phone:     "+15550001",
		Lead:      leads.Lead{FirstName: "Ada", LastName: "Okafor"},
		State:     calls.StateCompleted,
		StartedAt: now,
		EndedAt:   &end1,
		Outcome:   &calls.OutcomeResult{Category: calls.OutcomePositiveMeeting, MeetingTime: "tomorrow at 3 PM would work"},
	})

	end2 := now.Add(time.Minute)
	save(calls.CallSession{
		CallID:    "c2",
		Phone:     "+15550002",
		State:     calls.StateNoAnswer,
		StartedAt: now.Add(time.Minute),
		EndedAt:   &end2,
	})

	save(calls.CallSession{
		CallID:    "c3",
		Phone:     "+15550003",
		State:     calls.StateActive,
		StartedAt: now.Add(2 * time.Minute),
	})
	return repo
}

func TestDashboardSummaryAggregates(t *testing.T) {
	svc := NewService(NewMemoryRepo(seedSessions(t)), fixedActive(1))

	out, err := svc.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("DashboardSummary: %v", err)
	}
	if out.TotalCalls != 3 {
		t.Errorf("total calls = %d, want 3", out.TotalCalls)
	}
	if out.ActiveCalls != 1 {
		t.Errorf("active calls = %d, want 1", out.ActiveCalls)
	}
	if out.MeetingsScheduled != 1 {
		t.Errorf("meetings = %d, want 1", out.MeetingsScheduled)
	}
	// One completed call out of three.
	if out.SuccessRate != 33.3 {
		t.Errorf("success rate = %v, want 33.3", out.SuccessRate)
	}
	// 90s spoken on c1; c2 never connected and contributes 0.
	if out.MinutesSpoken != 1.5 {
		t.Errorf("minutes spoken = %v, want 1.5", out.MinutesSpoken)
	}
}

func TestDashboardSummaryRecentCallsNewestFirst(t *testing.T) {
	svc := NewService(NewMemoryRepo(seedSessions(t)), nil)

	out, err := svc.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("DashboardSummary: %v", err)
	}
	if len(out.RecentCalls) != 3 {
		t.Fatalf("recent calls = %d, want 3", len(out.RecentCalls))
	}
	if out.RecentCalls[0].CallID != "c3" || out.RecentCalls[2].CallID != "c1" {
		t.Errorf("recent calls not newest-first: %+v", out.RecentCalls)
	}
	if out.RecentCalls[2].LeadName != "Ada Okafor" {
		t.Errorf("lead name = %q", out.RecentCalls[2].LeadName)
	}
	if out.RecentCalls[2].MeetingTime != "tomorrow at 3 PM would work" {
		t.Errorf("meeting time = %q", out.RecentCalls[2].MeetingTime)
	}
}

func TestDashboardSummaryEmptyRepo(t *testing.T) {
	svc := NewService(NewMemoryRepo(calls.NewMemoryRepo()), nil)

	out, err := svc.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("DashboardSummary: %v", err)
	}
	if out.TotalCalls != 0 || out.SuccessRate != 0 || out.MinutesSpoken != 0 {
		t.Fatalf("empty summary = %+v", out)
	}
}
