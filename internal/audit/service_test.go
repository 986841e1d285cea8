package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{CallID: "c1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogCallEvent(context.Background(), "call_dialed", "c1", "l1", "outbound call placed"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogCallEvent(context.Background(), "call_finished", "c2", "l2", "terminal state completed"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.ForCall("c1")
	if len(evs) != 1 {
		t.Fatalf("expected 1 event for c1, got %d", len(evs))
	}
	if evs[0].Type != EventTypeCallDialed {
		t.Fatalf("expected call_dialed")
	}
	if evs[0].CallID != "c1" || evs[0].LeadID != "l1" {
		t.Fatalf("target ids not captured: %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("id and created_at must be populated")
	}
}

func TestService_LogAdminActionCapturesActor(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogAdminAction(context.Background(), "u1", "owner", "1.2.3.4", "manual dial requested", "{}"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if evs[0].ActorRole != "owner" {
		t.Fatalf("expected actor role captured")
	}
}
