package leads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (o *recordingOpener) open(_ context.Context, lead Lead) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, lead.ID)
	return o.err
}

func (o *recordingOpener) ids() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

func newTestScheduler(gw Gateway, dedup DedupStore, opener *recordingOpener) *Scheduler {
	return NewScheduler(gw, dedup, opener.open, nil, SchedulerOptions{
		Interval: time.Minute,
		Window:   24 * time.Hour,
	})
}

func TestTickSelectsEarliestLead(t *testing.T) {
	gw := NewMemoryGateway()
	now := time.Now()
	gw.Put(Lead{ID: "l2", Phone: "plus2", CreatedAt: now.Add(-time.Hour)})
	gw.Put(Lead{ID: "l1", Phone: "plus1", CreatedAt: now.Add(-2 * time.Hour)})

	opener := &recordingOpener{}
	s := newTestScheduler(gw, NewMemoryDedup(), opener)

	opened, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !opened {
		t.Fatal("expected a call to be opened")
	}
	if got := opener.ids(); len(got) != 1 || got[0] != "l1" {
		t.Fatalf("opened %v, want [l1]", got)
	}
}

func TestTickSkipsDeduplicatedLeads(t *testing.T) {
	gw := NewMemoryGateway()
	gw.Put(Lead{ID: "l1", Phone: "p", CreatedAt: time.Now()})

	dedup := NewMemoryDedup()
	if err := dedup.Add(context.Background(), "l1"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	opener := &recordingOpener{}
	s := newTestScheduler(gw, dedup, opener)

	opened, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if opened {
		t.Fatal("dedup set entry must block selection")
	}
	if got := opener.ids(); len(got) != 0 {
		t.Fatalf("opened %v, want none", got)
	}
}

func TestTickWritesDedupBeforeDialing(t *testing.T) {
	gw := NewMemoryGateway()
	gw.Put(Lead{ID: "l1", Phone: "p", CreatedAt: time.Now()})

	dedup := NewMemoryDedup()
	var seenAtDial bool
	open := func(ctx context.Context, lead Lead) error {
		seenAtDial, _ = dedup.Contains(ctx, lead.ID)
		return nil
	}
	s := NewScheduler(gw, dedup, open, nil, SchedulerOptions{Interval: time.Minute, Window: time.Hour})

	if _, err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !seenAtDial {
		t.Fatal("dedup entry must exist before the dial starts")
	}
}

func TestTickDialsAtMostOnePerTick(t *testing.T) {
	gw := NewMemoryGateway()
	now := time.Now()
	for _, id := range []string{"l1", "l2", "l3"} {
		gw.Put(Lead{ID: id, Phone: "p", CreatedAt: now})
	}

	opener := &recordingOpener{}
	s := newTestScheduler(gw, NewMemoryDedup(), opener)

	if _, err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := opener.ids(); len(got) != 1 {
		t.Fatalf("opened %v, want exactly one", got)
	}
}

func TestTickSkipsLeadsWithoutPhone(t *testing.T) {
	gw := NewMemoryGateway()
	now := time.Now()
	gw.Put(Lead{ID: "l1", CreatedAt: now.Add(-time.Hour)})
	gw.Put(Lead{ID: "l2", Phone: "p", CreatedAt: now})

	opener := &recordingOpener{}
	s := newTestScheduler(gw, NewMemoryDedup(), opener)

	if _, err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if got := opener.ids(); len(got) != 1 || got[0] != "l2" {
		t.Fatalf("opened %v, want [l2]", got)
	}
}

type failingGateway struct{}

func (failingGateway) FetchRecent(context.Context, time.Duration) ([]Lead, error) {
	return nil, errors.New("upstream down")
}

func (failingGateway) UpdateStatus(context.Context, string, string, string) error { return nil }

func TestTickSurfacesFetchFailure(t *testing.T) {
	opener := &recordingOpener{}
	s := newTestScheduler(failingGateway{}, NewMemoryDedup(), opener)

	opened, err := s.Tick(context.Background())
	if err == nil {
		t.Fatal("expected fetch error")
	}
	if opened {
		t.Fatal("no call may be opened on fetch failure")
	}
}

func TestTickGuardBlocksDial(t *testing.T) {
	gw := NewMemoryGateway()
	gw.Put(Lead{ID: "l1", Phone: "p", CreatedAt: time.Now()})

	opener := &recordingOpener{}
	guard := func(context.Context, string) (bool, error) { return false, nil }
	s := NewScheduler(gw, NewMemoryDedup(), opener.open, nil, SchedulerOptions{
		Interval: time.Minute,
		Window:   time.Hour,
		Guard:    guard,
	})

	opened, err := s.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if opened {
		t.Fatal("held guard must block the dial")
	}
	if got := opener.ids(); len(got) != 0 {
		t.Fatalf("opened %v, want none", got)
	}
}
