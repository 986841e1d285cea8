package leads

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// OpenCallFunc hands a selected lead to the call layer. Injected as a
// function so this package stays independent of the session manager.
type OpenCallFunc func(ctx context.Context, lead Lead) error

// GuardFunc optionally acquires a short-lived dial guard for a lead before a
// call is placed. Returning false means another instance already holds it.
type GuardFunc func(ctx context.Context, leadID string) (bool, error)

// SchedulerOptions tune the polling loop.
type SchedulerOptions struct {
	Interval time.Duration
	Window   time.Duration
	Guard    GuardFunc
}

// Scheduler polls the gateway on a fixed interval and dials at most one new
// lead per tick, earliest created first.
type Scheduler struct {
	gateway Gateway
	dedup   DedupStore
	open    OpenCallFunc
	guard   GuardFunc
	log     *slog.Logger

	interval time.Duration
	window   time.Duration
}

func NewScheduler(gateway Gateway, dedup DedupStore, open OpenCallFunc, log *slog.Logger, opts SchedulerOptions) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Minute
	}
	if opts.Window <= 0 {
		opts.Window = 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		gateway:  gateway,
		dedup:    dedup,
		open:     open,
		guard:    opts.Guard,
		log:      log,
		interval: opts.Interval,
		window:   opts.Window,
	}
}

// Run polls until the context is canceled. An immediate first tick runs
// before the ticker takes over.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("lead scheduler started", "interval", s.interval.String(), "window", s.window.String())
	if _, err := s.Tick(ctx); err != nil {
		s.log.Error("lead poll failed", "error", err)
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("lead scheduler stopped")
			return
		case <-t.C:
			if _, err := s.Tick(ctx); err != nil {
				s.log.Error("lead poll failed", "error", err)
			}
		}
	}
}

// Tick fetches candidates, drops already-dialed leads, and dials the oldest
// remaining one. The dedup entry is written before the dial so a slow call
// overlapping the next tick cannot select the same lead again. It reports
// whether a call was opened.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	candidates, err := s.gateway.FetchRecent(ctx, s.window)
	if err != nil {
		return false, err
	}
	if len(candidates) == 0 {
		return false, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	for _, lead := range candidates {
		if lead.ID == "" || lead.Phone == "" {
			continue
		}
		seen, err := s.dedup.Contains(ctx, lead.ID)
		if err != nil {
			// A lead we cannot check is skipped rather than risked twice.
			s.log.Error("dedup lookup failed", "lead_id", lead.ID, "error", err)
			continue
		}
		if seen {
			continue
		}
		if s.guard != nil {
			ok, err := s.guard(ctx, lead.ID)
			if err != nil {
				s.log.Error("dial guard failed", "lead_id", lead.ID, "error", err)
				continue
			}
			if !ok {
				s.log.Debug("dial guard held elsewhere", "lead_id", lead.ID)
				continue
			}
		}
		if err := s.dedup.Add(ctx, lead.ID); err != nil {
			s.log.Error("dedup write failed", "lead_id", lead.ID, "error", err)
			continue
		}

		s.log.Info("dialing lead", "lead_id", lead.ID, "name", lead.FullName())
		if err := s.open(ctx, lead); err != nil {
			s.log.Error("call open failed", "lead_id", lead.ID, "error", err)
		}
		return true, nil
	}
	return false, nil
}
