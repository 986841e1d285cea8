package leads

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Gateway supplies candidate leads from the CRM and accepts call status
// write-backs. Leads are read-only to the rest of the system.
type Gateway interface {
	// FetchRecent returns leads created within the given window, newest data
	// the gateway has. Ordering is not guaranteed; callers sort.
	FetchRecent(ctx context.Context, window time.Duration) ([]Lead, error)

	// UpdateStatus records the call status and outcome on the lead's CRM
	// record. Failures are non-fatal to the call itself.
	UpdateStatus(ctx context.Context, leadID, status, outcome string) error
}

// MemoryGateway is an in-memory Gateway for tests and local development.
type MemoryGateway struct {
	mu     sync.Mutex
	leads  []Lead
	status map[string]string
	clock  func() time.Time
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{status: make(map[string]string), clock: time.Now}
}

func (g *MemoryGateway) Put(l Lead) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leads = append(g.leads, l)
}

func (g *MemoryGateway) FetchRecent(_ context.Context, window time.Duration) ([]Lead, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cutoff := g.clock().Add(-window)
	var out []Lead
	for _, l := range g.leads {
		if l.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (g *MemoryGateway) UpdateStatus(_ context.Context, leadID, status, outcome string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[leadID] = status + "/" + outcome
	return nil
}

// Status reports the last recorded status write-back for a lead.
func (g *MemoryGateway) Status(leadID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status[leadID]
}
