package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory snapshot store for tests and early development.
// Saves are full-session upserts keyed by call_id, matching the durable
// contract.

type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]CallSession
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: map[string]CallSession{}}
}

func (r *MemoryRepo) Save(ctx context.Context, s CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.CallID] = s
	return nil
}

func (r *MemoryRepo) FindByCallID(ctx context.Context, callID string) (CallSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[callID]
	return s, ok, nil
}

func (r *MemoryRepo) FindByProviderCallID(ctx context.Context, providerCallID string) (CallSession, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if providerCallID == "" {
		return CallSession{}, false, nil
	}
	for _, s := range r.sessions {
		if s.ProviderCallID == providerCallID {
			return s, true, nil
		}
	}
	return CallSession{}, false, nil
}

// ListRecent returns snapshots newest-first, at most limit.
func (r *MemoryRepo) ListRecent(ctx context.Context, limit int) ([]CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
