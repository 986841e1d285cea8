package leads

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DedupStore records lead ids that have already been dialed. Entries are
// written when a call is initiated, not when it finishes, so overlapping
// scheduler ticks cannot dial the same lead twice.
type DedupStore interface {
	Contains(ctx context.Context, leadID string) (bool, error)
	Add(ctx context.Context, leadID string) error
}

// RedisDedup keeps the dedup set in a Redis set so it survives restarts and
// is shared across instances.
type RedisDedup struct {
	rdb *redis.Client
	key string
}

const defaultDedupKey = "leads:called"

func NewRedisDedup(rdb *redis.Client, key string) *RedisDedup {
	if key == "" {
		key = defaultDedupKey
	}
	return &RedisDedup{rdb: rdb, key: key}
}

func (d *RedisDedup) Contains(ctx context.Context, leadID string) (bool, error) {
	return d.rdb.SIsMember(ctx, d.key, leadID).Result()
}

func (d *RedisDedup) Add(ctx context.Context, leadID string) error {
	return d.rdb.SAdd(ctx, d.key, leadID).Err()
}

// MemoryDedup is a process-local DedupStore for tests.
type MemoryDedup struct {
	mu  sync.Mutex
	ids map[string]bool
}

func NewMemoryDedup() *MemoryDedup {
	return &MemoryDedup{ids: make(map[string]bool)}
}

func (d *MemoryDedup) Contains(_ context.Context, leadID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ids[leadID], nil
}

func (d *MemoryDedup) Add(_ context.Context, leadID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[leadID] = true
	return nil
}
