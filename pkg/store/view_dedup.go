package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewDeduper records that a visitor has seen a job. Claim reports true only
// for the first claim of a (job, visitor) pair within the TTL window, so the
// caller can increment the view counter exactly once per window.
type ViewDeduper interface {
	Claim(ctx context.Context, jobID, visitorKey string) (bool, error)
}

// MemoryViewDeduper is the single-instance deduper used in tests and local runs.
type MemoryViewDeduper struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	expires map[string]time.Time
	inserts int
}

// viewSweepEvery is how many inserts pass between sweeps of expired records.
const viewSweepEvery = 256

// NewMemoryViewDeduper builds an in-memory deduper.
func NewMemoryViewDeduper(ttl time.Duration) *MemoryViewDeduper {
	return &MemoryViewDeduper{
		ttl:     ttl,
		now:     time.Now,
		expires: make(map[string]time.Time),
	}
}

// Claim inserts the dedup record if absent or expired.
func (d *MemoryViewDeduper) Claim(_ context.Context, jobID, visitorKey string) (bool, error) {
	key := viewKey(jobID, visitorKey)
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if exp, ok := d.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.expires[key] = now.Add(d.ttl)
	d.inserts++
	if d.inserts >= viewSweepEvery {
		d.inserts = 0
		for k, exp := range d.expires {
			if !now.Before(exp) {
				delete(d.expires, k)
			}
		}
	}
	return true, nil
}

// RedisViewDeduper stores dedup records as self-expiring Redis keys.
type RedisViewDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisViewDeduper builds a Redis-backed deduper.
func NewRedisViewDeduper(addr, password string, ttl time.Duration) *RedisViewDeduper {
	return &RedisViewDeduper{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

// Claim performs an atomic SET NX EX, so concurrent first views race on one key.
func (d *RedisViewDeduper) Claim(ctx context.Context, jobID, visitorKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return d.client.SetNX(ctx, viewKey(jobID, visitorKey), "1", d.ttl).Result()
}

// Close releases the underlying client.
func (d *RedisViewDeduper) Close() error {
	return d.client.Close()
}

func viewKey(jobID, visitorKey string) string {
	return "jobboard:jobview:" + jobID + ":" + strings.ToLower(strings.TrimSpace(visitorKey))
}
