// Package ratelimit implements a sliding-window limiter over a shared sorted
// set, so every worker process draws from the same per-provider token budget.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// keyTTL bounds how long an idle window key lingers in the store.
const keyTTL = 2 * time.Second

// waitPoll is how often Wait re-checks a saturated window.
const waitPoll = 100 * time.Millisecond

// SortedSetStore is the slice of a sorted-set datastore the limiter needs.
// The production implementation is Redis; tests use an in-memory store.
type SortedSetStore interface {
	// AddAndCount atomically drops members scored before minScore, adds a
	// member at score, counts the set and refreshes the key's TTL. Returns
	// the cardinality including the member just added.
	AddAndCount(ctx context.Context, key string, minScore, score float64, member string, ttl time.Duration) (int64, error)
	// Remove deletes a member, releasing its slot.
	Remove(ctx context.Context, key, member string) error
}

// Limiter admits at most ceiling requests per rolling second across all
// processes sharing the store.
type Limiter struct {
	store   SortedSetStore
	key     string
	ceiling int

	// Fallback pacing when the store is unreachable. The limiter fails open
	// at one request per second per process rather than stalling ingestion.
	mu       sync.Mutex
	lastPass time.Time
}

// New creates a limiter for one provider budget. Key should be stable across
// processes, e.g. "ratelimit:keepa". Ceiling below 1 is treated as 1.
func New(store SortedSetStore, key string, ceiling int) *Limiter {
	if ceiling < 1 {
		ceiling = 1
	}
	return &Limiter{store: store, key: key, ceiling: ceiling}
}

// Acquire tries to claim one slot in the current window without blocking.
// Returns true when admitted. Store errors fail open with local pacing so a
// Redis outage degrades throughput instead of halting jobs.
func (l *Limiter) Acquire(ctx context.Context) (bool, error) {
	now := time.Now()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString())
	windowStart := float64(now.Add(-time.Second).UnixNano())

	count, err := l.store.AddAndCount(ctx, l.key, windowStart, float64(now.UnixNano()), member, keyTTL)
	if err != nil {
		return l.acquireLocal(now), nil
	}
	if count > int64(l.ceiling) {
		// Over budget: release the optimistic claim so it does not occupy
		// the window while this caller backs off.
		if rerr := l.store.Remove(ctx, l.key, member); rerr != nil {
			return l.acquireLocal(now), nil
		}
		return false, nil
	}
	return true, nil
}

// Wait blocks until a slot is admitted or the context is done. Waiters poll
// rather than queue; there is no FIFO ordering between competing callers.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, err := l.Acquire(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitPoll):
		}
	}
}

// acquireLocal paces this process at the configured rate while the shared
// store is down, spacing requests one 1/ceiling interval apart.
func (l *Limiter) acquireLocal(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastPass) < time.Second/time.Duration(l.ceiling) {
		return false
	}
	l.lastPass = now
	return true
}

// RedisStore implements SortedSetStore on a Redis sorted set using a single
// pipelined round trip per acquire.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps a Redis client as a limiter store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) AddAndCount(ctx context.Context, key string, minScore, score float64, member string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("(%f", minScore))
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit pipeline: %w", err)
	}
	return card.Val(), nil
}

func (s *RedisStore) Remove(ctx context.Context, key, member string) error {
	return s.client.ZRem(ctx, key, member).Err()
}
