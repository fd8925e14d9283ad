package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore keeps expiring hit counters for the attempt limiter.
type CounterStore interface {
	// Get returns the current count, zero when the key is absent or expired.
	Get(ctx context.Context, key string) (int64, error)
	// Increment adds one hit. The decay window starts on the first hit of a window.
	Increment(ctx context.Context, key string, decay time.Duration) (int64, error)
	// Delete resets the counter.
	Delete(ctx context.Context, key string) error
	// TTL returns the time left in the window, zero when the key is absent.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RedisCounterStore implements CounterStore with a MULTI of INCR + EXPIRE NX so counters are shared across instances.
type RedisCounterStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCounterStore builds a Redis-backed store. prefix namespaces every key.
func NewRedisCounterStore(client *redis.Client, prefix string) *RedisCounterStore {
	return &RedisCounterStore{client: client, prefix: prefix}
}

func (s *RedisCounterStore) key(k string) string {
	return s.prefix + k
}

// Get implements CounterStore.
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, s.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("counter get %s: %w", key, err)
	}
	return n, nil
}

// Increment implements CounterStore.
func (s *RedisCounterStore) Increment(ctx context.Context, key string, decay time.Duration) (int64, error) {
	k := s.key(key)
	var incr *redis.IntCmd
	// EXPIRE NX leaves a running window alone and gives a counter without one a fresh window.
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, decay)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counter incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

// Delete implements CounterStore.
func (s *RedisCounterStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("counter delete %s: %w", key, err)
	}
	return nil
}

// TTL implements CounterStore.
func (s *RedisCounterStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("counter ttl %s: %w", key, err)
	}
	// -2 means missing, -1 means no expiry.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounterStore is a process-local CounterStore for single-instance deployments and tests.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      func() time.Time
}

// NewMemoryCounterStore creates an empty store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]memoryCounter), now: time.Now}
}

// WithClock overrides the time source.
func (s *MemoryCounterStore) WithClock(now func() time.Time) *MemoryCounterStore {
	s.now = now
	return s
}

func (s *MemoryCounterStore) live(key string) (memoryCounter, bool) {
	c, ok := s.counters[key]
	if !ok {
		return memoryCounter{}, false
	}
	if !s.now().Before(c.expiresAt) {
		delete(s.counters, key)
		return memoryCounter{}, false
	}
	return c, true
}

// Get implements CounterStore.
func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.live(key)
	return c.count, nil
}

// Increment implements CounterStore.
func (s *MemoryCounterStore) Increment(_ context.Context, key string, decay time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(key)
	if !ok {
		c = memoryCounter{expiresAt: s.now().Add(decay)}
	}
	c.count++
	s.counters[key] = c
	return c.count, nil
}

// Delete implements CounterStore.
func (s *MemoryCounterStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}

// TTL implements CounterStore.
func (s *MemoryCounterStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live(key)
	if !ok {
		return 0, nil
	}
	return c.expiresAt.Sub(s.now()), nil
}
