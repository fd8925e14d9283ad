package service

import (
	"context"
	"fmt"
	"math"
	"time"
)

// CounterStore is the expiring counter backend used by RateLimiter.
type CounterStore interface {
	Get(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, decay time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RateLimiter counts failed attempts per key inside a decay window.
type RateLimiter struct {
	store CounterStore
}

// NewRateLimiter wraps a counter store.
func NewRateLimiter(store CounterStore) *RateLimiter {
	return &RateLimiter{store: store}
}

// LoginAttemptKey scopes login failures to a username on one device.
func LoginAttemptKey(username, deviceID string) string {
	return fmt.Sprintf("login:%s:%s", username, deviceID)
}

// RefreshAttemptKey scopes refresh failures to the device only.
func RefreshAttemptKey(deviceID string) string {
	return "refresh:" + deviceID
}

// TooManyAttempts reports whether key has reached max hits in the current window.
func (l *RateLimiter) TooManyAttempts(ctx context.Context, key string, max int) (bool, error) {
	n, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return n >= int64(max), nil
}

// Hit records one failed attempt. A new window starts with decay when the key is absent.
func (l *RateLimiter) Hit(ctx context.Context, key string, decay time.Duration) (int64, error) {
	return l.store.Increment(ctx, key, decay)
}

// Clear resets the counter for key.
func (l *RateLimiter) Clear(ctx context.Context, key string) error {
	return l.store.Delete(ctx, key)
}

// AvailableIn returns how long until key stops being limited, never less than one second.
func (l *RateLimiter) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil {
		return 0, err
	}
	if ttl < time.Second {
		return time.Second, nil
	}
	return ttl, nil
}

// RetryAfterSeconds rounds d up to whole seconds.
func RetryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
