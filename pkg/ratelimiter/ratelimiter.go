// Package ratelimiter throttles brute-forceable endpoints (login,
// forgot-password) with a fixed-window counter. The store is pluggable:
// Redis in production so limits hold across instances, memory in tests.
package ratelimiter

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidConfig = errors.New("ratelimiter: limit and window must be positive")

// Store counts hits per key within a window.
type Store interface {
	// Incr increments the counter for key, starting a new window with the
	// given TTL when the key does not exist. Returns the count after the
	// increment and the time remaining in the current window.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// Result reports the outcome of an Allow call.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	RetryIn   time.Duration
}

// Limiter allows up to Limit hits per Window per key.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// New creates a Limiter over the given store.
func New(store Store, limit int64, window time.Duration) (*Limiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, ErrInvalidConfig
	}
	return &Limiter{store: store, limit: limit, window: window}, nil
}

// Allow consumes one hit for key. Store failures are returned to the caller,
// who decides whether to fail open or closed.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	count, remaining, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		RetryIn:   remaining,
	}
	return res, nil
}
