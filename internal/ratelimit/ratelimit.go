// Package ratelimit throttles costly per-user endpoints with token buckets
// held either in process memory or in redis.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetAt is when the bucket will be full again.
	ResetAt time.Time
	// RetryAfter is how long to wait for the next token when not allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// bucket tracks the token state for a single key.
type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// pruneEvery controls how often idle buckets are swept.
const pruneEvery = 1024

// MemoryLimiter is a token-bucket Limiter for a single process.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration
	calls   int
	now     func() time.Time // injectable clock for testing
}

// NewMemory creates a MemoryLimiter that allows rate requests per window.
func NewMemory(rate int, window time.Duration) *MemoryLimiter {
	if rate < 1 {
		rate = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		now:     time.Now,
	}
}

// perSecond is the refill speed in tokens per second.
func (l *MemoryLimiter) perSecond() float64 {
	return float64(l.rate) / l.window.Seconds()
}

// refill adds tokens accumulated since the last refill.
// Must be called with l.mu held.
func (l *MemoryLimiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * l.perSecond()
	if b.tokens > float64(l.rate) {
		b.tokens = float64(l.rate)
	}
	b.lastRefill = now
}

// prune drops buckets that have refilled completely.
// Must be called with l.mu held.
func (l *MemoryLimiter) prune(now time.Time) {
	for key, b := range l.buckets {
		l.refill(b, now)
		if b.tokens >= float64(l.rate) {
			delete(l.buckets, key)
		}
	}
}

// Allow consumes one token for key if one is available.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%pruneEvery == 0 {
		l.prune(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.rate), lastRefill: now}
		l.buckets[key] = b
	}
	l.refill(b, now)

	d := Decision{Limit: l.rate}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
	} else {
		d.RetryAfter = time.Duration((1 - b.tokens) / l.perSecond() * float64(time.Second))
	}
	d.Remaining = int(b.tokens)

	deficit := float64(l.rate) - b.tokens
	d.ResetAt = now
	if deficit > 0 {
		d.ResetAt = now.Add(time.Duration(deficit / l.perSecond() * float64(time.Second)))
	}
	return d, nil
}
