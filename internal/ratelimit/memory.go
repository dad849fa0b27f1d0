package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens int
	// lastRefill marks the start of the current refill cycle.
	lastRefill time.Time
	window     time.Duration
	lastUsed   time.Time
}

// MemoryLimiter implements an in-memory token bucket rate limiter. Buckets
// refill lazily: elapsed full windows are credited on the next check instead
// of by a background timer.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
	}
}

// Allow deducts one token from the key's bucket. The refill, check, and
// deduction happen atomically under the limiter lock.
func (l *MemoryLimiter) Allow(_ context.Context, key string, policy Policy, now time.Time) (Result, error) {
	if key == "" || !policy.Enabled() {
		return Result{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.buckets[key]
	if entry == nil {
		entry = &bucket{tokens: policy.Max, lastRefill: now, window: policy.Window}
		l.buckets[key] = entry
	}
	// A policy change resets the bucket rather than mixing token scales.
	if entry.window != policy.Window {
		entry.tokens = policy.Max
		entry.lastRefill = now
		entry.window = policy.Window
	}
	if elapsed := now.Sub(entry.lastRefill); elapsed >= entry.window {
		cycles := int(elapsed / entry.window)
		entry.tokens += cycles * policy.Max
		if entry.tokens > policy.Max {
			entry.tokens = policy.Max
		}
		entry.lastRefill = entry.lastRefill.Add(time.Duration(cycles) * entry.window)
	}
	entry.lastUsed = now

	reset := entry.lastRefill.Add(entry.window)
	if entry.tokens <= 0 {
		return Result{Allowed: false, Remaining: 0, RetryAfter: reset.Sub(now), Reset: reset}, nil
	}
	entry.tokens--
	return Result{Allowed: true, Remaining: entry.tokens, Reset: reset}, nil
}

// Cleanup drops buckets that have been idle for more than two full windows.
// Dropped buckets restart full, which only ever favors the caller.
func (l *MemoryLimiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, entry := range l.buckets {
		if now.Sub(entry.lastUsed) > 2*entry.window {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}
