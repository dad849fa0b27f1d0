package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Reset      time.Time
}

// Limiter provides token bucket rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, policy Policy, now time.Time) (Result, error)
}
