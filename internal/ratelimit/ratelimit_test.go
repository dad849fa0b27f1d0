package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterExhaustsBucket(t *testing.T) {
	limiter := NewMemoryLimiter()
	policy := Policy{Max: 5, Window: 5 * time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, errAllow := limiter.Allow(ctx, "login:ip:10.0.0.1", policy, now)
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !result.Allowed {
			t.Fatalf("check %d denied before bucket exhausted", i)
		}
		if result.Remaining != policy.Max-i-1 {
			t.Fatalf("check %d: expected %d remaining, got %d", i, policy.Max-i-1, result.Remaining)
		}
	}

	result, errAllow := limiter.Allow(ctx, "login:ip:10.0.0.1", policy, now)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatalf("6th check allowed with empty bucket")
	}
	if result.RetryAfter != 5*time.Minute {
		t.Fatalf("expected retry after 5m, got %v", result.RetryAfter)
	}
}

func TestMemoryLimiterRefillsAfterWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	policy := Policy{Max: 2, Window: time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if result, _ := limiter.Allow(ctx, "k", policy, now); !result.Allowed {
			t.Fatalf("check %d denied", i)
		}
	}
	if result, _ := limiter.Allow(ctx, "k", policy, now.Add(30*time.Second)); result.Allowed {
		t.Fatalf("allowed mid-window with empty bucket")
	}

	// One full window restores the bucket to capacity, never beyond.
	result, errAllow := limiter.Allow(ctx, "k", policy, now.Add(time.Minute))
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if !result.Allowed {
		t.Fatalf("denied after window elapsed")
	}
	if result.Remaining != 1 {
		t.Fatalf("expected refill to capacity, got %d remaining", result.Remaining)
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()
	policy := Policy{Max: 1, Window: time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if result, _ := limiter.Allow(ctx, "login:ip:10.0.0.1", policy, now); !result.Allowed {
		t.Fatalf("first key denied")
	}
	if result, _ := limiter.Allow(ctx, "login:ip:10.0.0.2", policy, now); !result.Allowed {
		t.Fatalf("second key throttled by first key's bucket")
	}
	if result, _ := limiter.Allow(ctx, "login:ip:10.0.0.1", policy, now); result.Allowed {
		t.Fatalf("first key not exhausted")
	}
}

func TestMemoryLimiterCleanup(t *testing.T) {
	limiter := NewMemoryLimiter()
	policy := Policy{Max: 5, Window: time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	if _, errAllow := limiter.Allow(ctx, "stale", policy, now); errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if _, errAllow := limiter.Allow(ctx, "fresh", policy, now.Add(2*time.Minute)); errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}

	removed := limiter.Cleanup(now.Add(3*time.Minute + time.Second))
	if removed != 1 {
		t.Fatalf("expected 1 stale bucket removed, got %d", removed)
	}
	if len(limiter.buckets) != 1 {
		t.Fatalf("expected 1 bucket left, got %d", len(limiter.buckets))
	}
}

func TestManagerFallsBackToMemoryWhenRedisUnavailable(t *testing.T) {
	provider := func() SettingsConfig {
		return SettingsConfig{RedisEnabled: true} // No address configured.
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := NewManager(provider, func() time.Time { return now }, nil)
	policy := Policy{Max: 2, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, errAllow := manager.Allow(ctx, "k", policy)
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !result.Allowed {
			t.Fatalf("check %d denied", i)
		}
	}
	result, errAllow := manager.Allow(ctx, "k", policy)
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if result.Allowed {
		t.Fatalf("memory fallback did not enforce the limit")
	}
	if !manager.isBreakerActive(now) {
		t.Fatalf("breaker not tripped after redis failure")
	}
}

func TestPolicyKeys(t *testing.T) {
	if key := UserKey(ActionLogin, 42); key != "login:u:42" {
		t.Fatalf("unexpected user key %q", key)
	}
	if key := IPKey(ActionRegister, "10.0.0.1"); key != "register:ip:10.0.0.1" {
		t.Fatalf("unexpected ip key %q", key)
	}
	if key := UserKey(ActionLogin, 0); key != "" {
		t.Fatalf("expected empty key for zero user, got %q", key)
	}
	if key := IPKey(ActionLogin, "  "); key != "" {
		t.Fatalf("expected empty key for blank ip, got %q", key)
	}
}

func TestDefaultPolicies(t *testing.T) {
	if policy := DefaultPolicy(ActionLogin); policy.Max != 5 || policy.Window != 5*time.Minute {
		t.Fatalf("unexpected login policy %+v", policy)
	}
	if policy := DefaultPolicy(Action("something-else")); policy != DefaultPolicy(ActionAPI) {
		t.Fatalf("unknown action did not fall back to api policy")
	}
}
