package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisBucketScript implements the token bucket atomically server-side.
// Returns {allowed, remaining, retry_after_ms, reset_ms}.
var redisBucketScript = redis.NewScript(`
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", KEYS[1], "tokens", "last")
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = max
  last = now
end

local elapsed = now - last
if elapsed >= window then
  local cycles = math.floor(elapsed / window)
  tokens = math.min(max, tokens + cycles * max)
  last = last + cycles * window
end

local allowed = 0
local retry = 0
if tokens > 0 then
  tokens = tokens - 1
  allowed = 1
else
  retry = last + window - now
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "last", last)
redis.call("PEXPIRE", KEYS[1], window * 2)
return {allowed, tokens, retry, last + window}
`)

// RedisLimiter implements a token bucket rate limiter backed by Redis so
// limits hold across processes.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: strings.TrimSpace(prefix),
	}
}

// Allow deducts one token from the key's bucket.
func (l *RedisLimiter) Allow(ctx context.Context, key string, policy Policy, now time.Time) (Result, error) {
	if key == "" || !policy.Enabled() || l == nil || l.client == nil {
		return Result{Allowed: true}, nil
	}
	res, errEval := redisBucketScript.Run(ctx, l.client, []string{l.buildKey(key)},
		policy.Max, policy.Window.Milliseconds(), now.UnixMilli()).Result()
	if errEval != nil {
		return Result{}, errEval
	}
	values, ok := res.([]interface{})
	if !ok || len(values) != 4 {
		return Result{}, fmt.Errorf("rate limit redis: unexpected response %T", res)
	}
	allowed, okAllowed := values[0].(int64)
	remaining, okRemaining := values[1].(int64)
	retryMs, okRetry := values[2].(int64)
	resetMs, okReset := values[3].(int64)
	if !okAllowed || !okRemaining || !okRetry || !okReset {
		return Result{}, fmt.Errorf("rate limit redis: unexpected element types")
	}
	result := Result{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		Reset:     time.UnixMilli(resetMs).UTC(),
	}
	if !result.Allowed {
		result.RetryAfter = time.Duration(retryMs) * time.Millisecond
	}
	return result, nil
}

func (l *RedisLimiter) buildKey(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}
