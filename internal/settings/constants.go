package settings

import (
	"encoding/json"
	"fmt"
)

// DB config keys and defaults for account security policy settings.
const (
	// LockoutThresholdKey controls how many consecutive failures lock an account.
	LockoutThresholdKey = "LOCKOUT_THRESHOLD"
	// LockoutDurationMinutesKey controls how long a lock lasts.
	LockoutDurationMinutesKey = "LOCKOUT_DURATION_MINUTES"
	// LockoutStaleWindowMinutesKey controls when stale failures reset the counter.
	LockoutStaleWindowMinutesKey = "LOCKOUT_STALE_WINDOW_MINUTES"
	// MaxConcurrentSessionsKey bounds valid sessions per user.
	MaxConcurrentSessionsKey = "MAX_CONCURRENT_SESSIONS"
	// SessionTimeoutHoursKey controls session validity from creation.
	SessionTimeoutHoursKey = "SESSION_TIMEOUT_HOURS"
	// PasswordMaxAgeDaysKey controls the password expiry window.
	PasswordMaxAgeDaysKey = "PASSWORD_MAX_AGE_DAYS"
	// PasswordHistorySizeKey bounds remembered prior password hashes.
	PasswordHistorySizeKey = "PASSWORD_HISTORY_SIZE"
	// RiskAlertThresholdKey is the risk score above which logins are flagged.
	RiskAlertThresholdKey = "RISK_ALERT_THRESHOLD"
	// RiskWeightNoveltyKey weights unknown devices in the risk score.
	RiskWeightNoveltyKey = "RISK_WEIGHT_NOVELTY"
	// RiskWeightVelocityKey weights attempt velocity in the risk score.
	RiskWeightVelocityKey = "RISK_WEIGHT_VELOCITY"
	// RiskWeightReputationKey weights IP reputation in the risk score.
	RiskWeightReputationKey = "RISK_WEIGHT_REPUTATION"
	// RiskWeightFailureKey weights the historical failure ratio in the risk score.
	RiskWeightFailureKey = "RISK_WEIGHT_FAILURE"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
)

// Rate limit policy keys are derived per action, e.g. RATE_LIMIT_LOGIN_MAX.
const (
	// RateLimitMaxKeyFormat builds the max-tokens key for an action.
	RateLimitMaxKeyFormat = "RATE_LIMIT_%s_MAX"
	// RateLimitWindowSecondsKeyFormat builds the window key for an action.
	RateLimitWindowSecondsKeyFormat = "RATE_LIMIT_%s_WINDOW_SECONDS"
)

// Defaults for the keys above.
const (
	// DefaultLockoutThreshold is the consecutive failure count that locks.
	DefaultLockoutThreshold = 5
	// DefaultLockoutDurationMinutes is the lock duration.
	DefaultLockoutDurationMinutes = 30
	// DefaultLockoutStaleWindowMinutes is the failure staleness window.
	DefaultLockoutStaleWindowMinutes = 30
	// DefaultMaxConcurrentSessions bounds valid sessions per user.
	DefaultMaxConcurrentSessions = 5
	// DefaultSessionTimeoutHours is session validity from creation.
	DefaultSessionTimeoutHours = 24
	// DefaultPasswordMaxAgeDays is the password expiry window.
	DefaultPasswordMaxAgeDays = 90
	// DefaultPasswordHistorySize bounds remembered prior hashes.
	DefaultPasswordHistorySize = 5
	// DefaultRiskAlertThreshold flags logins scoring at or above this value.
	DefaultRiskAlertThreshold = 70
	// DefaultRiskWeightNovelty is the unknown-device contribution.
	DefaultRiskWeightNovelty = 40
	// DefaultRiskWeightVelocity is the max attempt-velocity contribution.
	DefaultRiskWeightVelocity = 25
	// DefaultRiskWeightReputation is the max IP-reputation contribution.
	DefaultRiskWeightReputation = 25
	// DefaultRiskWeightFailure is the max failure-ratio contribution.
	DefaultRiskWeightFailure = 10
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "ag:rl"
)

// RateLimitMaxKey returns the max-tokens setting key for an action name.
func RateLimitMaxKey(action string) string {
	return fmt.Sprintf(RateLimitMaxKeyFormat, action)
}

// RateLimitWindowSecondsKey returns the window setting key for an action name.
func RateLimitWindowSecondsKey(action string) string {
	return fmt.Sprintf(RateLimitWindowSecondsKeyFormat, action)
}

// Defaults returns the seedable default values for all policy settings.
func Defaults() map[string]json.RawMessage {
	intValue := func(v int) json.RawMessage {
		data, _ := json.Marshal(v)
		return data
	}
	return map[string]json.RawMessage{
		LockoutThresholdKey:          intValue(DefaultLockoutThreshold),
		LockoutDurationMinutesKey:    intValue(DefaultLockoutDurationMinutes),
		LockoutStaleWindowMinutesKey: intValue(DefaultLockoutStaleWindowMinutes),
		MaxConcurrentSessionsKey:     intValue(DefaultMaxConcurrentSessions),
		SessionTimeoutHoursKey:       intValue(DefaultSessionTimeoutHours),
		PasswordMaxAgeDaysKey:        intValue(DefaultPasswordMaxAgeDays),
		PasswordHistorySizeKey:       intValue(DefaultPasswordHistorySize),
		RiskAlertThresholdKey:        intValue(DefaultRiskAlertThreshold),
		RiskWeightNoveltyKey:         intValue(DefaultRiskWeightNovelty),
		RiskWeightVelocityKey:        intValue(DefaultRiskWeightVelocity),
		RiskWeightReputationKey:      intValue(DefaultRiskWeightReputation),
		RiskWeightFailureKey:         intValue(DefaultRiskWeightFailure),
	}
}
