package ratelimit

import (
	"fmt"
	"strings"
	"time"

	internalsettings "github.com/newsforge/accountguard/internal/settings"
)

// Action identifies a rate-limited operation class.
type Action string

const (
	ActionLogin         Action = "login"
	ActionRegister      Action = "register"
	ActionPasswordReset Action = "password_reset"
	ActionTokenRefresh  Action = "token_refresh"
	ActionAPI           Action = "api"
)

// Policy is a token bucket definition: Max tokens refilled every Window.
type Policy struct {
	Max    int
	Window time.Duration
}

// Enabled reports whether the policy enforces anything at all.
func (p Policy) Enabled() bool {
	return p.Max > 0 && p.Window > 0
}

var defaultPolicies = map[Action]Policy{
	ActionLogin:         {Max: 5, Window: 5 * time.Minute},
	ActionRegister:      {Max: 3, Window: time.Hour},
	ActionPasswordReset: {Max: 3, Window: time.Hour},
	ActionTokenRefresh:  {Max: 10, Window: time.Minute},
	ActionAPI:           {Max: 100, Window: time.Minute},
}

// DefaultPolicy returns the built-in policy for an action. Unknown actions
// fall back to the general API policy.
func DefaultPolicy(action Action) Policy {
	if policy, ok := defaultPolicies[action]; ok {
		return policy
	}
	return defaultPolicies[ActionAPI]
}

// PolicyFor resolves the effective policy for an action, preferring values
// from the live settings snapshot over the built-in defaults.
func PolicyFor(action Action) Policy {
	policy := DefaultPolicy(action)
	name := strings.ToUpper(string(action))

	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitMaxKey(name)); ok {
		if max, okParse := internalsettings.ParseNonNegativeInt(raw); okParse {
			policy.Max = max
		}
	}
	if raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitWindowSecondsKey(name)); ok {
		if seconds, okParse := internalsettings.ParseNonNegativeInt(raw); okParse && seconds > 0 {
			policy.Window = time.Duration(seconds) * time.Second
		}
	}
	return policy
}

// Key builds the limiter key for an action and subject. The subject is the
// caller's user ID when authenticated and the remote IP otherwise. An empty
// subject yields an empty key, which limiters treat as unlimited.
func Key(action Action, subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", action, subject)
}

// UserKey builds the limiter key for an authenticated caller.
func UserKey(action Action, userID uint64) string {
	if userID == 0 {
		return ""
	}
	return Key(action, fmt.Sprintf("u:%d", userID))
}

// IPKey builds the limiter key for an anonymous caller.
func IPKey(action Action, ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	return Key(action, "ip:"+ip)
}
