package account

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers unknown users and wrong passwords alike
	// so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the lockout window has not elapsed.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDisabled indicates a deactivated account.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrEmailNotVerified indicates login before email verification.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrPasswordExpired indicates the password aged out and must change.
	ErrPasswordExpired = errors.New("password expired")
	// ErrTwoFactorRequired indicates a valid password but a missing TOTP code.
	ErrTwoFactorRequired = errors.New("two-factor code required")
	// ErrTwoFactorInvalid indicates a wrong TOTP code.
	ErrTwoFactorInvalid = errors.New("two-factor code invalid")
	// ErrUserExists indicates a username or email collision on registration.
	ErrUserExists = errors.New("username or email already registered")
	// ErrUserNotFound indicates a lookup for a missing account.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound indicates a missing or expired session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidResetToken indicates a wrong or expired reset token.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrInvalidVerifyToken indicates a wrong email verification token.
	ErrInvalidVerifyToken = errors.New("invalid verification token")
	// ErrSecurityAnswer indicates a failed security question check.
	ErrSecurityAnswer = errors.New("security answer does not match")
	// ErrInvalidRole indicates a role outside the fixed taxonomy.
	ErrInvalidRole = errors.New("invalid role")
)

// RateLimitedError is returned when a token bucket is exhausted. RetryAfter
// tells the caller when the next token becomes available.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err is a rate limit rejection and returns
// the wait duration when it is.
func IsRateLimited(err error) (time.Duration, bool) {
	var limited *RateLimitedError
	if errors.As(err, &limited) {
		return limited.RetryAfter, true
	}
	return 0, false
}
