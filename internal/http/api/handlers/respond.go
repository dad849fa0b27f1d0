package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/accountguard/internal/account"
	"github.com/newsforge/accountguard/internal/security"
)

// RetryAfterSeconds renders a wait duration as a Retry-After header value,
// rounded up so a client that waits exactly this long is never early.
func RetryAfterSeconds(wait time.Duration) string {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	if retryAfter, limited := account.IsRateLimited(err); limited {
		c.Header("Retry-After", RetryAfterSeconds(retryAfter))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	switch {
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, account.ErrAccountLocked),
		errors.Is(err, account.ErrTwoFactorInvalid):
		// Lockouts answer exactly like a wrong password so the response
		// never reveals which accounts exist or are locked. The audit
		// trail records the real cause.
		c.JSON(http.StatusUnauthorized, gin.H{"error": account.ErrInvalidCredentials.Error()})
	case errors.Is(err, account.ErrTwoFactorRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "totp_required": true})
	case errors.Is(err, account.ErrAccountDisabled),
		errors.Is(err, account.ErrEmailNotVerified),
		errors.Is(err, account.ErrPasswordExpired):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, account.ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, account.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, security.ErrPasswordTooShort),
		errors.Is(err, security.ErrPasswordTooWeak),
		errors.Is(err, security.ErrPasswordReused),
		errors.Is(err, account.ErrInvalidRole),
		errors.Is(err, account.ErrInvalidResetToken),
		errors.Is(err, account.ErrInvalidVerifyToken),
		errors.Is(err, account.ErrSecurityAnswer):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
