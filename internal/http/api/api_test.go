package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/accountguard/internal/ratelimit"
)

func TestIPRateLimitMiddlewareBlocksAfterBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.SettingsConfig{}
	}, func() time.Time {
		return now
	}, nil)

	r := gin.New()
	r.POST("/v0/auth/verify-email", ipRateLimitMiddleware(limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	budget := ratelimit.DefaultPolicy(ratelimit.ActionAPI).Max
	for i := 0; i < budget; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v0/auth/verify-email", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v0/auth/verify-email", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after budget exhausted, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}
}
