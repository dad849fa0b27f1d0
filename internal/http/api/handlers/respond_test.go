package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/accountguard/internal/account"
)

func renderError(t *testing.T, err error) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	ginCtx, _ := gin.CreateTestContext(w)
	ginCtx.Request = httptest.NewRequest(http.MethodPost, "/v0/auth/login", nil)
	respondError(ginCtx, err)
	return w.Code, w.Body.String()
}

func TestLockedAccountAnswersLikeWrongPassword(t *testing.T) {
	gin.SetMode(gin.TestMode)

	wrongStatus, wrongBody := renderError(t, account.ErrInvalidCredentials)
	lockedStatus, lockedBody := renderError(t, account.ErrAccountLocked)

	if wrongStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", wrongStatus)
	}
	if lockedStatus != wrongStatus {
		t.Fatalf("locked status %d differs from wrong password status %d", lockedStatus, wrongStatus)
	}
	if lockedBody != wrongBody {
		t.Fatalf("locked body %q differs from wrong password body %q", lockedBody, wrongBody)
	}
}
