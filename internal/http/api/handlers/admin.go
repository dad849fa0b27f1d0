package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/accountguard/internal/account"
)

// AdminUserHandler serves the admin user management endpoints.
type AdminUserHandler struct {
	service *account.Service
}

// NewAdminUserHandler constructs an AdminUserHandler.
func NewAdminUserHandler(service *account.Service) *AdminUserHandler {
	return &AdminUserHandler{service: service}
}

func pathUserID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return id, true
}

// List returns accounts page by page.
func (h *AdminUserHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	users, total, errList := h.service.ListUsers(c.Request.Context(), c.Query("q"), offset, limit)
	if errList != nil {
		respondError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, user := range users {
		out = append(out, gin.H{
			"id":             user.ID,
			"username":       user.Username,
			"email":          user.Email,
			"roles":          user.Roles,
			"active":         user.Active,
			"email_verified": user.EmailVerified,
			"locked":         user.LockUntil != nil,
			"created_at":     user.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out, "total": total})
}

// Get returns one account's security profile.
func (h *AdminUserHandler) Get(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	user, errGet := h.service.GetUser(c.Request.Context(), id)
	if errGet != nil {
		respondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":                    user.ID,
		"username":              user.Username,
		"email":                 user.Email,
		"roles":                 user.Roles,
		"active":                user.Active,
		"email_verified":        user.EmailVerified,
		"totp_enabled":          user.TOTPConfirmed,
		"failed_login_attempts": user.FailedLoginAttempts,
		"lock_until":            user.LockUntil,
		"password_expires_at":   user.PasswordExpiresAt,
		"created_at":            user.CreatedAt,
	})
}

// Unlock clears a lockout ahead of its expiry.
func (h *AdminUserHandler) Unlock(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	if errUnlock := h.service.Unlock(c.Request.Context(), callerID(c), id); errUnlock != nil {
		respondError(c, errUnlock)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ChangeRoles replaces a user's role set.
func (h *AdminUserHandler) ChangeRoles(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	var body struct {
		Roles []string `json:"roles"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errChange := h.service.ChangeRoles(c.Request.Context(), callerID(c), id, body.Roles); errChange != nil {
		respondError(c, errChange)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Disable deactivates an account and revokes its sessions.
func (h *AdminUserHandler) Disable(c *gin.Context) {
	h.setActive(c, false)
}

// Enable reactivates an account.
func (h *AdminUserHandler) Enable(c *gin.Context) {
	h.setActive(c, true)
}

func (h *AdminUserHandler) setActive(c *gin.Context, active bool) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	if errSet := h.service.SetActive(c.Request.Context(), callerID(c), id, active); errSet != nil {
		respondError(c, errSet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Sessions lists a user's active sessions.
func (h *AdminUserHandler) Sessions(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	rows, errList := h.service.Sessions(c.Request.Context(), id)
	if errList != nil {
		respondError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"token":         row.Token,
			"device":        row.Device,
			"ip":            row.IP,
			"last_activity": row.LastActivity,
			"expires_at":    row.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// RevokeSession terminates one of a user's sessions.
func (h *AdminUserHandler) RevokeSession(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session token"})
		return
	}
	if errRevoke := h.service.RevokeSession(c.Request.Context(), id, token); errRevoke != nil {
		respondError(c, errRevoke)
		return
	}
	c.Status(http.StatusNoContent)
}
