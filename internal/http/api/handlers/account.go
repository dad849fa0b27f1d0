package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/accountguard/internal/account"
)

// AccountHandler serves the authenticated self-service endpoints.
type AccountHandler struct {
	service *account.Service
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(service *account.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

// Logout revokes the caller's current session.
func (h *AccountHandler) Logout(c *gin.Context) {
	if errLogout := h.service.Logout(c.Request.Context(), callerID(c), callerSession(c)); errLogout != nil {
		respondError(c, errLogout)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RefreshToken issues a fresh access token for the current session.
func (h *AccountHandler) RefreshToken(c *gin.Context) {
	access, errRefresh := h.service.RefreshToken(c.Request.Context(), callerID(c), callerSession(c), c.ClientIP())
	if errRefresh != nil {
		respondError(c, errRefresh)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

// ListSessions returns the caller's active sessions.
func (h *AccountHandler) ListSessions(c *gin.Context) {
	rows, errList := h.service.Sessions(c.Request.Context(), callerID(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	current := callerSession(c)
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"token":         row.Token,
			"device":        row.Device,
			"ip":            row.IP,
			"last_activity": row.LastActivity,
			"expires_at":    row.ExpiresAt,
			"current":       row.Token == current,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

// RevokeSession terminates one of the caller's sessions.
func (h *AccountHandler) RevokeSession(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session token"})
		return
	}
	if errRevoke := h.service.RevokeSession(c.Request.Context(), callerID(c), token); errRevoke != nil {
		respondError(c, errRevoke)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDevices returns the caller's recorded devices.
func (h *AccountHandler) ListDevices(c *gin.Context) {
	rows, errList := h.service.Devices(c.Request.Context(), callerID(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"fingerprint": row.Fingerprint,
			"device":      row.Device,
			"trusted":     row.Trusted,
			"risk_score":  row.RiskScore,
			"first_seen":  row.FirstSeen,
			"last_seen":   row.LastSeen,
		})
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

// TrustDevice marks one of the caller's devices as trusted.
func (h *AccountHandler) TrustDevice(c *gin.Context) {
	fp := strings.TrimSpace(c.Param("fingerprint"))
	if fp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing fingerprint"})
		return
	}
	if errTrust := h.service.TrustDevice(c.Request.Context(), callerID(c), fp); errTrust != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// changePasswordRequest defines the body for a password change.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the caller's password, keeping this session alive.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	errChange := h.service.ChangePassword(c.Request.Context(), callerID(c), body.CurrentPassword, body.NewPassword, callerSession(c))
	if errChange != nil {
		respondError(c, errChange)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SetSecurityQuestions replaces the caller's security questions.
func (h *AccountHandler) SetSecurityQuestions(c *gin.Context) {
	var body struct {
		Questions map[string]string `json:"questions"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errSet := h.service.SetSecurityQuestions(c.Request.Context(), callerID(c), body.Questions); errSet != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errSet.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// VerifySecurityQuestion checks one answer for the caller.
func (h *AccountHandler) VerifySecurityQuestion(c *gin.Context) {
	var body struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errVerify := h.service.VerifySecurityQuestion(c.Request.Context(), callerID(c), body.Question, body.Answer); errVerify != nil {
		respondError(c, errVerify)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SetupTwoFactor starts TOTP enrollment for the caller.
func (h *AccountHandler) SetupTwoFactor(c *gin.Context) {
	secret, url, errSetup := h.service.SetupTwoFactor(c.Request.Context(), callerID(c))
	if errSetup != nil {
		respondError(c, errSetup)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret, "url": url})
}

// ConfirmTwoFactor activates TOTP with a current code.
func (h *AccountHandler) ConfirmTwoFactor(c *gin.Context) {
	var body struct {
		Code string `json:"code"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errConfirm := h.service.ConfirmTwoFactor(c.Request.Context(), callerID(c), strings.TrimSpace(body.Code)); errConfirm != nil {
		respondError(c, errConfirm)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTwoFactor turns TOTP off with a current code.
func (h *AccountHandler) DisableTwoFactor(c *gin.Context) {
	var body struct {
		Code string `json:"code"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errDisable := h.service.DisableTwoFactor(c.Request.Context(), callerID(c), strings.TrimSpace(body.Code)); errDisable != nil {
		respondError(c, errDisable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RecentEvents returns the caller's own recent security events.
func (h *AccountHandler) RecentEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	userID := callerID(c)
	rows, errList := h.service.RecentEvents(c.Request.Context(), userID, limit)
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}
