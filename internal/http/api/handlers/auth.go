package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/accountguard/internal/account"
)

// AuthHandler serves the public authentication endpoints.
type AuthHandler struct {
	service *account.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(service *account.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest defines the request body for account registration.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and sends the verification mail.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	user, errRegister := h.service.Register(c.Request.Context(), account.RegisterInput{
		Username:  strings.TrimSpace(body.Username),
		Email:     strings.TrimSpace(body.Email),
		Password:  body.Password,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if errRegister != nil {
		respondError(c, errRegister)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// VerifyEmail consumes an email verification token.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var body struct {
		Token string `json:"token"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if errVerify := h.service.VerifyEmail(c.Request.Context(), strings.TrimSpace(body.Token)); errVerify != nil {
		respondError(c, errVerify)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// loginRequest defines the request body for authentication.
type loginRequest struct {
	Username string            `json:"username"`
	Password string            `json:"password"`
	TOTPCode string            `json:"totp_code"`
	Location string            `json:"location"`
	Signals  map[string]string `json:"signals"`
}

// Login authenticates credentials and returns the session access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	result, errLogin := h.service.Login(c.Request.Context(), account.LoginInput{
		Username:  strings.TrimSpace(body.Username),
		Password:  body.Password,
		TOTPCode:  strings.TrimSpace(body.TOTPCode),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Location:  strings.TrimSpace(body.Location),
		Signals:   body.Signals,
	})
	if errLogin != nil {
		respondError(c, errLogin)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": result.AccessToken,
		"expires_at":   result.Session.ExpiresAt,
		"risk_score":   result.RiskScore,
		"new_device":   result.NewDevice,
	})
}

// RequestPasswordReset issues a reset token for the given address.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	errRequest := h.service.RequestPasswordReset(c.Request.Context(), strings.TrimSpace(body.Email), c.ClientIP())
	if errRequest != nil {
		respondError(c, errRequest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CompletePasswordReset consumes a reset token and sets the new password.
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	errComplete := h.service.CompletePasswordReset(c.Request.Context(), strings.TrimSpace(body.Token), body.Password)
	if errComplete != nil {
		respondError(c, errComplete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
