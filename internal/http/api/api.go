// Package api registers the HTTP surface: public auth endpoints, the
// authenticated account endpoints, and the admin endpoints guarded by role.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/newsforge/accountguard/internal/account"
	"github.com/newsforge/accountguard/internal/config"
	"github.com/newsforge/accountguard/internal/events"
	handlers "github.com/newsforge/accountguard/internal/http/api/handlers"
	"github.com/newsforge/accountguard/internal/models"
	"github.com/newsforge/accountguard/internal/ratelimit"
	"github.com/newsforge/accountguard/internal/rbac"
	"github.com/newsforge/accountguard/internal/security"
)

// RegisterRoutes registers routes, middleware, and handlers.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, service *account.Service, eventLog *events.Logger, limiter *ratelimit.Manager, jwtCfg config.JWTConfig) {
	if r == nil || db == nil || service == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	authGroup := r.Group("/v0/auth")
	authHandler := handlers.NewAuthHandler(service)
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/password-reset/request", authHandler.RequestPasswordReset)
	// Token-consuming endpoints are anonymous, so guessing is throttled
	// per source IP before the handler touches the token.
	authGroup.POST("/verify-email", ipRateLimitMiddleware(limiter), authHandler.VerifyEmail)
	authGroup.POST("/password-reset/complete", ipRateLimitMiddleware(limiter), authHandler.CompletePasswordReset)

	accountGroup := r.Group("/v0/account")
	accountGroup.Use(authMiddleware(service, jwtCfg))
	accountGroup.Use(apiRateLimitMiddleware(limiter))

	accountHandler := handlers.NewAccountHandler(service)
	accountGroup.POST("/logout", accountHandler.Logout)
	accountGroup.POST("/token/refresh", accountHandler.RefreshToken)
	accountGroup.GET("/sessions", accountHandler.ListSessions)
	accountGroup.DELETE("/sessions/:token", accountHandler.RevokeSession)
	accountGroup.GET("/devices", accountHandler.ListDevices)
	accountGroup.POST("/devices/:fingerprint/trust", accountHandler.TrustDevice)
	accountGroup.PUT("/password", accountHandler.ChangePassword)
	accountGroup.PUT("/security-questions", accountHandler.SetSecurityQuestions)
	accountGroup.POST("/security-questions/verify", accountHandler.VerifySecurityQuestion)
	accountGroup.POST("/totp/setup", accountHandler.SetupTwoFactor)
	accountGroup.POST("/totp/confirm", accountHandler.ConfirmTwoFactor)
	accountGroup.POST("/totp/disable", accountHandler.DisableTwoFactor)
	accountGroup.GET("/events", accountHandler.RecentEvents)

	adminGroup := r.Group("/v0/admin")
	adminGroup.Use(authMiddleware(service, jwtCfg))
	adminGroup.Use(apiRateLimitMiddleware(limiter))
	adminGroup.Use(requireRoles(models.RoleAdmin))

	userHandler := handlers.NewAdminUserHandler(service)
	adminGroup.GET("/users", userHandler.List)
	adminGroup.GET("/users/:id", userHandler.Get)
	adminGroup.POST("/users/:id/unlock", userHandler.Unlock)
	adminGroup.PUT("/users/:id/roles", userHandler.ChangeRoles)
	adminGroup.POST("/users/:id/disable", userHandler.Disable)
	adminGroup.POST("/users/:id/enable", userHandler.Enable)
	adminGroup.GET("/users/:id/sessions", userHandler.Sessions)
	adminGroup.DELETE("/users/:id/sessions/:token", userHandler.RevokeSession)

	eventHandler := handlers.NewEventHandler(eventLog)
	adminGroup.GET("/events", eventHandler.List)
	adminGroup.POST("/events/cleanup", eventHandler.Cleanup)

	settingHandler := handlers.NewSettingHandler(db)
	adminGroup.POST("/settings", settingHandler.Create)
	adminGroup.GET("/settings", settingHandler.List)
	adminGroup.GET("/settings/:key", settingHandler.Get)
	adminGroup.PUT("/settings/:key", settingHandler.Update)
	adminGroup.DELETE("/settings/:key", settingHandler.Delete)
}

// authMiddleware validates bearer tokens and confirms the bound session is
// still active before loading the caller identity into the context.
func authMiddleware(service *account.Service, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAccessToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if errSession := service.ValidateSession(c.Request.Context(), claims.UserID, claims.SessionToken); errSession != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired or revoked"})
			return
		}

		c.Set(handlers.ContextUserID, claims.UserID)
		c.Set(handlers.ContextSessionToken, claims.SessionToken)
		c.Set(handlers.ContextRoles, models.StringList(claims.Roles))
		c.Next()
	}
}

// requireRoles rejects callers whose token grants none of the given roles.
func requireRoles(required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, _ := c.Get(handlers.ContextRoles)
		roleList, ok := roles.(models.StringList)
		if !ok || !rbac.HasRole(roleList, required...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

// ipRateLimitMiddleware throttles anonymous traffic per source IP under
// the general API budget.
func ipRateLimitMiddleware(limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, errCheck := limiter.Check(c.Request.Context(), ratelimit.ActionAPI, ratelimit.IPKey(ratelimit.ActionAPI, c.ClientIP()))
		if errCheck != nil {
			// Fail open, the limiter backend must not gate traffic.
			c.Next()
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", handlers.RetryAfterSeconds(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// apiRateLimitMiddleware throttles authenticated traffic per user.
func apiRateLimitMiddleware(limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := c.Get(handlers.ContextUserID)
		if !ok {
			c.Next()
			return
		}
		id, _ := userID.(uint64)
		result, errCheck := limiter.Check(c.Request.Context(), ratelimit.ActionAPI, ratelimit.UserKey(ratelimit.ActionAPI, id))
		if errCheck != nil {
			// Fail open, the limiter backend must not gate traffic.
			c.Next()
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", handlers.RetryAfterSeconds(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
