package handlers

import "github.com/gin-gonic/gin"

// Context keys set by the authentication middleware.
const (
	ContextUserID       = "auth_user_id"
	ContextSessionToken = "auth_session_token"
	ContextRoles        = "auth_roles"
)

// callerID returns the authenticated user's ID from the request context.
func callerID(c *gin.Context) uint64 {
	value, _ := c.Get(ContextUserID)
	id, _ := value.(uint64)
	return id
}

// callerSession returns the authenticated session token from the context.
func callerSession(c *gin.Context) string {
	value, _ := c.Get(ContextSessionToken)
	token, _ := value.(string)
	return token
}
