package util

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/models"
)

// Context keys set by the auth middleware.
const (
	UserKey   = "user"
	UserIDKey = "user_id"
)

// RequestIDKey holds the request id; RequestIDHeader carries it on the wire.
const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// GetUserFromContext extracts the authenticated user from the Gin context.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserFromContext(c *gin.Context) (*models.User, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		RespondUnauthorized(c)
		return nil, false
	}
	return user, true
}

// CurrentUser returns the user attached by the auth middleware, if any,
// without writing a response.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SetUser attaches an authenticated user to the request.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(UserKey, user)
	c.Set(UserIDKey, user.ID)
}
