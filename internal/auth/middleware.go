package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/util"
	"go.uber.org/zap"
)

// MsgNoModerationPowers is shown to non-moderators on moderation routes.
const MsgNoModerationPowers = "You do not have moderation powers."

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// Browsers cannot set headers on websocket upgrades.
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(svc ServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c, "no token provided")
			c.Abort()
			return
		}
		user, err := svc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			logger.Log.Debug("Rejected token", zap.Error(err), logger.WithIP(c.ClientIP()))
			util.RespondUnauthorized(c, "invalid token")
			c.Abort()
			return
		}
		util.SetUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through. An invalid token counts as anonymous.
func OptionalAuth(svc ServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := svc.ValidateToken(c.Request.Context(), token); err == nil {
				util.SetUser(c, user)
			}
		}
		c.Next()
	}
}

// RequireModerator must run after RequireAuth.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := util.GetUserFromContext(c)
		if !ok {
			c.Abort()
			return
		}
		if !user.IsModerator {
			util.RespondForbidden(c, MsgNoModerationPowers)
			c.Abort()
			return
		}
		c.Next()
	}
}
