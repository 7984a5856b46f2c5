package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/service"
)

const sessionKey = "session"

// AuthMiddleware creates middleware that validates session tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")

		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		session, err := authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// AdminOnly rejects sessions that are not on the admin allow-list. It must
// run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessionFrom(c)
		if session == nil || !session.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *core.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*core.Session)
	return session
}
