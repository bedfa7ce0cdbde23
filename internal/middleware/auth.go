package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/eightball/internal/auth"
	"github.com/playmatatu/eightball/internal/config"
)

// TokenFromRequest reads a bearer token, falling back to ?token= for
// WebSocket upgrades where browsers cannot set headers.
func TokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// RequireTableToken rejects requests whose token was not issued for the
// :id path parameter.
func RequireTableToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if err := auth.Authorize(cfg.JWTSecret, token, c.Param("id")); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
