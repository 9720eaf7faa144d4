package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userIDKey is the gin context key holding the authenticated user ID.
const userIDKey = "user_id"

// RequireUser extracts the caller identity set by the fronting auth proxy.
// Requests without it are rejected.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user for the request.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
