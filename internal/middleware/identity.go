package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// UserIDHeader carries the opaque caller identity resolved by the upstream
// gateway. Identity and authorization live outside this service; the value is
// recorded on audit fields, never validated here.
const UserIDHeader = "X-User-ID"

// RequireUserID rejects requests that carry no caller identity and stores the
// identity on the gin context for handlers.
func RequireUserID() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing " + UserIDHeader + " header"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the caller identity stored by RequireUserID.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
