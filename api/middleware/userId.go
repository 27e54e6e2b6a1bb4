package middleware

import (
	"github.com/gin-gonic/gin"
)

var userIdHeaders = []string{"X-USER-ID", "userId", "User-Id"}

// UserIdMiddleware copies the caller's user id header into the gin context.
func UserIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := ""
		for _, header := range userIdHeaders {
			if value := c.GetHeader(header); value != "" {
				userId = value
				break
			}
		}

		c.Set("UserId", userId)
		c.Next()
	}
}
