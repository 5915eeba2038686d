package middleware

import (
	"strings"

	"papum-backend/utils"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the Bearer token and stores the user id in the context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		// EventSource cannot set headers, so the events stream passes the token as a query parameter.
		if !found {
			token = c.Query("access_token")
		}
		token = strings.TrimSpace(token)
		if token == "" {
			utils.Unauthorized(c, "Authorization token required")
			return
		}

		claims, err := utils.ParseToken(token, secret)
		if err != nil {
			utils.Unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(utils.ContextUserID, claims.UserID)
		c.Next()
	}
}
