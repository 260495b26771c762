package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/glamhair/patglam-agent/pkg/auth"
	"github.com/glamhair/patglam-agent/pkg/errors"
)

// AuthMiddleware validates operator bearer tokens on the operator API.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// Websocket clients cannot set headers from the browser; accept ?token=.
			if tok := c.Query("token"); tok != "" {
				authHeader = "Bearer " + tok
			}
		}
		if authHeader == "" {
			errors.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || strings.ToLower(bearerToken[0]) != "bearer" {
			errors.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := auth.ParseOperatorToken(bearerToken[1], jwtSecret)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set("operator", claims.Operator)
		c.Next()
	}
}
