package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glamhair/patglam-agent/pkg/errors"
)

// SecurityHeaders sets conservative security response headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RequestSizeLimit rejects request bodies larger than maxBytes.
func RequestSizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			errors.ErrorResponse(c, http.StatusRequestEntityTooLarge,
				"Request Entity Too Large",
				"request body exceeds the allowed size")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
