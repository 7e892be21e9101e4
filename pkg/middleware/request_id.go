package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID header and context key names.
const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID returns a middleware that adds a unique request ID to each request.
// The request ID is added to:
//   - Response header (X-Request-ID)
//   - Gin context (can be retrieved with GetRequestID)
//
// An incoming X-Request-ID header is preserved so IDs survive proxies.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(ContextRequestID, requestID)
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}

// GetRequestID returns the request ID from the gin context.
// Returns empty string if not found.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get(ContextRequestID); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
