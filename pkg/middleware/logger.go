package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
)

// Logger returns a middleware that logs each request with method, path,
// status, latency and request ID. Health check probes are skipped to
// keep the log readable.
func Logger(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if _, ok := skip[path]; ok {
			return
		}

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
			logger.Errorw("request completed with errors", fields...)
			return
		}

		if c.Writer.Status() >= 500 {
			logger.Errorw("request failed", fields...)
			return
		}
		logger.Infow("request completed", fields...)
	}
}
