package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mkraft/subsync/internal/logger"
)

// RequestLogger returns a Gin middleware that injects a request-scoped
// logger and records request completion.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := uuid.New().String()

		ctx := logger.WithFields(c.Request.Context(), logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)

		c.Next()

		latency := time.Since(start)
		fullPath := path
		if query := c.Request.URL.RawQuery; query != "" {
			fullPath = path + "?" + query
		}

		logger.FromContext(ctx).WithFields(logger.Fields{
			"status":      c.Writer.Status(),
			"duration_ms": latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
		}).Infof("Request completed: method=%s, path=%s", c.Request.Method, fullPath)
	}
}
