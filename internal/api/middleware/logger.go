package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ls5986/habexa2.0-sub002/internal/logger"
)

// RequestLogger attaches a request-scoped logger to the context and emits one
// line per request with latency and status.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		reqLog := log.WithField(logger.FieldRequestID, requestID)
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		reqLog.WithFields(logger.Fields{
			"method":               c.Request.Method,
			"path":                 c.Request.URL.Path,
			logger.FieldStatus:     c.Writer.Status(),
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Info("request handled")
	}
}
