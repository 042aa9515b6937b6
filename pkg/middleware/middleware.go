package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bikeman/pkg/logging"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Logger is the subset of the service logger the HTTP middlewares write to.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// quietPaths are probed by the platform every few seconds and are not access-logged.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

func LoggerMiddleware(log Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.RequestURI(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes_in", c.Request.ContentLength,
			"client_ip", c.ClientIP(),
			requestIDKey, c.GetString(requestIDKey),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, "error", errs)
		}

		if status >= http.StatusInternalServerError {
			log.Errorw("HTTP request failed", fields...)
			return
		}
		log.Infow("HTTP request", fields...)
	}
}

func RecoveryMiddleware(log Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorw("Panic recovered in HTTP handler",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			requestIDKey, c.GetString(requestIDKey),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "internal server error",
			"error_code": "INTERNAL_ERROR",
		})
	})
}

// RequestIDMiddleware propagates or assigns a request id and exposes it to context-aware
// loggers as the trace id when no span is active.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		ctx := c.Request.Context()
		if logging.GetTraceID(ctx) == "" {
			c.Request = c.Request.WithContext(logging.WithTraceID(ctx, id))
		}
		c.Next()
	}
}
