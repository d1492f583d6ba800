package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	applog "dailybudget/internal/log"
)

// RequestIDHeader is echoed back on every response
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Middleware handles request tracing and logging
type Middleware struct {
	logger  *applog.Logger
	metrics Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
}

// NewMiddleware creates a trace middleware whose per-request loggers derive from logger
func NewMiddleware(logger *applog.Logger) *Middleware {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Middleware{logger: logger.WithComponent(applog.ComponentHTTP)}
}

// Handler assigns a request id, stores a request-scoped logger in the
// context and logs request completion with a level based on the status.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		c.Header(RequestIDHeader, requestID)

		logger := m.logger.With(
			applog.FieldRequestID, requestID,
			applog.FieldMethod, c.Request.Method,
			applog.FieldPath, c.Request.URL.Path,
		)
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
		ctx = applog.NewContext(ctx, logger)
		c.Request = c.Request.WithContext(ctx)

		logger.DebugContext(ctx, "HTTP request started",
			applog.FieldClientIP, c.ClientIP(),
			"query", c.Request.URL.RawQuery,
			"user_agent", c.Request.UserAgent())

		c.Next()

		duration := time.Since(start)
		count := atomic.AddInt64(&m.metrics.TotalRequests, 1)
		// running mean
		prev := atomic.LoadInt64(&m.metrics.AverageResponseTime)
		atomic.StoreInt64(&m.metrics.AverageResponseTime, prev+(duration.Microseconds()-prev)/count)

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		args := []any{
			applog.FieldStatusCode, status,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, applog.FieldError, c.Errors.String())
		}
		logger.Log(ctx, level, "HTTP request completed", args...)
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:       atomic.LoadInt64(&m.metrics.TotalRequests),
		AverageResponseTime: atomic.LoadInt64(&m.metrics.AverageResponseTime),
	}
}
