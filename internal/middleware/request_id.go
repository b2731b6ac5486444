package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"role-state-sync/internal/logger"
)

const (
	// RequestIDHeader is the header name for the request ID. It matches
	// the header the remote role service client sends, so one ID can be
	// traced across both hops.
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the gin context key for the request ID
	RequestIDKey = "request_id"
)

// RequestID assigns each request a unique ID. A client-supplied
// X-Request-ID is honored; otherwise a new UUID is generated. The ID is
// echoed back in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from the gin context.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// Logger returns the default logger annotated with the request ID.
func Logger(c *gin.Context) *slog.Logger {
	return logger.Default().With(slog.String(RequestIDKey, GetRequestID(c)))
}
