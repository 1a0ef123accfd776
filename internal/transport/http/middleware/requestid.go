package middleware

import (
	"github.com/ErlanBelekov/instance-scheduler/internal/correlation"
	"github.com/gin-gonic/gin"
)

const RequestIDHeader = "X-Request-ID"

// RequestID keeps an incoming X-Request-ID or generates one, and stores it
// in the request context for the log handler.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = correlation.NewID()
		}

		ctx := correlation.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
