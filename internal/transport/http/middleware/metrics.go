package middleware

import (
	"strconv"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/metrics"
	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests that hit no route, keeping label
// cardinality bounded by the router.
const unmatchedRoute = "unknown"

// Metrics observes latency and counts requests by method, route template
// and status. Runs triggered over HTTP are timed here end to end.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		labels := []string{c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status())}
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
	}
}

func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
