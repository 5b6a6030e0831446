package middleware

import (
	"time"

	"github.com/GoPolymarket/polydesk/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records latency per route template. Unmatched
// requests share one label so raw URLs never leak into the metric's
// cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.LatencyBucket.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
