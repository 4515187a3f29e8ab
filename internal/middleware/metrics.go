package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/otslabs/tsgallery/pkg/metrics"
)

// Metrics observes request latency and keeps the in-flight gauge
// current. Requests are labelled by route template so image and session
// ids do not blow up the cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.HTTPInFlight.Inc()
		// Deferred so panicking requests still balance the gauge.
		defer metrics.HTTPInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.APILatency.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
