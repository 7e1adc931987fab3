package middleware

import (
	"strconv"
	"time"

	"classifieds/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func Metrics(service string, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(service, c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPLatency.WithLabelValues(service, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
