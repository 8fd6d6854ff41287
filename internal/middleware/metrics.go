package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/service"
)

// Metrics times every request. Routes are labelled by their template so
// /subjects/:id stays one series; unmatched paths share a single label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		metricsSvc.RequestStarted()
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
