package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetricsRecorder receives one observation per request.
// *telemetry.Metrics implements it.
type HTTPMetricsRecorder interface {
	RequestStarted() func()
	RecordHTTPRequest(method, route string, status int, elapsed time.Duration)
}

// HTTPMetrics records request count, latency and in-flight requests. Requests
// are labelled by route pattern, not raw path, to keep cardinality bounded.
func HTTPMetrics(recorder HTTPMetricsRecorder) gin.HandlerFunc {
	if recorder == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		done := recorder.RequestStarted()
		defer done()

		c.Next()

		recorder.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
