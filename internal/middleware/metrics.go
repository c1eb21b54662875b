package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/partyd/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route, keeping scanners from
// minting one series per probed URL.
const unmatchedRoute = "unmatched"

// Metrics records request latency per route. Websocket upgrades are skipped since their
// duration is the lifetime of the stream.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.IsWebsocket() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
