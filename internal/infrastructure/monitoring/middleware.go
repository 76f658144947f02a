package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		metrics.RecordHTTPRequest(method, path, status, duration)
	}
}

// CommandTimer measures one shell command round-trip
type CommandTimer struct {
	start   time.Time
	metrics *Metrics
	target  string
}

// NewCommandTimer creates a new timer
func NewCommandTimer(metrics *Metrics, target string) *CommandTimer {
	return &CommandTimer{
		start:   time.Now(),
		metrics: metrics,
		target:  target,
	}
}

// Stop stops the timer and records the command
func (t *CommandTimer) Stop(outcome string) {
	t.metrics.RecordCommand(t.target, outcome, time.Since(t.start))
}
