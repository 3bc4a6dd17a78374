package middleware

import (
	"time"

	"brandgen-go/internal/logging"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per HTTP request after it completes. Relay
// handlers set "session_id" and "model" so streams can be correlated.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		extras := log.Fields{
			"status":     c.Writer.Status(),
			"latency_ms": logging.DurationMS(time.Since(start)),
			"bytes":      c.Writer.Size(),
			"user_agent": c.Request.UserAgent(),
		}
		if v, ok := c.Get("session_id"); ok {
			extras["session_id"] = v
		}
		if v, ok := c.Get("model"); ok {
			extras["model"] = v
		}
		entry := logging.WithReq(c, extras)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}
		entry.Info("http_request")
	}
}
