package common

import (
	"context"
	"time"

	"brandgen-go/internal/constants"

	"github.com/gin-gonic/gin"
)

// WithUpstreamTimeout bounds a non-streamed upstream call.
func WithUpstreamTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = constants.UpstreamGenerateTimeout
	}
	return context.WithTimeout(parent, timeout)
}

// UserID returns the authenticated caller set by the auth middleware.
func UserID(c *gin.Context) string { return c.GetString("user_id") }

// TagSession exposes session identity to the request logger.
func TagSession(c *gin.Context, sessionID, model string) {
	c.Set("session_id", sessionID)
	c.Set("model", model)
}
