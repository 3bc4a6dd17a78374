package common

import (
	"context"
	"time"
)

// DefaultTimeout applies when the caller passes no explicit timeout.
const DefaultTimeout = 10 * time.Second

// WithStorageTimeout adds a timeout to ctx unless it already carries a deadline.
func WithStorageTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
