package upstream

import (
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "brandgen-go/internal/errors"
)

// ErrIdleTimeout is returned by reads once the upstream has been silent for
// longer than the configured idle timeout.
var ErrIdleTimeout = apperrors.New(http.StatusGatewayTimeout, "idle_timeout", "timeout_error", "upstream stream stalled")

type idleTimeoutBody struct {
	rc      io.ReadCloser
	timeout time.Duration
	// afterFunc is time.AfterFunc; swapped in tests.
	afterFunc func(time.Duration, func()) *time.Timer

	mu       sync.Mutex
	gen      uint64 // read generation armed by the current timer
	reading  bool
	timedOut bool

	closeOnce sync.Once
	closeErr  error
}

// NewIdleTimeoutBody wraps rc so a Read blocked longer than timeout closes the
// body and fails with ErrIdleTimeout. Only time spent inside Read counts.
func NewIdleTimeoutBody(rc io.ReadCloser, timeout time.Duration) io.ReadCloser {
	if timeout <= 0 {
		return rc
	}
	return &idleTimeoutBody{rc: rc, timeout: timeout, afterFunc: time.AfterFunc}
}

// expire fires for read generation g. A timer that lost the race against a
// completed read is a no-op.
func (b *idleTimeoutBody) expire(g uint64) {
	b.mu.Lock()
	if !b.reading || b.gen != g {
		b.mu.Unlock()
		return
	}
	b.timedOut = true
	b.mu.Unlock()
	_ = b.Close()
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	if b.timedOut {
		b.mu.Unlock()
		return 0, ErrIdleTimeout
	}
	b.gen++
	g := b.gen
	b.reading = true
	b.mu.Unlock()

	t := b.afterFunc(b.timeout, func() { b.expire(g) })
	n, err := b.rc.Read(p)
	t.Stop()

	b.mu.Lock()
	b.reading = false
	timedOut := b.timedOut
	b.mu.Unlock()

	if timedOut {
		// bytes that made it out before the close are still delivered;
		// the timeout surfaces on the next Read
		if n > 0 {
			return n, nil
		}
		return 0, ErrIdleTimeout
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.rc.Close()
	})
	return b.closeErr
}
