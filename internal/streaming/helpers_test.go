package streaming

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingCommitter struct {
	mu       sync.Mutex
	outcomes []Outcome
	err      error
}

func (r *recordingCommitter) Commit(_ context.Context, o Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.outcomes = append(r.outcomes, o)
	return nil
}

func (r *recordingCommitter) all() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Outcome(nil), r.outcomes...)
}

// manualTicker fires only when the test calls tick.
type manualTicker struct {
	ch      chan time.Time
	stopped bool
}

func newManualTicker() *manualTicker { return &manualTicker{ch: make(chan time.Time)} }

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped = true }
func (m *manualTicker) tick()               { m.ch <- time.Now() }

// instantTicker fires immediately, forever.
func instantTicker(time.Duration) Ticker {
	ch := make(chan time.Time)
	close(ch)
	return closedTicker{ch: ch}
}

type closedTicker struct{ ch chan time.Time }

func (c closedTicker) C() <-chan time.Time { return c.ch }
func (c closedTicker) Stop()               {}

type frame struct {
	Content     *string `json:"content"`
	Done        bool    `json:"done"`
	FullContent *string `json:"fullContent"`
	Error       *string `json:"error"`
	ImageURL    string  `json:"imageUrl"`
}

func parseFrames(t *testing.T, body string) []frame {
	t.Helper()
	var frames []frame
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		require.True(t, strings.HasPrefix(block, "data: "), "bad frame %q", block)
		var f frame
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(block, "data: ")), &f))
		frames = append(frames, f)
	}
	return frames
}
