package streaming

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Ticker is the pacing source for simulated output.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// RealTicker is the wall-clock TickerFactory.
func RealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// Fallback simulates a model stream when no API key is configured.
type Fallback struct {
	interval  time.Duration
	newTicker TickerFactory
}

func NewFallback(interval time.Duration, factory TickerFactory) *Fallback {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if factory == nil {
		factory = RealTicker
	}
	return &Fallback{interval: interval, newTicker: factory}
}

// FallbackMessage is the deterministic simulated reply.
func FallbackMessage(model, lastUserMessage string) string {
	return fmt.Sprintf("This is a simulated response. Configure the %s API key to get real responses. Your message: %s", model, lastUserMessage)
}

// Fragments splits msg on single spaces and re-adds a trailing space to each piece.
func Fragments(msg string) []string {
	parts := strings.Split(msg, " ")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = p + " "
	}
	return out
}

// Run emits one fragment per tick, then on the following tick a final delta
// carrying the exact message. Every call starts from the first fragment.
func (f *Fallback) Run(ctx context.Context, msg string, fn DeltaFunc) error {
	frags := Fragments(msg)
	t := f.newTicker(f.interval)
	defer t.Stop()

	for i := 0; i <= len(frags); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C():
		}
		d := FinalDelta(msg)
		if i < len(frags) {
			d = TextDelta(frags[i])
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Producer adapts Run for a session.
func (f *Fallback) Producer(msg string) Producer {
	return func(ctx context.Context, fn DeltaFunc) error { return f.Run(ctx, msg, fn) }
}
