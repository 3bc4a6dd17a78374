// Package streaming relays upstream completion streams to browsers as SSE
// while accumulating the reply for persistence.
package streaming

import "context"

// Delta is one unit of model output: a text fragment, an error or the
// completion signal (optionally carrying the authoritative full text).
type Delta struct {
	Text        string
	Err         error
	Done        bool
	FullText    string
	HasFullText bool
}

func TextDelta(text string) Delta { return Delta{Text: text} }

func ErrorDelta(err error) Delta { return Delta{Err: err} }

func DoneDelta() Delta { return Delta{Done: true} }

// FinalDelta ends the stream and replaces the accumulated text with full.
func FinalDelta(full string) Delta { return Delta{Done: true, FullText: full, HasFullText: true} }

// DeltaFunc consumes deltas in arrival order. A non-nil error stops the producer.
type DeltaFunc func(Delta) error

// Producer feeds deltas into fn until the source ends, fails or ctx is done.
type Producer func(ctx context.Context, fn DeltaFunc) error
