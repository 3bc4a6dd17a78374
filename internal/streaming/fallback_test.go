package streaming

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFragmentsRoundTrip(t *testing.T) {
	msg := FallbackMessage("deepseek", "hello  there")
	frags := Fragments(msg)
	for _, f := range frags {
		require.True(t, strings.HasSuffix(f, " "))
	}
	require.Equal(t, msg+" ", strings.Join(frags, ""))
}

func TestFallbackOneFragmentPerTick(t *testing.T) {
	mt := newManualTicker()
	fb := NewFallback(time.Hour, func(time.Duration) Ticker { return mt })
	msg := "a b c"

	got := make(chan Delta, 8)
	done := make(chan error, 1)
	go func() {
		done <- fb.Run(context.Background(), msg, func(d Delta) error {
			got <- d
			return nil
		})
	}()

	for _, want := range []string{"a ", "b ", "c "} {
		mt.tick()
		require.Equal(t, want, (<-got).Text)
	}
	select {
	case d := <-got:
		t.Fatalf("unexpected delta before tick: %+v", d)
	default:
	}
	mt.tick()
	final := <-got
	require.True(t, final.Done)
	require.Equal(t, msg, final.FullText)
	require.NoError(t, <-done)
	require.True(t, mt.stopped)
}

func TestFallbackRestartable(t *testing.T) {
	fb := NewFallback(time.Millisecond, instantTicker)
	for i := 0; i < 2; i++ {
		var acc Accumulator
		var first string
		require.NoError(t, fb.Run(context.Background(), "x y", func(d Delta) error {
			if first == "" {
				first = d.Text
			}
			acc.Apply(d)
			return nil
		}))
		require.Equal(t, "x ", first)
		require.Equal(t, "x y", acc.String())
	}
}

func TestFallbackStopsOnCancel(t *testing.T) {
	mt := newManualTicker()
	fb := NewFallback(time.Hour, func(time.Duration) Ticker { return mt })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, fb.Run(ctx, "a b", func(Delta) error { return nil }), context.Canceled)
}
