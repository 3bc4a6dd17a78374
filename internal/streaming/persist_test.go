package streaming

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHookCommitsOncePerSession(t *testing.T) {
	rc := &recordingCommitter{}
	h := NewHook("chat", rc, NewMemoryGuard(time.Hour), time.Second)
	o := Outcome{SessionID: "s1", Content: "Hello"}

	ok, err := h.Run(context.Background(), o)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = h.Run(context.Background(), o)
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, rc.all(), 1)
}

func TestHookSkipsEmptyContent(t *testing.T) {
	rc := &recordingCommitter{}
	h := NewHook("chat", rc, nil, 0)
	ok, err := h.Run(context.Background(), Outcome{SessionID: "s2"})
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, rc.all())
}

func TestHookIgnoresParentCancellation(t *testing.T) {
	var sawErr error
	h := NewHook("chat", CommitFunc(func(ctx context.Context, o Outcome) error {
		sawErr = ctx.Err()
		_, has := ctx.Deadline()
		require.True(t, has)
		return nil
	}), nil, time.Second)

	parent, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := h.Run(parent, Outcome{SessionID: "s3", Content: "partial"})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, sawErr)
}

func TestHookReportsCommitFailure(t *testing.T) {
	rc := &recordingCommitter{err: errors.New("store down")}
	h := NewHook("chat", rc, nil, time.Second)
	ok, err := h.Run(context.Background(), Outcome{SessionID: "s4", Content: "x"})
	require.EqualError(t, err, "store down")
	require.False(t, ok)
}

func TestHookNothingToCommitIsNotAFailure(t *testing.T) {
	declining := CommitFunc(func(context.Context, Outcome) error {
		return fmt.Errorf("no image url: %w", ErrNothingToCommit)
	})
	h := NewHook("image", declining, NewMemoryGuard(time.Hour), time.Second)
	ok, err := h.Run(context.Background(), Outcome{SessionID: "s9", Content: "text only"})
	require.NoError(t, err)
	require.False(t, ok)
}

type brokenGuard struct{}

func (brokenGuard) Acquire(context.Context, string) (bool, error) { return false, errors.New("redis down") }

func TestHookCommitsWhenGuardUnavailable(t *testing.T) {
	rc := &recordingCommitter{}
	h := NewHook("chat", rc, brokenGuard{}, time.Second)
	ok, err := h.Run(context.Background(), Outcome{SessionID: "s5", Content: "x"})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryGuardExpires(t *testing.T) {
	g := NewMemoryGuard(10 * time.Millisecond)
	ok, _ := g.Acquire(context.Background(), "k")
	require.True(t, ok)
	ok, _ = g.Acquire(context.Background(), "k")
	require.False(t, ok)
	time.Sleep(20 * time.Millisecond)
	ok, _ = g.Acquire(context.Background(), "k")
	require.True(t, ok)
}
