package streaming

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"brandgen-go/internal/upstream"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, chunks ...string) ([]Delta, *Parser) {
	t.Helper()
	var got []Delta
	p := NewParser(upstream.OpenAIChatAdapter{}, func(d Delta) error {
		got = append(got, d)
		return nil
	}, nil)
	for _, c := range chunks {
		require.NoError(t, p.Feed([]byte(c)))
	}
	require.NoError(t, p.Flush())
	return got, p
}

func texts(ds []Delta) string {
	var b strings.Builder
	for _, d := range ds {
		b.WriteString(d.Text)
	}
	return b.String()
}

func TestParserCarriesPartialLines(t *testing.T) {
	got, p := collect(t,
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\ndata: {\"choices\":[{\"del",
		`ta":{"content":"lo"}}]}`+"\n\n",
		"data: [DO",
		"NE]\n\n",
	)
	require.Len(t, got, 3)
	require.Equal(t, "Hel", got[0].Text)
	require.Equal(t, "lo", got[1].Text)
	require.True(t, got[2].Done)
	require.True(t, p.Stopped())
}

func TestParserIgnoresCommentsEventsAndBlankLines(t *testing.T) {
	got, _ := collect(t,
		": keep-alive\n",
		"event: message\nid: 7\nretry: 100\n",
		"\r\n",
		"data:\n",
		`data:{"choices":[{"delta":{"content":"x"}}]}`+"\r\n",
		`data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n",
	)
	require.Len(t, got, 1)
	require.Equal(t, "x", got[0].Text)
}

func TestParserSkipsMalformedLines(t *testing.T) {
	got, _ := collect(t,
		`data: {"choices":[{"delta":{"content":"a"}}]}`+"\n",
		"data: {not json\n",
		`data: {"choices":[{"delta":{"content":"b"}}]}`+"\n",
	)
	require.Equal(t, "ab", texts(got))
}

func TestParserStopsAtDone(t *testing.T) {
	got, _ := collect(t,
		"data: [DONE]\n",
		`data: {"choices":[{"delta":{"content":"late"}}]}`+"\n",
	)
	require.Len(t, got, 1)
	require.True(t, got[0].Done)
}

func TestParserFlushesUnterminatedLine(t *testing.T) {
	got, _ := collect(t, `data: {"choices":[{"delta":{"content":"tail"}}]}`)
	require.Equal(t, "tail", texts(got))
}

func TestParserPropagatesCallbackError(t *testing.T) {
	stop := errors.New("stop")
	p := NewParser(upstream.OpenAIChatAdapter{}, func(Delta) error { return stop }, nil)
	err := p.Feed([]byte(`data: {"choices":[{"delta":{"content":"a"}}]}` + "\n"))
	require.ErrorIs(t, err, stop)
}

// Every split of the same stream must yield the same concatenation.
func TestParseStreamConcatenationAnyChunking(t *testing.T) {
	parts := []string{"The ", "quick ", "brown ", "fox ", "日本語", " jumps"}
	var src strings.Builder
	for _, p := range parts {
		src.WriteString(`data: {"choices":[{"delta":{"content":"` + p + `"}}]}` + "\n\n")
	}
	src.WriteString("data: [DONE]\n\n")
	stream := src.String()
	want := strings.Join(parts, "")

	for size := 1; size <= len(stream); size += 7 {
		var acc Accumulator
		r := &chunkReader{data: []byte(stream), size: size}
		err := ParseStream(context.Background(), r, upstream.OpenAIChatAdapter{}, func(d Delta) error {
			acc.Apply(d)
			return nil
		}, nil)
		require.NoError(t, err)
		require.Equal(t, want, acc.String(), "chunk size %d", size)
	}
}

func TestParseStreamHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ParseStream(ctx, strings.NewReader("data: [DONE]\n"), upstream.OpenAIChatAdapter{}, func(Delta) error { return nil }, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseStreamReturnsReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader(`data: {"choices":[{"delta":{"content":"a"}}]}`+"\n"), &errReader{err: boom})
	var acc Accumulator
	err := ParseStream(context.Background(), r, upstream.OpenAIChatAdapter{}, func(d Delta) error {
		acc.Apply(d)
		return nil
	}, nil)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "a", acc.String())
}

type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }
