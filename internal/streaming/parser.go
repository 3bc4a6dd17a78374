package streaming

import (
	"bytes"
	"context"
	"errors"
	"io"

	"brandgen-go/internal/constants"
	"brandgen-go/internal/monitoring"
	"brandgen-go/internal/upstream"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

var (
	dataPrefix  = []byte("data:")
	doneMarker  = []byte("[DONE]")
	commentMark = byte(':')
)

// Parser turns raw upstream bytes into deltas. It keeps the trailing partial
// line between chunks and stops for good at the [DONE] sentinel.
type Parser struct {
	adapter upstream.Adapter
	fn      DeltaFunc
	pending []byte
	stopped bool
	log     *log.Entry
}

func NewParser(adapter upstream.Adapter, fn DeltaFunc, entry *log.Entry) *Parser {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &Parser{adapter: adapter, fn: fn, log: entry}
}

// Stopped reports whether the sentinel was seen.
func (p *Parser) Stopped() bool { return p.stopped }

// Feed processes every complete line in chunk. The returned error comes from
// the delta callback.
func (p *Parser) Feed(chunk []byte) error {
	if p.stopped {
		return nil
	}
	data := chunk
	if len(p.pending) > 0 {
		data = append(p.pending, chunk...)
		p.pending = nil
	}
	for len(data) > 0 && !p.stopped {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := data[:idx]
		data = data[idx+1:]
		if err := p.handleLine(line); err != nil {
			return err
		}
	}
	if p.stopped || len(data) == 0 {
		return nil
	}
	if len(data) > constants.SSEMaxLineSize {
		p.log.WithField("bytes", len(data)).Warn("dropping oversized upstream line")
		monitoring.RelayMalformedLines.Inc()
		return nil
	}
	p.pending = append(p.pending[:0], data...)
	return nil
}

// Flush processes a final line that was not newline-terminated.
func (p *Parser) Flush() error {
	if p.stopped || len(p.pending) == 0 {
		return nil
	}
	line := p.pending
	p.pending = nil
	return p.handleLine(line)
}

func (p *Parser) handleLine(line []byte) error {
	line = bytes.TrimRight(line, "\r")
	if len(bytes.TrimSpace(line)) == 0 || line[0] == commentMark {
		return nil
	}
	// event:, id:, retry: carry nothing we relay
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return nil
	}
	if bytes.Equal(payload, doneMarker) {
		p.stopped = true
		return p.fn(DoneDelta())
	}
	if !gjson.ValidBytes(payload) {
		monitoring.RelayMalformedLines.Inc()
		p.log.WithFields(log.Fields{
			"adapter": p.adapter.Name(),
			"sample":  truncate(payload, 120),
		}).Warn("skipping malformed upstream line")
		return nil
	}
	text, ok := p.adapter.ExtractText(payload)
	if !ok {
		return nil
	}
	return p.fn(TextDelta(text))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ParseStream drives a Parser from r until EOF, the sentinel, a callback
// error or cancellation. EOF without a sentinel is a normal end.
func ParseStream(ctx context.Context, r io.Reader, adapter upstream.Adapter, fn DeltaFunc, entry *log.Entry) error {
	p := NewParser(adapter, fn, entry)
	buf := make([]byte, constants.SSEReadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := p.Feed(buf[:n]); ferr != nil {
				return ferr
			}
			if p.Stopped() {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return p.Flush()
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}
