package streaming

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrClientGone is returned once a downstream write has failed.
var ErrClientGone = errors.New("downstream client disconnected")

type contentFrame struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

type errorFrame struct {
	Error string `json:"error"`
	Done  bool   `json:"done"`
}

// Emitter is the only writer of a relay response. After the first failed
// write, or after Suppress, every write is a no-op returning ErrClientGone.
type Emitter struct {
	w          http.ResponseWriter
	flusher    http.Flusher
	started    bool
	suppressed bool
	frames     int
}

func NewEmitter(w http.ResponseWriter) *Emitter {
	fl, _ := w.(http.Flusher)
	return &Emitter{w: w, flusher: fl}
}

// Started reports whether response headers have been committed.
func (e *Emitter) Started() bool { return e.started }

// Suppressed reports whether writes are being dropped.
func (e *Emitter) Suppressed() bool { return e.suppressed }

// Suppress stops all further writes, e.g. after the client disconnected.
func (e *Emitter) Suppress() { e.suppressed = true }

// Frames is the number of SSE frames written.
func (e *Emitter) Frames() int { return e.frames }

func (e *Emitter) start() {
	if e.started {
		return
	}
	PrepareSSE(e.w.Header())
	e.w.WriteHeader(http.StatusOK)
	e.started = true
}

func (e *Emitter) send(payload any) error {
	if e.suppressed {
		return ErrClientGone
	}
	e.start()
	if err := writeData(e.w, payload); err != nil {
		e.suppressed = true
		return ErrClientGone
	}
	e.frames++
	safeFlush(e.flusher)
	return nil
}

// Content writes `{"content":text,"done":false}`.
func (e *Emitter) Content(text string) error {
	return e.send(contentFrame{Content: text})
}

// Terminal writes `{"content":"","done":true,"fullContent":full}` plus any
// extra top-level fields.
func (e *Emitter) Terminal(full string, extra map[string]any) error {
	frame := map[string]any{"content": "", "done": true, "fullContent": full}
	for k, v := range extra {
		if _, reserved := frame[k]; !reserved {
			frame[k] = v
		}
	}
	return e.send(frame)
}

// Error writes `{"error":msg,"done":true}`.
func (e *Emitter) Error(msg string) error {
	return e.send(errorFrame{Error: msg, Done: true})
}

// JSONError answers with a plain JSON body. Only valid before Started.
func (e *Emitter) JSONError(status int, body any) error {
	if e.started || e.suppressed {
		return ErrClientGone
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	e.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	e.w.WriteHeader(status)
	e.started = true
	if _, err := e.w.Write(b); err != nil {
		e.suppressed = true
		return ErrClientGone
	}
	return nil
}
