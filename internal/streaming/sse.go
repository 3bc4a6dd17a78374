package streaming

import (
	"encoding/json"
	"net/http"
)

// PrepareSSE sets the event-stream headers. Must run before the first write.
func PrepareSSE(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// writeData writes one `data: <json>\n\n` frame.
func writeData(w http.ResponseWriter, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(b)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, b...)
	frame = append(frame, "\n\n"...)
	_, err = w.Write(frame)
	return err
}

// safeFlush flushes if supported. Flush panics on a hijacked or closed
// connection are swallowed.
func safeFlush(f http.Flusher) {
	if f == nil {
		return
	}
	defer func() { _ = recover() }()
	f.Flush()
}
