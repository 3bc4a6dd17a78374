package streaming

import "strings"

// Accumulator holds the assistant reply built from deltas in arrival order.
type Accumulator struct {
	buf      strings.Builder
	replaced bool
}

// Apply appends text deltas; a final delta carrying full text replaces the buffer.
func (a *Accumulator) Apply(d Delta) {
	switch {
	case d.Done && d.HasFullText:
		a.buf.Reset()
		a.buf.WriteString(d.FullText)
		a.replaced = true
	case !d.Done && d.Err == nil:
		a.buf.WriteString(d.Text)
	}
}

func (a *Accumulator) String() string { return a.buf.String() }

// Len is the accumulated length in bytes.
func (a *Accumulator) Len() int { return a.buf.Len() }

// Replaced reports whether a final full-text delta overwrote the buffer.
func (a *Accumulator) Replaced() bool { return a.replaced }
