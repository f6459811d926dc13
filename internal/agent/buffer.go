package agent

import (
	"strings"
	"time"
)

const (
	flushSize     = 20
	flushInterval = 50 * time.Millisecond

	// Characters treated as natural breakpoints for eager flushing.
	breakpoints = " \t\n.,:;!?"
)

// TokenBuffer coalesces small model-output fragments into larger chunks
// for low-chatter delivery. A chunk is flushed when the buffer reaches
// flushSize bytes, when flushInterval has elapsed since the last flush, or
// when the newest fragment ends at a natural breakpoint. Concatenating all
// flushed chunks (including the final Flush) reproduces the input exactly.
type TokenBuffer struct {
	size     int
	interval time.Duration
	now      func() time.Time

	buf       strings.Builder
	lastFlush time.Time
}

func NewTokenBuffer() *TokenBuffer {
	return newTokenBuffer(flushSize, flushInterval, time.Now)
}

func newTokenBuffer(size int, interval time.Duration, now func() time.Time) *TokenBuffer {
	return &TokenBuffer{
		size:      size,
		interval:  interval,
		now:       now,
		lastFlush: now(),
	}
}

// Feed appends a fragment and reports a flushed chunk when one of the
// trigger conditions holds. Empty fragments are ignored.
func (b *TokenBuffer) Feed(fragment string) (string, bool) {
	if fragment == "" {
		return "", false
	}
	b.buf.WriteString(fragment)

	last := fragment[len(fragment)-1]
	switch {
	case b.buf.Len() >= b.size:
	case b.now().Sub(b.lastFlush) >= b.interval:
	case strings.IndexByte(breakpoints, last) >= 0:
	default:
		return "", false
	}
	return b.Flush()
}

// Flush unconditionally drains the buffer. Call once after the fragment
// stream ends so no trailing text is lost. Never emits an empty chunk.
func (b *TokenBuffer) Flush() (string, bool) {
	if b.buf.Len() == 0 {
		return "", false
	}
	out := b.buf.String()
	b.buf.Reset()
	b.lastFlush = b.now()
	return out, true
}
