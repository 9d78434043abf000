// Package capture redirects a script's standard output into a drainable
// in-memory buffer.
package capture

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrOutputLimit is returned by Buffer.Write once the output ceiling is
// exceeded. It halts the script and cannot be caught by it.
var ErrOutputLimit = errors.New("output limit exceeded")

// Redirectable is anything whose text output can be swapped, such as the
// interpreter's stdout.
type Redirectable interface {
	SetStdout(w io.Writer) io.Writer
}

// Buffer accumulates script output between drains. It is owned by the
// goroutine running the script and is not safe for concurrent use.
type Buffer struct {
	sb       strings.Builder
	total    int
	limit    int
	exceeded bool
}

// NewBuffer returns a buffer that rejects writes once more than limit
// bytes have been written in total. limit <= 0 means unlimited.
func NewBuffer(limit int) *Buffer {
	return &Buffer{limit: limit}
}

// Write appends p. A write crossing the ceiling keeps the whole runes that
// fit and reports ErrOutputLimit, as does every later write.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.exceeded || (b.limit > 0 && b.total+len(p) > b.limit) {
		n := 0
		if !b.exceeded {
			n = max(b.limit-b.total, 0)
			for n > 0 && !utf8.RuneStart(p[n]) {
				n--
			}
		}
		b.sb.Write(p[:n])
		b.total += n
		b.exceeded = true
		return n, fmt.Errorf("%w: more than %d bytes", ErrOutputLimit, b.limit)
	}
	b.sb.Write(p)
	b.total += len(p)
	return len(p), nil
}

// WriteString is Write for strings.
func (b *Buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

// Drain returns the text written since the previous drain and clears it.
func (b *Buffer) Drain() string {
	s := b.sb.String()
	b.sb.Reset()
	return s
}

// Pending reports how many undrained bytes are held.
func (b *Buffer) Pending() int { return b.sb.Len() }

// Total reports how many bytes were written over the buffer's lifetime.
func (b *Buffer) Total() int { return b.total }

// Redirect points target's output at a fresh Buffer. The returned release
// func restores the previous writer; callers defer it so it runs on every
// exit path. Calling release more than once is harmless.
func Redirect(target Redirectable, limit int) (*Buffer, func()) {
	buf := NewBuffer(limit)
	prev := target.SetStdout(buf)
	released := false
	return buf, func() {
		if released {
			return
		}
		released = true
		target.SetStdout(prev)
	}
}
