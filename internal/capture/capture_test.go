package capture

import (
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf8"
)

type fakeTarget struct {
	w io.Writer
}

func (f *fakeTarget) SetStdout(w io.Writer) io.Writer {
	prev := f.w
	f.w = w
	return prev
}

func TestDrainReturnsTextSinceLastDrain(t *testing.T) {
	b := NewBuffer(0)
	if got := b.Drain(); got != "" {
		t.Fatalf("initial drain = %q", got)
	}
	_, _ = io.WriteString(b, "a")
	_, _ = io.WriteString(b, "b\n")
	if got := b.Drain(); got != "ab\n" {
		t.Fatalf("drain = %q", got)
	}
	if got := b.Drain(); got != "" {
		t.Fatalf("second drain = %q", got)
	}
	_, _ = io.WriteString(b, "c")
	if got := b.Drain(); got != "c" {
		t.Fatalf("third drain = %q", got)
	}
	if b.Total() != 4 {
		t.Fatalf("total = %d", b.Total())
	}
}

func TestOutputLimit(t *testing.T) {
	b := NewBuffer(5)
	if _, err := b.WriteString("abc"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	n, err := b.WriteString("defg")
	if !errors.Is(err, ErrOutputLimit) {
		t.Fatalf("err = %v, want ErrOutputLimit", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if got := b.Drain(); got != "abcde" {
		t.Fatalf("drain = %q", got)
	}
	if _, err := b.WriteString("x"); !errors.Is(err, ErrOutputLimit) {
		t.Fatalf("write past limit: %v", err)
	}
}

func TestOutputLimitKeepsWholeRunes(t *testing.T) {
	b := NewBuffer(4)
	n, err := b.WriteString("ab日本")
	if !errors.Is(err, ErrOutputLimit) {
		t.Fatalf("err = %v, want ErrOutputLimit", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	got := b.Drain()
	if got != "ab" || !utf8.ValidString(got) {
		t.Fatalf("drain = %q", got)
	}
	if _, err := b.WriteString("c"); !errors.Is(err, ErrOutputLimit) {
		t.Fatalf("write after the ceiling: %v", err)
	}
}

func TestRedirectRestores(t *testing.T) {
	var orig strings.Builder
	target := &fakeTarget{w: &orig}
	buf, release := Redirect(target, 0)
	if target.w != buf {
		t.Fatalf("target not redirected")
	}
	_, _ = io.WriteString(target.w, "captured")
	release()
	release()
	if target.w != &orig {
		t.Fatalf("writer not restored")
	}
	if orig.Len() != 0 || buf.Drain() != "captured" {
		t.Fatalf("output leaked: orig=%q", orig.String())
	}
}
