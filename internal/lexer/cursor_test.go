package lexer

import (
	"testing"

	"pytrace/internal/source"
)

func createFile(content string) *source.File {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.py", []byte(content))
	return fs.Get(id)
}

func TestSequentialReading(t *testing.T) {
	cursor := NewCursor(createFile("a\nb"))
	for _, want := range []byte("a\nb") {
		if cursor.EOF() {
			t.Fatalf("unexpected EOF before %q", want)
		}
		if got := cursor.Peek(); got != want {
			t.Fatalf("Peek = %q, want %q", got, want)
		}
		if got := cursor.Bump(); got != want {
			t.Fatalf("Bump = %q, want %q", got, want)
		}
	}
	if !cursor.EOF() {
		t.Fatal("expected EOF at end")
	}
	if cursor.Peek() != 0 || cursor.Bump() != 0 {
		t.Fatal("expected zero bytes past EOF")
	}
}

func TestMarkSpanAndReset(t *testing.T) {
	file := createFile("hello world")
	cursor := NewCursor(file)
	m := cursor.Mark()
	for range 5 {
		cursor.Bump()
	}
	sp := cursor.SpanFrom(m)
	if sp.Start != 0 || sp.End != 5 || sp.File != file.ID {
		t.Fatalf("unexpected span %+v", sp)
	}
	cursor.Reset(m)
	if cursor.Off != 0 {
		t.Fatalf("Reset left offset at %d", cursor.Off)
	}
}

func TestPeekHelpers(t *testing.T) {
	cursor := NewCursor(createFile("abc"))
	if b0, b1, b2, ok := cursor.Peek3(); !ok || b0 != 'a' || b1 != 'b' || b2 != 'c' {
		t.Fatalf("Peek3 = %q %q %q %v", b0, b1, b2, ok)
	}
	if cursor.PeekAt(2) != 'c' || cursor.PeekAt(3) != 0 {
		t.Fatal("PeekAt mismatch")
	}
	if !cursor.Eat('a') || cursor.Eat('a') {
		t.Fatal("Eat mismatch")
	}
	cursor.Bump()
	if _, _, ok := cursor.Peek2(); ok {
		t.Fatal("Peek2 should fail with one byte left")
	}
}
