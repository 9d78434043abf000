package diag

import (
	"testing"

	"pytrace/internal/source"
)

func TestBagLimit(t *testing.T) {
	b := NewBag(2)
	for i := range 3 {
		b.Add(NewError(SynUnexpectedToken, source.Span{Start: uint32(i)}, "x"))
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", b.Len())
	}
}

func TestBagFirstErrorPicksEarliest(t *testing.T) {
	b := NewBag(10)
	b.Add(New(SevWarning, SynInfo, source.Span{Start: 0, End: 1}, "note"))
	b.Add(NewError(SynExpectColon, source.Span{Start: 20, End: 21}, "expected ':'"))
	b.Add(NewError(LexUnknownChar, source.Span{Start: 5, End: 6}, "invalid character"))

	d, ok := b.FirstError()
	if !ok {
		t.Fatal("expected an error")
	}
	if d.Code != LexUnknownChar {
		t.Fatalf("expected earliest error, got %s", d.Code.ID())
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	sp := source.Span{Start: 3, End: 4}
	b.Add(NewError(SynUnexpectedToken, source.Span{Start: 9, End: 10}, "b"))
	b.Add(NewError(SynUnexpectedToken, sp, "a"))
	b.Add(NewError(SynUnexpectedToken, sp, "a again"))
	b.Sort()
	b.Dedup()
	items := b.Items()
	if len(items) != 2 || items[0].Primary.Start != 3 {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestDedupReporter(t *testing.T) {
	b := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: b})
	sp := source.Span{Start: 1, End: 2}
	ReportError(r, LexBadNumber, sp, "invalid decimal literal").Emit()
	ReportError(r, LexBadNumber, sp, "invalid decimal literal").Emit()
	if b.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", b.Len())
	}
}

func TestCodeID(t *testing.T) {
	if got := LexBadIndent.ID(); got != "LEX1004" {
		t.Fatalf("ID = %q", got)
	}
	if got := Code(9999).Title(); got != "Unknown error" {
		t.Fatalf("Title = %q", got)
	}
}
