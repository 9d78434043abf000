package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"pytrace/internal/source"
	"pytrace/internal/token"
)

func TestPrettyPlain(t *testing.T) {
	bag, fs := sampleBag(t)
	bag.Sort()
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, ShowNotes: true})
	got := buf.String()
	wantLines := []string{
		"main.py:1:1: WARNING SYN2000: unused",
		"1 | x = 1",
		"  | ^",
		"main.py:2:5: ERROR LEX1002: unterminated string literal",
		"1 | x = 1",
		"2 | y = \"open",
		"  |     ^~~~~",
		"  note: string starts here (line 2)",
	}
	if got != strings.Join(wantLines, "\n")+"\n" {
		t.Fatalf("pretty output:\n%s", got)
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs := sampleBag(t)
	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: true})
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("no escape sequences in colored output: %q", buf.String())
	}
}

func TestColumnWidthWide(t *testing.T) {
	if got := columnWidth("s = '日本' + x", 13); got != 10 {
		t.Fatalf("columnWidth = %d, want 10", got)
	}
}

func TestTokens(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("t.py", []byte("x = 1\n"))
	tokens := []token.Token{
		{Kind: token.Ident, Span: source.Span{File: id, Start: 0, End: 1}, Text: "x"},
		{Kind: token.EOF, Span: source.Span{File: id, Start: 6, End: 6}},
		{Kind: token.Ident, Span: source.Span{File: id, Start: 0, End: 1}, Text: "ignored"},
	}

	var pretty bytes.Buffer
	if err := FormatTokensPretty(&pretty, tokens, fs); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(pretty.String()), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], `"x" at 1:1-1:2`) {
		t.Fatalf("pretty tokens:\n%s", pretty.String())
	}

	var js bytes.Buffer
	if err := FormatTokensJSON(&js, tokens, fs); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(js.String(), "ignored") || !strings.Contains(js.String(), `"line": 1`) {
		t.Fatalf("json tokens:\n%s", js.String())
	}
}
