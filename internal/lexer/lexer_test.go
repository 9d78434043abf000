package lexer_test

import (
	"fmt"
	"strings"
	"testing"

	"pytrace/internal/diag"
	"pytrace/internal/lexer"
	"pytrace/internal/source"
	"pytrace/internal/token"
)

func makeTestLexer(input string) (*lexer.Lexer, *diag.Bag) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("test.py", []byte(input))
	bag := diag.NewBag(16)
	lx := lexer.New(fs.Get(fileID), lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	return lx, bag
}

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func tokensToString(tokens []token.Token) string {
	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = fmt.Sprintf("%v(%q)", tok.Kind, tok.Text)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func expectTokens(t *testing.T, input string, expected ...token.Kind) {
	t.Helper()
	lx, bag := makeTestLexer(input)
	tokens := lx.All()
	got := kinds(tokens)
	expected = append(expected, token.EOF)
	if len(got) != len(expected) {
		t.Fatalf("expected %d tokens, got %d\ninput: %q\ntokens: %s\ndiags: %v",
			len(expected), len(got), input, tokensToString(tokens), bag.Items())
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("token %d: expected %v, got %v (%s)", i, expected[i], got[i], tokensToString(tokens))
		}
	}
}

func TestSimpleAssignment(t *testing.T) {
	expectTokens(t, "x = 1\n", token.Ident, token.Assign, token.IntLit, token.Newline)
}

func TestMissingTrailingNewlineIsSynthesized(t *testing.T) {
	expectTokens(t, "print(x)", token.Ident, token.LParen, token.Ident, token.RParen, token.Newline)
}

func TestEmptyInput(t *testing.T) {
	expectTokens(t, "")
	expectTokens(t, "\n\n# only a comment\n")
}

func TestIndentDedent(t *testing.T) {
	src := "if x:\n    y = 1\n    if z:\n        pass\nw = 2\n"
	expectTokens(t, src,
		token.KwIf, token.Ident, token.Colon, token.Newline,
		token.Indent, token.Ident, token.Assign, token.IntLit, token.Newline,
		token.KwIf, token.Ident, token.Colon, token.Newline,
		token.Indent, token.KwPass, token.Newline,
		token.Dedent, token.Dedent,
		token.Ident, token.Assign, token.IntLit, token.Newline,
	)
}

func TestDedentAtEOF(t *testing.T) {
	expectTokens(t, "def f():\n    return 1",
		token.KwDef, token.Ident, token.LParen, token.RParen, token.Colon, token.Newline,
		token.Indent, token.KwReturn, token.IntLit, token.Newline,
		token.Dedent,
	)
}

func TestBlankAndCommentLinesDoNotAffectIndent(t *testing.T) {
	src := "while x:\n\n        # comment\n    x -= 1\n"
	expectTokens(t, src,
		token.KwWhile, token.Ident, token.Colon, token.Newline,
		token.Indent, token.Ident, token.MinusAssign, token.IntLit, token.Newline,
		token.Dedent,
	)
}

func TestImplicitLineJoining(t *testing.T) {
	src := "xs = [\n    1,\n    2,\n]\n"
	expectTokens(t, src,
		token.Ident, token.Assign, token.LBracket,
		token.IntLit, token.Comma, token.IntLit, token.Comma,
		token.RBracket, token.Newline,
	)
}

func TestBackslashContinuation(t *testing.T) {
	expectTokens(t, "x = 1 + \\\n    2\n",
		token.Ident, token.Assign, token.IntLit, token.Plus, token.IntLit, token.Newline)
}

func TestInconsistentDedentReported(t *testing.T) {
	lx, bag := makeTestLexer("if x:\n        a\n    b\n")
	lx.All()
	if !bag.HasErrors() || bag.Items()[0].Code != diag.LexInconsistentDedent {
		t.Fatalf("expected inconsistent dedent, got %v", bag.Items())
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
	}{
		{"0", token.IntLit},
		{"1_000", token.IntLit},
		{"0xFF", token.IntLit},
		{"0o17", token.IntLit},
		{"0b1010", token.IntLit},
		{"3.14", token.FloatLit},
		{".5", token.FloatLit},
		{"1.", token.FloatLit},
		{"1e10", token.FloatLit},
		{"2.5E-3", token.FloatLit},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lx, bag := makeTestLexer(tt.input)
			tok := lx.Next()
			if tok.Kind != tt.kind || tok.Text != tt.input {
				t.Fatalf("got %v(%q), want %v", tok.Kind, tok.Text, tt.kind)
			}
			if bag.HasErrors() {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
		})
	}
}

func TestBadNumbers(t *testing.T) {
	for _, input := range []string{"012", "1abc", "0x", "3j"} {
		t.Run(input, func(t *testing.T) {
			lx, bag := makeTestLexer(input)
			if tok := lx.Next(); tok.Kind != token.Invalid {
				t.Fatalf("expected Invalid, got %v", tok.Kind)
			}
			if !bag.HasErrors() || bag.Items()[0].Code != diag.LexBadNumber {
				t.Fatalf("expected LexBadNumber, got %v", bag.Items())
			}
		})
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
	}{
		{`"hi"`, token.StringLit},
		{`'it\'s'`, token.StringLit},
		{`r"\d+"`, token.StringLit},
		{`f"{x}"`, token.FStringLit},
		{`Rf'{x!r}'`, token.FStringLit},
		{"\"\"\"multi\nline\"\"\"", token.StringLit},
		{"'''a ' b'''", token.StringLit},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			lx, bag := makeTestLexer(tt.input)
			tok := lx.Next()
			if tok.Kind != tt.kind || tok.Text != tt.input {
				t.Fatalf("got %v(%q), want %v", tok.Kind, tok.Text, tt.kind)
			}
			if bag.HasErrors() {
				t.Fatalf("unexpected diagnostics: %v", bag.Items())
			}
		})
	}
}

func TestPrefixLikeIdentifiers(t *testing.T) {
	expectTokens(t, "rb = fr + f\n", token.Ident, token.Assign, token.Ident, token.Plus, token.Ident, token.Newline)
}

func TestUnterminatedString(t *testing.T) {
	lx, bag := makeTestLexer("x = 'abc\ny = 1\n")
	lx.All()
	if !bag.HasErrors() || bag.Items()[0].Code != diag.LexUnterminatedString {
		t.Fatalf("expected unterminated string, got %v", bag.Items())
	}
}

func TestOperatorsGreedy(t *testing.T) {
	expectTokens(t, "a **= b // c >>= d != e := f -> ...",
		token.Ident, token.PowAssign, token.Ident, token.SlashSlash, token.Ident,
		token.ShrAssign, token.Ident, token.BangEq, token.Ident, token.Walrus,
		token.Ident, token.Arrow, token.Ellipsis, token.Newline)
}

func TestKeywordsAndLineNumbers(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("kw.py", []byte("x = None\nif x is not None:\n    pass\n"))
	lx := lexer.New(fs.Get(id), lexer.Options{})
	tokens := lx.All()
	var lines []uint32
	for _, tok := range tokens {
		if tok.IsKeyword() {
			start, _ := fs.Resolve(tok.Span)
			lines = append(lines, start.Line)
		}
	}
	want := []uint32{1, 2, 2, 2, 2, 3}
	if fmt.Sprint(lines) != fmt.Sprint(want) {
		t.Fatalf("keyword lines = %v, want %v", lines, want)
	}
}

func TestUnknownCharacter(t *testing.T) {
	lx, bag := makeTestLexer("x = $")
	lx.All()
	if !bag.HasErrors() || bag.Items()[0].Code != diag.LexUnknownChar {
		t.Fatalf("expected LexUnknownChar, got %v", bag.Items())
	}
}

func TestPeekDoesNotConsume(t *testing.T) {
	lx, _ := makeTestLexer("a b")
	if lx.Peek().Text != "a" || lx.Peek().Text != "a" {
		t.Fatal("Peek changed state")
	}
	if lx.Next().Text != "a" || lx.Next().Text != "b" {
		t.Fatal("Next after Peek out of order")
	}
}

func TestSetRangeLexesEmbeddedExpression(t *testing.T) {
	fs := source.NewFileSet()
	src := `f"{a +` + "\n" + ` b}"`
	id := fs.AddVirtual("f.py", []byte(src))
	lx := lexer.New(fs.Get(id), lexer.Options{})
	lx.SetRange(3, uint32(len(src)-2))
	got := kinds(lx.All())
	want := []token.Kind{token.Ident, token.Plus, token.Ident, token.EOF}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
