package lexer

import (
	"strings"

	"pytrace/internal/diag"
	"pytrace/internal/token"
)

// stringPrefixLen returns the length of a string prefix (r, f, u, rf, fr in
// any case, plus b forms) when a quote follows, or -1 when the cursor is
// not at a string literal.
func (lx *Lexer) stringPrefixLen() int {
	for n := uint32(0); n <= 2; n++ {
		b := lx.cursor.PeekAt(n)
		if b == '\'' || b == '"' {
			if n == 0 || validPrefix(string(lx.file.Content[lx.cursor.Off:lx.cursor.Off+n])) {
				return int(n)
			}
			return -1
		}
		if !strings.ContainsRune("rRbBuUfF", rune(b)) || b == 0 {
			return -1
		}
	}
	return -1
}

func validPrefix(p string) bool {
	switch strings.ToLower(p) {
	case "r", "u", "f", "b", "rf", "fr", "rb", "br":
		return true
	}
	return false
}

// scanString scans a single or triple quoted literal. The token text keeps
// the prefix and quotes; decoding happens in the parser.
func (lx *Lexer) scanString(prefixLen int) token.Token {
	start := lx.cursor.Mark()
	prefix := strings.ToLower(string(lx.file.Content[lx.cursor.Off : lx.cursor.Off+uint32(prefixLen)]))
	for range prefixLen {
		lx.cursor.Bump()
	}
	quote := lx.cursor.Bump()
	triple := false
	if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == quote && b1 == quote {
		lx.cursor.Bump()
		lx.cursor.Bump()
		triple = true
	}

	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		switch {
		case b == '\\':
			lx.cursor.Bump()
			if !lx.cursor.EOF() {
				lx.cursor.Bump()
			}
			continue
		case b == '\n' && !triple:
			sp := lx.cursor.SpanFrom(start)
			lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
		case b == quote:
			if !triple {
				lx.cursor.Bump()
				return lx.emitString(start, prefix)
			}
			if b1, b2 := lx.cursor.PeekAt(1), lx.cursor.PeekAt(2); b1 == quote && b2 == quote {
				lx.cursor.Bump()
				lx.cursor.Bump()
				lx.cursor.Bump()
				return lx.emitString(start, prefix)
			}
		}
		lx.cursor.Bump()
	}

	sp := lx.cursor.SpanFrom(start)
	msg := "unterminated string literal"
	if triple {
		msg = "unterminated triple-quoted string literal"
	}
	lx.errLex(diag.LexUnterminatedString, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) emitString(start Mark, prefix string) token.Token {
	sp := lx.cursor.SpanFrom(start)
	if strings.Contains(prefix, "b") {
		lx.errLex(diag.SynUnsupported, sp, "bytes literals are not supported")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	kind := token.StringLit
	if strings.Contains(prefix, "f") {
		kind = token.FStringLit
	}
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}
