package lexer

import (
	"pytrace/internal/token"
)

const utf8RuneSelf = 0x80

// scanIdentOrKeyword scans an identifier and checks it against the keyword table.
// Token.Text is exactly the source slice.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()

	r, sz := lx.peekRune()
	if sz == 0 {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: token.Invalid, Span: sp}
	}
	if r < utf8RuneSelf {
		if !isIdentStartByte(byte(r)) {
			return lx.scanOperatorOrPunct()
		}
		lx.cursor.Bump()
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
	} else {
		if !isIdentStartRune(r) {
			return lx.scanOperatorOrPunct()
		}
		lx.bumpRune()
	}
	for {
		r2, sz2 := lx.peekRune()
		if sz2 == 0 || !isIdentContinueRune(r2) {
			break
		}
		lx.bumpRune()
	}

	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	if k, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: k, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: text}
}
