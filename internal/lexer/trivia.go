package lexer

import (
	"pytrace/internal/diag"
)

// skipTrivia consumes blanks, comments and explicit line joins. Inside
// brackets newlines are consumed too.
func (lx *Lexer) skipTrivia() {
	for !lx.cursor.EOF() {
		switch b := lx.cursor.Peek(); b {
		case ' ', '\t', '\f', '\r':
			lx.cursor.Bump()
		case '#':
			lx.skipComment()
		case '\\':
			start := lx.cursor.Mark()
			lx.cursor.Bump()
			if !lx.cursor.Eat('\n') {
				lx.errLex(diag.LexBadContinuation, lx.cursor.SpanFrom(start),
					"unexpected character after line continuation character")
				return
			}
		case '\n':
			if lx.depth == 0 {
				return
			}
			lx.cursor.Bump()
		default:
			return
		}
	}
}

// skipComment consumes '#' up to, but not including, the newline.
func (lx *Lexer) skipComment() {
	for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
		lx.cursor.Bump()
	}
}
