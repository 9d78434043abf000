package lexer

import (
	"pytrace/internal/diag"
	"pytrace/internal/token"
)

// scanNumber accepts 123, 1_000, 0b.., 0o.., 0x.., 1.5, .5, 1., 1e-3.
// Malformed literals are reported and returned as Invalid.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit
	digits := func(ok func(byte) bool) {
		for ok(lx.cursor.Peek()) || (lx.cursor.Peek() == '_' && ok(lx.cursor.PeekAt(1))) {
			lx.cursor.Bump()
		}
	}

	if lx.cursor.Peek() == '.' {
		lx.cursor.Bump()
		kind = token.FloatLit
		digits(isDec)
		goto exponent
	}

	if lx.cursor.Peek() == '0' {
		var ok func(byte) bool
		switch lx.cursor.PeekAt(1) {
		case 'b', 'B':
			ok = func(b byte) bool { return b == '0' || b == '1' }
		case 'o', 'O':
			ok = func(b byte) bool { return b >= '0' && b <= '7' }
		case 'x', 'X':
			ok = isHex
		}
		if ok != nil {
			lx.cursor.Bump()
			lx.cursor.Bump()
			if lx.cursor.Peek() == '_' {
				lx.cursor.Bump()
			}
			before := lx.cursor.Off
			digits(ok)
			if lx.cursor.Off == before {
				return lx.badNumber(start, "invalid "+baseName(lx.file.Content[start+1])+" literal")
			}
			goto done
		}
	}

	digits(isDec)
	if lx.cursor.Peek() == '.' {
		lx.cursor.Bump()
		kind = token.FloatLit
		digits(isDec)
	}

exponent:
	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		mark := lx.cursor.Mark()
		lx.cursor.Bump()
		if lx.cursor.Peek() == '+' || lx.cursor.Peek() == '-' {
			lx.cursor.Bump()
		}
		if !isDec(lx.cursor.Peek()) {
			lx.cursor.Reset(mark)
		} else {
			kind = token.FloatLit
			digits(isDec)
		}
	}

	if kind == token.IntLit && lx.file.Content[start] == '0' && lx.cursor.Off-uint32(start) > 1 {
		for _, b := range lx.file.Content[start:lx.cursor.Off] {
			if b != '0' && b != '_' {
				return lx.badNumber(start, "leading zeros in decimal integer literals are not permitted")
			}
		}
	}

done:
	if b := lx.cursor.Peek(); b == 'j' || b == 'J' {
		lx.cursor.Bump()
		return lx.badNumber(start, "complex literals are not supported")
	}
	if isIdentContinueByte(lx.cursor.Peek()) {
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		return lx.badNumber(start, "invalid decimal literal")
	}
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) badNumber(start Mark, msg string) token.Token {
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexBadNumber, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

func baseName(b byte) string {
	switch b {
	case 'b', 'B':
		return "binary"
	case 'o', 'O':
		return "octal"
	default:
		return "hexadecimal"
	}
}
