package lexer

import (
	"pytrace/internal/diag"
	"pytrace/internal/token"
)

// scanOperatorOrPunct matches greedily: three bytes, then two, then one.
// Brackets adjust the nesting depth used for implicit line joining.
func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	emit := func(k token.Kind) token.Token {
		sp := lx.cursor.SpanFrom(start)
		return token.Token{Kind: k, Span: sp, Text: lx.text(sp)}
	}

	switch {
	case lx.try3('*', '*', '='):
		return emit(token.PowAssign)
	case lx.try3('/', '/', '='):
		return emit(token.FloorAssign)
	case lx.try3('<', '<', '='):
		return emit(token.ShlAssign)
	case lx.try3('>', '>', '='):
		return emit(token.ShrAssign)
	case lx.try3('.', '.', '.'):
		return emit(token.Ellipsis)
	case lx.try2('*', '*'):
		return emit(token.StarStar)
	case lx.try2('/', '/'):
		return emit(token.SlashSlash)
	case lx.try2('<', '<'):
		return emit(token.Shl)
	case lx.try2('>', '>'):
		return emit(token.Shr)
	case lx.try2('<', '='):
		return emit(token.LtEq)
	case lx.try2('>', '='):
		return emit(token.GtEq)
	case lx.try2('=', '='):
		return emit(token.EqEq)
	case lx.try2('!', '='):
		return emit(token.BangEq)
	case lx.try2('-', '>'):
		return emit(token.Arrow)
	case lx.try2(':', '='):
		return emit(token.Walrus)
	case lx.try2('+', '='):
		return emit(token.PlusAssign)
	case lx.try2('-', '='):
		return emit(token.MinusAssign)
	case lx.try2('*', '='):
		return emit(token.StarAssign)
	case lx.try2('/', '='):
		return emit(token.SlashAssign)
	case lx.try2('%', '='):
		return emit(token.PercentAssign)
	case lx.try2('&', '='):
		return emit(token.AmpAssign)
	case lx.try2('|', '='):
		return emit(token.PipeAssign)
	case lx.try2('^', '='):
		return emit(token.CaretAssign)
	}

	if lx.cursor.Peek() >= utf8RuneSelf {
		lx.bumpRune()
		return lx.unknownChar(start)
	}

	switch lx.cursor.Bump() {
	case '+':
		return emit(token.Plus)
	case '-':
		return emit(token.Minus)
	case '*':
		return emit(token.Star)
	case '/':
		return emit(token.Slash)
	case '%':
		return emit(token.Percent)
	case '@':
		return emit(token.At)
	case '&':
		return emit(token.Amp)
	case '|':
		return emit(token.Pipe)
	case '^':
		return emit(token.Caret)
	case '~':
		return emit(token.Tilde)
	case '<':
		return emit(token.Lt)
	case '>':
		return emit(token.Gt)
	case '=':
		return emit(token.Assign)
	case ',':
		return emit(token.Comma)
	case ':':
		return emit(token.Colon)
	case '.':
		return emit(token.Dot)
	case ';':
		return emit(token.Semicolon)
	case '(':
		lx.depth++
		return emit(token.LParen)
	case '[':
		lx.depth++
		return emit(token.LBracket)
	case '{':
		lx.depth++
		return emit(token.LBrace)
	case ')':
		lx.closeBracket()
		return emit(token.RParen)
	case ']':
		lx.closeBracket()
		return emit(token.RBracket)
	case '}':
		lx.closeBracket()
		return emit(token.RBrace)
	default:
		return lx.unknownChar(start)
	}
}

func (lx *Lexer) closeBracket() {
	if lx.depth > 0 {
		lx.depth--
	}
}

func (lx *Lexer) unknownChar(start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	lx.errLex(diag.LexUnknownChar, sp, "invalid character '"+text+"'")
	return token.Token{Kind: token.Invalid, Span: sp, Text: text}
}
