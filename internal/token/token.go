package token

import (
	"pytrace/internal/source"
)

// Token represents a single source token with its location.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsLiteral reports whether the token is a numeric, string or constant literal.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, FStringLit, KwTrue, KwFalse, KwNone:
		return true
	default:
		return false
	}
}

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool {
	return t.Kind >= KwFalse && t.Kind <= KwAwait
}

// IsPunctOrOp reports whether the token is a punctuation or operator.
func (t Token) IsPunctOrOp() bool {
	return t.Kind >= Plus && t.Kind <= Ellipsis
}

// IsLayout reports whether the token was synthesized from indentation.
func (t Token) IsLayout() bool {
	switch t.Kind {
	case Newline, Indent, Dedent:
		return true
	default:
		return false
	}
}

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }
