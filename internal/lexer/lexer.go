package lexer

import (
	"pytrace/internal/diag"
	"pytrace/internal/source"
	"pytrace/internal/token"
)

// Lexer turns a file into a stream of tokens with synthesized
// NEWLINE/INDENT/DEDENT layout tokens.
type Lexer struct {
	file    *source.File
	cursor  Cursor
	opts    Options
	look    *token.Token  // one-token lookahead
	pending []token.Token // queued layout tokens
	indents []int
	depth   int // open brackets; newlines inside brackets are insignificant
	bol     bool
	last    token.Kind
	eof     bool
	inline  bool // lexing an embedded range; no layout tokens
}

func New(file *source.File, opts Options) *Lexer {
	if opts.TabSize <= 0 {
		opts.TabSize = 8
	}
	return &Lexer{
		file:    file,
		cursor:  NewCursor(file),
		opts:    opts,
		indents: []int{0},
		bol:     true,
		last:    token.Newline,
	}
}

// SetRange restricts lexing to [start, limit) as a single bracketed
// expression. Used for f-string replacement fields.
func (lx *Lexer) SetRange(start, limit uint32) {
	lx.cursor.Off = start
	lx.cursor.Limit = min(limit, lx.cursor.Limit)
	lx.inline = true
	lx.bol = false
	lx.depth = 1
	lx.look = nil
	lx.pending = nil
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	tok := lx.next()
	lx.last = tok.Kind
	return tok
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	if lx.look != nil {
		return *lx.look
	}
	t := lx.Next()
	lx.look = &t
	return t
}

// All drains the lexer, EOF included.
func (lx *Lexer) All() []token.Token {
	var out []token.Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

func (lx *Lexer) next() token.Token {
	if tok, ok := lx.popPending(); ok {
		return tok
	}
	if lx.eof {
		return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
	}

	if lx.bol && lx.depth == 0 {
		lx.bol = false
		lx.measureIndent()
		if tok, ok := lx.popPending(); ok {
			return tok
		}
	}

	lx.skipTrivia()

	if lx.cursor.EOF() {
		return lx.finish()
	}

	if n := lx.stringPrefixLen(); n >= 0 {
		return lx.scanString(n)
	}

	ch := lx.cursor.Peek()
	switch {
	case ch == '\n':
		start := lx.cursor.Mark()
		lx.cursor.Bump()
		lx.bol = true
		return token.Token{Kind: token.Newline, Span: lx.cursor.SpanFrom(start)}
	case isIdentStartByte(ch) || ch >= utf8RuneSelf:
		return lx.scanIdentOrKeyword()
	case isDec(ch):
		return lx.scanNumber()
	case ch == '.' && lx.isNumberAfterDot():
		return lx.scanNumber()
	default:
		return lx.scanOperatorOrPunct()
	}
}

// finish emits the trailing NEWLINE and DEDENTs before EOF.
func (lx *Lexer) finish() token.Token {
	lx.eof = true
	sp := lx.emptySpan()
	if lx.inline {
		return token.Token{Kind: token.EOF, Span: sp}
	}
	if lx.last != token.Newline && lx.last != token.Dedent && lx.last != token.Indent {
		lx.pending = append(lx.pending, token.Token{Kind: token.Newline, Span: sp})
	}
	for len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		lx.pending = append(lx.pending, token.Token{Kind: token.Dedent, Span: sp})
	}
	if tok, ok := lx.popPending(); ok {
		return tok
	}
	return token.Token{Kind: token.EOF, Span: sp}
}

// measureIndent skips blank and comment-only lines, then compares the
// indentation of the next logical line against the indent stack.
func (lx *Lexer) measureIndent() {
	for {
		start := lx.cursor.Mark()
		col := 0
		for {
			switch lx.cursor.Peek() {
			case ' ':
				col++
			case '\t':
				col = (col/lx.opts.TabSize + 1) * lx.opts.TabSize
			case '\f':
				col = 0
			default:
				goto measured
			}
			lx.cursor.Bump()
		}
	measured:
		switch b := lx.cursor.Peek(); {
		case lx.cursor.EOF():
			return
		case b == '#':
			lx.skipComment()
			if lx.cursor.Eat('\n') {
				continue
			}
			return
		case b == '\n':
			lx.cursor.Bump()
			continue
		case b == '\\' && lx.cursor.PeekAt(1) == '\n':
			// a continuation on an otherwise empty line joins with the next
			lx.cursor.Bump()
			lx.cursor.Bump()
			continue
		}

		sp := lx.cursor.SpanFrom(start)
		top := lx.indents[len(lx.indents)-1]
		switch {
		case col > top:
			lx.indents = append(lx.indents, col)
			lx.pending = append(lx.pending, token.Token{Kind: token.Indent, Span: sp})
		case col < top:
			for len(lx.indents) > 1 && lx.indents[len(lx.indents)-1] > col {
				lx.indents = lx.indents[:len(lx.indents)-1]
				lx.pending = append(lx.pending, token.Token{Kind: token.Dedent, Span: sp})
			}
			if lx.indents[len(lx.indents)-1] != col {
				lx.errLex(diag.LexInconsistentDedent, sp, "unindent does not match any outer indentation level")
			}
		}
		return
	}
}

func (lx *Lexer) popPending() (token.Token, bool) {
	if len(lx.pending) == 0 {
		return token.Token{}, false
	}
	tok := lx.pending[0]
	lx.pending = lx.pending[1:]
	return tok, true
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) text(sp source.Span) string {
	return string(lx.file.Content[sp.Start:sp.End])
}
