package lexer

import (
	"pytrace/internal/diag"
	"pytrace/internal/source"
)

type Options struct {
	Reporter diag.Reporter // may be nil; lexing continues either way
	TabSize  int           // indentation width of a tab, 8 when zero
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, code, sp, msg).Emit()
	}
}
