package parser

import (
	"slices"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/lexer"
	"pytrace/internal/source"
	"pytrace/internal/token"
)

// DefaultMaxDepth bounds bracket nesting.
const DefaultMaxDepth = 200

type Options struct {
	Reporter diag.Reporter
	// MaxDepth bounds bracket nesting; DefaultMaxDepth when zero.
	MaxDepth int
}

type Result struct {
	Module *ast.Module
	Bag    *diag.Bag
}

// Parser holds per-file parsing state.
type Parser struct {
	lx       *lexer.Lexer
	fs       *source.FileSet
	file     *source.File
	opts     Options
	lastSpan source.Span

	parens    int // open brackets
	depth     int // expression recursion
	loops     int
	funcs     int
	hadErrors bool
}

// bailout unwinds the parser after the first error.
type bailout struct{}

// ParseFile parses one file. Parsing stops at the first error, which is
// reported through opts.Reporter; the returned module is nil in that case.
func ParseFile(fs *source.FileSet, file *source.File, opts Options) Result {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	var bag *diag.Bag
	switch br := opts.Reporter.(type) {
	case diag.BagReporter:
		bag = br.Bag
	case *diag.BagReporter:
		bag = br.Bag
	}
	opts.Reporter = stopReporter{next: opts.Reporter}
	p := &Parser{
		lx:   lexer.New(file, lexer.Options{Reporter: opts.Reporter}),
		fs:   fs,
		file: file,
		opts: opts,
	}
	mod := p.parseModule()
	if p.hadErrors {
		mod = nil
	}
	return Result{Module: mod, Bag: bag}
}

// Parse is a convenience wrapper collecting diagnostics into a fresh bag.
func Parse(fs *source.FileSet, id source.FileID) Result {
	bag := diag.NewBag(16)
	return ParseFile(fs, fs.Get(id), Options{Reporter: diag.BagReporter{Bag: bag}})
}

func (p *Parser) parseModule() (mod *ast.Module) {
	mod = &ast.Module{File: p.file}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.hadErrors = true
		}
	}()
	for !p.at(token.EOF) {
		if p.eat(token.Newline) {
			continue
		}
		if p.at(token.Indent) {
			p.fail(diag.LexBadIndent, "unexpected indent")
		}
		mod.Body = append(mod.Body, p.parseStatement()...)
	}
	mod.Doc = isDocstring(mod.Body)
	return mod
}

func (p *Parser) peek() token.Token {
	return p.lx.Peek()
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

func (p *Parser) atAny(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.lx.Peek().Kind)
}

// advance consumes the next token. An Invalid token means the lexer already
// reported an error, so parsing stops there.
func (p *Parser) advance() token.Token {
	tok := p.lx.Next()
	if tok.Kind == token.Invalid {
		panic(bailout{})
	}
	if tok.Kind != token.EOF {
		p.lastSpan = tok.Span
	}
	return tok
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of kind k or stops with a syntax error.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) token.Token {
	if p.at(k) {
		return p.advance()
	}
	p.fail(code, msg)
	return token.Token{}
}

// fail reports an error at the upcoming token and unwinds.
func (p *Parser) fail(code diag.Code, msg string) {
	p.failAt(code, p.diagnosticSpan(), msg)
}

func (p *Parser) failAt(code diag.Code, sp source.Span, msg string) {
	if p.peek().Kind != token.Invalid {
		diag.ReportError(p.opts.Reporter, code, sp, msg).Emit()
	}
	panic(bailout{})
}

// stopReporter forwards diagnostics and unwinds the parser on the first
// error, whether it comes from the lexer or the parser.
type stopReporter struct{ next diag.Reporter }

func (r stopReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	if r.next != nil {
		r.next.Report(code, sev, primary, msg, notes)
	}
	if sev >= diag.SevError {
		panic(bailout{})
	}
}

// diagnosticSpan points past the last token when the upcoming one is a
// synthesized layout token or EOF.
func (p *Parser) diagnosticSpan() source.Span {
	peek := p.peek()
	if peek.Kind == token.EOF || peek.Kind == token.Newline && peek.Span.Empty() {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return peek.Span
}

func (p *Parser) pos(sp source.Span) ast.Pos {
	return ast.Pos{Span: sp, Line: p.file.LineOf(sp.Start)}
}

func (p *Parser) posTok(tok token.Token) ast.Pos {
	return p.pos(tok.Span)
}

// cover builds a position spanning from start to the last consumed token.
func (p *Parser) cover(start ast.Pos) ast.Pos {
	sp := start.Span
	if p.lastSpan.End > sp.End {
		sp.End = p.lastSpan.End
	}
	return ast.Pos{Span: sp, Line: start.Line}
}

func (p *Parser) enter() {
	p.depth++
	if p.depth > p.opts.MaxDepth*4 {
		p.fail(diag.SynTooDeeplyNested, "expression too deeply nested")
	}
}

func (p *Parser) leave() { p.depth-- }

func (p *Parser) openBracket() {
	p.parens++
	if p.parens > p.opts.MaxDepth {
		p.fail(diag.SynTooDeeplyNested, "too many nested parentheses")
	}
}

func (p *Parser) closeBracket(k token.Kind, code diag.Code, msg string) {
	p.expect(k, code, msg)
	p.parens--
}

func isDocstring(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	es, ok := body[0].(*ast.ExprStmt)
	if !ok {
		return false
	}
	_, ok = es.Value.(*ast.StrLit)
	return ok
}
