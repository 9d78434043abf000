package parser

import (
	"strings"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/token"
)

// parseStatement parses one logical line or one compound statement.
func (p *Parser) parseStatement() []ast.Stmt {
	switch p.peek().Kind {
	case token.KwIf:
		return []ast.Stmt{p.parseIf()}
	case token.KwWhile:
		return []ast.Stmt{p.parseWhile()}
	case token.KwFor:
		return []ast.Stmt{p.parseFor()}
	case token.KwTry:
		return []ast.Stmt{p.parseTry()}
	case token.KwDef:
		return []ast.Stmt{p.parseFunctionDef(nil, p.posTok(p.peek()))}
	case token.KwClass:
		return []ast.Stmt{p.parseClassDef(nil, p.posTok(p.peek()))}
	case token.At:
		return []ast.Stmt{p.parseDecorated()}
	case token.KwWith:
		p.fail(diag.SynUnsupported, "'with' statements are not supported")
	case token.KwAsync, token.KwAwait:
		p.fail(diag.SynUnsupported, "async code is not supported")
	}
	return p.parseSimpleStatements()
}

// parseSimpleStatements parses `small (';' small)* [';'] NEWLINE`.
func (p *Parser) parseSimpleStatements() []ast.Stmt {
	var out []ast.Stmt
	for {
		out = append(out, p.parseSmallStatement())
		if !p.eat(token.Semicolon) {
			break
		}
		if p.atAny(token.Newline, token.EOF) {
			break
		}
	}
	if !p.eat(token.Newline) && !p.at(token.EOF) {
		p.fail(diag.SynUnexpectedToken, "invalid syntax")
	}
	return out
}

func (p *Parser) parseSmallStatement() ast.Stmt {
	tok := p.peek()
	pos := p.posTok(tok)
	switch tok.Kind {
	case token.KwPass:
		p.advance()
		return &ast.Pass{Pos: pos}
	case token.KwBreak:
		p.advance()
		if p.loops == 0 {
			p.failAt(diag.SynOutsideLoop, tok.Span, "'break' outside loop")
		}
		return &ast.Break{Pos: pos}
	case token.KwContinue:
		p.advance()
		if p.loops == 0 {
			p.failAt(diag.SynOutsideLoop, tok.Span, "'continue' not properly in loop")
		}
		return &ast.Continue{Pos: pos}
	case token.KwReturn:
		p.advance()
		if p.funcs == 0 {
			p.failAt(diag.SynReturnOutsideFunc, tok.Span, "'return' outside function")
		}
		var value ast.Expr
		if !p.atStatementEnd() {
			value = p.parseStarExpressions()
		}
		return &ast.Return{Pos: p.cover(pos), Value: value}
	case token.KwRaise:
		p.advance()
		r := &ast.Raise{Pos: pos}
		if !p.atStatementEnd() {
			r.Exc = p.parseTest()
			if p.eat(token.KwFrom) {
				r.Cause = p.parseTest()
			}
		}
		r.Pos = p.cover(pos)
		return r
	case token.KwGlobal, token.KwNonlocal:
		p.advance()
		var names []string
		for {
			names = append(names, p.expectName())
			if !p.eat(token.Comma) {
				break
			}
		}
		if tok.Kind == token.KwGlobal {
			return &ast.Global{Pos: p.cover(pos), Names: names}
		}
		if p.funcs == 0 {
			p.failAt(diag.SynNonlocalAtModule, tok.Span, "nonlocal declaration not allowed at module level")
		}
		return &ast.Nonlocal{Pos: p.cover(pos), Names: names}
	case token.KwDel:
		p.advance()
		var targets []ast.Expr
		for {
			t := p.parseBitOr()
			p.checkDelTarget(t)
			targets = append(targets, t)
			if !p.eat(token.Comma) || p.atStatementEnd() {
				break
			}
		}
		return &ast.Delete{Pos: p.cover(pos), Targets: targets}
	case token.KwAssert:
		p.advance()
		a := &ast.Assert{Pos: pos, Test: p.parseTest()}
		if p.eat(token.Comma) {
			a.Msg = p.parseTest()
		}
		a.Pos = p.cover(pos)
		return a
	case token.KwImport:
		return p.parseImport()
	case token.KwFrom:
		return p.parseImportFrom()
	case token.KwYield:
		p.fail(diag.SynUnsupported, "generators are not supported")
	case token.Indent:
		p.fail(diag.LexBadIndent, "unexpected indent")
	}
	return p.parseExprStatement()
}

func (p *Parser) atStatementEnd() bool {
	return p.atAny(token.Newline, token.Semicolon, token.EOF)
}

func (p *Parser) parseExprStatement() ast.Stmt {
	start := p.posTok(p.peek())
	first := p.parseStarExpressions()

	switch tok := p.peek(); {
	case tok.Kind == token.Assign:
		targets := []ast.Expr{first}
		var value ast.Expr
		for p.eat(token.Assign) {
			value = p.parseStarExpressions()
			targets = append(targets, value)
		}
		targets = targets[:len(targets)-1]
		for _, t := range targets {
			p.checkAssignTarget(t)
		}
		return &ast.Assign{Pos: p.cover(start), Targets: targets, Value: value}

	case tok.Kind == token.Colon:
		p.advance()
		switch first.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		default:
			p.failAt(diag.SynBadAssignTarget, first.Position().Span, "only single target (not tuple) can be annotated")
		}
		p.parseTest() // annotation, evaluated by nobody
		st := &ast.AnnAssign{Pos: start, Target: first}
		if p.eat(token.Assign) {
			st.Value = p.parseStarExpressions()
		}
		st.Pos = p.cover(start)
		return st

	default:
		if op, ok := tok.Kind.AugmentedOp(); ok {
			p.advance()
			switch first.(type) {
			case *ast.Name, *ast.Attribute, *ast.Subscript:
			default:
				p.failAt(diag.SynBadAssignTarget, first.Position().Span,
					"'"+describe(first)+"' is an illegal expression for augmented assignment")
			}
			value := p.parseStarExpressions()
			return &ast.AugAssign{Pos: p.cover(start), Target: first, Op: op, Value: value}
		}
	}
	return &ast.ExprStmt{Pos: p.cover(start), Value: first}
}

func (p *Parser) expectName() string {
	return p.expect(token.Ident, diag.SynExpectIdentifier, "invalid syntax").Text
}

func (p *Parser) parseDottedName() string {
	parts := []string{p.expectName()}
	for p.eat(token.Dot) {
		parts = append(parts, p.expectName())
	}
	return strings.Join(parts, ".")
}

func (p *Parser) parseImport() ast.Stmt {
	pos := p.posTok(p.advance())
	var names []ast.Alias
	for {
		a := ast.Alias{Name: p.parseDottedName()}
		if p.eat(token.KwAs) {
			a.AsName = p.expectName()
		}
		names = append(names, a)
		if !p.eat(token.Comma) {
			break
		}
	}
	return &ast.Import{Pos: p.cover(pos), Names: names}
}

func (p *Parser) parseImportFrom() ast.Stmt {
	pos := p.posTok(p.advance())
	if p.atAny(token.Dot, token.Ellipsis) {
		p.fail(diag.SynUnsupported, "relative imports are not supported")
	}
	module := p.parseDottedName()
	p.expect(token.KwImport, diag.SynUnexpectedToken, "invalid syntax")
	if p.eat(token.Star) {
		return &ast.ImportFrom{Pos: p.cover(pos), Module: module, Names: []ast.Alias{{Name: "*"}}}
	}
	paren := p.at(token.LParen)
	if paren {
		p.advance()
		p.openBracket()
	}
	var names []ast.Alias
	for {
		a := ast.Alias{Name: p.expectName()}
		if p.eat(token.KwAs) {
			a.AsName = p.expectName()
		}
		names = append(names, a)
		if !p.eat(token.Comma) {
			break
		}
		if paren && p.at(token.RParen) {
			break
		}
	}
	if paren {
		p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
	}
	return &ast.ImportFrom{Pos: p.cover(pos), Module: module, Names: names}
}
