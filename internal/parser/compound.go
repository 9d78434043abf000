package parser

import (
	"fmt"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/token"
)

// parseBlock parses `':' suite` where suite is either simple statements on
// the same line or an indented block. what names the owning statement for
// the "expected an indented block" message.
func (p *Parser) parseBlock(what string, line int) []ast.Stmt {
	p.expect(token.Colon, diag.SynExpectColon, "expected ':'")
	if !p.at(token.Newline) {
		return p.parseSimpleStatements()
	}
	p.advance()
	if !p.at(token.Indent) {
		p.fail(diag.SynExpectIndent, fmt.Sprintf("expected an indented block after %s on line %d", what, line))
	}
	p.advance()
	var body []ast.Stmt
	for !p.at(token.Dedent) && !p.at(token.EOF) {
		if p.eat(token.Newline) {
			continue
		}
		body = append(body, p.parseStatement()...)
	}
	p.eat(token.Dedent)
	return body
}

func (p *Parser) parseIf() ast.Stmt {
	tok := p.advance()
	pos := p.posTok(tok)
	st := &ast.If{Pos: pos, Test: p.parseNamedExpr(), Elif: tok.Kind == token.KwElif}
	what := "'if' statement"
	if st.Elif {
		what = "'elif' statement"
	}
	st.Body = p.parseBlock(what, pos.Line)
	switch p.peek().Kind {
	case token.KwElif:
		st.OrElse = []ast.Stmt{p.parseIf()}
	case token.KwElse:
		elseTok := p.advance()
		st.OrElse = p.parseBlock("'else' statement", p.posTok(elseTok).Line)
	}
	return st
}

func (p *Parser) parseWhile() ast.Stmt {
	pos := p.posTok(p.advance())
	st := &ast.While{Pos: pos, Test: p.parseNamedExpr()}
	p.loops++
	st.Body = p.parseBlock("'while' statement", pos.Line)
	p.loops--
	if p.at(token.KwElse) {
		elseTok := p.advance()
		st.OrElse = p.parseBlock("'else' statement", p.posTok(elseTok).Line)
	}
	return st
}

func (p *Parser) parseFor() ast.Stmt {
	pos := p.posTok(p.advance())
	target := p.parseTargetList()
	p.checkAssignTarget(target)
	p.expect(token.KwIn, diag.SynUnexpectedToken, "invalid syntax")
	st := &ast.For{Pos: pos, Target: target, Iter: p.parseStarExpressions()}
	p.loops++
	st.Body = p.parseBlock("'for' statement", pos.Line)
	p.loops--
	if p.at(token.KwElse) {
		elseTok := p.advance()
		st.OrElse = p.parseBlock("'else' statement", p.posTok(elseTok).Line)
	}
	return st
}

// parseTargetList parses the target of a for statement or comprehension,
// stopping before `in`.
func (p *Parser) parseTargetList() ast.Expr {
	start := p.posTok(p.peek())
	first := p.parseStarOr(p.parseBitOr)
	if !p.at(token.Comma) {
		return first
	}
	elts := []ast.Expr{first}
	for p.eat(token.Comma) {
		if p.at(token.KwIn) {
			break
		}
		elts = append(elts, p.parseStarOr(p.parseBitOr))
	}
	return &ast.Tuple{Pos: p.cover(start), Elts: elts}
}

func (p *Parser) parseTry() ast.Stmt {
	pos := p.posTok(p.advance())
	st := &ast.Try{Pos: pos}
	st.Body = p.parseBlock("'try' statement", pos.Line)
	for p.at(token.KwExcept) {
		exTok := p.advance()
		h := ast.ExceptHandler{Pos: p.posTok(exTok)}
		if p.at(token.Star) {
			p.fail(diag.SynUnsupported, "'except*' is not supported")
		}
		if !p.at(token.Colon) {
			h.Type = p.parseTest()
			if p.at(token.Comma) {
				p.fail(diag.SynUnexpectedToken, "multiple exception types must be parenthesized")
			}
			if p.eat(token.KwAs) {
				h.Name = p.expectName()
			}
		}
		h.Body = p.parseBlock("'except' statement", h.Line)
		st.Handlers = append(st.Handlers, h)
	}
	if p.at(token.KwElse) {
		if len(st.Handlers) == 0 {
			p.fail(diag.SynUnexpectedToken, "expected 'except' or 'finally' block")
		}
		elseTok := p.advance()
		st.OrElse = p.parseBlock("'else' statement", p.posTok(elseTok).Line)
	}
	if p.at(token.KwFinally) {
		finTok := p.advance()
		st.Finally = p.parseBlock("'finally' statement", p.posTok(finTok).Line)
	}
	if len(st.Handlers) == 0 && st.Finally == nil {
		p.fail(diag.SynUnexpectedToken, "expected 'except' or 'finally' block")
	}
	return st
}

func (p *Parser) parseDecorated() ast.Stmt {
	start := p.posTok(p.peek())
	var decorators []ast.Expr
	for p.eat(token.At) {
		decorators = append(decorators, p.parseNamedExpr())
		p.expect(token.Newline, diag.SynExpectNewline, "invalid syntax")
	}
	switch p.peek().Kind {
	case token.KwDef:
		return p.parseFunctionDef(decorators, start)
	case token.KwClass:
		return p.parseClassDef(decorators, start)
	}
	p.fail(diag.SynUnexpectedToken, "invalid syntax")
	return nil
}

func (p *Parser) parseFunctionDef(decorators []ast.Expr, start ast.Pos) ast.Stmt {
	defTok := p.advance()
	name := p.expectName()
	p.expect(token.LParen, diag.SynUnexpectedToken, "expected '('")
	p.openBracket()
	params := p.parseParams(token.RParen, true)
	p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
	if p.eat(token.Arrow) {
		p.parseTest()
	}

	loops := p.loops
	p.loops = 0
	p.funcs++
	body := p.parseBlock("function definition", p.posTok(defTok).Line)
	p.funcs--
	p.loops = loops

	return &ast.FunctionDef{
		Pos:        ast.Pos{Span: start.Span.Cover(defTok.Span), Line: start.Line},
		Name:       name,
		Params:     params,
		Body:       body,
		Decorators: decorators,
		Doc:        isDocstring(body),
	}
}

func (p *Parser) parseClassDef(decorators []ast.Expr, start ast.Pos) ast.Stmt {
	classTok := p.advance()
	st := &ast.ClassDef{Name: p.expectName(), Decorators: decorators}
	if p.eat(token.LParen) {
		p.openBracket()
		for !p.at(token.RParen) {
			if p.at(token.Ident) {
				// keyword arguments such as metaclass=
				tok := p.peek()
				base := p.parseTest()
				if p.at(token.Assign) {
					p.failAt(diag.SynUnsupported, tok.Span, "class keyword arguments are not supported")
				}
				st.Bases = append(st.Bases, base)
			} else {
				st.Bases = append(st.Bases, p.parseTest())
			}
			if !p.eat(token.Comma) {
				break
			}
		}
		p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
	}

	loops := p.loops
	p.loops = 0
	st.Body = p.parseBlock("class definition", p.posTok(classTok).Line)
	p.loops = loops

	st.Pos = ast.Pos{Span: start.Span.Cover(classTok.Span), Line: start.Line}
	st.Doc = isDocstring(st.Body)
	return st
}

// parseParams parses a parameter list up to (not including) closer.
// Annotations are accepted and dropped when annotated is set.
func (p *Parser) parseParams(closer token.Kind, annotated bool) *ast.Params {
	params := &ast.Params{}
	seen := map[string]bool{}
	kwOnly := false
	sawDefault := false
	sawVarKw := false

	add := func(prm ast.Param) {
		if seen[prm.Name] {
			p.failAt(diag.SynBadParameters, prm.Span, "duplicate argument '"+prm.Name+"' in function definition")
		}
		if sawVarKw {
			p.failAt(diag.SynBadParameters, prm.Span, "arguments cannot follow var-keyword argument")
		}
		seen[prm.Name] = true
		params.List = append(params.List, prm)
	}
	annotation := func() {
		if annotated && p.eat(token.Colon) {
			p.parseTest()
		}
	}

	for !p.at(closer) {
		tok := p.peek()
		switch tok.Kind {
		case token.Slash:
			p.advance()
		case token.StarStar:
			p.advance()
			nameTok := p.expect(token.Ident, diag.SynExpectIdentifier, "invalid syntax")
			annotation()
			add(ast.Param{Pos: p.posTok(nameTok), Name: nameTok.Text, Kind: ast.ParamVarKw})
			sawVarKw = true
		case token.Star:
			p.advance()
			if kwOnly {
				p.failAt(diag.SynBadParameters, tok.Span, "* argument may appear only once")
			}
			kwOnly = true
			if p.at(token.Ident) {
				nameTok := p.advance()
				annotation()
				add(ast.Param{Pos: p.posTok(nameTok), Name: nameTok.Text, Kind: ast.ParamVarArgs})
			} else if p.at(closer) {
				p.failAt(diag.SynBadParameters, tok.Span, "named arguments must follow bare *")
			}
		default:
			nameTok := p.expect(token.Ident, diag.SynExpectIdentifier, "invalid syntax")
			annotation()
			prm := ast.Param{Pos: p.posTok(nameTok), Name: nameTok.Text, Kind: ast.ParamPositional}
			if kwOnly {
				prm.Kind = ast.ParamKwOnly
			}
			if p.eat(token.Assign) {
				prm.Default = p.parseTest()
				if !kwOnly {
					sawDefault = true
				}
			} else if sawDefault && !kwOnly {
				p.failAt(diag.SynBadParameters, nameTok.Span, "parameter without a default follows parameter with a default")
			}
			add(prm)
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	return params
}
