package parser

import (
	"math"
	"strconv"
	"strings"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/token"
)

func (p *Parser) parseAtom() ast.Expr {
	tok := p.peek()
	pos := p.posTok(tok)
	switch tok.Kind {
	case token.Ident:
		p.advance()
		return &ast.Name{Pos: pos, ID: tok.Text}
	case token.KwTrue, token.KwFalse:
		p.advance()
		return &ast.BoolLit{Pos: pos, Value: tok.Kind == token.KwTrue}
	case token.KwNone:
		p.advance()
		return &ast.NoneLit{Pos: pos}
	case token.Ellipsis:
		p.advance()
		return &ast.EllipsisLit{Pos: pos}
	case token.IntLit:
		p.advance()
		return p.intLiteral(tok, pos)
	case token.FloatLit:
		p.advance()
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, "_", ""), 64)
		if err != nil && !math.IsInf(v, 0) {
			p.failAt(diag.LexBadNumber, tok.Span, "invalid float literal")
		}
		return &ast.FloatLit{Pos: pos, Value: v}
	case token.StringLit, token.FStringLit:
		return p.parseStrings()
	case token.LParen:
		return p.parseParenthesized()
	case token.LBracket:
		return p.parseListDisplay()
	case token.LBrace:
		return p.parseBraceDisplay()
	case token.KwYield:
		p.fail(diag.SynUnsupported, "generators are not supported")
	case token.KwAwait:
		p.fail(diag.SynUnsupported, "async code is not supported")
	case token.Indent:
		p.fail(diag.LexBadIndent, "unexpected indent")
	case token.Newline, token.EOF:
		if p.parens > 0 {
			p.fail(diag.SynUnclosedParen, "unexpected EOF while parsing")
		}
	}
	p.fail(diag.SynUnexpectedToken, "invalid syntax")
	return nil
}

func (p *Parser) intLiteral(tok token.Token, pos ast.Pos) ast.Expr {
	text := strings.ReplaceAll(tok.Text, "_", "")
	base := 10
	if len(text) > 1 && text[0] == '0' {
		switch text[1] {
		case 'x', 'X':
			base, text = 16, text[2:]
		case 'o', 'O':
			base, text = 8, text[2:]
		case 'b', 'B':
			base, text = 2, text[2:]
		}
	}
	v, err := strconv.ParseInt(text, base, 64)
	if err != nil {
		p.failAt(diag.LexBadNumber, tok.Span, "integer literal too large")
	}
	return &ast.IntLit{Pos: pos, Value: v}
}

// parseParenthesized handles (), (x), (x,), (x, y) and generator expressions.
func (p *Parser) parseParenthesized() ast.Expr {
	pos := p.posTok(p.advance())
	p.openBracket()
	if p.at(token.RParen) {
		p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
		return &ast.Tuple{Pos: p.cover(pos)}
	}
	first := p.parseStarOr(p.parseNamedExpr)
	if p.at(token.KwFor) {
		gen := p.parseComprehension(ast.GenExp, pos, first, nil)
		p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
		return gen
	}
	if !p.at(token.Comma) {
		p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
		if _, ok := first.(*ast.Starred); ok {
			p.failAt(diag.SynUnexpectedToken, first.Position().Span, "cannot use starred expression here")
		}
		return first
	}
	elts := []ast.Expr{first}
	for p.eat(token.Comma) {
		if p.at(token.RParen) {
			break
		}
		elts = append(elts, p.parseStarOr(p.parseNamedExpr))
	}
	p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
	return &ast.Tuple{Pos: p.cover(pos), Elts: elts}
}

func (p *Parser) parseListDisplay() ast.Expr {
	pos := p.posTok(p.advance())
	p.openBracket()
	var elts []ast.Expr
	if !p.at(token.RBracket) {
		first := p.parseStarOr(p.parseNamedExpr)
		if p.at(token.KwFor) {
			comp := p.parseComprehension(ast.ListComp, pos, first, nil)
			p.closeBracket(token.RBracket, diag.SynUnclosedBracket, "'[' was never closed")
			return comp
		}
		elts = append(elts, first)
		for p.eat(token.Comma) {
			if p.at(token.RBracket) {
				break
			}
			elts = append(elts, p.parseStarOr(p.parseNamedExpr))
		}
	}
	p.closeBracket(token.RBracket, diag.SynUnclosedBracket, "'[' was never closed")
	return &ast.List{Pos: p.cover(pos), Elts: elts}
}

// parseBraceDisplay handles dict and set displays and their comprehensions.
func (p *Parser) parseBraceDisplay() ast.Expr {
	pos := p.posTok(p.advance())
	p.openBracket()
	closeBrace := func() {
		p.closeBracket(token.RBrace, diag.SynUnclosedBrace, "'{' was never closed")
	}
	if p.at(token.RBrace) {
		closeBrace()
		return &ast.Dict{Pos: p.cover(pos)}
	}

	if p.at(token.StarStar) {
		return p.parseDictRest(pos, closeBrace)
	}
	first := p.parseStarOr(p.parseNamedExpr)
	if _, starred := first.(*ast.Starred); !starred && p.at(token.Colon) {
		p.advance()
		value := p.parseTest()
		if p.at(token.KwFor) {
			comp := p.parseComprehension(ast.DictComp, pos, first, value)
			closeBrace()
			return comp
		}
		d := &ast.Dict{Keys: []ast.Expr{first}, Values: []ast.Expr{value}}
		if p.eat(token.Comma) {
			rest := p.parseDictRest(pos, closeBrace).(*ast.Dict)
			d.Keys = append(d.Keys, rest.Keys...)
			d.Values = append(d.Values, rest.Values...)
		} else {
			closeBrace()
		}
		d.Pos = p.cover(pos)
		return d
	}

	if p.at(token.KwFor) {
		comp := p.parseComprehension(ast.SetComp, pos, first, nil)
		closeBrace()
		return comp
	}
	elts := []ast.Expr{first}
	for p.eat(token.Comma) {
		if p.at(token.RBrace) {
			break
		}
		elts = append(elts, p.parseStarOr(p.parseNamedExpr))
	}
	closeBrace()
	return &ast.Set{Pos: p.cover(pos), Elts: elts}
}

// parseDictRest parses remaining `key: value` or `**mapping` items and the closing brace.
func (p *Parser) parseDictRest(pos ast.Pos, closeBrace func()) ast.Expr {
	d := &ast.Dict{}
	for !p.at(token.RBrace) {
		if p.eat(token.StarStar) {
			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, p.parseBitOr())
		} else {
			key := p.parseTest()
			p.expect(token.Colon, diag.SynExpectColon, "':' expected after dictionary key")
			d.Keys = append(d.Keys, key)
			d.Values = append(d.Values, p.parseTest())
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	closeBrace()
	d.Pos = p.cover(pos)
	return d
}

// parseComprehension parses one or more `for ... in ... [if ...]` clauses
// following elt (and value for dict comprehensions).
func (p *Parser) parseComprehension(kind ast.CompKind, pos ast.Pos, elt, value ast.Expr) ast.Expr {
	if _, ok := elt.(*ast.Starred); ok {
		p.failAt(diag.SynUnexpectedToken, elt.Position().Span, "iterable unpacking cannot be used in comprehension")
	}
	comp := &ast.Comp{Kind: kind, Elt: elt, Value: value}
	for p.at(token.KwFor) {
		p.advance()
		target := p.parseTargetList()
		p.checkAssignTarget(target)
		p.expect(token.KwIn, diag.SynUnexpectedToken, "invalid syntax")
		gen := ast.Comprehension{Target: target, Iter: p.parseOr()}
		for p.at(token.KwIf) {
			p.advance()
			gen.Ifs = append(gen.Ifs, p.parseTestNoCond())
		}
		comp.Generators = append(comp.Generators, gen)
	}
	comp.Pos = p.cover(pos)
	return comp
}
