package parser

import (
	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/token"
)

// parseStarExpressions parses `expr (',' expr)* [',']`, building a tuple
// when a comma is present. Starred items are allowed.
func (p *Parser) parseStarExpressions() ast.Expr {
	start := p.posTok(p.peek())
	first := p.parseStarOr(p.parseTest)
	if !p.at(token.Comma) {
		if _, ok := first.(*ast.Starred); ok {
			p.failAt(diag.SynUnexpectedToken, first.Position().Span, "can't use starred expression here")
		}
		return first
	}
	elts := []ast.Expr{first}
	for p.eat(token.Comma) {
		if p.atExpressionEnd() {
			break
		}
		elts = append(elts, p.parseStarOr(p.parseTest))
	}
	return &ast.Tuple{Pos: p.cover(start), Elts: elts}
}

// atExpressionEnd reports whether no further expression can start here.
func (p *Parser) atExpressionEnd() bool {
	switch p.peek().Kind {
	case token.Newline, token.EOF, token.Semicolon, token.Assign, token.Colon,
		token.RParen, token.RBracket, token.RBrace, token.KwIn:
		return true
	}
	_, aug := p.peek().Kind.AugmentedOp()
	return aug
}

func (p *Parser) parseStarOr(next func() ast.Expr) ast.Expr {
	if p.at(token.Star) {
		pos := p.posTok(p.advance())
		value := p.parseBitOr()
		return &ast.Starred{Pos: p.cover(pos), Value: value}
	}
	return next()
}

// parseNamedExpr parses `NAME ':=' test | test`.
func (p *Parser) parseNamedExpr() ast.Expr {
	start := p.posTok(p.peek())
	e := p.parseTest()
	if p.at(token.Walrus) {
		name, ok := e.(*ast.Name)
		if !ok {
			p.failAt(diag.SynBadAssignTarget, e.Position().Span, "cannot use assignment expressions with "+describe(e))
		}
		p.advance()
		value := p.parseTest()
		return &ast.NamedExpr{Pos: p.cover(start), Target: name, Value: value}
	}
	return e
}

// parseTest parses a full expression: lambda or conditional expression.
func (p *Parser) parseTest() ast.Expr {
	p.enter()
	defer p.leave()
	if p.at(token.KwLambda) {
		return p.parseLambda()
	}
	start := p.posTok(p.peek())
	body := p.parseOr()
	if !p.at(token.KwIf) {
		return body
	}
	p.advance()
	test := p.parseOr()
	p.expect(token.KwElse, diag.SynUnexpectedToken, "expected 'else' after 'if' expression")
	orElse := p.parseTest()
	return &ast.IfExp{Pos: p.cover(start), Test: test, Body: body, OrElse: orElse}
}

// parseTestNoCond parses an expression without a trailing conditional,
// used for comprehension conditions.
func (p *Parser) parseTestNoCond() ast.Expr {
	if p.at(token.KwLambda) {
		return p.parseLambda()
	}
	return p.parseOr()
}

func (p *Parser) parseLambda() ast.Expr {
	pos := p.posTok(p.advance())
	params := p.parseParams(token.Colon, false)
	p.expect(token.Colon, diag.SynExpectColon, "expected ':'")
	funcs, loops := p.funcs, p.loops
	p.funcs, p.loops = 1, 0
	body := p.parseTest()
	p.funcs, p.loops = funcs, loops
	return &ast.Lambda{Pos: p.cover(pos), Params: params, Body: body}
}

func (p *Parser) parseOr() ast.Expr {
	return p.parseBoolChain(token.KwOr, p.parseAnd)
}

func (p *Parser) parseAnd() ast.Expr {
	return p.parseBoolChain(token.KwAnd, p.parseNot)
}

func (p *Parser) parseBoolChain(op token.Kind, next func() ast.Expr) ast.Expr {
	start := p.posTok(p.peek())
	first := next()
	if !p.at(op) {
		return first
	}
	values := []ast.Expr{first}
	for p.eat(op) {
		values = append(values, next())
	}
	return &ast.BoolOp{Pos: p.cover(start), Op: op, Values: values}
}

func (p *Parser) parseNot() ast.Expr {
	if p.at(token.KwNot) {
		p.enter()
		defer p.leave()
		pos := p.posTok(p.advance())
		operand := p.parseNot()
		return &ast.UnaryOp{Pos: p.cover(pos), Op: token.KwNot, Operand: operand}
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() ast.Expr {
	start := p.posTok(p.peek())
	left := p.parseBitOr()
	var (
		ops   []ast.CmpOp
		comps []ast.Expr
	)
	for {
		op, ok := p.parseCmpOp()
		if !ok {
			break
		}
		ops = append(ops, op)
		comps = append(comps, p.parseBitOr())
	}
	if len(ops) == 0 {
		return left
	}
	return &ast.Compare{Pos: p.cover(start), Left: left, Ops: ops, Comparators: comps}
}

func (p *Parser) parseCmpOp() (ast.CmpOp, bool) {
	switch p.peek().Kind {
	case token.EqEq:
		p.advance()
		return ast.CmpEq, true
	case token.BangEq:
		p.advance()
		return ast.CmpNotEq, true
	case token.Lt:
		p.advance()
		return ast.CmpLt, true
	case token.LtEq:
		p.advance()
		return ast.CmpLtE, true
	case token.Gt:
		p.advance()
		return ast.CmpGt, true
	case token.GtEq:
		p.advance()
		return ast.CmpGtE, true
	case token.KwIn:
		p.advance()
		return ast.CmpIn, true
	case token.KwIs:
		p.advance()
		if p.eat(token.KwNot) {
			return ast.CmpIsNot, true
		}
		return ast.CmpIs, true
	case token.KwNot:
		p.advance()
		p.expect(token.KwIn, diag.SynUnexpectedToken, "invalid syntax")
		return ast.CmpNotIn, true
	}
	return 0, false
}

// binary operator levels, loosest first
var binaryLevels = [][]token.Kind{
	{token.Pipe},
	{token.Caret},
	{token.Amp},
	{token.Shl, token.Shr},
	{token.Plus, token.Minus},
	{token.Star, token.Slash, token.SlashSlash, token.Percent, token.At},
}

func (p *Parser) parseBitOr() ast.Expr {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(level int) ast.Expr {
	if level == len(binaryLevels) {
		return p.parseFactor()
	}
	start := p.posTok(p.peek())
	left := p.parseBinary(level + 1)
	for {
		kind := p.peek().Kind
		matched := false
		for _, k := range binaryLevels[level] {
			if k == kind {
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
		p.advance()
		right := p.parseBinary(level + 1)
		left = &ast.BinOp{Pos: p.cover(start), Op: kind, Left: left, Right: right}
	}
}

// parseFactor parses unary + - ~ and the right-associative power operator.
func (p *Parser) parseFactor() ast.Expr {
	switch k := p.peek().Kind; k {
	case token.Plus, token.Minus, token.Tilde:
		p.enter()
		defer p.leave()
		pos := p.posTok(p.advance())
		operand := p.parseFactor()
		return &ast.UnaryOp{Pos: p.cover(pos), Op: k, Operand: operand}
	}
	start := p.posTok(p.peek())
	base := p.parsePrimary()
	if p.eat(token.StarStar) {
		exp := p.parseFactor()
		return &ast.BinOp{Pos: p.cover(start), Op: token.StarStar, Left: base, Right: exp}
	}
	return base
}

// parsePrimary parses an atom followed by calls, subscripts and attribute access.
func (p *Parser) parsePrimary() ast.Expr {
	start := p.posTok(p.peek())
	e := p.parseAtom()
	for {
		switch p.peek().Kind {
		case token.Dot:
			p.advance()
			attr := p.expectName()
			e = &ast.Attribute{Pos: p.cover(start), Value: e, Attr: attr}
		case token.LParen:
			p.advance()
			p.openBracket()
			args, kws := p.parseCallArgs()
			p.closeBracket(token.RParen, diag.SynUnclosedParen, "'(' was never closed")
			e = &ast.Call{Pos: p.cover(start), Func: e, Args: args, Keywords: kws}
		case token.LBracket:
			p.advance()
			p.openBracket()
			index := p.parseSubscript()
			p.closeBracket(token.RBracket, diag.SynUnclosedBracket, "'[' was never closed")
			e = &ast.Subscript{Pos: p.cover(start), Value: e, Index: index}
		default:
			return e
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.Expr, []ast.Keyword) {
	var (
		args     []ast.Expr
		kws      []ast.Keyword
		seenKw   bool
		seenKwKw bool
	)
	for !p.at(token.RParen) {
		switch {
		case p.at(token.StarStar):
			p.advance()
			kws = append(kws, ast.Keyword{Value: p.parseTest()})
			seenKwKw = true
		case p.at(token.Star):
			pos := p.posTok(p.advance())
			value := p.parseTest()
			if seenKwKw {
				p.failAt(diag.SynBadArguments, pos.Span, "iterable argument unpacking follows keyword argument unpacking")
			}
			args = append(args, &ast.Starred{Pos: p.cover(pos), Value: value})
		default:
			start := p.posTok(p.peek())
			e := p.parseNamedExpr()
			if p.at(token.Assign) {
				name, ok := e.(*ast.Name)
				if !ok {
					p.failAt(diag.SynBadArguments, e.Position().Span, `expression cannot contain assignment, perhaps you meant "=="?`)
				}
				p.advance()
				for _, kw := range kws {
					if kw.Name == name.ID {
						p.failAt(diag.SynBadArguments, name.Span, "keyword argument repeated: "+name.ID)
					}
				}
				kws = append(kws, ast.Keyword{Name: name.ID, Value: p.parseTest()})
				seenKw = true
				break
			}
			if p.at(token.KwFor) {
				gen := p.parseComprehension(ast.GenExp, start, e, nil)
				args = append(args, gen)
				if len(args) > 1 || len(kws) > 0 || p.at(token.Comma) {
					p.failAt(diag.SynBadArguments, gen.Position().Span, "Generator expression must be parenthesized")
				}
				break
			}
			if seenKw || seenKwKw {
				p.failAt(diag.SynBadArguments, e.Position().Span, "positional argument follows keyword argument")
			}
			args = append(args, e)
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	return args, kws
}

// parseSubscript parses an index, a slice or a tuple of them.
func (p *Parser) parseSubscript() ast.Expr {
	start := p.posTok(p.peek())
	first := p.parseSliceItem()
	if !p.at(token.Comma) {
		return first
	}
	elts := []ast.Expr{first}
	for p.eat(token.Comma) {
		if p.at(token.RBracket) {
			break
		}
		elts = append(elts, p.parseSliceItem())
	}
	return &ast.Tuple{Pos: p.cover(start), Elts: elts}
}

func (p *Parser) parseSliceItem() ast.Expr {
	start := p.posTok(p.peek())
	var lower ast.Expr
	if !p.at(token.Colon) {
		lower = p.parseNamedExpr()
		if !p.at(token.Colon) {
			return lower
		}
	}
	p.advance()
	s := &ast.Slice{Pos: start, Lower: lower}
	if !p.atAny(token.Colon, token.Comma, token.RBracket) {
		s.Upper = p.parseTest()
	}
	if p.eat(token.Colon) && !p.atAny(token.Comma, token.RBracket) {
		s.Step = p.parseTest()
	}
	s.Pos = p.cover(start)
	return s
}
