package parser

import (
	"pytrace/internal/ast"
	"pytrace/internal/diag"
)

// checkAssignTarget validates the left-hand side of an assignment.
func (p *Parser) checkAssignTarget(e ast.Expr) {
	switch t := e.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
	case *ast.Tuple:
		p.checkTargetElts(t.Elts)
	case *ast.List:
		p.checkTargetElts(t.Elts)
	case *ast.Starred:
		p.failAt(diag.SynBadAssignTarget, t.Span, "starred assignment target must be in a list or tuple")
	default:
		p.failAt(diag.SynBadAssignTarget, e.Position().Span, "cannot assign to "+describe(e))
	}
}

func (p *Parser) checkTargetElts(elts []ast.Expr) {
	starred := 0
	for _, elt := range elts {
		if s, ok := elt.(*ast.Starred); ok {
			starred++
			if starred > 1 {
				p.failAt(diag.SynBadAssignTarget, s.Span, "multiple starred expressions in assignment")
			}
			p.checkAssignTarget(s.Value)
			continue
		}
		p.checkAssignTarget(elt)
	}
}

func (p *Parser) checkDelTarget(e ast.Expr) {
	switch t := e.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
	case *ast.Tuple:
		for _, elt := range t.Elts {
			p.checkDelTarget(elt)
		}
	case *ast.List:
		for _, elt := range t.Elts {
			p.checkDelTarget(elt)
		}
	default:
		p.failAt(diag.SynBadAssignTarget, e.Position().Span, "cannot delete "+describe(e))
	}
}

// describe names an expression the way syntax errors refer to it.
func describe(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StrLit, *ast.EllipsisLit:
		return "literal"
	case *ast.BoolLit:
		if t.Value {
			return "True"
		}
		return "False"
	case *ast.NoneLit:
		return "None"
	case *ast.FString:
		return "f-string expression"
	case *ast.Call:
		return "function call"
	case *ast.Compare:
		return "comparison"
	case *ast.Lambda:
		return "lambda"
	case *ast.IfExp:
		return "conditional expression"
	case *ast.NamedExpr:
		return "named expression"
	case *ast.Dict:
		return "dict literal"
	case *ast.Set:
		return "set display"
	case *ast.Tuple:
		return "tuple"
	case *ast.List:
		return "list"
	case *ast.Comp:
		switch t.Kind {
		case ast.ListComp:
			return "list comprehension"
		case ast.SetComp:
			return "set comprehension"
		case ast.DictComp:
			return "dict comprehension"
		}
		return "generator expression"
	case *ast.Attribute:
		return "attribute"
	case *ast.Subscript:
		return "subscript"
	case *ast.Name:
		return "name"
	}
	return "expression"
}
