package ast

// Inspect traverses the tree in depth-first order. When f returns false the
// children of that node are skipped. Nil expressions are not visited.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	exprs := func(xs []Expr) {
		for _, x := range xs {
			if x != nil {
				Inspect(x, f)
			}
		}
	}
	stmts := func(ss []Stmt) {
		for _, s := range ss {
			Inspect(s, f)
		}
	}
	opt := func(x Expr) {
		if x != nil {
			Inspect(x, f)
		}
	}
	params := func(p *Params) {
		if p == nil {
			return
		}
		for _, prm := range p.List {
			opt(prm.Default)
		}
	}

	switch n := n.(type) {
	case *Module:
		stmts(n.Body)
	case *FString:
		for _, part := range n.Parts {
			opt(part.Expr)
			if part.Spec != nil {
				Inspect(part.Spec, f)
			}
		}
	case *List:
		exprs(n.Elts)
	case *Tuple:
		exprs(n.Elts)
	case *Set:
		exprs(n.Elts)
	case *Dict:
		exprs(n.Keys)
		exprs(n.Values)
	case *BinOp:
		opt(n.Left)
		opt(n.Right)
	case *UnaryOp:
		opt(n.Operand)
	case *BoolOp:
		exprs(n.Values)
	case *Compare:
		opt(n.Left)
		exprs(n.Comparators)
	case *IfExp:
		opt(n.Test)
		opt(n.Body)
		opt(n.OrElse)
	case *Lambda:
		params(n.Params)
		opt(n.Body)
	case *Call:
		opt(n.Func)
		exprs(n.Args)
		for _, kw := range n.Keywords {
			opt(kw.Value)
		}
	case *Attribute:
		opt(n.Value)
	case *Subscript:
		opt(n.Value)
		opt(n.Index)
	case *Slice:
		opt(n.Lower)
		opt(n.Upper)
		opt(n.Step)
	case *Starred:
		opt(n.Value)
	case *NamedExpr:
		Inspect(n.Target, f)
		opt(n.Value)
	case *Comp:
		for _, g := range n.Generators {
			opt(g.Target)
			opt(g.Iter)
			exprs(g.Ifs)
		}
		opt(n.Elt)
		opt(n.Value)
	case *ExprStmt:
		opt(n.Value)
	case *Assign:
		exprs(n.Targets)
		opt(n.Value)
	case *AugAssign:
		opt(n.Target)
		opt(n.Value)
	case *AnnAssign:
		opt(n.Target)
		opt(n.Value)
	case *If:
		opt(n.Test)
		stmts(n.Body)
		stmts(n.OrElse)
	case *While:
		opt(n.Test)
		stmts(n.Body)
		stmts(n.OrElse)
	case *For:
		opt(n.Target)
		opt(n.Iter)
		stmts(n.Body)
		stmts(n.OrElse)
	case *Return:
		opt(n.Value)
	case *FunctionDef:
		exprs(n.Decorators)
		params(n.Params)
		stmts(n.Body)
	case *ClassDef:
		exprs(n.Decorators)
		exprs(n.Bases)
		stmts(n.Body)
	case *Try:
		stmts(n.Body)
		for i := range n.Handlers {
			opt(n.Handlers[i].Type)
			stmts(n.Handlers[i].Body)
		}
		stmts(n.OrElse)
		stmts(n.Finally)
	case *Raise:
		opt(n.Exc)
		opt(n.Cause)
	case *Assert:
		opt(n.Test)
		opt(n.Msg)
	case *Delete:
		exprs(n.Targets)
	}
}
