package parser

import (
	"testing"

	"pytrace/internal/ast"
	"pytrace/internal/token"
)

func TestPrecedence(t *testing.T) {
	e := parseExprSource(t, "1 + 2 * 3 ** -2")
	add, ok := e.(*ast.BinOp)
	if !ok || add.Op != token.Plus {
		t.Fatalf("top = %#v", e)
	}
	mul := add.Right.(*ast.BinOp)
	if mul.Op != token.Star {
		t.Fatalf("right op = %v", mul.Op)
	}
	pow := mul.Right.(*ast.BinOp)
	if pow.Op != token.StarStar {
		t.Fatalf("power op = %v", pow.Op)
	}
	if neg, ok := pow.Right.(*ast.UnaryOp); !ok || neg.Op != token.Minus {
		t.Fatalf("exponent = %#v", pow.Right)
	}
}

func TestUnaryMinusBindsLooserThanPower(t *testing.T) {
	e := parseExprSource(t, "-2 ** 2")
	neg, ok := e.(*ast.UnaryOp)
	if !ok || neg.Op != token.Minus {
		t.Fatalf("expected unary minus at the top, got %#v", e)
	}
}

func TestChainedComparison(t *testing.T) {
	e := parseExprSource(t, "a < b <= c not in d is not e")
	cmp := e.(*ast.Compare)
	want := []ast.CmpOp{ast.CmpLt, ast.CmpLtE, ast.CmpNotIn, ast.CmpIsNot}
	if len(cmp.Ops) != len(want) {
		t.Fatalf("ops = %v", cmp.Ops)
	}
	for i := range want {
		if cmp.Ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", cmp.Ops, want)
		}
	}
}

func TestBoolOpsAndConditional(t *testing.T) {
	e := parseExprSource(t, "x if a and b or not c else y")
	ifexp := e.(*ast.IfExp)
	or := ifexp.Test.(*ast.BoolOp)
	if or.Op != token.KwOr || len(or.Values) != 2 {
		t.Fatalf("test = %#v", ifexp.Test)
	}
	if and := or.Values[0].(*ast.BoolOp); and.Op != token.KwAnd {
		t.Fatalf("left = %#v", or.Values[0])
	}
}

func TestDisplaysAndComprehensions(t *testing.T) {
	tests := []struct {
		src  string
		kind any
	}{
		{"[]", &ast.List{}},
		{"[1, *rest]", &ast.List{}},
		{"()", &ast.Tuple{}},
		{"(1,)", &ast.Tuple{}},
		{"{}", &ast.Dict{}},
		{"{'a': 1, **more}", &ast.Dict{}},
		{"{1, 2}", &ast.Set{}},
		{"[x * 2 for x in xs if x]", &ast.Comp{}},
		{"{k: v for k, v in pairs}", &ast.Comp{}},
		{"(x for x in xs)", &ast.Comp{}},
		{"lambda a, b=1: a + b", &ast.Lambda{}},
		{"xs[1:2]", &ast.Subscript{}},
		{"obj.attr.method(1, *args, key=2, **kw)", &ast.Call{}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e := parseExprSource(t, tt.src)
			switch tt.kind.(type) {
			case *ast.List:
				_, ok := e.(*ast.List)
				assertKind(t, ok, e)
			case *ast.Tuple:
				_, ok := e.(*ast.Tuple)
				assertKind(t, ok, e)
			case *ast.Dict:
				_, ok := e.(*ast.Dict)
				assertKind(t, ok, e)
			case *ast.Set:
				_, ok := e.(*ast.Set)
				assertKind(t, ok, e)
			case *ast.Comp:
				_, ok := e.(*ast.Comp)
				assertKind(t, ok, e)
			case *ast.Lambda:
				_, ok := e.(*ast.Lambda)
				assertKind(t, ok, e)
			case *ast.Subscript:
				_, ok := e.(*ast.Subscript)
				assertKind(t, ok, e)
			case *ast.Call:
				_, ok := e.(*ast.Call)
				assertKind(t, ok, e)
			}
		})
	}
}

func assertKind(t *testing.T, ok bool, e ast.Expr) {
	t.Helper()
	if !ok {
		t.Fatalf("unexpected node %T", e)
	}
}

func TestSliceParts(t *testing.T) {
	sub := parseExprSource(t, "xs[::-1]").(*ast.Subscript)
	sl := sub.Index.(*ast.Slice)
	if sl.Lower != nil || sl.Upper != nil || sl.Step == nil {
		t.Fatalf("slice = %#v", sl)
	}
}

func TestGeneratorArgument(t *testing.T) {
	call := parseExprSource(t, "sum(x * x for x in range(4))").(*ast.Call)
	comp, ok := call.Args[0].(*ast.Comp)
	if !ok || comp.Kind != ast.GenExp {
		t.Fatalf("arg = %#v", call.Args[0])
	}
}

func TestSeveralKeywordArguments(t *testing.T) {
	tests := []struct {
		src   string
		args  int
		names []string
	}{
		{"print(1, 2, sep='-', end='!')", 2, []string{"sep", "end"}},
		{"sorted(xs, key=f, reverse=True,)", 1, []string{"key", "reverse"}},
		{"dict(a=1, b=2, **rest)", 0, []string{"a", "b", ""}},
		{"g(*args, a=1, b=2)", 1, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			call, ok := parseExprSource(t, tt.src).(*ast.Call)
			if !ok {
				t.Fatalf("not a call")
			}
			if len(call.Args) != tt.args {
				t.Fatalf("args = %d, want %d", len(call.Args), tt.args)
			}
			if len(call.Keywords) != len(tt.names) {
				t.Fatalf("keywords = %#v", call.Keywords)
			}
			for i, name := range tt.names {
				if call.Keywords[i].Name != name {
					t.Fatalf("keyword %d = %q, want %q", i, call.Keywords[i].Name, name)
				}
			}
		})
	}
}

func TestWalrus(t *testing.T) {
	mod := parseSource(t, "while (n := n - 1) > 0:\n    pass\n")
	w := mod.Body[0].(*ast.While)
	cmp := w.Test.(*ast.Compare)
	if _, ok := cmp.Left.(*ast.NamedExpr); !ok {
		t.Fatalf("left = %#v", cmp.Left)
	}
}

func TestMultilineExpressionKeepsStartLine(t *testing.T) {
	mod := parseSource(t, "total = (1 +\n         2 +\n         3)\nprint(total)\n")
	if mod.Body[1].Position().Line != 4 {
		t.Fatalf("print line = %d", mod.Body[1].Position().Line)
	}
	if mod.Body[0].Position().Line != 1 {
		t.Fatalf("assignment line = %d", mod.Body[0].Position().Line)
	}
}

func TestNumberLiterals(t *testing.T) {
	if v := parseExprSource(t, "0x_ff").(*ast.IntLit).Value; v != 255 {
		t.Fatalf("0x_ff = %d", v)
	}
	if v := parseExprSource(t, "1_000").(*ast.IntLit).Value; v != 1000 {
		t.Fatalf("1_000 = %d", v)
	}
	if v := parseExprSource(t, "2.5e-3").(*ast.FloatLit).Value; v != 0.0025 {
		t.Fatalf("2.5e-3 = %v", v)
	}
}
