package parser

import (
	"testing"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/token"
)

func TestStatementLines(t *testing.T) {
	src := `x = 1
print(x)
if x > 0:
    y = 2
elif x < 0:
    y = 3
else:
    y = 4
for i in range(3):
    pass
`
	mod := parseSource(t, src)
	if len(mod.Body) != 4 {
		t.Fatalf("expected 4 top-level statements, got %d", len(mod.Body))
	}
	wantLines := []int{1, 2, 3, 9}
	for i, st := range mod.Body {
		if got := st.Position().Line; got != wantLines[i] {
			t.Errorf("stmt %d line = %d, want %d", i, got, wantLines[i])
		}
	}
	ifStmt := mod.Body[2].(*ast.If)
	elif, ok := ifStmt.OrElse[0].(*ast.If)
	if !ok || !elif.Elif || elif.Line != 5 {
		t.Fatalf("expected elif on line 5, got %#v", ifStmt.OrElse[0])
	}
	if elif.OrElse[0].Position().Line != 8 {
		t.Fatalf("else body line = %d", elif.OrElse[0].Position().Line)
	}
}

func TestAssignmentForms(t *testing.T) {
	mod := parseSource(t, "a = b = 0\nx, *rest = items\nd[k] += 1\nn: int = 5\nm: str\n")
	assign := mod.Body[0].(*ast.Assign)
	if len(assign.Targets) != 2 {
		t.Fatalf("chained assignment targets = %d", len(assign.Targets))
	}
	unpack := mod.Body[1].(*ast.Assign)
	tuple := unpack.Targets[0].(*ast.Tuple)
	if _, ok := tuple.Elts[1].(*ast.Starred); !ok {
		t.Fatalf("expected starred target, got %T", tuple.Elts[1])
	}
	aug := mod.Body[2].(*ast.AugAssign)
	if aug.Op != token.Plus {
		t.Fatalf("aug op = %v", aug.Op)
	}
	if ann := mod.Body[3].(*ast.AnnAssign); ann.Value == nil {
		t.Fatal("annotated assignment lost its value")
	}
	if ann := mod.Body[4].(*ast.AnnAssign); ann.Value != nil {
		t.Fatal("bare annotation must not have a value")
	}
}

func TestSemicolonSeparatedStatementsShareLine(t *testing.T) {
	mod := parseSource(t, "a = 1; b = 2; print(a + b)\n")
	if len(mod.Body) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(mod.Body))
	}
	for _, st := range mod.Body {
		if st.Position().Line != 1 {
			t.Fatalf("statement on line %d", st.Position().Line)
		}
	}
}

func TestFunctionAndClass(t *testing.T) {
	src := `class Node(Base):
    """A node."""
    count = 0

    def __init__(self, value, *args, key=None, **kw):
        self.value = value

@decorate
def helper(a, b=2, /, c=3):
    "doc"
    return a
`
	mod := parseSource(t, src)
	cls := mod.Body[0].(*ast.ClassDef)
	if cls.Name != "Node" || len(cls.Bases) != 1 || !cls.Doc {
		t.Fatalf("unexpected class %+v", cls)
	}
	init := cls.Body[2].(*ast.FunctionDef)
	kinds := []ast.ParamKind{ast.ParamPositional, ast.ParamPositional, ast.ParamVarArgs, ast.ParamKwOnly, ast.ParamVarKw}
	if len(init.Params.List) != len(kinds) {
		t.Fatalf("params = %v", init.Params.Names())
	}
	for i, k := range kinds {
		if init.Params.List[i].Kind != k {
			t.Errorf("param %d kind = %v, want %v", i, init.Params.List[i].Kind, k)
		}
	}
	fn := mod.Body[1].(*ast.FunctionDef)
	if len(fn.Decorators) != 1 || !fn.Doc || fn.Line != 8 {
		t.Fatalf("unexpected decorated function %+v", fn)
	}
}

func TestTryStatement(t *testing.T) {
	src := `try:
    risky()
except (ValueError, TypeError) as err:
    handle(err)
except:
    pass
else:
    ok()
finally:
    done()
`
	st := parseSource(t, src).Body[0].(*ast.Try)
	if len(st.Handlers) != 2 || st.Handlers[0].Name != "err" || st.Handlers[1].Type != nil {
		t.Fatalf("unexpected handlers %+v", st.Handlers)
	}
	if st.Handlers[0].Line != 3 || st.Handlers[1].Line != 5 {
		t.Fatalf("handler lines %d, %d", st.Handlers[0].Line, st.Handlers[1].Line)
	}
	if len(st.OrElse) != 1 || len(st.Finally) != 1 {
		t.Fatal("missing else or finally body")
	}
}

func TestImports(t *testing.T) {
	mod := parseSource(t, "import math, random as rnd\nfrom helpers import (add, sub as minus,)\nfrom util import *\n")
	imp := mod.Body[0].(*ast.Import)
	if imp.Names[1].Bound() != "rnd" {
		t.Fatalf("alias = %+v", imp.Names[1])
	}
	from := mod.Body[1].(*ast.ImportFrom)
	if from.Module != "helpers" || len(from.Names) != 2 || from.Names[1].Bound() != "minus" {
		t.Fatalf("from import = %+v", from)
	}
	star := mod.Body[2].(*ast.ImportFrom)
	if star.Names[0].Name != "*" {
		t.Fatalf("star import = %+v", star)
	}
}

func TestModuleDocstring(t *testing.T) {
	if !parseSource(t, "'''Module doc.'''\nx = 1\n").Doc {
		t.Fatal("module docstring not detected")
	}
	if parseSource(t, "x = 1\n'not a doc'\n").Doc {
		t.Fatal("late string detected as docstring")
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code diag.Code
		line int
	}{
		{"missing colon", "if x\n    pass\n", diag.SynExpectColon, 1},
		{"missing block", "for i in xs:\nprint(i)\n", diag.SynExpectIndent, 2},
		{"unexpected indent", "x = 1\n    y = 2\n", diag.LexBadIndent, 2},
		{"bad dedent", "if x:\n        a = 1\n    b = 2\n", diag.LexInconsistentDedent, 3},
		{"assign to literal", "1 = x\n", diag.SynBadAssignTarget, 1},
		{"assign to call", "f() = 3\n", diag.SynBadAssignTarget, 1},
		{"return outside", "return 1\n", diag.SynReturnOutsideFunc, 1},
		{"break outside", "break\n", diag.SynOutsideLoop, 1},
		{"unclosed paren", "print((1, 2)\n", diag.SynUnclosedParen, 1},
		{"unterminated string", "s = 'abc\n", diag.LexUnterminatedString, 1},
		{"bad token", "x = 1 +\n", diag.SynUnexpectedToken, 1},
		{"nonlocal at module", "nonlocal x\n", diag.SynNonlocalAtModule, 1},
		{"positional after keyword", "f(a=1, 2)\n", diag.SynBadArguments, 1},
		{"repeated keyword", "f(a=1, b=2, a=3)\n", diag.SynBadArguments, 1},
		{"with unsupported", "with open('f') as fh:\n    pass\n", diag.SynUnsupported, 1},
		{"default ordering", "def f(a=1, b):\n    pass\n", diag.SynBadParameters, 1},
		{"try without handlers", "try:\n    pass\nx = 1\n", diag.SynUnexpectedToken, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, line := parseError(t, tt.src)
			if d.Code != tt.code {
				t.Fatalf("code = %s (%s), want %s", d.Code.ID(), d.Message, tt.code.ID())
			}
			if line != tt.line {
				t.Fatalf("line = %d, want %d (%s)", line, tt.line, d.Message)
			}
		})
	}
}

func TestNestingLimit(t *testing.T) {
	deep := ""
	for range DefaultMaxDepth + 1 {
		deep += "("
	}
	deep += "1"
	for range DefaultMaxDepth + 1 {
		deep += ")"
	}
	d, _ := parseError(t, "x = "+deep+"\n")
	if d.Code != diag.SynTooDeeplyNested {
		t.Fatalf("code = %s, want %s", d.Code.ID(), diag.SynTooDeeplyNested.ID())
	}
}
