package ast

import "testing"

func TestInspectVisitsNestedExpressions(t *testing.T) {
	call := &Call{
		Func: &Name{ID: "print"},
		Args: []Expr{&BinOp{Left: &Name{ID: "a"}, Right: &IntLit{Value: 1}}},
		Keywords: []Keyword{
			{Name: "end", Value: &StrLit{Value: ""}},
		},
	}
	mod := &Module{Body: []Stmt{
		&If{
			Test: &Name{ID: "cond"},
			Body: []Stmt{&ExprStmt{Value: call}},
		},
	}}

	var names []string
	Inspect(mod, func(n Node) bool {
		if nm, ok := n.(*Name); ok {
			names = append(names, nm.ID)
		}
		return true
	})
	want := []string{"cond", "print", "a"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestInspectPrunes(t *testing.T) {
	fn := &FunctionDef{Name: "f", Body: []Stmt{&Pass{}}}
	seen := 0
	Inspect(&Module{Body: []Stmt{fn}}, func(n Node) bool {
		seen++
		_, isFn := n.(*FunctionDef)
		return !isFn
	})
	if seen != 2 {
		t.Fatalf("expected module and def only, saw %d nodes", seen)
	}
}

func TestAliasBound(t *testing.T) {
	if (Alias{Name: "math"}).Bound() != "math" || (Alias{Name: "math", AsName: "m"}).Bound() != "m" {
		t.Fatal("Bound mismatch")
	}
}
