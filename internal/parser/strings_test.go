package parser

import (
	"testing"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
)

func TestStringDecoding(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"a\tb\n"`, "a\tb\n"},
		{`'it\'s'`, "it's"},
		{`r"\d+\n"`, `\d+\n`},
		{`"\x41é\101"`, "Aé" + "A"},
		{`"unknown \q escape"`, `unknown \q escape`},
		{`"con" 'cat' "enation"`, "concatenation"},
		{`"""triple
quoted"""`, "triple\nquoted"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			lit, ok := parseExprSource(t, tt.src).(*ast.StrLit)
			if !ok {
				t.Fatalf("expected StrLit")
			}
			if lit.Value != tt.want {
				t.Fatalf("value = %q, want %q", lit.Value, tt.want)
			}
		})
	}
}

func TestFStringParts(t *testing.T) {
	fs := parseExprSource(t, `f"Found at index {mid}: {arr[mid]!r:>5} {{done}}"`).(*ast.FString)
	if len(fs.Parts) != 5 {
		t.Fatalf("parts = %d: %#v", len(fs.Parts), fs.Parts)
	}
	if fs.Parts[0].Lit != "Found at index " {
		t.Fatalf("part 0 = %q", fs.Parts[0].Lit)
	}
	if name, ok := fs.Parts[1].Expr.(*ast.Name); !ok || name.ID != "mid" {
		t.Fatalf("part 1 = %#v", fs.Parts[1].Expr)
	}
	field := fs.Parts[3]
	if _, ok := field.Expr.(*ast.Subscript); !ok || field.Conversion != 'r' || field.Spec == nil {
		t.Fatalf("part 3 = %#v", field)
	}
	if field.Spec.Parts[0].Lit != ">5" {
		t.Fatalf("spec = %#v", field.Spec.Parts)
	}
	if fs.Parts[4].Lit != " {done}" {
		t.Fatalf("tail = %q", fs.Parts[4].Lit)
	}
}

func TestFStringNestedSpecAndDebug(t *testing.T) {
	fs := parseExprSource(t, `f"{value:{width}.{prec}f} {x = }"`).(*ast.FString)
	spec := fs.Parts[0].Spec
	if spec == nil || len(spec.Parts) != 4 {
		t.Fatalf("spec = %#v", spec)
	}
	debug := fs.Parts[2]
	if debug.Debug != "x = " || debug.Conversion != 'r' {
		t.Fatalf("debug field = %#v", debug)
	}
}

func TestFStringFieldLine(t *testing.T) {
	mod := parseSource(t, "x = 1\ns = f\"{x + 1}\"\n")
	fs := mod.Body[1].(*ast.Assign).Value.(*ast.FString)
	if line := fs.Parts[0].Expr.Position().Line; line != 2 {
		t.Fatalf("field line = %d", line)
	}
}

func TestFStringErrors(t *testing.T) {
	for _, src := range []string{`f"{}"`, `f"{x"`, `f"}"`, `f"{x!z}"`} {
		t.Run(src, func(t *testing.T) {
			d, _ := parseError(t, src+"\n")
			if d.Code != diag.SynBadFString {
				t.Fatalf("code = %s (%s)", d.Code.ID(), d.Message)
			}
		})
	}
}
