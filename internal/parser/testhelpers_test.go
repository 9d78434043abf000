package parser

import (
	"fmt"
	"strings"
	"testing"

	"pytrace/internal/ast"
	"pytrace/internal/diag"
	"pytrace/internal/source"
)

func diagnosticsSummary(bag *diag.Bag) string {
	if bag == nil {
		return "<nil bag>"
	}
	diags := bag.Items()
	if len(diags) == 0 {
		return "<none>"
	}
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = fmt.Sprintf("[%s] %s", d.Code.ID(), d.Message)
	}
	return strings.Join(lines, "; ")
}

func parseSource(t *testing.T, src string) *ast.Module {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.py", []byte(src))
	res := Parse(fs, id)
	if res.Module == nil {
		t.Fatalf("unexpected parse failure: %s", diagnosticsSummary(res.Bag))
	}
	return res.Module
}

func parseError(t *testing.T, src string) (diag.Diagnostic, int) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.py", []byte(src))
	res := Parse(fs, id)
	if res.Module != nil {
		t.Fatalf("expected a syntax error for %q", src)
	}
	d, ok := res.Bag.FirstError()
	if !ok {
		t.Fatalf("parse failed without diagnostics for %q", src)
	}
	start, _ := fs.Resolve(d.Primary)
	return d, int(start.Line)
}

func parseExprSource(t *testing.T, src string) ast.Expr {
	t.Helper()
	mod := parseSource(t, src+"\n")
	if len(mod.Body) != 1 {
		t.Fatalf("expected one statement, got %d", len(mod.Body))
	}
	es, ok := mod.Body[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected expression statement, got %T", mod.Body[0])
	}
	return es.Value
}
