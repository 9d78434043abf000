package testkit

import (
	"testing"

	"pytrace/internal/parser"
	"pytrace/internal/record"
	"pytrace/internal/snapshot"
	"pytrace/internal/source"
)

func TestSpanInvariantsHoldForParsedModule(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.py", []byte("x = 1\n\nif x:\n    y = 2\nprint(y)\n"))
	res := parser.Parse(fs, id)
	if res.Module == nil {
		t.Fatal("parse failed")
	}
	if err := CheckSpanInvariants(res.Module); err != nil {
		t.Fatal(err)
	}
	if err := CheckSpanInvariants(nil); err == nil {
		t.Fatal("nil module accepted")
	}
}

func TestTraceInvariants(t *testing.T) {
	build := func(policy record.FailureOutput, steps []int, outcome record.Outcome) *record.Trace {
		rec := record.New(policy)
		for _, line := range steps {
			if err := rec.Record(line, snapshot.NewMap(), ""); err != nil {
				t.Fatal(err)
			}
		}
		return rec.Finalize(outcome, "tail")
	}

	if err := CheckTraceInvariants(build(record.KeepOutput, []int{1, 2}, record.Success())); err != nil {
		t.Fatalf("valid trace rejected: %v", err)
	}
	if err := CheckTraceInvariants(build(record.DiscardOutput, []int{1}, record.Failure("Runtime Error: boom"))); err != nil {
		t.Fatalf("failed trace rejected: %v", err)
	}
	if err := CheckTraceInvariants(build(record.KeepOutput, []int{1, 0}, record.Success())); err == nil {
		t.Fatal("line 0 before the terminal step accepted")
	}

	vars := snapshot.NewMap()
	vars.Set("__hidden", snapshot.Int(1))
	rec := record.New(record.KeepOutput)
	_ = rec.Record(1, vars, "")
	if err := CheckTraceInvariants(rec.Finalize(record.Success(), "")); err == nil {
		t.Fatal("reserved name accepted")
	}
	if err := CheckTraceInvariants(nil); err == nil {
		t.Fatal("nil trace accepted")
	}
}
