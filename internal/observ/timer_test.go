package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	load := tm.Begin("load")
	tm.End(load, "main.py")
	exec := tm.Begin("execute")
	tm.End(exec, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "load" || r.Phases[0].Note != "main.py" {
		t.Fatalf("report = %+v", r)
	}
	if _, ok := tm.Duration("execute"); !ok {
		t.Fatalf("execute phase missing")
	}
	s := tm.Summary()
	for _, want := range []string{"timings:", "load", "(main.py)", "total"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestNilTimer(t *testing.T) {
	var tm *Timer
	tm.End(tm.Begin("parse"), "")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("nil timer reported %+v", r)
	}
}
