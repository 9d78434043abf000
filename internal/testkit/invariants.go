// Package testkit holds invariant checks shared by the parser, driver and
// fuzz tests.
package testkit

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"pytrace/internal/ast"
	"pytrace/internal/record"
)

// CheckSpanInvariants verifies the top-level statements of a parsed module:
// 1) every span is non-empty and within the file content
// 2) spans point at the module's file and appear in source order
// 3) the recorded line is the line of the span start
func CheckSpanInvariants(m *ast.Module) error {
	if m == nil || m.File == nil {
		return fmt.Errorf("nil module or file")
	}
	lenContent, err := safecast.Conv[uint32](len(m.File.Content))
	if err != nil {
		return fmt.Errorf("len content overflow: %w", err)
	}
	var prevEnd uint32
	for i, st := range m.Body {
		pos := st.Position()
		sp := pos.Span
		if sp.End <= sp.Start {
			return fmt.Errorf("statement %d: empty span %v", i, sp)
		}
		if sp.File != m.File.ID {
			return fmt.Errorf("statement %d: span file mismatch: got=%d want=%d", i, sp.File, m.File.ID)
		}
		if sp.End > lenContent {
			return fmt.Errorf("statement %d: span end beyond content: %d > %d", i, sp.End, lenContent)
		}
		if sp.Start < prevEnd {
			return fmt.Errorf("statement %d: span %v overlaps the previous statement", i, sp)
		}
		prevEnd = sp.End
		if want := m.File.LineOf(sp.Start); pos.Line != want {
			return fmt.Errorf("statement %d: line %d, span starts on line %d", i, pos.Line, want)
		}
	}
	return nil
}

// CheckTraceInvariants verifies the shape every finalized trace has:
// at least one step, line 0 only on the terminal step, and no
// reserved-prefix names in any variables mapping.
func CheckTraceInvariants(tr *record.Trace) error {
	if tr == nil || tr.Len() == 0 {
		return fmt.Errorf("empty trace")
	}
	last := tr.Len() - 1
	for i, s := range tr.Steps {
		if s.Line < 0 {
			return fmt.Errorf("step %d: negative line %d", i, s.Line)
		}
		if i == last {
			if s.Line != 0 {
				return fmt.Errorf("terminal step has line %d", s.Line)
			}
		} else if s.Line == 0 {
			return fmt.Errorf("step %d: line 0 before the terminal step", i)
		}
		if s.Variables == nil {
			return fmt.Errorf("step %d: nil variables", i)
		}
		for _, name := range s.Variables.Keys() {
			if strings.HasPrefix(name, "__") {
				return fmt.Errorf("step %d: reserved name %q recorded", i, name)
			}
		}
	}
	if tr.Outcome.Kind == record.Failed && !strings.HasSuffix(tr.Last().Stdout, tr.Outcome.Message) {
		return fmt.Errorf("terminal stdout %q does not end with the failure message", tr.Last().Stdout)
	}
	return nil
}
