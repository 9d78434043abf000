package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeRun, false},
		{LevelError, ScopeRun, true},
		{LevelError, ScopePhase, false},
		{LevelPhase, ScopePhase, true},
		{LevelPhase, ScopeFrame, false},
		{LevelDetail, ScopeFrame, true},
		{LevelDetail, ScopeStep, false},
		{LevelDebug, ScopeStep, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestStartNestsSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	ctx, run := Start(ctx, ScopeRun, "run")
	_, parse := Start(ctx, ScopePhase, "parse")
	parse.WithExtra("file", "main.py").End("")
	Point(tr, ScopeStep, "step", "line 1", run.ID())
	run.End("completed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d events:\n%s", len(lines), buf.String())
	}
	var ev struct {
		Kind     string            `json:"kind"`
		Name     string            `json:"name"`
		ParentID uint64            `json:"parent_id"`
		Extra    map[string]string `json:"extra"`
	}
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "end" || ev.Name != "parse" || ev.ParentID != run.ID() || ev.Extra["file"] != "main.py" {
		t.Fatalf("parse end event = %+v", ev)
	}
}

func TestRingKeepsNewest(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeStep, name, "", 0)
	}
	got := r.Snapshot()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("snapshot = %+v", got)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "• c") {
		t.Fatalf("dump = %q", buf.String())
	}
}

func TestNewOffIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr != Nop {
		t.Fatalf("New(off) = %v, %v", tr, err)
	}
	if FromContext(context.Background()) != Nop {
		t.Fatalf("empty context should carry Nop")
	}
}
