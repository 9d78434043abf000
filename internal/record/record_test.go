package record

import (
	"encoding/json"
	"errors"
	"testing"

	"pytrace/internal/snapshot"
)

func vars(kv ...any) *snapshot.Map {
	m := snapshot.NewMap()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), snapshot.Int(int64(kv[i+1].(int))))
	}
	return m
}

func TestFinalize(t *testing.T) {
	cases := []struct {
		name     string
		policy   FailureOutput
		outcome  Outcome
		trailing string
		want     string
	}{
		{"completed keeps trailing output", KeepOutput, Success(), "2\n", "2\n"},
		{"completed with no output", KeepOutput, Success(), "", ""},
		{"failure keeps output", KeepOutput, Failure("Runtime Error: boom"), "partial\n", "partial\nRuntime Error: boom"},
		{"failure discards output", DiscardOutput, Failure("Runtime Error: boom"), "partial\n", "Runtime Error: boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(tc.policy)
			if err := r.Record(1, nil, ""); err != nil {
				t.Fatal(err)
			}
			tr := r.Finalize(tc.outcome, tc.trailing)
			if tr.Len() != 2 {
				t.Fatalf("steps = %d, want 2", tr.Len())
			}
			last := tr.Last()
			if last.Line != 0 || last.Stdout != tc.want || last.Variables.Len() != 0 {
				t.Fatalf("terminal step = %+v, want stdout %q", last, tc.want)
			}
			if tr.Outcome != tc.outcome {
				t.Fatalf("outcome = %v", tr.Outcome)
			}
		})
	}
}

func TestRecordAfterFinalize(t *testing.T) {
	r := New(KeepOutput)
	first := r.Finalize(Success(), "")
	if err := r.Record(3, nil, "x"); !errors.Is(err, ErrFrozen) {
		t.Fatalf("Record after Finalize = %v, want ErrFrozen", err)
	}
	if again := r.Finalize(Failure("late"), "y"); again != first || again.Len() != 1 {
		t.Fatalf("second Finalize changed the trace")
	}
	if !r.Frozen() {
		t.Fatalf("recorder not frozen")
	}
}

func TestStepJSON(t *testing.T) {
	r := New(KeepOutput)
	_ = r.Record(1, nil, "")
	_ = r.Record(2, vars("x", 1), "")
	tr := r.Finalize(Success(), "1\n")
	data, err := json.Marshal(tr.Steps)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"line":1,"variables":{},"stdout":""},{"line":2,"variables":{"x":1},"stdout":""},{"line":0,"variables":{},"stdout":"1\n"}]`
	if string(data) != want {
		t.Fatalf("json:\n got %s\nwant %s", data, want)
	}
	if tr.Stdout() != "1\n" {
		t.Fatalf("Stdout = %q", tr.Stdout())
	}
}

func TestParseFailureOutput(t *testing.T) {
	for in, want := range map[string]FailureOutput{"": KeepOutput, "keep": KeepOutput, "discard": DiscardOutput} {
		got, err := ParseFailureOutput(in)
		if err != nil || got != want {
			t.Errorf("ParseFailureOutput(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFailureOutput("drop"); err == nil {
		t.Errorf("expected error for unknown policy")
	}
}
