package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"pytrace/internal/observ"
	"pytrace/internal/parser"
	"pytrace/internal/record"
	"pytrace/internal/source"
	"pytrace/internal/testkit"
	"pytrace/internal/vm"
)

func runSource(t *testing.T, src string, opts Options) *record.Trace {
	t.Helper()
	return RunSource(context.Background(), "main.py", []byte(src), opts)
}

func encodeJSON(t *testing.T, tr *record.Trace) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, tr, FormatJSON); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// plainRun executes src without tracing and returns its output and the
// number of line events of the main file.
func plainRun(t *testing.T, src string) (string, int) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.py", []byte(src))
	res := parser.Parse(fs, id)
	if res.Module == nil {
		t.Fatalf("parse failed")
	}
	var out strings.Builder
	machine := vm.New(fs, vm.Options{Stdout: &out})
	events := 0
	machine.SetHook(vm.HookFunc(func(f *vm.Frame, _ int) error {
		if f.File() == "main.py" {
			events++
		}
		return nil
	}))
	_ = machine.Run(context.Background(), res.Module)
	return out.String(), events
}

func TestReassignmentScenario(t *testing.T) {
	tr := runSource(t, "x = 1\nprint(x)\nx = 2\nprint(x)\n", DefaultOptions())
	want := `[{"line":1,"variables":{},"stdout":""},` +
		`{"line":2,"variables":{"x":1},"stdout":""},` +
		`{"line":3,"variables":{"x":1},"stdout":"1\n"},` +
		`{"line":4,"variables":{"x":2},"stdout":""},` +
		`{"line":0,"variables":{},"stdout":"2\n"}]`
	if got := encodeJSON(t, tr); got != want {
		t.Fatalf("trace:\n got %s\nwant %s", got, want)
	}
}

func TestDivisionByZeroScenario(t *testing.T) {
	tr := runSource(t, "x = 1\ny = x / 0\n", DefaultOptions())
	if tr.Len() != 3 {
		t.Fatalf("steps = %d, want 3", tr.Len())
	}
	last := tr.Last()
	if last.Line != 0 || last.Stdout != "Runtime Error: ZeroDivisionError: division by zero" {
		t.Fatalf("terminal step = %+v", last)
	}
	for _, s := range tr.Steps {
		if s.Line > 2 {
			t.Fatalf("step references line %d past the failure", s.Line)
		}
	}
	if tr.Outcome.Kind != record.Failed {
		t.Fatalf("outcome = %v", tr.Outcome)
	}
}

func TestFunctionBindingIsHidden(t *testing.T) {
	tr := runSource(t, "def f():\n    return 1\nx = 1\ny = f()\nprint(x, y)\n", DefaultOptions())
	sawX := false
	for _, s := range tr.Steps {
		if _, ok := s.Variables.Get("f"); ok {
			t.Fatalf("line %d records function binding f", s.Line)
		}
		if _, ok := s.Variables.Get("x"); ok {
			sawX = true
		}
	}
	if !sawX {
		t.Fatalf("x never recorded")
	}
}

var propertyScripts = []string{
	"x = 1\nprint(x)\n",
	"total = 0\nfor i in range(3):\n    total += i\n    print(i, end=' ')\nprint(total)\n",
	"def sq(n):\n    print('sq', n)\n    return n * n\nvals = [sq(i) for i in range(3)]\nprint(vals)\n",
	"class C:\n    def __init__(self):\n        self.v = 1\nc = C()\nprint(c.v)\n",
	"n = 3\nwhile n:\n    n -= 1\nelse:\n    print('done')\n",
	"try:\n    print('a')\n    raise ValueError('x')\nexcept ValueError as e:\n    print('caught', e)\n",
}

func TestStepCountAndOutputConcatenation(t *testing.T) {
	for _, src := range propertyScripts {
		want, events := plainRun(t, src)
		tr := runSource(t, src, DefaultOptions())
		if tr.Outcome.Kind != record.Completed {
			t.Fatalf("%q failed: %s", src, tr.Outcome.Message)
		}
		if err := testkit.CheckTraceInvariants(tr); err != nil {
			t.Errorf("%q: %v", src, err)
		}
		if tr.Len() != events+1 {
			t.Errorf("%q: steps = %d, want %d", src, tr.Len(), events+1)
		}
		if got := tr.Stdout(); got != want {
			t.Errorf("%q: concatenated stdout = %q, want %q", src, got, want)
		}
	}
}

func TestReprOutputIsNotCaptured(t *testing.T) {
	src := "class P:\n" +
		"    def __repr__(self):\n" +
		"        print('side')\n" +
		"        return 'P()'\n" +
		"\n" +
		"p = P()\n" +
		"x = 1\n"
	want, _ := plainRun(t, src)
	tr := runSource(t, src, DefaultOptions())
	if got := tr.Stdout(); got != want {
		t.Fatalf("concatenated stdout = %q, want %q", got, want)
	}
	v, ok := tr.Steps[tr.Len()-2].Variables.Get("p")
	if !ok || v.Text != "P()" {
		t.Fatalf("p = %v", v)
	}
}

func TestObjectReprIsNotHTMLEscaped(t *testing.T) {
	tr := runSource(t, "class Q:\n    pass\n\nq = Q()\nx = [q, 'a & b']\ny = 0\n", DefaultOptions())
	got := encodeJSON(t, tr)
	if !strings.Contains(got, `"q":"<__main__.Q object at 0x`) || !strings.Contains(got, `"a & b"`) {
		t.Fatalf("trace not rendered verbatim: %s", got)
	}
	if strings.Contains(got, `\u003c`) || strings.Contains(got, `\u0026`) {
		t.Fatalf("trace has HTML escapes: %s", got)
	}
}

func TestSeveralKeywordArguments(t *testing.T) {
	src := "def g(a=0, b=0):\n    return a - b\n\nprint(1, 2, sep='-', end='!\\n')\nprint(sorted([3, 1, 2], key=lambda v: -v, reverse=True))\nprint(g(a=1, b=2))\n"
	tr := runSource(t, src, DefaultOptions())
	if tr.Outcome.Kind != record.Completed {
		t.Fatalf("failed: %s", tr.Outcome.Message)
	}
	if got, want := tr.Stdout(), "1-2!\n[1, 2, 3]\n-1\n"; got != want {
		t.Fatalf("stdout = %q, want %q", got, want)
	}
}

func TestOutputConcatenationOnFailure(t *testing.T) {
	src := "print('a')\nprint('b', end='')\nx = [print('c')][3]\n"
	want, events := plainRun(t, src)
	for _, policy := range []record.FailureOutput{record.KeepOutput, record.DiscardOutput} {
		opts := DefaultOptions()
		opts.FailureOutput = policy
		tr := runSource(t, src, opts)
		if tr.Len() != events+1 {
			t.Fatalf("%s: steps = %d, want %d", policy, tr.Len(), events+1)
		}
		msg := "Runtime Error: IndexError: list index out of range"
		last := tr.Last()
		if !strings.HasSuffix(last.Stdout, msg) {
			t.Fatalf("%s: terminal stdout = %q", policy, last.Stdout)
		}
		got := strings.TrimSuffix(tr.Stdout(), msg)
		switch policy {
		case record.KeepOutput:
			if got != want {
				t.Errorf("keep: output = %q, want %q", got, want)
			}
		case record.DiscardOutput:
			if got != "a\nb" {
				t.Errorf("discard: output = %q, want %q", got, "a\nb")
			}
		}
	}
}

func TestPreExecutionSnapshots(t *testing.T) {
	tr := runSource(t, "a = 1\na = a + 1\na = a * 10\nb = a\n", DefaultOptions())
	want := []string{"{}", "{a: 1}", "{a: 2}", "{a: 20}", "{}"}
	for i, s := range tr.Steps {
		if got := s.Variables.String(); got != want[i] {
			t.Errorf("step %d (line %d) variables = %s, want %s", i, s.Line, got, want[i])
		}
	}
}

func TestFilteredBindingsNeverAppear(t *testing.T) {
	src := "import math\n__secret = 1\nclass K:\n    pass\nf = lambda: 1\nk = K\nv = math.pi\nprint(v > 3)\n"
	tr := runSource(t, src, DefaultOptions())
	for _, s := range tr.Steps {
		for _, name := range []string{"math", "__secret", "K", "f", "k", "__name__"} {
			if _, ok := s.Variables.Get(name); ok {
				t.Fatalf("line %d records %s", s.Line, name)
			}
		}
	}
	if _, ok := tr.Steps[len(tr.Steps)-2].Variables.Get("v"); !ok {
		t.Fatalf("v missing from the last line step")
	}
}

func TestPartialTraceOnFailure(t *testing.T) {
	cases := []struct {
		src    string
		events int
		msg    string
	}{
		{"print(1)\nx = [1][5]\n", 2, "Runtime Error: IndexError: list index out of range"},
		{"def f(n):\n    return f(n + 1)\nf(0)\n", -1, "Runtime Error: RecursionError: maximum recursion depth exceeded"},
		{"x = 1\nif x:\n    y = undefined\n", 3, "Runtime Error: NameError: name 'undefined' is not defined"},
	}
	for _, tc := range cases {
		opts := DefaultOptions()
		opts.MaxDepth = 30
		opts.MaxSteps = 0
		tr := runSource(t, tc.src, opts)
		if err := testkit.CheckTraceInvariants(tr); err != nil {
			t.Errorf("%q: %v", tc.src, err)
		}
		last := tr.Last()
		if last.Line != 0 || !strings.HasPrefix(last.Stdout, tc.msg) {
			t.Errorf("%q: terminal step = %+v, want %q", tc.src, last, tc.msg)
		}
		if tc.events >= 0 && tr.Len() != tc.events+1 {
			t.Errorf("%q: steps = %d, want %d", tc.src, tr.Len(), tc.events+1)
		}
	}
}

func TestSyntaxErrorProducesTerminalStepOnly(t *testing.T) {
	tr := runSource(t, "x = 1\ny = (\n", DefaultOptions())
	if tr.Len() != 1 {
		t.Fatalf("steps = %d, want 1", tr.Len())
	}
	msg := tr.Last().Stdout
	if !strings.HasPrefix(msg, "Runtime Error: SyntaxError: ") || !strings.Contains(msg, "(line ") {
		t.Fatalf("terminal stdout = %q", msg)
	}
}

func TestLimitsFinalizeTrace(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxSteps = 10
	tr := runSource(t, "i = 0\nwhile True:\n    i += 1\n    print(i)\n", opts)
	if tr.Len() != 11 {
		t.Fatalf("steps = %d, want 11", tr.Len())
	}
	last := tr.Last().Stdout
	if !strings.HasSuffix(last, "Runtime Error: StepLimitExceeded: script exceeded 10 steps") {
		t.Fatalf("terminal stdout = %q", last)
	}
}

func TestRunFromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "util.py"), []byte("def inc(v):\n    return v + 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "main.py")
	if err := os.WriteFile(path, []byte("from util import inc\nprint(inc(1))\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	timer := observ.NewTimer()
	opts := DefaultOptions()
	opts.Timer = timer
	tr, err := Run(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tr.Len() != 3 || tr.Stdout() != "2\n" {
		t.Fatalf("trace = %d steps, stdout %q", tr.Len(), tr.Stdout())
	}
	for _, phase := range []string{"load", "parse", "execute", "finalize"} {
		if _, ok := timer.Duration(phase); !ok {
			t.Errorf("phase %s not timed", phase)
		}
	}
}

func TestRunMissingFileIsSetupError(t *testing.T) {
	tr, err := Run(context.Background(), filepath.Join(t.TempDir(), "nope.py"), DefaultOptions())
	if tr != nil {
		t.Fatalf("trace produced for a missing file")
	}
	if !errors.Is(err, ErrSetup) {
		t.Fatalf("err = %v, want ErrSetup", err)
	}
	var setup *SetupError
	if !errors.As(err, &setup) || !errors.Is(setup.Err, os.ErrNotExist) {
		t.Fatalf("err = %#v", err)
	}
}

func TestEncodeFormats(t *testing.T) {
	tr := runSource(t, "x = [1, 'a']\n", DefaultOptions())

	var indented bytes.Buffer
	if err := EncodeWith(&indented, tr, EncodeOptions{Format: FormatJSONIndent, Indent: 4}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(indented.String(), "\n    {\n        \"line\": 1,") {
		t.Fatalf("indented json:\n%s", indented.String())
	}

	var packed bytes.Buffer
	if err := Encode(&packed, tr, FormatMsgpack); err != nil {
		t.Fatal(err)
	}
	var steps []map[string]any
	if err := msgpack.Unmarshal(packed.Bytes(), &steps); err != nil {
		t.Fatal(err)
	}
	if len(steps) != 2 || steps[1]["stdout"] != "" {
		t.Fatalf("msgpack steps = %v", steps)
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("ParseFormat accepted xml")
	}
}
