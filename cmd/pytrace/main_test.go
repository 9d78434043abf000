package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes the CLI in an empty working directory so no config file is
// discovered.
func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Chdir(t.TempDir())
	var stdout, stderr bytes.Buffer
	args = append([]string{"--color", "off"}, args...)
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeScript(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

type step struct {
	Line      int            `json:"line"`
	Variables map[string]any `json:"variables"`
	Stdout    string         `json:"stdout"`
}

func decodeSteps(t *testing.T, doc string) []step {
	t.Helper()
	var steps []step
	if err := json.Unmarshal([]byte(doc), &steps); err != nil {
		t.Fatalf("stdout is not a trace document: %v\n%s", err, doc)
	}
	return steps
}

func TestRunPrintsTrace(t *testing.T) {
	path := writeScript(t, "main.py", "x = 1\nprint(x)\nx = 2\nprint(x)\n")
	for _, args := range [][]string{{"run", path}, {path}} {
		res := run(t, "", args...)
		if res.code != 0 {
			t.Fatalf("%v: exit %d, stderr %q", args, res.code, res.stderr)
		}
		want := `[{"line":1,"variables":{},"stdout":""},{"line":2,"variables":{"x":1},"stdout":""},` +
			`{"line":3,"variables":{"x":1},"stdout":"1\n"},{"line":4,"variables":{"x":2},"stdout":""},` +
			`{"line":0,"variables":{},"stdout":"2\n"}]` + "\n"
		if res.stdout != want {
			t.Fatalf("%v: stdout\n got %s\nwant %s", args, res.stdout, want)
		}
	}
}

func TestRunScriptFailureExitsZero(t *testing.T) {
	path := writeScript(t, "main.py", "x = 1\ny = x / 0\n")
	res := run(t, "", "run", "--ui", "off", path)
	if res.code != 0 {
		t.Fatalf("exit %d, stderr %q", res.code, res.stderr)
	}
	steps := decodeSteps(t, res.stdout)
	if last := steps[len(steps)-1]; last.Stdout != "Runtime Error: ZeroDivisionError: division by zero" {
		t.Fatalf("terminal step = %+v", last)
	}
}

func TestRunMissingFileIsSetupFailure(t *testing.T) {
	res := run(t, "", "run", filepath.Join(t.TempDir(), "missing.py"))
	if res.code != 1 {
		t.Fatalf("exit %d", res.code)
	}
	if res.stdout != "" {
		t.Fatalf("stdout not empty: %q", res.stdout)
	}
	if !strings.HasPrefix(res.stderr, "setup error: ") {
		t.Fatalf("stderr = %q", res.stderr)
	}
}

func TestRunBadFlags(t *testing.T) {
	path := writeScript(t, "main.py", "x = 1\n")
	cases := [][]string{
		{"run", "--format", "xml", path},
		{"run", "--failure-output", "shred", path},
		{"run", "--ui", "sometimes", path},
		{"run", "--max-steps", "many", path},
		{"run"},
	}
	for _, args := range cases {
		res := run(t, "", args...)
		if res.code != 1 || res.stdout != "" || !strings.HasPrefix(res.stderr, "error: ") {
			t.Errorf("%v: exit %d, stdout %q, stderr %q", args, res.code, res.stdout, res.stderr)
		}
	}
}

func TestRunFlagsOverrideLimits(t *testing.T) {
	path := writeScript(t, "loop.py", "while True:\n    pass\n")
	res := run(t, "", "run", "--max-steps", "3", path)
	steps := decodeSteps(t, res.stdout)
	if len(steps) != 4 {
		t.Fatalf("steps = %d, want 4", len(steps))
	}
	if !strings.Contains(steps[3].Stdout, "StepLimitExceeded") {
		t.Fatalf("terminal step = %+v", steps[3])
	}
}

func TestRunConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "pytrace.yaml")
	if err := os.WriteFile(cfgPath, []byte("limits:\n  max_steps: 2\noutput:\n  failure_output: discard\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	path := writeScript(t, "loop.py", "while True:\n    print('x')\n")

	res := run(t, "", "--config", cfgPath, "run", path)
	if got := len(decodeSteps(t, res.stdout)); got != 3 {
		t.Fatalf("config max_steps: steps = %d, want 3", got)
	}

	t.Setenv("PYTRACE_MAX_STEPS", "4")
	res = run(t, "", "--config", cfgPath, "run", path)
	if got := len(decodeSteps(t, res.stdout)); got != 5 {
		t.Fatalf("env max_steps: steps = %d, want 5", got)
	}

	res = run(t, "", "--config", cfgPath, "run", "--max-steps", "1", path)
	if got := len(decodeSteps(t, res.stdout)); got != 2 {
		t.Fatalf("flag max_steps: steps = %d, want 2", got)
	}
}

func TestRunStdinAndSeed(t *testing.T) {
	path := writeScript(t, "echo.py", "name = input()\nprint('hi', name)\n")
	res := run(t, "ada\n", "run", "--stdin", path)
	steps := decodeSteps(t, res.stdout)
	if steps[len(steps)-1].Stdout != "hi ada\n" {
		t.Fatalf("steps = %+v", steps)
	}

	path = writeScript(t, "dice.py", "import random\nr = random.randint(1, 1000000)\n")
	a := run(t, "", "run", "--seed", "7", path)
	b := run(t, "", "run", "--seed", "7", path)
	if a.stdout != b.stdout {
		t.Fatalf("seeded runs differ:\n%s\n%s", a.stdout, b.stdout)
	}
}

func TestRunFormats(t *testing.T) {
	path := writeScript(t, "main.py", "x = 1\n")

	res := run(t, "", "run", "--format", "json-indent", "--indent", "4", path)
	if !strings.Contains(res.stdout, "\n    {\n        \"line\": 1,") {
		t.Fatalf("indented output:\n%s", res.stdout)
	}

	res = run(t, "", "run", "--format", "msgpack", path)
	var steps []map[string]any
	if err := msgpack.Unmarshal([]byte(res.stdout), &steps); err != nil {
		t.Fatalf("msgpack: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("steps = %v", steps)
	}
}

func TestRunTimingsAndTrace(t *testing.T) {
	path := writeScript(t, "main.py", "x = 1\n")
	res := run(t, "", "--timings", "--trace", "-", "--trace-level", "phase", "run", path)
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	for _, want := range []string{"timings:", "execute", "finalize"} {
		if !strings.Contains(res.stderr, want) {
			t.Errorf("stderr lacks %q:\n%s", want, res.stderr)
		}
	}
	decodeSteps(t, res.stdout)
}

func TestTokenizeAndCheck(t *testing.T) {
	good := writeScript(t, "good.py", "x = 1\n")
	res := run(t, "", "tokenize", good)
	if res.code != 0 || !strings.Contains(res.stdout, `"x"`) {
		t.Fatalf("tokenize: exit %d\n%s", res.code, res.stdout)
	}
	res = run(t, "", "tokenize", "--format", "json", good)
	if !strings.HasPrefix(res.stdout, "[") {
		t.Fatalf("tokenize json:\n%s", res.stdout)
	}

	res = run(t, "", "check", good)
	if res.code != 0 || !strings.HasSuffix(res.stdout, "good.py: ok\n") {
		t.Fatalf("check good: exit %d\n%s", res.code, res.stdout)
	}

	bad := writeScript(t, "bad.py", "x = (\n")
	res = run(t, "", "check", bad)
	if res.code != 1 || !strings.Contains(res.stdout, "ERROR") {
		t.Fatalf("check bad: exit %d\nstdout %s\nstderr %s", res.code, res.stdout, res.stderr)
	}
	res = run(t, "", "check", "--format", "json", bad)
	if !strings.Contains(res.stdout, `"severity": "ERROR"`) {
		t.Fatalf("check json:\n%s", res.stdout)
	}
}

func TestVersion(t *testing.T) {
	res := run(t, "", "version")
	if res.code != 0 || !strings.HasPrefix(res.stdout, "pytrace ") {
		t.Fatalf("version: %+v", res)
	}
	res = run(t, "", "version", "--format", "json")
	var info map[string]string
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil || info["version"] == "" {
		t.Fatalf("version json: %v\n%s", err, res.stdout)
	}
}

func TestUIMode(t *testing.T) {
	if _, err := readUIMode("bogus"); err == nil {
		t.Fatal("readUIMode accepted bogus")
	}
	var buf bytes.Buffer
	if shouldUseTUI(uiModeAuto, &buf) {
		t.Fatal("auto mode enabled the UI for a buffer")
	}
	if !shouldUseTUI(uiModeOn, &buf) || shouldUseTUI(uiModeOff, &buf) {
		t.Fatal("explicit modes ignored")
	}
}

func TestProfilingFlags(t *testing.T) {
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")
	path := writeScript(t, "main.py", "x = sum(range(100))\n")
	res := run(t, "", "--cpu-profile", cpu, "--mem-profile", mem, "run", path)
	if res.code != 0 {
		t.Fatalf("exit %d: %s", res.code, res.stderr)
	}
	for _, p := range []string{cpu, mem} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s: %v", filepath.Base(p), err)
		}
	}
}
