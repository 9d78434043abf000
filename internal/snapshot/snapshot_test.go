package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"pytrace/internal/parser"
	"pytrace/internal/source"
	"pytrace/internal/vm"
)

// exec runs src and returns the interpreter with its globals populated.
func exec(t *testing.T, src string) *vm.VM {
	t.Helper()
	return execWith(t, src, nil)
}

// execWith runs src with the hook built by mkHook, if any.
func execWith(t *testing.T, src string, mkHook func(*vm.VM) vm.Hook) *vm.VM {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.py", []byte(src))
	res := parser.Parse(fs, id)
	if res.Module == nil {
		d, _ := res.Bag.FirstError()
		t.Fatalf("parse failed: %s", d.Message)
	}
	machine := vm.New(fs, vm.Options{})
	if mkHook != nil {
		machine.SetHook(mkHook(machine))
	}
	if err := machine.Run(context.Background(), res.Module); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return machine
}

func global(t *testing.T, machine *vm.VM, name string) vm.Value {
	t.Helper()
	v, ok := machine.Globals().Get(name)
	if !ok {
		t.Fatalf("global %q not bound", name)
	}
	return v
}

func TestTake(t *testing.T) {
	src := `class P:
    def __init__(self, x):
        self.x = x
    def __repr__(self):
        return "P(" + str(self.x) + ")"
class Bad:
    def __str__(self):
        raise ValueError("nope")
class Worse:
    def __str__(self):
        return 42
cyc = [1]
cyc.append(cyc)
none = None
flag = True
n = -7
f = 2.5
whole = 4.0
s = "hi\n"
xs = [1, [2, "a"], (3,)]
st = {3, 1}
d = {1: "one", "k": [None], (1, 2): 0.5}
p = P(3)
bad = Bad()
worse = Worse()
nan = float("nan")
inf = float("-inf")
r = range(3)
`
	machine := exec(t, src)
	snap := New(machine)
	cases := []struct {
		name string
		want string
	}{
		{"none", "null"},
		{"flag", "true"},
		{"n", "-7"},
		{"f", "2.5"},
		{"whole", "4.0"},
		{"s", `"hi\n"`},
		{"xs", `[1, [2, "a"], [3]]`},
		{"st", "[3, 1]"},
		{"d", `{1: "one", k: [null], (1, 2): 0.5}`},
		{"p", "<P(3)>"},
		{"bad", "<Error>"},
		{"worse", "<Error>"},
		{"cyc", "[1, <[1, [...]]>]"},
		{"nan", "<nan>"},
		{"inf", "<-inf>"},
		{"r", "<range(0, 3)>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := snap.Take(global(t, machine, tc.name)).String()
			if got != tc.want {
				t.Fatalf("Take(%s) = %s, want %s", tc.name, got, tc.want)
			}
		})
	}
}

func TestTakeDepthLimit(t *testing.T) {
	machine := exec(t, "x = [[[1]]]\n")
	snap := New(machine).WithMaxDepth(2)
	if got, want := snap.Take(global(t, machine, "x")).String(), "[[<[1]>]]"; got != want {
		t.Fatalf("Take = %s, want %s", got, want)
	}
}

func TestTakeSuppressesLineEvents(t *testing.T) {
	machine := exec(t, "class P:\n    def __repr__(self):\n        return 'p'\np = P()\n")
	fired := 0
	machine.SetHook(vm.HookFunc(func(*vm.Frame, int) error {
		fired++
		return nil
	}))
	if got := New(machine).Take(global(t, machine, "p")); got.Text != "p" {
		t.Fatalf("Take = %s", got)
	}
	if fired != 0 {
		t.Fatalf("repr fired %d line events", fired)
	}
}

func TestBindingsFilter(t *testing.T) {
	src := `import math
def f():
    pass
class C:
    def __call__(self):
        return 1
class D:
    pass
__hidden = 1
a = 1
g = lambda: 0
m = [].append
c = C()
o = D()
b = len
`
	var got *Map
	execWith(t, src, func(machine *vm.VM) vm.Hook {
		snap := New(machine)
		return vm.HookFunc(func(f *vm.Frame, line int) error {
			got = snap.Bindings(f)
			return nil
		})
	})
	// The last event fires before "b = len" runs.
	if keys := got.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "o" {
		t.Fatalf("bindings = %v, want [a o]", keys)
	}
}

func TestBindingsArePreExecution(t *testing.T) {
	var seen []string
	execWith(t, "x = 1\nx = x + 1\ny = [x]\n", func(machine *vm.VM) vm.Hook {
		snap := New(machine)
		return vm.HookFunc(func(f *vm.Frame, line int) error {
			seen = append(seen, snap.Bindings(f).String())
			return nil
		})
	})
	want := []string{"{}", "{x: 1}", "{x: 2}"}
	if len(seen) != len(want) {
		t.Fatalf("snapshots = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("snapshot %d = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestJSONPreservesOrder(t *testing.T) {
	m := NewMap()
	m.Set("z", Int(1))
	m.Set("a", Sequence(nil))
	m.Set("m", Opaque("<__main__.P object at 0x10>"))
	m.Set("z", Float(3))
	m.Set("s", Sequence([]Value{String("a & b"), Opaque("<x>")}))
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Mapping(m)); err != nil {
		t.Fatal(err)
	}
	want := `{"z":3.0,"a":[],"m":"<__main__.P object at 0x10>","s":["a & b","<x>"]}` + "\n"
	if got := buf.String(); got != want {
		t.Fatalf("json = %s, want %s", got, want)
	}
}

func TestMsgpackPreservesOrder(t *testing.T) {
	m := NewMap()
	m.Set("y", String("s"))
	m.Set("x", Sequence([]Value{Null(), Bool(true)}))
	var buf bytes.Buffer
	if err := msgpack.NewEncoder(&buf).Encode(m); err != nil {
		t.Fatal(err)
	}
	dec := msgpack.NewDecoder(&buf)
	n, err := dec.DecodeMapLen()
	if err != nil || n != 2 {
		t.Fatalf("map len = %d, %v", n, err)
	}
	var keys []string
	for range n {
		k, err := dec.DecodeString()
		if err != nil {
			t.Fatal(err)
		}
		keys = append(keys, k)
		if _, err := dec.DecodeInterface(); err != nil {
			t.Fatal(err)
		}
	}
	if keys[0] != "y" || keys[1] != "x" {
		t.Fatalf("keys = %v", keys)
	}
}
