package vm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pytrace/internal/parser"
	"pytrace/internal/source"
)

type lineEvent struct {
	frame string
	line  int
}

func (e lineEvent) String() string { return fmt.Sprintf("%s:%d", e.frame, e.line) }

type runResult struct {
	out    string
	err    error
	events []lineEvent
}

func runWith(t *testing.T, ctx context.Context, src string, opts Options, hook Hook) runResult {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.py", []byte(src))
	res := parser.Parse(fs, id)
	if res.Module == nil {
		d, _ := res.Bag.FirstError()
		t.Fatalf("parse failed: %s", d.Message)
	}
	var out strings.Builder
	opts.Stdout = &out
	machine := New(fs, opts)
	var events []lineEvent
	machine.SetHook(HookFunc(func(f *Frame, line int) error {
		events = append(events, lineEvent{frame: f.Name(), line: line})
		if hook != nil {
			return hook.OnLine(f, line)
		}
		return nil
	}))
	err := machine.Run(ctx, res.Module)
	return runResult{out: out.String(), err: err, events: events}
}

func run(t *testing.T, src string) runResult {
	t.Helper()
	return runWith(t, context.Background(), src, Options{}, nil)
}

func TestPrintedResults(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic", "print(1 + 2 * 3, 7 // 2, -7 // 2, 7 % -3, 1 / 2)", "7 3 -4 -2 0.5\n"},
		{"float repr", "print(0.1 + 0.2, 2.0, 1e16)", "0.30000000000000004 2.0 1e+16\n"},
		{"containers", "print([1, 'a', None, True], (1,), {'a': 1, 'b': [2]})", "[1, 'a', None, True] (1,) {'a': 1, 'b': [2]}\n"},
		{"str repr quoting", `print(repr("it's"), repr('a\nb'))`, `"it's" 'a\nb'` + "\n"},
		{"recursive list", "a = [1]\na.append(a)\nprint(a)", "[1, [...]]\n"},
		{"fstring spec", `print(f"{3.14159:.2f}|{42:>5}|{'x':*^5}")`, "3.14|   42|**x**\n"},
		{"percent format", `print("%d-%s|%5.1f" % (4, 'b', 2.25))`, "4-b|  2.2\n"},
		{"str.format", `print("{} {name}".format(1, name='two'))`, "1 two\n"},
		{"split with sep", `print("a,b,,c".split(","))`, "['a', 'b', '', 'c']\n"},
		{"split whitespace", `print("  x  y ".split(), "a b c".split(None, 1))`, "['x', 'y'] ['a', 'b c']\n"},
		{"case methods", `print("Hello World".upper(), "ABC".lower(), "they're 3rd".title(), "hELLO".capitalize())`, "HELLO WORLD abc They'Re 3Rd Hello\n"},
		{"find and count", `print("banana".find("an"), "banana".rfind("an"), "banana".count("a"), "abc".find("z"))`, "1 3 3 -1\n"},
		{"justify", `print("ab".center(6, "*"), "7".zfill(3), "-7".zfill(4), "x".ljust(3) + "|")`, "**ab** 007 -007 x  |\n"},
		{"strip", `print("  hi  ".strip() + "|", "xxhixx".strip("x"), "ab".startswith(("x", "a")))`, "hi| hi True\n"},
		{"join", `print("-".join(["a", "b", "c"]))`, "a-b-c\n"},
		{"sorted", "print(sorted([3, 1, 2], reverse=True), sorted(['bb', 'a'], key=len))", "[3, 2, 1] ['a', 'bb']\n"},
		{"zip enumerate", "print(list(zip([1, 2], 'ab')), list(enumerate('ab', 1)))", "[(1, 'a'), (2, 'b')] [(1, 'a'), (2, 'b')]\n"},
		{"aggregates", "print(sum(range(5)), min(3, 1, 2), max([4, 9]), any([0, 1]), all([]))", "10 1 9 True True\n"},
		{"conversions", `print(int("0x1f", 16), int(" 42 "), int("1_000"), float("1.5"), str(12), bool([]))`, "31 42 1000 1.5 12 False\n"},
		{"numeric builtins", "print(divmod(7, 2), pow(2, 10), pow(3, 2, 5), abs(-3), hex(255), bin(5))", "(3, 1) 1024 4 3 0xff 0b101\n"},
		{"round", "print(round(2.5), round(3.5), round(3.14159, 2), round(1234, -2))", "2 4 3.14 1200\n"},
		{"comprehensions", "print([x * x for x in range(4) if x % 2 == 0], {k: v for k, v in [('a', 1)]})", "[0, 4] {'a': 1}\n"},
		{"type", "print(type(1.0), type([]).__name__)", "<class 'float'> list\n"},
		{"list methods", "a = [3, 1]\na.append(2)\na.insert(0, 9)\na.remove(1)\nx = a.pop()\na.sort()\nprint(a, x, a.index(9), a.count(3))", "[3, 9] 2 1 1\n"},
		{"dict methods", "d = {}\nd.setdefault('k', []).append(1)\nd.update(z=2)\nprint(d, d.get('q', 0), d.pop('z'), list(d.items()))", "{'k': [1]} 0 2 [('k', [1])]\n"},
		{"set methods", "s = {3, 1}\ns.add(2)\ns.discard(7)\nprint(sorted(s), sorted(s.union({5})), sorted(s.intersection([1, 2])), len(s.difference({1})))", "[1, 2, 3] [1, 2, 3, 5] [1, 2] 2\n"},
		{"hash collision keys", "d = {1: 'a'}\nd[1.0] = 'b'\nd[True] = 'c'\nprint(d)", "{1: 'c'}\n"},
		{"inheritance and super", `
class A:
    def __init__(self, x):
        self.x = x
    def get(self):
        return self.x
class B(A):
    def get(self):
        return super().get() * 2
print(B(3).get())
`, "6\n"},
		{"closures", `
def counter():
    n = 0
    def inc():
        nonlocal n
        n += 1
        return n
    return inc
c = counter()
c()
print(c())
`, "2\n"},
		{"try except finally", `
try:
    1 / 0
except ZeroDivisionError as e:
    print("caught", e)
finally:
    print("done")
`, "caught division by zero\ndone\n"},
		{"user exception", `
class Oops(Exception):
    pass
try:
    raise Oops("bad", 2)
except Exception as e:
    print(type(e).__name__, e.args)
`, "Oops ('bad', 2)\n"},
		{"property", `
class P:
    def __init__(self):
        self._v = 1
    @property
    def v(self):
        return self._v * 10
print(P().v)
`, "10\n"},
		{"dunder methods", `
class V:
    def __init__(self, n):
        self.n = n
    def __add__(self, other):
        return V(self.n + other.n)
    def __repr__(self):
        return "V(" + str(self.n) + ")"
print(V(1) + V(2))
`, "V(3)\n"},
		{"generator expression", "print(sum(x for x in range(4)))", "6\n"},
		{"star args", "def f(*args, **kw):\n    return len(args), sorted(kw)\nprint(f(1, 2, b=1, a=2))", "(2, ['a', 'b'])\n"},
		{"print keywords", "print('a', 'b', sep='-', end='!\\n')", "a-b!\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, tc.src)
			if r.err != nil {
				t.Fatalf("run failed: %v\noutput so far: %q", r.err, r.out)
			}
			if r.out != tc.want {
				t.Fatalf("output = %q, want %q", r.out, tc.want)
			}
		})
	}
}

func TestUncaughtExceptions(t *testing.T) {
	cases := []struct {
		src   string
		class string
		msg   string
		line  int
	}{
		{"x = 1\ny = x / 0\n", "ZeroDivisionError", "division by zero", 2},
		{"print(undefined)\n", "NameError", "name 'undefined' is not defined", 1},
		{"a = [1]\na[5]\n", "IndexError", "list index out of range", 2},
		{"d = {}\nd['k']\n", "KeyError", "'k'", 2},
		{"int('x')\n", "ValueError", "invalid literal for int() with base 10: 'x'", 1},
		{"1 + 'a'\n", "TypeError", "unsupported operand type(s) for +: 'int' and 'str'", 1},
		{"None.foo\n", "AttributeError", "'NoneType' object has no attribute 'foo'", 1},
		{"raise ValueError('bad')\n", "ValueError", "bad", 1},
		{"assert 1 == 2, 'nope'\n", "AssertionError", "nope", 1},
		{"import nosuch\n", "ModuleNotFoundError", "No module named 'nosuch'", 1},
		{"[].pop()\n", "IndexError", "pop from empty list", 1},
		{"'abc'.index('z')\n", "ValueError", "substring not found", 1},
		{"import math\nmath.sqrt(-1)\n", "ValueError", "math domain error", 2},
		{"x = 2 ** 63\n", "OverflowError", "integer overflow", 1},
		{"def f():\n    return g\nf()\n", "NameError", "name 'g' is not defined", 2},
		{"def f():\n    x += 1\nf()\n", "UnboundLocalError", "cannot access local variable 'x' where it is not associated with a value", 2},
		{"range(1, 2, 0)\n", "ValueError", "range() arg 3 must not be zero", 1},
	}
	for _, tc := range cases {
		t.Run(tc.class+"/"+strings.Split(tc.src, "\n")[0], func(t *testing.T) {
			r := run(t, tc.src)
			var exc *Exception
			if !errors.As(r.err, &exc) {
				t.Fatalf("expected *Exception, got %v", r.err)
			}
			if exc.ClassName() != tc.class || exc.Message() != tc.msg {
				t.Fatalf("got %s: %s, want %s: %s", exc.ClassName(), exc.Message(), tc.class, tc.msg)
			}
			if exc.Line() != tc.line {
				t.Fatalf("line = %d, want %d", exc.Line(), tc.line)
			}
		})
	}
}

func TestRecursionLimit(t *testing.T) {
	r := runWith(t, context.Background(), "def f(n):\n    return f(n + 1)\nf(0)\n", Options{MaxDepth: 50}, nil)
	var exc *Exception
	if !errors.As(r.err, &exc) || exc.ClassName() != "RecursionError" {
		t.Fatalf("expected RecursionError, got %v", r.err)
	}
	if !strings.Contains(exc.Format(), "Traceback (most recent call last):") {
		t.Fatalf("traceback missing header:\n%s", exc.Format())
	}
}

func TestTracebackFrames(t *testing.T) {
	r := run(t, "def inner():\n    raise KeyError('k')\ndef outer():\n    inner()\nouter()\n")
	var exc *Exception
	if !errors.As(r.err, &exc) {
		t.Fatalf("expected exception, got %v", r.err)
	}
	var got []string
	for _, tb := range exc.Traceback {
		got = append(got, fmt.Sprintf("%s:%d", tb.Func, tb.Line))
	}
	want := "<module>:5 outer:4 inner:2"
	if strings.Join(got, " ") != want {
		t.Fatalf("traceback = %v, want %s", got, want)
	}
}

func TestHookErrorHaltsExecution(t *testing.T) {
	stop := errors.New("stop")
	src := "print('before')\ntry:\n    x = 1\nexcept BaseException:\n    print('caught')\n"
	hook := HookFunc(func(f *Frame, line int) error {
		if line == 3 {
			return stop
		}
		return nil
	})
	r := runWith(t, context.Background(), src, Options{}, hook)
	if !errors.Is(r.err, stop) {
		t.Fatalf("err = %v, want hook error", r.err)
	}
	if r.out != "before\n" {
		t.Fatalf("output = %q; the hook error must not be catchable", r.out)
	}
}

func TestContextStopsInfiniteLoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r := runWith(t, ctx, "while True:\n    pass\n", Options{}, nil)
	if !errors.Is(r.err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", r.err)
	}
}

func TestStdoutWriteErrorHalts(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("main.py", []byte("try:\n    print('x')\nexcept BaseException:\n    pass\n"))
	res := parser.Parse(fs, id)
	writeErr := errors.New("disk full")
	machine := New(fs, Options{Stdout: failingWriter{writeErr}})
	if err := machine.Run(context.Background(), res.Module); !errors.Is(err, writeErr) {
		t.Fatalf("err = %v, want write error", err)
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }
