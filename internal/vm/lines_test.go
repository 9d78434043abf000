package vm

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func eventString(events []lineEvent) string {
	parts := make([]string, len(events))
	for i, e := range events {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

func TestLineEvents(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "for loop header fires once per iteration plus exit",
			src:  "x = 0\nfor i in range(2):\n    x += i\nprint(x)\n",
			want: "<module>:1 <module>:2 <module>:3 <module>:2 <module>:3 <module>:2 <module>:4",
		},
		{
			name: "while loop",
			src:  "n = 0\nwhile n < 2:\n    n += 1\n",
			want: "<module>:1 <module>:2 <module>:3 <module>:2 <module>:3 <module>:2",
		},
		{
			name: "single line loop body repeats",
			src:  "for i in range(2): pass\n",
			want: "<module>:1 <module>:1 <module>:1",
		},
		{
			name: "else branch line never fires",
			src:  "x = 1\nif x > 3:\n    y = 1\nelse:\n    y = 2\n",
			want: "<module>:1 <module>:2 <module>:5",
		},
		{
			name: "elif test fires",
			src:  "x = 1\nif x > 3:\n    y = 1\nelif x > 0:\n    y = 2\n",
			want: "<module>:1 <module>:2 <module>:4 <module>:5",
		},
		{
			name: "function frames start at the first body line",
			src:  "def f(a):\n    \"\"\"doc\"\"\"\n    b = a + 1\n    return b\nf(1)\n",
			want: "<module>:1 <module>:5 f:3 f:4",
		},
		{
			name: "class body opens on the header line",
			src:  "class A:\n    x = 1\n    def m(self):\n        pass\na = A()\n",
			want: "<module>:1 A:1 A:2 A:3 <module>:5",
		},
		{
			name: "lambda body fires per call",
			src:  "g = lambda v: v * 2\ng(1)\ng(2)\n",
			want: "<module>:1 <module>:2 <lambda>:1 <module>:3 <lambda>:1",
		},
		{
			name: "comprehensions fire nothing",
			src:  "xs = [i for i in range(3)]\nys = xs\n",
			want: "<module>:1 <module>:2",
		},
		{
			name: "global statements are skipped",
			src:  "n = 0\ndef f():\n    global n\n    n = 1\nf()\n",
			want: "<module>:1 <module>:2 <module>:5 f:4",
		},
		{
			name: "finally line never fires",
			src:  "try:\n    x = 1\nfinally:\n    x = 2\n",
			want: "<module>:1 <module>:2 <module>:4",
		},
		{
			name: "except clause fires when tested",
			src:  "try:\n    1 / 0\nexcept ZeroDivisionError:\n    x = 2\n",
			want: "<module>:1 <module>:2 <module>:3 <module>:4",
		},
		{
			name: "continue still takes the back edge",
			src:  "for i in range(2):\n    if i == 0:\n        continue\n",
			want: "<module>:1 <module>:2 <module>:3 <module>:1 <module>:2 <module>:1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, tc.src)
			if r.err != nil {
				t.Fatalf("run failed: %v", r.err)
			}
			if got := eventString(r.events); got != tc.want {
				t.Fatalf("events:\n got %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestBindingsOrder(t *testing.T) {
	src := `def outer():
    k = 10
    def inner(a, b):
        c = a + b + k
        return c
    return inner(1, 2)
outer()
`
	var got string
	hook := HookFunc(func(f *Frame, line int) error {
		if f.Name() != "inner" || line != 5 {
			return nil
		}
		parts := make([]string, 0, 4)
		for _, b := range f.Bindings() {
			parts = append(parts, fmt.Sprintf("%s=%v", b.Name, b.Value))
		}
		got = strings.Join(parts, " ")
		return nil
	})
	r := runWith(t, context.Background(), src, Options{}, hook)
	if r.err != nil {
		t.Fatalf("run failed: %v", r.err)
	}
	if want := "a=1 b=2 c=13 k=10"; got != want {
		t.Fatalf("bindings = %q, want %q", got, want)
	}
}

func TestParameterBindingsFollowVarnames(t *testing.T) {
	src := "def f(a, *args, b=2, **kw):\n    c = a\n    return c\nf(1, 5, x=3)\n"
	var names []string
	hook := HookFunc(func(f *Frame, line int) error {
		if f.Name() == "f" && line == 3 {
			for _, b := range f.Bindings() {
				names = append(names, b.Name)
			}
		}
		return nil
	})
	r := runWith(t, context.Background(), src, Options{}, hook)
	if r.err != nil {
		t.Fatalf("run failed: %v", r.err)
	}
	if got, want := strings.Join(names, " "), "a b args kw c"; got != want {
		t.Fatalf("bindings = %q, want %q", got, want)
	}
}

func TestUnboundLocalsAreHidden(t *testing.T) {
	var names []string
	hook := HookFunc(func(f *Frame, line int) error {
		if f.Name() == "f" && line == 2 {
			for _, b := range f.Bindings() {
				names = append(names, b.Name)
			}
		}
		return nil
	})
	r := runWith(t, context.Background(), "def f(a):\n    x = a\n    return x\nf(1)\n", Options{}, hook)
	if r.err != nil {
		t.Fatalf("run failed: %v", r.err)
	}
	if strings.Join(names, ",") != "a" {
		t.Fatalf("bindings before assignment = %v, want [a]", names)
	}
}

func TestFrameMetadata(t *testing.T) {
	var file string
	var back string
	hook := HookFunc(func(f *Frame, line int) error {
		if f.Name() == "f" {
			file = f.File()
			back = f.Back().Name()
		}
		return nil
	})
	r := runWith(t, context.Background(), "def f():\n    pass\nf()\n", Options{}, hook)
	if r.err != nil {
		t.Fatalf("run failed: %v", r.err)
	}
	if file != "main.py" || back != "<module>" {
		t.Fatalf("file=%q back=%q", file, back)
	}
}
