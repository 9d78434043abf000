package vm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMathModule(t *testing.T) {
	src := "import math\nfrom math import gcd, pi\nprint(math.sqrt(16), math.floor(2.7), math.ceil(-2.5), math.factorial(5), gcd(12, 18), math.isqrt(17), pi > 3.14)\n"
	r := run(t, src)
	if r.err != nil {
		t.Fatalf("run failed: %v", r.err)
	}
	if want := "4.0 2 -2 120 6 4 True\n"; r.out != want {
		t.Fatalf("output = %q, want %q", r.out, want)
	}
}

func TestRandomIsSeeded(t *testing.T) {
	src := "import random\nxs = [1, 2, 3, 4, 5]\nrandom.shuffle(xs)\nprint(random.randint(1, 100), random.choice('abc'), xs, random.random())\n"
	first := runWith(t, context.Background(), src, Options{Seed: 7}, nil)
	second := runWith(t, context.Background(), src, Options{Seed: 7}, nil)
	if first.err != nil || second.err != nil {
		t.Fatalf("run failed: %v / %v", first.err, second.err)
	}
	if first.out != second.out {
		t.Fatalf("same seed produced %q and %q", first.out, second.out)
	}
	reseeded := run(t, "import random\nrandom.seed(3)\na = random.random()\nrandom.seed(3)\nprint(a == random.random())\n")
	if reseeded.out != "True\n" {
		t.Fatalf("reseeding output = %q", reseeded.out)
	}
}

func TestRandomErrors(t *testing.T) {
	cases := map[string]string{
		"import random\nrandom.choice([])\n":         "Cannot choose from an empty sequence",
		"import random\nrandom.randint(5, 2)\n":      "empty range in randrange(5, 3)",
		"import random\nrandom.randrange(0)\n":       "empty range in randrange(0)",
		"import random\nrandom.randrange(1, 9, 0)\n": "zero step for randrange()",
	}
	for src, msg := range cases {
		r := run(t, src)
		var exc *Exception
		if !errors.As(r.err, &exc) || exc.Message() != msg {
			t.Errorf("%q: got %v, want %q", src, r.err, msg)
		}
	}
}

func TestSiblingImport(t *testing.T) {
	dir := t.TempDir()
	helper := "SCALE = 3\ndef scale(x):\n    return SCALE * x\n"
	if err := os.WriteFile(filepath.Join(dir, "helper.py"), []byte(helper), 0o600); err != nil {
		t.Fatal(err)
	}
	src := "import helper\nfrom helper import scale as s\nprint(helper.scale(2), s(3))\n"
	r := runWith(t, context.Background(), src, Options{ImportDir: dir}, nil)
	if r.err != nil {
		t.Fatalf("run failed: %v", r.err)
	}
	if r.out != "6 9\n" {
		t.Fatalf("output = %q", r.out)
	}
}

func TestSiblingImportSyntaxError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.py"), []byte("def f(:\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := runWith(t, context.Background(), "import broken\n", Options{ImportDir: dir}, nil)
	var exc *Exception
	if !errors.As(r.err, &exc) || exc.ClassName() != "SyntaxError" {
		t.Fatalf("expected SyntaxError, got %v", r.err)
	}
}
