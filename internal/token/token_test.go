package token

import "testing"

func TestLookupKeyword(t *testing.T) {
	cases := map[string]Kind{
		"def":      KwDef,
		"None":     KwNone,
		"nonlocal": KwNonlocal,
		"lambda":   KwLambda,
	}
	for text, want := range cases {
		got, ok := LookupKeyword(text)
		if !ok || got != want {
			t.Errorf("LookupKeyword(%q) = %v, %v; want %v", text, got, ok, want)
		}
	}
	for _, text := range []string{"print", "none", "self", "len"} {
		if _, ok := LookupKeyword(text); ok {
			t.Errorf("%q must not be a keyword", text)
		}
	}
}

func TestKindString(t *testing.T) {
	if got := FloorAssign.String(); got != "//=" {
		t.Errorf("FloorAssign.String() = %q", got)
	}
	if got := Newline.String(); got != "NEWLINE" {
		t.Errorf("Newline.String() = %q", got)
	}
	if got := Kind(250).String(); got != "Unknown" {
		t.Errorf("Kind(250).String() = %q", got)
	}
}

func TestAugmentedOp(t *testing.T) {
	op, ok := PowAssign.AugmentedOp()
	if !ok || op != StarStar {
		t.Fatalf("PowAssign.AugmentedOp() = %v, %v", op, ok)
	}
	if _, ok := Assign.AugmentedOp(); ok {
		t.Fatal("plain assignment is not augmented")
	}
}

func TestTokenPredicates(t *testing.T) {
	if !(Token{Kind: KwTrue}).IsLiteral() {
		t.Error("True should be a literal")
	}
	if !(Token{Kind: KwAwait}).IsKeyword() || (Token{Kind: Ident}).IsKeyword() {
		t.Error("keyword range mismatch")
	}
	if !(Token{Kind: Ellipsis}).IsPunctOrOp() || (Token{Kind: KwAwait}).IsPunctOrOp() {
		t.Error("operator range mismatch")
	}
	if !(Token{Kind: Dedent}).IsLayout() {
		t.Error("DEDENT is layout")
	}
}
