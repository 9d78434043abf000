package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalResolvesRelativeAndSymlinks(t *testing.T) {
	tmp := t.TempDir()
	target := filepath.Join(tmp, "real.py")
	if err := os.WriteFile(target, []byte("x = 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(tmp, "link.py")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	want, err := Canonical(target)
	if err != nil {
		t.Fatalf("Canonical(target): %v", err)
	}
	got, err := Canonical(link)
	if err != nil {
		t.Fatalf("Canonical(link): %v", err)
	}
	if got != want {
		t.Fatalf("expected symlink to resolve to %q, got %q", want, got)
	}

	dotted := filepath.Join(tmp, "sub", "..", "real.py")
	got, err = Canonical(dotted)
	if err != nil {
		t.Fatalf("Canonical(dotted): %v", err)
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCanonicalErrors(t *testing.T) {
	if _, err := Canonical(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := Canonical(filepath.Join(t.TempDir(), "nope.py")); err == nil {
		t.Error("expected error for missing path")
	}
}
