package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("/tmp/main.py", []byte("x = 1"), 0)
	if id1 != 0 {
		t.Errorf("Expected first FileID to be 0, got %d", id1)
	}

	// Повторное добавление того же пути создаёт новую версию
	id2 := fs.Add("/tmp/main.py", []byte("x = 2"), 0)
	if id2 != 1 {
		t.Errorf("Expected second FileID to be 1, got %d", id2)
	}

	latest, ok := fs.GetByPath("/tmp/main.py")
	if !ok {
		t.Fatal("Expected file to exist after Add")
	}
	if latest.ID != id2 {
		t.Errorf("Expected latest ID to be %d, got %d", id2, latest.ID)
	}
	if string(fs.Get(id1).Content) != "x = 1" {
		t.Errorf("Expected old version to stay readable, got %q", fs.Get(id1).Content)
	}
	if fs.Len() != 2 {
		t.Errorf("Expected 2 files, got %d", fs.Len())
	}
}

func TestAddVirtualKeepsName(t *testing.T) {
	fs := NewFileSet()

	id := fs.AddVirtual("<submitted>", []byte("a\nb\n"))
	file := fs.Get(id)

	if file.Path != "<submitted>" {
		t.Errorf("Expected virtual name to be kept verbatim, got %q", file.Path)
	}
	if !file.IsVirtual() {
		t.Error("Expected FileVirtual flag to be set")
	}
	expected := []uint32{1, 3}
	if len(file.LineIdx) != len(expected) {
		t.Fatalf("Expected LineIdx length %d, got %d", len(expected), len(file.LineIdx))
	}
	for i, val := range expected {
		if file.LineIdx[i] != val {
			t.Errorf("Expected LineIdx[%d] = %d, got %d", i, val, file.LineIdx[i])
		}
	}
}

func TestAddVirtualNormalizes(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("<submitted>", []byte("\xEF\xBB\xBFx = 1\r\nprint(x)\r\n"))
	if got := string(fs.Get(id).Content); got != "x = 1\nprint(x)\n" {
		t.Errorf("unexpected normalized content %q", got)
	}
}

func TestCRLFNormalization(t *testing.T) {
	original := []byte("a\r\nb\r\n")
	normalized, changed := normalizeCRLF(original)

	if !changed {
		t.Error("Expected CRLF normalization to be detected")
	}
	if string(normalized) != "a\nb\n" {
		t.Errorf("Expected normalized content %q, got %q", "a\nb\n", string(normalized))
	}

	lone := []byte("a\rb")
	out, changed := normalizeCRLF(lone)
	if changed || string(out) != "a\rb" {
		t.Errorf("lone CR must stay untouched, got %q changed=%v", out, changed)
	}
}

func TestBOMRemoval(t *testing.T) {
	bomContent := []byte{0xEF, 0xBB, 0xBF, 'x', '\n'}
	withoutBOM, hadBOM := removeBOM(bomContent)

	if !hadBOM {
		t.Error("Expected BOM to be detected")
	}
	if string(withoutBOM) != "x\n" {
		t.Errorf("Expected content without BOM %q, got %q", "x\n", string(withoutBOM))
	}
}

func TestResolveLines(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.py", []byte("x = 1\nprint(x)\n\ny = 2"))
	file := fs.Get(id)

	cases := []struct {
		off  uint32
		line int
	}{
		{0, 1},
		{4, 1},
		{5, 1}, // the newline itself belongs to line 1
		{6, 2},
		{14, 2},
		{15, 3},
		{16, 4},
		{20, 4},
	}
	for _, tc := range cases {
		if got := file.LineOf(tc.off); got != tc.line {
			t.Errorf("LineOf(%d) = %d, want %d", tc.off, got, tc.line)
		}
	}

	start, end := fs.Resolve(Span{File: id, Start: 6, End: 11})
	if start != (LineCol{Line: 2, Col: 1}) || end != (LineCol{Line: 2, Col: 6}) {
		t.Errorf("unexpected resolve result %+v %+v", start, end)
	}
}

func TestResolveUTF8(t *testing.T) {
	fs := NewFileSet()

	// α занимает 2 байта
	id := fs.AddVirtual("test.py", []byte("α\n"))
	start, end := fs.Resolve(Span{File: id, Start: 0, End: 1})

	if start != (LineCol{Line: 1, Col: 1}) {
		t.Errorf("Expected start 1:1, got %+v", start)
	}
	if end != (LineCol{Line: 1, Col: 2}) {
		t.Errorf("Expected end 1:2, got %+v", end)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.py", []byte("first\nsecond\nthird"))
	file := fs.Get(id)

	for n, want := range map[uint32]string{0: "", 1: "first", 2: "second", 3: "third", 4: ""} {
		if got := file.GetLine(n); got != want {
			t.Errorf("GetLine(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestEdgeCases(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.AddVirtual("empty.py", []byte{})
	if len(fs.Get(id1).LineIdx) != 0 {
		t.Errorf("Expected empty LineIdx for empty file")
	}

	id2 := fs.AddVirtual("only_newline.py", []byte("\n"))
	file2 := fs.Get(id2)
	if len(file2.LineIdx) != 1 || file2.LineIdx[0] != 0 {
		t.Errorf("Expected LineIdx [0] for file with only newline, got %v", file2.LineIdx)
	}

	if fs.Get(FileID(99)) != nil {
		t.Error("Expected nil for unknown FileID")
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.py")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	fs := NewFileSet()
	path := writeTemp(t, "a\nb\n")

	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	file := fs.Get(id)
	if string(file.Content) != "a\nb\n" {
		t.Errorf("Expected file content 'a\\nb\\n', got %q", string(file.Content))
	}
	if !filepath.IsAbs(filepath.FromSlash(file.Path)) {
		t.Errorf("Expected canonical absolute path, got %q", file.Path)
	}
}

func TestLoadBOMAndCRLF(t *testing.T) {
	fs := NewFileSet()
	path := writeTemp(t, "\xEF\xBB\xBFa\r\nb\r\n")

	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	file := fs.Get(id)
	if string(file.Content) != "a\nb\n" {
		t.Errorf("Expected file content 'a\\nb\\n', got %q", string(file.Content))
	}
	if file.Flags&FileHadBOM == 0 {
		t.Error("Expected FileHadBOM flag to be set")
	}
	if file.Flags&FileNormalizedCRLF == 0 {
		t.Error("Expected FileNormalizedCRLF flag to be set")
	}
}

func TestLoadMissing(t *testing.T) {
	fs := NewFileSet()
	if _, err := fs.Load(filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
