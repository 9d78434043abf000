package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		CPU:          filepath.Join(dir, "cpu.pprof"),
		Mem:          filepath.Join(dir, "mem.pprof"),
		RuntimeTrace: filepath.Join(dir, "rt.trace"),
	}
	if !opts.Enabled() {
		t.Fatal("options not enabled")
	}
	s, err := Start(opts)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	for _, p := range []string{opts.CPU, opts.Mem, opts.RuntimeTrace} {
		info, err := os.Stat(p)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", filepath.Base(p), err)
		}
	}
}

func TestStartFailureLeavesNothingRunning(t *testing.T) {
	dir := t.TempDir()
	_, err := Start(Options{
		CPU:          filepath.Join(dir, "cpu.pprof"),
		RuntimeTrace: filepath.Join(dir, "missing", "rt.trace"),
	})
	if err == nil {
		t.Fatal("Start succeeded with an unwritable trace path")
	}
	s, err := Start(Options{CPU: filepath.Join(dir, "again.pprof")})
	if err != nil {
		t.Fatalf("CPU profiler still running: %v", err)
	}
	_ = s.Stop()
}

func TestNilSessionStop(t *testing.T) {
	var s *Session
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
}
