package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pytrace/internal/record"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10000, cfg.Limits.MaxSteps)
	assert.Equal(t, 5*time.Second, cfg.Limits.Timeout.Std())
	assert.Equal(t, 1<<20, cfg.Limits.MaxOutput)
	assert.Equal(t, 1000, cfg.Limits.MaxDepth)
	assert.Equal(t, "keep", cfg.Output.FailureOutput)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pytrace.toml", `
[limits]
max_steps = 50
timeout = "250ms"

[output]
format = "json-indent"
indent = 4
failure_output = "discard"

[serve]
addr = ":9090"
max_concurrent = 2

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, 50, cfg.Limits.MaxSteps)
	assert.Equal(t, 250*time.Millisecond, cfg.Limits.Timeout.Std())
	assert.Equal(t, 1<<20, cfg.Limits.MaxOutput, "unset keys keep their defaults")
	assert.Equal(t, "json-indent", cfg.Output.Format)
	assert.Equal(t, ":9090", cfg.Serve.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)

	opts, err := cfg.RunOptions()
	require.NoError(t, err)
	assert.Equal(t, record.DiscardOutput, opts.FailureOutput)
	assert.Equal(t, 50, opts.MaxSteps)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pytrace.yaml", `
limits:
  max_depth: 200
  timeout: 2s
serve:
  request_timeout: 1m
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Limits.MaxDepth)
	assert.Equal(t, 2*time.Second, cfg.Limits.Timeout.Std())
	assert.Equal(t, time.Minute, cfg.Serve.RequestTimeout.Std())
}

func TestLoadEmptyYAMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pytrace.yml", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Defaults().Limits, cfg.Limits)
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name string
		file string
		body string
	}{
		{"unknown toml key", "pytrace.toml", "[limits]\nmax_stepz = 3\n"},
		{"unknown yaml key", "pytrace.yaml", "limits:\n  max_stepz: 3\n"},
		{"bad duration", "pytrace.toml", "[limits]\ntimeout = \"soon\"\n"},
		{"bad yaml duration", "pytrace.yaml", "limits:\n  timeout: [1]\n"},
		{"unsupported extension", "pytrace.json", "{}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, t.TempDir(), tc.file, tc.body))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Limits.MaxSteps = -1
	cfg.Output.Format = "xml"
	cfg.Output.FailureOutput = "shred"
	cfg.Serve.MaxConcurrent = 0
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, key := range []string{"limits.max_steps", "output.format", "output.failure_output", "serve.max_concurrent", "log.level"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, "pytrace.toml", "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestFindPrefersTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pytrace.yaml", "")
	want := writeFile(t, dir, "pytrace.toml", "")
	got, ok, err := Find(dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvTimeout: "750ms", EnvMaxSteps: "12"}
	cfg := ApplyEnv(Defaults(), func(k string) string { return env[k] })
	assert.Equal(t, 750*time.Millisecond, cfg.Limits.Timeout.Std())
	assert.Equal(t, 12, cfg.Limits.MaxSteps)

	env = map[string]string{EnvTimeout: "forever", EnvMaxSteps: "-4"}
	cfg = ApplyEnv(Defaults(), func(k string) string { return env[k] })
	assert.Equal(t, Defaults().Limits, cfg.Limits, "invalid values are ignored")
}

func TestDiscoverExplicitPath(t *testing.T) {
	t.Setenv(EnvMaxSteps, "7")
	path := writeFile(t, t.TempDir(), "custom.toml", "[limits]\nmax_steps = 99\n")
	cfg, err := Discover(path, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Limits.MaxSteps, "environment wins over the file")
}
