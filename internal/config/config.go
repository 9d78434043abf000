// Package config loads pytrace.toml or pytrace.yaml and layers environment
// overrides on top of the defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"pytrace/internal/driver"
	"pytrace/internal/logging"
	"pytrace/internal/record"
	"pytrace/internal/trace"
	"pytrace/internal/vm"
)

// ErrInvalidConfig wraps every validation and decoding failure.
var ErrInvalidConfig = errors.New("invalid config")

// FileNames are searched in order in each directory during discovery.
var FileNames = []string{"pytrace.toml", "pytrace.yaml", "pytrace.yml"}

// Environment overrides.
const (
	EnvTimeout  = "PYTRACE_TIMEOUT"
	EnvMaxSteps = "PYTRACE_MAX_STEPS"
)

type Config struct {
	Limits Limits `toml:"limits" yaml:"limits"`
	Output Output `toml:"output" yaml:"output"`
	Serve  Serve  `toml:"serve" yaml:"serve"`
	Log    Log    `toml:"log" yaml:"log"`
	Trace  Trace  `toml:"trace" yaml:"trace"`

	// Path is the file the config came from; empty for defaults.
	Path string `toml:"-" yaml:"-"`
}

type Limits struct {
	MaxSteps  int      `toml:"max_steps" yaml:"max_steps"`
	Timeout   Duration `toml:"timeout" yaml:"timeout"`
	MaxOutput int      `toml:"max_output" yaml:"max_output"`
	MaxDepth  int      `toml:"max_depth" yaml:"max_depth"`
	Seed      uint64   `toml:"seed" yaml:"seed"`
}

type Output struct {
	Format        string `toml:"format" yaml:"format"`
	Indent        int    `toml:"indent" yaml:"indent"`
	FailureOutput string `toml:"failure_output" yaml:"failure_output"`
}

type Serve struct {
	Addr           string   `toml:"addr" yaml:"addr"`
	MaxConcurrent  int      `toml:"max_concurrent" yaml:"max_concurrent"`
	RequestTimeout Duration `toml:"request_timeout" yaml:"request_timeout"`
	MaxBodyBytes   int64    `toml:"max_body_bytes" yaml:"max_body_bytes"`
}

type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type Trace struct {
	Level string `toml:"level" yaml:"level"`
	Mode  string `toml:"mode" yaml:"mode"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Limits: Limits{
			MaxSteps:  driver.DefaultMaxSteps,
			Timeout:   Duration(driver.DefaultTimeout),
			MaxOutput: driver.DefaultMaxOutput,
			MaxDepth:  vm.DefaultMaxDepth,
		},
		Output: Output{Format: string(driver.FormatJSON), Indent: 2, FailureOutput: "keep"},
		Serve: Serve{
			Addr:           "127.0.0.1:8080",
			MaxConcurrent:  4,
			RequestTimeout: Duration(30 * time.Second),
			MaxBodyBytes:   1 << 20,
		},
		Log:   Log{Level: "info", Format: "text"},
		Trace: Trace{Level: "off", Mode: "stream"},
	}
}

// Find walks up from startDir looking for a config file.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, true, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return "", false, fmt.Errorf("stat %q: %w", candidate, err)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Discover loads explicit when set, else the first config found from
// startDir upwards, else the defaults. Environment overrides apply in every
// case and the result is validated.
func Discover(explicit, startDir string) (Config, error) {
	path := explicit
	if path == "" {
		found, ok, err := Find(startDir)
		if err != nil {
			return Config{}, err
		}
		if !ok {
			cfg := ApplyEnv(Defaults(), os.Getenv)
			return cfg, cfg.Validate()
		}
		path = found
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	cfg = ApplyEnv(cfg, os.Getenv)
	return cfg, cfg.Validate()
}

// Load decodes the file at path over the defaults. The format follows the
// extension; unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Defaults()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		if und := meta.Undecoded(); len(und) > 0 {
			return Config{}, fmt.Errorf("%w: %s: unknown key %q", ErrInvalidConfig, path, und[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %s: unsupported extension %q", ErrInvalidConfig, path, ext)
	}
	cfg.Path = path
	return cfg, nil
}

// ApplyEnv overrides limits from the environment. Unparsable or
// non-positive values are ignored.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if v := getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Limits.Timeout = Duration(d)
		}
	}
	if v := getenv(EnvMaxSteps); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Limits.MaxSteps = n
		}
	}
	return cfg
}

// Validate reports every problem at once, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string
	bad := func(format string, a ...any) {
		problems = append(problems, fmt.Sprintf(format, a...))
	}
	if c.Limits.MaxSteps < 0 {
		bad("limits.max_steps must not be negative")
	}
	if c.Limits.Timeout < 0 {
		bad("limits.timeout must not be negative")
	}
	if c.Limits.MaxOutput < 0 {
		bad("limits.max_output must not be negative")
	}
	if c.Limits.MaxDepth < 0 {
		bad("limits.max_depth must not be negative")
	}
	if _, err := driver.ParseFormat(c.Output.Format); err != nil {
		bad("output.format: %v", err)
	}
	if c.Output.Indent < 0 || c.Output.Indent > 16 {
		bad("output.indent must be between 0 and 16")
	}
	if _, err := record.ParseFailureOutput(c.Output.FailureOutput); err != nil {
		bad("output.failure_output: %v", err)
	}
	if c.Serve.MaxConcurrent < 1 {
		bad("serve.max_concurrent must be at least 1")
	}
	if c.Serve.RequestTimeout < 0 {
		bad("serve.request_timeout must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		bad("log.format must be text or json")
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		bad("trace.level: %v", err)
	}
	if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
		bad("trace.mode: %v", err)
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// RunOptions converts the limits and output policy for driver.Run.
func (c Config) RunOptions() (driver.Options, error) {
	policy, err := record.ParseFailureOutput(c.Output.FailureOutput)
	if err != nil {
		return driver.Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return driver.Options{
		MaxSteps:      c.Limits.MaxSteps,
		Timeout:       c.Limits.Timeout.Std(),
		MaxOutput:     c.Limits.MaxOutput,
		MaxDepth:      c.Limits.MaxDepth,
		Seed:          c.Limits.Seed,
		FailureOutput: policy,
	}, nil
}
