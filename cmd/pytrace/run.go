package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pytrace/internal/config"
	"pytrace/internal/driver"
	"pytrace/internal/observ"
	"pytrace/internal/record"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] file.py",
		Short: "Trace a Python script and print the trace document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTrace(cmd, args[0])
		},
	}
	addRunFlags(cmd)
	return cmd
}

// addRunFlags registers the run flags; the root command carries them too
// so "pytrace file.py" accepts the same options.
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("max-steps", driver.DefaultMaxSteps, "stop after this many recorded steps (0 = unlimited)")
	f.Duration("timeout", driver.DefaultTimeout, "wall-clock limit for the script (0 = unlimited)")
	f.Int("max-output", driver.DefaultMaxOutput, "limit on bytes the script may print (0 = unlimited)")
	f.Int("max-depth", 1000, "maximum call depth before RecursionError")
	f.String("format", "json", "document format (json|json-indent|msgpack)")
	f.Int("indent", 2, "spaces per level for json-indent")
	f.String("failure-output", "keep", "output buffered when the script fails (keep|discard)")
	f.Bool("stdin", false, "feed standard input to the script's input()")
	f.Uint64("seed", 0, "seed for the random module (0 = fixed default)")
	f.String("ui", "auto", "live progress on stderr (auto|on|off)")
}

// applyRunFlags copies explicitly set flags over the configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Changed(name) {
			err = apply()
		}
	}
	set("max-steps", func() (e error) { cfg.Limits.MaxSteps, e = f.GetInt("max-steps"); return })
	set("timeout", func() error {
		d, e := f.GetDuration("timeout")
		cfg.Limits.Timeout = config.Duration(d)
		return e
	})
	set("max-output", func() (e error) { cfg.Limits.MaxOutput, e = f.GetInt("max-output"); return })
	set("max-depth", func() (e error) { cfg.Limits.MaxDepth, e = f.GetInt("max-depth"); return })
	set("seed", func() (e error) { cfg.Limits.Seed, e = f.GetUint64("seed"); return })
	set("format", func() (e error) { cfg.Output.Format, e = f.GetString("format"); return })
	set("indent", func() (e error) { cfg.Output.Indent, e = f.GetInt("indent"); return })
	set("failure-output", func() (e error) { cfg.Output.FailureOutput, e = f.GetString("failure-output"); return })
	if err != nil {
		return err
	}
	return cfg.Validate()
}

func (a *app) runTrace(cmd *cobra.Command, path string) error {
	cfg := a.cfg
	if err := applyRunFlags(cmd, &cfg); err != nil {
		return err
	}
	format, err := driver.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	opts, err := cfg.RunOptions()
	if err != nil {
		return err
	}
	if useStdin, _ := cmd.Flags().GetBool("stdin"); useStdin {
		opts.Stdin = cmd.InOrStdin()
	}
	timings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	if timings {
		opts.Timer = observ.NewTimer()
	}
	uiFlag, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	start := time.Now()
	var tr *record.Trace
	if shouldUseTUI(mode, cmd.ErrOrStderr()) {
		tr, err = runWithUI(ctx, a.log, path, opts, cmd.ErrOrStderr())
	} else {
		tr, err = driver.Run(ctx, path, opts)
	}
	if err != nil {
		return err
	}
	a.log.Debug("trace finished",
		"path", path,
		"steps", tr.Len(),
		"outcome", tr.Outcome.String(),
		"duration", time.Since(start),
	)

	if err := driver.EncodeWith(cmd.OutOrStdout(), tr, driver.EncodeOptions{Format: format, Indent: cfg.Output.Indent}); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	if timings {
		printTimings(cmd.ErrOrStderr(), opts.Timer)
	}
	return nil
}

func printTimings(out io.Writer, timer *observ.Timer) {
	if out == nil || timer == nil {
		return
	}
	fmt.Fprint(out, timer.Summary())
}
