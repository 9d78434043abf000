package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pytrace/internal/config"
	"pytrace/internal/trace"
)

// setupTracing reads the trace flags, falling back to the [trace] config
// section, and attaches the tracer to the command context. The returned
// cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command, fileCfg config.Trace) (func(), error) {
	root := cmd.Root()
	flags := root.PersistentFlags()

	traceOutput, err := flags.GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr := fileCfg.Level
	if flags.Changed("trace-level") || levelStr == "" {
		levelStr, _ = flags.GetString("trace-level")
	}
	modeStr := fileCfg.Mode
	if flags.Changed("trace-mode") || modeStr == "" {
		modeStr, _ = flags.GetString("trace-mode")
	}
	ringSize, err := flags.GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace without a level means phase tracing.
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}
	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	root.SetContext(ctx)

	cleanup := func() {
		if ring, ok := tracer.(*trace.RingTracer); ok {
			if err := ring.Dump(cmd.ErrOrStderr(), trace.FormatText); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}
