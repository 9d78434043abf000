package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pytrace/internal/config"
	"pytrace/internal/driver"
	"pytrace/internal/logging"
	"pytrace/internal/version"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	cleanup []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

// main runs the command line and exits 1 when a command fails.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{log: logging.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pytrace [flags] file.py",
		Short: "Line-by-line execution tracer for Python scripts",
		Long: `pytrace runs a Python script in a sandboxed interpreter and prints one
JSON document describing every executed line: its number, the variables
visible before it ran and the output it produced.`,
		Args:              cobra.MaximumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.runTrace(cmd, args[0])
		},
	}
	root.Version = version.Version

	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("config", "", "config file (default: pytrace.toml or pytrace.yaml found upwards from the working directory)")
	pf.String("log-level", "", "log level (debug|info|warn|error), overrides [log] level")
	pf.Bool("timings", false, "print phase timings to stderr")
	pf.String("trace", "", "write internal trace events to a file ('-' for stderr)")
	pf.String("trace-level", "off", "internal trace level (off|error|phase|detail|debug)")
	pf.String("trace-mode", "stream", "internal trace storage (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "events kept by the ring trace storage")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to collect")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	addRunFlags(root)
	root.AddCommand(newRunCmd(a), newServeCmd(a), newTokenizeCmd(a), newCheckCmd(a), newVersionCmd())
	return root
}

// setup loads the configuration and builds the logger, color mode and
// tracer before any command runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	root := cmd.Root()
	colorFlag, _ := root.PersistentFlags().GetString("color")
	if err := applyColorMode(colorFlag, cmd.ErrOrStderr()); err != nil {
		return err
	}

	explicit, _ := root.PersistentFlags().GetString("config")
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	cfg, err := config.Discover(explicit, wd)
	if err != nil {
		return err
	}
	if root.PersistentFlags().Changed("log-level") {
		cfg.Log.Level, _ = root.PersistentFlags().GetString("log-level")
	}
	a.cfg = cfg

	logger, err := logging.NewTo(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	a.log = logger
	if cfg.Path != "" {
		a.log.Debug("config loaded", "path", cfg.Path)
	}

	cleanup, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	a.cleanup = append(a.cleanup, cleanup)

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	a.cleanup = append(a.cleanup, stopProfiling)
	return nil
}

func applyColorMode(mode string, stderr io.Writer) error {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminalWriter(stderr)
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

func printError(w io.Writer, err error) {
	label := color.New(color.FgRed, color.Bold).Sprint("error:")
	if errors.Is(err, driver.ErrSetup) {
		label = color.New(color.FgRed, color.Bold).Sprint("setup error:")
	}
	fmt.Fprintf(w, "%s %v\n", label, err)
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}
