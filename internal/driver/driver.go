// Package driver runs one script end to end: load, parse, sandboxed
// execution, containment of failures and finalisation of the trace.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"pytrace/internal/ast"
	"pytrace/internal/capture"
	"pytrace/internal/observ"
	"pytrace/internal/parser"
	"pytrace/internal/record"
	"pytrace/internal/sandbox"
	"pytrace/internal/snapshot"
	"pytrace/internal/source"
	"pytrace/internal/trace"
	"pytrace/internal/vm"
)

// Defaults for Options fields left at zero by callers that want them.
const (
	DefaultMaxSteps  = 10_000
	DefaultTimeout   = 5 * time.Second
	DefaultMaxOutput = 1 << 20
)

// failurePrefix starts every terminal failure message.
const failurePrefix = "Runtime Error: "

// Options configures a run. Zero limits mean unlimited, except MaxDepth
// which falls back to vm.DefaultMaxDepth.
type Options struct {
	MaxSteps      int
	Timeout       time.Duration
	MaxOutput     int
	MaxDepth      int
	Seed          uint64
	FailureOutput record.FailureOutput
	Stdin         io.Reader
	// Progress receives a notification after every recorded step, on the
	// goroutine executing the script.
	Progress func(sandbox.Progress)
	// Timer, when set, receives load, parse, execute and finalize phases.
	Timer *observ.Timer
}

// DefaultOptions returns the documented default limits.
func DefaultOptions() Options {
	return Options{
		MaxSteps:  DefaultMaxSteps,
		Timeout:   DefaultTimeout,
		MaxOutput: DefaultMaxOutput,
		MaxDepth:  vm.DefaultMaxDepth,
	}
}

// Run traces the script at path. The error is non-nil only for a
// *SetupError, in which case no trace exists; script failures of any kind
// end up in the trace's terminal step.
func Run(ctx context.Context, path string, opts Options) (*record.Trace, error) {
	ctx, span := trace.Start(ctx, trace.ScopeRun, "run")
	defer span.End("")

	idx := opts.Timer.Begin("load")
	canonical, err := source.Canonical(path)
	if err != nil {
		opts.Timer.End(idx, "")
		return nil, &SetupError{Op: "resolve", Path: path, Err: err}
	}
	fs := source.NewFileSet()
	id, err := fs.Load(canonical)
	opts.Timer.End(idx, canonical)
	if err != nil {
		return nil, &SetupError{Op: "read", Path: canonical, Err: err}
	}
	span.WithExtra("path", canonical)
	return execute(ctx, fs, id, filepath.Dir(canonical), opts), nil
}

// RunSource traces an in-memory script. name is its identity in frames
// and tracebacks; sibling imports are disabled. It cannot fail.
func RunSource(ctx context.Context, name string, src []byte, opts Options) *record.Trace {
	ctx, span := trace.Start(ctx, trace.ScopeRun, "run")
	defer span.End("")

	idx := opts.Timer.Begin("load")
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, src)
	opts.Timer.End(idx, name)
	return execute(ctx, fs, id, "", opts)
}

func execute(ctx context.Context, fs *source.FileSet, id source.FileID, importDir string, opts Options) *record.Trace {
	file := fs.Get(id)
	rec := record.New(opts.FailureOutput)

	prog, syntaxErr := parse(ctx, fs, file, opts.Timer)
	if syntaxErr != "" {
		return finalize(ctx, rec, record.Failure(failurePrefix+syntaxErr), "", opts.Timer)
	}

	machine := vm.New(fs, vm.Options{
		MaxDepth:  opts.MaxDepth,
		Seed:      opts.Seed,
		Stdin:     opts.Stdin,
		ImportDir: importDir,
	})
	out, release := capture.Redirect(machine, opts.MaxOutput)
	defer release()

	sb := sandbox.New(sandbox.Config{
		Path:      file.Path,
		Machine:   machine,
		Output:    out,
		Snapshots: snapshot.New(machine),
		Recorder:  rec,
		MaxSteps:  opts.MaxSteps,
		Progress:  opts.Progress,
	})

	runCtx, cancel := sandbox.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	runCtx, span := trace.Start(runCtx, trace.ScopePhase, "execute")
	idx := opts.Timer.Begin("execute")
	err := sb.Execute(runCtx, prog)
	release()
	note := fmt.Sprintf("steps=%d", rec.Len())
	opts.Timer.End(idx, note)
	span.WithExtra("steps", fmt.Sprint(rec.Len())).End(outcomeDetail(err))

	outcome := record.Success()
	if err != nil {
		outcome = record.Failure(FailureMessage(err))
	}
	return finalize(ctx, rec, outcome, out.Drain(), opts.Timer)
}

// parse returns the module, or the formatted syntax error when it does not
// parse.
func parse(ctx context.Context, fs *source.FileSet, file *source.File, timer *observ.Timer) (*ast.Module, string) {
	_, span := trace.Start(ctx, trace.ScopePhase, "parse")
	idx := timer.Begin("parse")
	res := parser.Parse(fs, file.ID)
	if res.Module != nil {
		timer.End(idx, fmt.Sprintf("statements=%d", len(res.Module.Body)))
		span.End("")
		return res.Module, ""
	}
	msg := "SyntaxError: invalid syntax"
	if res.Bag != nil {
		if d, ok := res.Bag.FirstError(); ok {
			start, _ := fs.Resolve(d.Primary)
			msg = fmt.Sprintf("SyntaxError: %s (line %d)", d.Message, start.Line)
		}
	}
	timer.End(idx, "syntax error")
	span.End(msg)
	return nil, msg
}

func finalize(ctx context.Context, rec *record.Recorder, outcome record.Outcome, trailing string, timer *observ.Timer) *record.Trace {
	_, span := trace.Start(ctx, trace.ScopePhase, "finalize")
	idx := timer.Begin("finalize")
	tr := rec.Finalize(outcome, trailing)
	timer.End(idx, outcome.String())
	span.End(outcome.String())
	if outcome.Kind == record.Failed {
		trace.Point(trace.FromContext(ctx), trace.ScopeRun, "failure", outcome.Message, trace.SpanFromContext(ctx))
	}
	return tr
}

// FailureMessage formats a run-ending error for the terminal step.
func FailureMessage(err error) string {
	var exc *vm.Exception
	if errors.As(err, &exc) {
		return failurePrefix + exc.Error()
	}
	return failurePrefix + err.Error()
}

func outcomeDetail(err error) string {
	if err == nil {
		return "completed"
	}
	return err.Error()
}
