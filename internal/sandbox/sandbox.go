// Package sandbox executes a parsed script under the line hook and turns
// every line event of the traced file into a recorded step.
package sandbox

import (
	"context"
	"errors"
	"runtime/debug"
	"strconv"
	"time"

	"pytrace/internal/ast"
	"pytrace/internal/capture"
	"pytrace/internal/record"
	"pytrace/internal/snapshot"
	"pytrace/internal/trace"
	"pytrace/internal/vm"
)

// Progress is reported after every recorded step.
type Progress struct {
	Steps    int
	Line     int
	MaxSteps int
}

// Config wires a sandbox to the run-scoped components it drives.
type Config struct {
	// Path is the canonical identity of the traced file. Only frames whose
	// File() equals it are recorded.
	Path      string
	Machine   *vm.VM
	Output    *capture.Buffer
	Snapshots *snapshot.Snapshotter
	Recorder  *record.Recorder
	// MaxSteps stops the run once that many steps are recorded; 0 means
	// unlimited.
	MaxSteps int
	// Progress, when set, is called synchronously after each step.
	Progress func(Progress)
}

// Sandbox is the line hook of one run.
type Sandbox struct {
	cfg    Config
	ctx    context.Context
	tracer trace.Tracer
	span   uint64
	frames map[*vm.Frame]bool
}

// New returns a sandbox; it does nothing until Execute.
func New(cfg Config) *Sandbox {
	return &Sandbox{cfg: cfg, ctx: context.Background(), tracer: trace.Nop}
}

// Execute runs prog as __main__ with the sandbox installed as the line
// hook. It returns nil on normal completion, a *vm.Exception for an
// uncaught script exception, a *LimitError when a ceiling stopped the run,
// an *InternalError for a recovered panic, or ctx.Err() when the caller
// cancelled. The hook is removed before Execute returns.
func (s *Sandbox) Execute(ctx context.Context, prog *ast.Module) (err error) {
	s.ctx = ctx
	s.tracer = trace.FromContext(ctx)
	s.span = trace.SpanFromContext(ctx)
	s.frames = make(map[*vm.Frame]bool)

	machine := s.cfg.Machine
	defer func() {
		if r := recover(); r != nil {
			machine.ClearHook()
			err = &InternalError{Value: r, Stack: debug.Stack()}
		}
	}()
	machine.SetHook(s)
	err = machine.Run(ctx, prog)
	machine.ClearHook()
	return s.classify(ctx, err)
}

// classify maps halting errors onto the sandbox's error kinds.
func (s *Sandbox) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var exc *vm.Exception
	var limit *LimitError
	switch {
	case errors.As(err, &exc), errors.As(err, &limit):
		return err
	case errors.Is(err, capture.ErrOutputLimit):
		return &LimitError{Kind: LimitOutput, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &LimitError{Kind: LimitTimeout, Err: err, Timeout: timeoutOf(ctx)}
	}
	return err
}

// OnLine implements vm.Hook. Frames from other files run unrecorded.
func (s *Sandbox) OnLine(f *vm.Frame, line int) error {
	if f.File() != s.cfg.Path {
		return nil
	}
	rec := s.cfg.Recorder
	if s.cfg.MaxSteps > 0 && rec.Len() >= s.cfg.MaxSteps {
		return &LimitError{Kind: LimitSteps, Steps: s.cfg.MaxSteps}
	}
	if err := s.ctx.Err(); err != nil {
		return s.classify(s.ctx, err)
	}
	if s.tracer.Level().ShouldEmit(trace.ScopeFrame) && !s.frames[f] {
		s.frames[f] = true
		trace.Point(s.tracer, trace.ScopeFrame, "frame", f.Name(), s.span)
	}
	stdout := s.cfg.Output.Drain()
	vars := s.cfg.Snapshots.Bindings(f)
	if err := rec.Record(line, vars, stdout); err != nil {
		return err
	}
	if s.tracer.Enabled() {
		trace.Point(s.tracer, trace.ScopeStep, "step", f.Name()+":"+strconv.Itoa(line), s.span)
	}
	if s.cfg.Progress != nil {
		s.cfg.Progress(Progress{Steps: rec.Len(), Line: line, MaxSteps: s.cfg.MaxSteps})
	}
	return nil
}

type timeoutKey struct{}

// WithTimeout is context.WithTimeout that also remembers d so a timeout
// failure can name it. d <= 0 only adds cancellation.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(context.WithValue(ctx, timeoutKey{}, d), d)
}

func timeoutOf(ctx context.Context) time.Duration {
	d, _ := ctx.Value(timeoutKey{}).(time.Duration)
	return d
}
