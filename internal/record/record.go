// Package record assembles trace steps into the append-only Trace of one
// run.
package record

import (
	"errors"
	"fmt"

	"pytrace/internal/snapshot"
)

// ErrFrozen is returned when a step is recorded after Finalize.
var ErrFrozen = errors.New("trace is finalized")

// Step is one recorded execution moment. Line 0 marks the terminal step.
type Step struct {
	Line      int           `json:"line" msgpack:"line"`
	Variables *snapshot.Map `json:"variables" msgpack:"variables"`
	Stdout    string        `json:"stdout" msgpack:"stdout"`
}

// Trace is the ordered steps of one run.
type Trace struct {
	Steps []Step
	// Outcome is how the run ended; it is not part of the document.
	Outcome Outcome
}

// Len returns the number of steps.
func (t *Trace) Len() int { return len(t.Steps) }

// Last returns the final step. It panics on an empty trace.
func (t *Trace) Last() Step { return t.Steps[len(t.Steps)-1] }

// Stdout concatenates the stdout of every step.
func (t *Trace) Stdout() string {
	n := 0
	for _, s := range t.Steps {
		n += len(s.Stdout)
	}
	buf := make([]byte, 0, n)
	for _, s := range t.Steps {
		buf = append(buf, s.Stdout...)
	}
	return string(buf)
}

// OutcomeKind says whether the run completed.
type OutcomeKind uint8

const (
	Completed OutcomeKind = iota
	Failed
)

// Outcome is how a run ended. Message is set for Failed.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// Success is the outcome of a run that finished normally.
func Success() Outcome { return Outcome{Kind: Completed} }

// Failure is the outcome of a run that stopped with msg.
func Failure(msg string) Outcome { return Outcome{Kind: Failed, Message: msg} }

func (o Outcome) String() string {
	if o.Kind == Completed {
		return "completed"
	}
	return "failed: " + o.Message
}

// FailureOutput decides what happens to output drained after the last step
// when a run fails.
type FailureOutput uint8

const (
	// KeepOutput puts the trailing output before the failure message.
	KeepOutput FailureOutput = iota
	// DiscardOutput drops the trailing output.
	DiscardOutput
)

// ParseFailureOutput accepts "keep" or "discard".
func ParseFailureOutput(s string) (FailureOutput, error) {
	switch s {
	case "", "keep":
		return KeepOutput, nil
	case "discard":
		return DiscardOutput, nil
	}
	return KeepOutput, fmt.Errorf("unknown failure output policy %q (want keep|discard)", s)
}

func (p FailureOutput) String() string {
	if p == DiscardOutput {
		return "discard"
	}
	return "keep"
}

// Recorder owns the trace being built for one run.
type Recorder struct {
	steps  []Step
	policy FailureOutput
	trace  *Trace
}

// New returns an empty recorder.
func New(policy FailureOutput) *Recorder {
	return &Recorder{policy: policy}
}

// Record appends a step. vars may be nil for an empty frame.
func (r *Recorder) Record(line int, vars *snapshot.Map, stdout string) error {
	if r.trace != nil {
		return ErrFrozen
	}
	if vars == nil {
		vars = snapshot.NewMap()
	}
	r.steps = append(r.steps, Step{Line: line, Variables: vars, Stdout: stdout})
	return nil
}

// Len returns the number of steps recorded so far.
func (r *Recorder) Len() int { return len(r.steps) }

// Frozen reports whether Finalize has run.
func (r *Recorder) Frozen() bool { return r.trace != nil }

// Finalize appends the terminal step and freezes the trace. trailing is the
// output drained after the last step. Calling Finalize again returns the
// same trace unchanged.
func (r *Recorder) Finalize(outcome Outcome, trailing string) *Trace {
	if r.trace != nil {
		return r.trace
	}
	stdout := trailing
	if outcome.Kind == Failed {
		stdout = outcome.Message
		if r.policy == KeepOutput {
			stdout = trailing + outcome.Message
		}
	}
	r.steps = append(r.steps, Step{Line: 0, Variables: snapshot.NewMap(), Stdout: stdout})
	r.trace = &Trace{Steps: r.steps, Outcome: outcome}
	r.steps = nil
	return r.trace
}
