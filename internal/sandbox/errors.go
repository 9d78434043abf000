package sandbox

import (
	"fmt"
	"time"
)

// LimitKind names the ceiling a run hit.
type LimitKind uint8

const (
	LimitSteps LimitKind = iota + 1
	LimitTimeout
	LimitOutput
)

func (k LimitKind) String() string {
	switch k {
	case LimitSteps:
		return "StepLimitExceeded"
	case LimitTimeout:
		return "TimeoutError"
	case LimitOutput:
		return "OutputLimitExceeded"
	}
	return "LimitError"
}

// LimitError stops a run that exceeded a configured ceiling. Scripts cannot
// catch it.
type LimitError struct {
	Kind    LimitKind
	Steps   int
	Timeout time.Duration
	Err     error
}

func (e *LimitError) Error() string {
	return e.Kind.String() + ": " + e.Detail()
}

// Detail describes the ceiling without the kind prefix.
func (e *LimitError) Detail() string {
	switch e.Kind {
	case LimitSteps:
		return fmt.Sprintf("script exceeded %d steps", e.Steps)
	case LimitTimeout:
		if e.Timeout > 0 {
			return fmt.Sprintf("script exceeded the %s time limit", e.Timeout)
		}
		return "script exceeded its time limit"
	case LimitOutput:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "output limit exceeded"
	}
	return "limit exceeded"
}

func (e *LimitError) Unwrap() error { return e.Err }

// InternalError is a Go panic recovered while executing a script.
type InternalError struct {
	Value any
	Stack []byte
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("InternalError: %v", e.Value)
}
