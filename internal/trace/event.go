package trace

import "time"

// Kind is the type of a trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeRun   Scope = iota + 1 // one script run or request
	ScopePhase                  // load, parse, execute, finalize
	ScopeFrame                  // frames of the traced script
	ScopeStep                   // individual recorded steps
)

func (s Scope) String() string {
	switch s {
	case ScopeRun:
		return "run"
	case ScopePhase:
		return "phase"
	case ScopeFrame:
		return "frame"
	case ScopeStep:
		return "step"
	default:
		return "unknown"
	}
}

// Event is a single trace event.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	Name     string
	Detail   string
	Extra    map[string]string
}
