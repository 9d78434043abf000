// Package snapshot converts live interpreter values into the closed Value
// variant carried by trace steps.
package snapshot

import (
	"io"
	"math"
	"strings"

	"pytrace/internal/vm"
)

// DefaultMaxDepth bounds container nesting; deeper values collapse to
// their repr.
const DefaultMaxDepth = 64

// errorText replaces any representation that could not be produced.
const errorText = "Error"

// Snapshotter takes portable copies of values owned by one interpreter.
// It runs user __str__ and __repr__ methods with line events suppressed.
type Snapshotter struct {
	machine  *vm.VM
	maxDepth int
	active   map[vm.Value]bool
}

// New returns a snapshotter bound to machine.
func New(machine *vm.VM) *Snapshotter {
	return &Snapshotter{
		machine:  machine,
		maxDepth: DefaultMaxDepth,
		active:   make(map[vm.Value]bool),
	}
}

// WithMaxDepth overrides the nesting bound; n <= 0 keeps the default.
func (s *Snapshotter) WithMaxDepth(n int) *Snapshotter {
	if n > 0 {
		s.maxDepth = n
	}
	return s
}

// Take converts v. It never fails: values that cannot be decomposed become
// Opaque, and failures while rendering them become Opaque("Error").
func (s *Snapshotter) Take(v vm.Value) Value {
	return s.take(v, 0)
}

func (s *Snapshotter) take(v vm.Value, depth int) Value {
	switch x := v.(type) {
	case nil, vm.NoneType:
		return Null()
	case vm.Bool:
		return Bool(bool(x))
	case vm.Int:
		return Int(int64(x))
	case vm.Float:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Opaque(vm.FormatFloat(f))
		}
		return Float(f)
	case vm.Str:
		return String(string(x))
	case *vm.List:
		return s.sequence(x, x.Items, depth)
	case *vm.Tuple:
		return s.sequence(x, x.Items, depth)
	case *vm.Set:
		return s.sequence(x, x.Elems(), depth)
	case *vm.Dict:
		return s.mapping(x, depth)
	}
	return Opaque(s.text(v, s.machine.Str))
}

func (s *Snapshotter) enter(v vm.Value, depth int) (leave func(), ok bool) {
	if depth >= s.maxDepth || s.active[v] {
		return nil, false
	}
	s.active[v] = true
	return func() { delete(s.active, v) }, true
}

func (s *Snapshotter) sequence(self vm.Value, items []vm.Value, depth int) Value {
	leave, ok := s.enter(self, depth)
	if !ok {
		return Opaque(s.text(self, s.machine.Repr))
	}
	defer leave()
	out := make([]Value, len(items))
	for i, it := range items {
		out[i] = s.take(it, depth+1)
	}
	return Sequence(out)
}

func (s *Snapshotter) mapping(d *vm.Dict, depth int) Value {
	leave, ok := s.enter(d, depth)
	if !ok {
		return Opaque(s.text(d, s.machine.Repr))
	}
	defer leave()
	m := NewMap()
	d.Items(func(k, v vm.Value) bool {
		m.Set(s.text(k, s.machine.Str), s.take(v, depth+1))
		return true
	})
	return Mapping(m)
}

// text renders v with render, suppressing line events and discarding
// anything a user __str__ or __repr__ prints. Script exceptions, halting
// errors and Go panics all yield "Error".
func (s *Snapshotter) text(v vm.Value, render func(vm.Value) (string, error)) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = errorText
		}
	}()
	var err error
	s.machine.WithoutHook(func() {
		prev := s.machine.SetStdout(io.Discard)
		defer s.machine.SetStdout(prev)
		out, err = render(v)
	})
	if err != nil {
		return errorText
	}
	return out
}

// Eligible reports whether a binding is plain data worth recording: names
// with a double underscore prefix, modules and callables are skipped.
func Eligible(b vm.Binding) bool {
	if strings.HasPrefix(b.Name, "__") {
		return false
	}
	if _, ok := b.Value.(*vm.Module); ok {
		return false
	}
	return !vm.IsCallable(b.Value)
}

// Bindings snapshots the eligible variables of f in binding order.
func (s *Snapshotter) Bindings(f *vm.Frame) *Map {
	bindings := f.Bindings()
	m := NewMap()
	for _, b := range bindings {
		if !Eligible(b) {
			continue
		}
		m.Set(b.Name, s.Take(b.Value))
	}
	return m
}
