package vm

import "pytrace/internal/source"

// Hook receives line events. OnLine runs before the line executes; a
// non-nil error halts the interpreter and cannot be caught by the script.
type Hook interface {
	OnLine(f *Frame, line int) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(f *Frame, line int) error

func (fn HookFunc) OnLine(f *Frame, line int) error { return fn(f, line) }

// Binding is one visible variable of a frame.
type Binding struct {
	Name  string
	Value Value
}

// Frame is the activation record of a module body, class body or call.
type Frame struct {
	name  string
	file  *source.File
	scope *scope
	fn    *Function
	back  *Frame

	line     int
	lastLine int
	retval   Value
}

// File returns the path of the source file the frame's code came from.
func (f *Frame) File() string {
	if f.file == nil {
		return "<unknown>"
	}
	return f.file.Path
}

// Name returns the code name: "<module>", a function or class name, or
// "<lambda>".
func (f *Frame) Name() string { return f.name }

// Line returns the line currently executing.
func (f *Frame) Line() int { return f.line }

// Back returns the calling frame.
func (f *Frame) Back() *Frame { return f.back }

// Bindings returns the frame's variables in binding order.
func (f *Frame) Bindings() []Binding { return f.scope.bindings() }

// lineEvent moves fr to line and notifies the hook when the line changes or
// when force marks a backward jump.
func (vm *VM) lineEvent(fr *Frame, line int, force bool) error {
	fr.line = line
	if line == fr.lastLine && !force {
		return nil
	}
	fr.lastLine = line
	if vm.hook == nil || vm.hookOff > 0 {
		return nil
	}
	return vm.hook.OnLine(fr, line)
}

func (vm *VM) pushFrame(fr *Frame) error {
	if vm.depth >= vm.opts.MaxDepth {
		return vm.raise(RecursionErrorClass, "maximum recursion depth exceeded")
	}
	fr.back = vm.frame
	vm.frame = fr
	vm.depth++
	return nil
}

func (vm *VM) popFrame() {
	vm.frame = vm.frame.back
	vm.depth--
}
