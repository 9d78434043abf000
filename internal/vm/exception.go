package vm

import (
	"fmt"
	"strings"
)

// TracebackEntry is one frame of an exception traceback.
type TracebackEntry struct {
	Func string
	File string
	Line int
}

// Exception is a Python exception propagating out of the interpreter. It is
// the only error a script's try/except can catch.
type Exception struct {
	Value *Instance
	// Traceback lists frames outermost first.
	Traceback []TracebackEntry
	msg       string
}

// ClassName returns the exception's class name, e.g. "ZeroDivisionError".
func (e *Exception) ClassName() string { return e.Value.Class.Name }

// Message returns str() of the exception.
func (e *Exception) Message() string { return e.msg }

// Line returns the line the exception was raised on, or 0 if unknown.
func (e *Exception) Line() int {
	if len(e.Traceback) == 0 {
		return 0
	}
	return e.Traceback[len(e.Traceback)-1].Line
}

// Is reports whether e is an instance of cls.
func (e *Exception) Is(cls *Class) bool { return e.Value.Class.IsSubclass(cls) }

func (e *Exception) Error() string {
	if e.msg == "" {
		return e.ClassName()
	}
	return e.ClassName() + ": " + e.msg
}

// Format renders a Python-style traceback.
func (e *Exception) Format() string {
	var sb strings.Builder
	if len(e.Traceback) > 0 {
		sb.WriteString("Traceback (most recent call last):\n")
		for _, tb := range e.Traceback {
			fmt.Fprintf(&sb, "  File %q, line %d, in %s\n", tb.File, tb.Line, tb.Func)
		}
	}
	sb.WriteString(e.Error())
	sb.WriteByte('\n')
	return sb.String()
}

// newException instantiates a builtin exception class with args.
func (vm *VM) newException(cls *Class, args ...Value) *Exception {
	inst := newInstance(cls)
	inst.Dict.Set("args", NewTuple(args...))
	return vm.wrapException(inst)
}

// raise builds an exception of cls with a formatted message.
func (vm *VM) raise(cls *Class, format string, a ...any) *Exception {
	msg := format
	if len(a) > 0 {
		msg = fmt.Sprintf(format, a...)
	}
	return vm.newException(cls, Str(msg))
}

func (vm *VM) typeError(format string, a ...any) *Exception {
	return vm.raise(TypeErrorClass, format, a...)
}

func (vm *VM) valueError(format string, a ...any) *Exception {
	return vm.raise(ValueErrorClass, format, a...)
}

// wrapException captures the current traceback for a raised instance.
func (vm *VM) wrapException(inst *Instance) *Exception {
	e := &Exception{Value: inst}
	for fr := vm.frame; fr != nil; fr = fr.back {
		e.Traceback = append(e.Traceback, TracebackEntry{Func: fr.name, File: fr.File(), Line: fr.line})
	}
	for i, j := 0, len(e.Traceback)-1; i < j; i, j = i+1, j-1 {
		e.Traceback[i], e.Traceback[j] = e.Traceback[j], e.Traceback[i]
	}
	vm.WithoutHook(func() {
		s, err := vm.exceptionStr(inst)
		if err != nil {
			s = "<exception str() failed>"
		}
		e.msg = s
	})
	return e
}

// exceptionArgs returns the args tuple of an exception instance.
func exceptionArgs(inst *Instance) []Value {
	if v, ok := inst.Dict.Get("args"); ok {
		if t, ok := v.(*Tuple); ok {
			return t.Items
		}
	}
	return nil
}

// exceptionStr implements BaseException.__str__, honouring user overrides.
func (vm *VM) exceptionStr(inst *Instance) (string, error) {
	if fn, owner, ok := inst.Class.Lookup("__str__"); ok && !owner.builtin {
		v, err := vm.Call(&BoundMethod{Self: inst, Func: fn}, nil, nil)
		if err != nil {
			return "", err
		}
		s, ok := v.(Str)
		if !ok {
			return "", vm.typeError("__str__ returned non-string (type %s)", TypeName(v))
		}
		return string(s), nil
	}
	args := exceptionArgs(inst)
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		if inst.Class.IsSubclass(KeyErrorClass) {
			return vm.Repr(args[0])
		}
		return vm.Str(args[0])
	}
	return vm.Repr(NewTuple(args...))
}

// exceptionFromValue converts the operand of a raise statement.
func (vm *VM) exceptionFromValue(v Value) (*Exception, error) {
	switch x := v.(type) {
	case *Class:
		if !isExceptionClass(x) {
			break
		}
		inst, err := vm.Call(x, nil, nil)
		if err != nil {
			return nil, err
		}
		return vm.exceptionFromValue(inst)
	case *Instance:
		if isExceptionClass(x.Class) {
			return vm.wrapException(x), nil
		}
	}
	return nil, vm.typeError("exceptions must derive from BaseException")
}

func init() {
	BaseExceptionClass.defMethod("__init__", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		if len(args) == 0 {
			return nil, vm.typeError("descriptor '__init__' of 'BaseException' object needs an argument")
		}
		if inst, ok := args[0].(*Instance); ok {
			inst.Dict.Set("args", NewTuple(args[1:]...))
		}
		return None, nil
	})
}
