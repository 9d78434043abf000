package vm

import (
	"pytrace/internal/ast"
	"pytrace/internal/source"
)

// BuiltinFunc is the Go implementation of a builtin callable.
type BuiltinFunc func(vm *VM, args []Value, kwargs []KwArg) (Value, error)

// KwArg is one keyword argument of a call.
type KwArg struct {
	Name  string
	Value Value
}

// Class is a Python class, builtin or user defined.
type Class struct {
	Name   string
	Module string
	Bases  []*Class
	MRO    []*Class
	Dict   *Namespace

	builtin bool
	// new constructs instances of builtin types.
	new BuiltinFunc
}

func (*Class) Type() *Class { return TypeClass }

// Lookup finds name along the MRO.
func (c *Class) Lookup(name string) (Value, *Class, bool) {
	for _, k := range c.MRO {
		if v, ok := k.Dict.Get(name); ok {
			return v, k, true
		}
	}
	return nil, nil, false
}

// IsSubclass reports whether c derives from other.
func (c *Class) IsSubclass(other *Class) bool {
	for _, k := range c.MRO {
		if k == other {
			return true
		}
	}
	return false
}

// QualName is the dotted name used by reprs, e.g. "__main__.Node".
func (c *Class) QualName() string {
	if c.builtin || c.Module == "" || c.Module == "builtins" {
		return c.Name
	}
	return c.Module + "." + c.Name
}

// Instance is an object of a user-defined class.
type Instance struct {
	Class *Class
	Dict  *Namespace
}

func (i *Instance) Type() *Class { return i.Class }

func newInstance(c *Class) *Instance {
	return &Instance{Class: c, Dict: NewNamespace()}
}

// Function is a user-defined function or lambda.
type Function struct {
	Name     string
	QualName string
	Params   *ast.Params
	// Defaults is parallel to Params.List; nil entries have no default.
	Defaults []Value
	Body     []ast.Stmt
	// Expr is the body of a lambda.
	Expr ast.Expr
	Doc  bool
	Line int

	file     *source.File
	info     *scopeInfo
	closure  *scope
	globals  *Namespace
	module   string
	defClass *Class
}

func (*Function) Type() *Class { return FunctionClass }

// Builtin is a callable implemented in Go.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (*Builtin) Type() *Class { return BuiltinFunctionClass }

// BoundMethod pairs a callable with its receiver.
type BoundMethod struct {
	Self Value
	Func Value
}

func (*BoundMethod) Type() *Class { return MethodClass }

// Module is an imported or builtin module.
type Module struct {
	Name string
	Path string
	Dict *Namespace
}

func (*Module) Type() *Class { return ModuleClass }

type Property struct {
	Get, Set, Del Value
}

func (*Property) Type() *Class { return PropertyClass }

type StaticMethod struct {
	Func Value
}

func (*StaticMethod) Type() *Class { return StaticMethodClass }

type ClassMethod struct {
	Func Value
}

func (*ClassMethod) Type() *Class { return ClassMethodClass }

// Super is the proxy returned by super().
type Super struct {
	// After is the class whose successors in the receiver's MRO are searched.
	After *Class
	Self  Value
}

func (*Super) Type() *Class { return SuperClass }

// Iterator is a lazily produced sequence of values.
type Iterator struct {
	cls  *Class
	next func() (Value, bool, error)
	done bool
}

func (it *Iterator) Type() *Class { return it.cls }

// Next advances the iterator; ok is false once it is exhausted.
func (it *Iterator) Next() (Value, bool, error) {
	if it.done {
		return nil, false, nil
	}
	v, ok, err := it.next()
	if err != nil || !ok {
		it.done = true
	}
	return v, ok, err
}

func newIterator(cls *Class, next func() (Value, bool, error)) *Iterator {
	return &Iterator{cls: cls, next: next}
}

type viewKind uint8

const (
	viewKeys viewKind = iota
	viewValues
	viewItems
)

// DictView is the live result of dict.keys(), values() or items().
type DictView struct {
	d    *Dict
	kind viewKind
}

func (v *DictView) Type() *Class {
	switch v.kind {
	case viewValues:
		return DictValuesClass
	case viewItems:
		return DictItemsClass
	}
	return DictKeysClass
}
