package vm

import "slices"

// Builtin types.
var (
	ObjectClass          = newRootClass()
	TypeClass            = newBuiltinClass("type", ObjectClass)
	NoneClass            = newBuiltinClass("NoneType", ObjectClass)
	IntClass             = newBuiltinClass("int", ObjectClass)
	BoolClass            = newBuiltinClass("bool", IntClass)
	FloatClass           = newBuiltinClass("float", ObjectClass)
	StrClass             = newBuiltinClass("str", ObjectClass)
	ListClass            = newBuiltinClass("list", ObjectClass)
	TupleClass           = newBuiltinClass("tuple", ObjectClass)
	DictClass            = newBuiltinClass("dict", ObjectClass)
	SetClass             = newBuiltinClass("set", ObjectClass)
	FrozenSetClass       = newBuiltinClass("frozenset", ObjectClass)
	RangeClass           = newBuiltinClass("range", ObjectClass)
	SliceClass           = newBuiltinClass("slice", ObjectClass)
	EllipsisClass        = newBuiltinClass("ellipsis", ObjectClass)
	FunctionClass        = newBuiltinClass("function", ObjectClass)
	BuiltinFunctionClass = newBuiltinClass("builtin_function_or_method", ObjectClass)
	MethodClass          = newBuiltinClass("method", ObjectClass)
	ModuleClass          = newBuiltinClass("module", ObjectClass)
	PropertyClass        = newBuiltinClass("property", ObjectClass)
	StaticMethodClass    = newBuiltinClass("staticmethod", ObjectClass)
	ClassMethodClass     = newBuiltinClass("classmethod", ObjectClass)
	SuperClass           = newBuiltinClass("super", ObjectClass)
	DictKeysClass        = newBuiltinClass("dict_keys", ObjectClass)
	DictValuesClass      = newBuiltinClass("dict_values", ObjectClass)
	DictItemsClass       = newBuiltinClass("dict_items", ObjectClass)

	listIteratorClass  = newBuiltinClass("list_iterator", ObjectClass)
	tupleIteratorClass = newBuiltinClass("tuple_iterator", ObjectClass)
	strIteratorClass   = newBuiltinClass("str_ascii_iterator", ObjectClass)
	rangeIteratorClass = newBuiltinClass("range_iterator", ObjectClass)
	setIteratorClass   = newBuiltinClass("set_iterator", ObjectClass)
	dictKeyIterClass   = newBuiltinClass("dict_keyiterator", ObjectClass)
	dictValueIterClass = newBuiltinClass("dict_valueiterator", ObjectClass)
	dictItemIterClass  = newBuiltinClass("dict_itemiterator", ObjectClass)
	enumerateClass     = newBuiltinClass("enumerate", ObjectClass)
	zipClass           = newBuiltinClass("zip", ObjectClass)
	mapClass           = newBuiltinClass("map", ObjectClass)
	filterClass        = newBuiltinClass("filter", ObjectClass)
	reversedClass      = newBuiltinClass("reversed", ObjectClass)
	generatorClass     = newBuiltinClass("generator", ObjectClass)
	callIteratorClass  = newBuiltinClass("iterator", ObjectClass)
)

// Exception hierarchy.
var (
	BaseExceptionClass       = newBuiltinClass("BaseException", ObjectClass)
	ExceptionClass           = newBuiltinClass("Exception", BaseExceptionClass)
	ArithmeticErrorClass     = newBuiltinClass("ArithmeticError", ExceptionClass)
	ZeroDivisionErrorClass   = newBuiltinClass("ZeroDivisionError", ArithmeticErrorClass)
	OverflowErrorClass       = newBuiltinClass("OverflowError", ArithmeticErrorClass)
	LookupErrorClass         = newBuiltinClass("LookupError", ExceptionClass)
	IndexErrorClass          = newBuiltinClass("IndexError", LookupErrorClass)
	KeyErrorClass            = newBuiltinClass("KeyError", LookupErrorClass)
	ValueErrorClass          = newBuiltinClass("ValueError", ExceptionClass)
	TypeErrorClass           = newBuiltinClass("TypeError", ExceptionClass)
	NameErrorClass           = newBuiltinClass("NameError", ExceptionClass)
	UnboundLocalErrorClass   = newBuiltinClass("UnboundLocalError", NameErrorClass)
	AttributeErrorClass      = newBuiltinClass("AttributeError", ExceptionClass)
	RuntimeErrorClass        = newBuiltinClass("RuntimeError", ExceptionClass)
	RecursionErrorClass      = newBuiltinClass("RecursionError", RuntimeErrorClass)
	NotImplementedErrorClass = newBuiltinClass("NotImplementedError", RuntimeErrorClass)
	StopIterationClass       = newBuiltinClass("StopIteration", ExceptionClass)
	AssertionErrorClass      = newBuiltinClass("AssertionError", ExceptionClass)
	ImportErrorClass         = newBuiltinClass("ImportError", ExceptionClass)
	ModuleNotFoundErrorClass = newBuiltinClass("ModuleNotFoundError", ImportErrorClass)
	EOFErrorClass            = newBuiltinClass("EOFError", ExceptionClass)
	MemoryErrorClass         = newBuiltinClass("MemoryError", ExceptionClass)
	SyntaxErrorClass         = newBuiltinClass("SyntaxError", ExceptionClass)
)

var exceptionClasses = []*Class{
	BaseExceptionClass, ExceptionClass, ArithmeticErrorClass, ZeroDivisionErrorClass,
	OverflowErrorClass, LookupErrorClass, IndexErrorClass, KeyErrorClass, ValueErrorClass,
	TypeErrorClass, NameErrorClass, UnboundLocalErrorClass, AttributeErrorClass,
	RuntimeErrorClass, RecursionErrorClass, NotImplementedErrorClass, StopIterationClass,
	AssertionErrorClass, ImportErrorClass, ModuleNotFoundErrorClass, EOFErrorClass,
	MemoryErrorClass, SyntaxErrorClass,
}

func newRootClass() *Class {
	c := &Class{Name: "object", Module: "builtins", Dict: NewNamespace(), builtin: true}
	c.MRO = []*Class{c}
	return c
}

func newBuiltinClass(name string, base *Class) *Class {
	c := &Class{
		Name:    name,
		Module:  "builtins",
		Bases:   []*Class{base},
		Dict:    NewNamespace(),
		builtin: true,
	}
	c.MRO = append([]*Class{c}, base.MRO...)
	return c
}

// defMethod installs a Go method on a builtin class.
func (c *Class) defMethod(name string, fn BuiltinFunc) {
	c.Dict.Set(name, &Builtin{Name: name, Fn: fn})
}

// linearize computes the C3 method resolution order for a class with the
// given bases.
func linearize(c *Class, bases []*Class) ([]*Class, bool) {
	var seqs [][]*Class
	for _, b := range bases {
		seqs = append(seqs, slices.Clone(b.MRO))
	}
	seqs = append(seqs, slices.Clone(bases))
	out := []*Class{c}
	for {
		live := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				live = append(live, s)
			}
		}
		seqs = live
		if len(seqs) == 0 {
			return out, true
		}
		var pick *Class
		for _, s := range seqs {
			if !inTail(s[0], seqs) {
				pick = s[0]
				break
			}
		}
		if pick == nil {
			return nil, false
		}
		out = append(out, pick)
		for i, s := range seqs {
			if s[0] == pick {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(c *Class, seqs [][]*Class) bool {
	for _, s := range seqs {
		if slices.Contains(s[1:], c) {
			return true
		}
	}
	return false
}

// isExceptionClass reports whether c derives from BaseException.
func isExceptionClass(c *Class) bool {
	return c.IsSubclass(BaseExceptionClass)
}

// subclassable reports whether user classes may inherit from c.
func subclassable(c *Class) bool {
	return !c.builtin || c == ObjectClass || isExceptionClass(c)
}
