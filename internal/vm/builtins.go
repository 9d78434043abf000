package vm

import (
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"pytrace/internal/ast"
	"pytrace/internal/token"
)

// argc validates the positional argument count of a builtin.
func (vm *VM) argc(name string, args []Value, lo, hi int) error {
	n := len(args)
	switch {
	case lo == hi && n != lo && lo == 0:
		return vm.typeError("%s() takes no arguments (%d given)", name, n)
	case lo == hi && n != lo && lo == 1:
		return vm.typeError("%s() takes exactly one argument (%d given)", name, n)
	case lo == hi && n != lo:
		return vm.typeError("%s expected %d arguments, got %d", name, lo, n)
	case n < lo:
		return vm.typeError("%s expected at least %d argument%s, got %d", name, lo, plural(lo), n)
	case hi >= 0 && n > hi:
		return vm.typeError("%s expected at most %d argument%s, got %d", name, hi, plural(hi), n)
	}
	return nil
}

func (vm *VM) noKwargs(name string, kwargs []KwArg) error {
	if len(kwargs) > 0 {
		return vm.typeError("%s() takes no keyword arguments", name)
	}
	return nil
}

// kwargsOnly extracts the named keyword arguments, rejecting any others.
func (vm *VM) kwargsOnly(name string, kwargs []KwArg, allowed ...string) (map[string]Value, error) {
	out := make(map[string]Value, len(kwargs))
	for _, kw := range kwargs {
		if !slices.Contains(allowed, kw.Name) {
			return nil, vm.typeError("%s() got an unexpected keyword argument '%s'", name, kw.Name)
		}
		out[kw.Name] = kw.Value
	}
	return out, nil
}

// intArg converts v to an int index argument.
func (vm *VM) intArg(v Value) (int64, error) {
	if i, ok := asInt(v); ok {
		return i, nil
	}
	if inst, ok := v.(*Instance); ok {
		if m, ok := userMethod(inst, "__index__"); ok {
			r, err := vm.Call(vm.bindTo(m, inst, inst.Class), nil, nil)
			if err != nil {
				return 0, err
			}
			if i, ok := r.(Int); ok {
				return int64(i), nil
			}
		}
	}
	return 0, vm.typeError("'%s' object cannot be interpreted as an integer", TypeName(v))
}

func (vm *VM) strArg(fn string, v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", vm.typeError("%s must be str, not %s", fn, TypeName(v))
	}
	return string(s), nil
}

func builtin(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{Name: name, Fn: fn}
}

// newBuiltins returns the builtins namespace shared by every module.
func newBuiltins() *Namespace {
	ns := NewNamespace()
	for _, c := range []*Class{
		ObjectClass, TypeClass, IntClass, BoolClass, FloatClass, StrClass, ListClass, TupleClass,
		DictClass, SetClass, FrozenSetClass, RangeClass, SliceClass, PropertyClass,
		StaticMethodClass, ClassMethodClass, SuperClass,
	} {
		ns.Set(c.Name, c)
	}
	for _, c := range exceptionClasses {
		ns.Set(c.Name, c)
	}
	ns.Set("NotImplemented", notImplemented)
	ns.Set("Ellipsis", Ellipsis)
	for _, b := range []*Builtin{
		builtin("print", builtinPrint),
		builtin("input", builtinInput),
		builtin("len", builtinLen),
		builtin("repr", builtinRepr),
		builtin("ascii", builtinASCII),
		builtin("abs", builtinAbs),
		builtin("min", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			return vm.minMax("min", args, kwargs, -1)
		}),
		builtin("max", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			return vm.minMax("max", args, kwargs, 1)
		}),
		builtin("sum", builtinSum),
		builtin("sorted", builtinSorted),
		builtin("reversed", builtinReversed),
		builtin("enumerate", builtinEnumerate),
		builtin("zip", builtinZip),
		builtin("map", builtinMap),
		builtin("filter", builtinFilter),
		builtin("round", builtinRound),
		builtin("isinstance", builtinIsInstance),
		builtin("issubclass", builtinIsSubclass),
		builtin("chr", builtinChr),
		builtin("ord", builtinOrd),
		builtin("pow", builtinPow),
		builtin("divmod", builtinDivmod),
		builtin("any", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			return vm.anyAll("any", args, kwargs, true)
		}),
		builtin("all", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			return vm.anyAll("all", args, kwargs, false)
		}),
		builtin("iter", builtinIter),
		builtin("next", builtinNext),
		builtin("hash", builtinHash),
		builtin("id", builtinID),
		builtin("hex", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			return vm.radix("hex", args, kwargs, "x")
		}),
		builtin("bin", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			return vm.radix("bin", args, kwargs, "b")
		}),
		builtin("oct", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			return vm.radix("oct", args, kwargs, "o")
		}),
		builtin("format", builtinFormat),
		builtin("callable", builtinCallable),
		builtin("getattr", builtinGetattr),
		builtin("setattr", builtinSetattr),
		builtin("hasattr", builtinHasattr),
		builtin("delattr", builtinDelattr),
	} {
		ns.Set(b.Name, b)
	}
	return ns
}

func builtinPrint(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("print", kwargs, "sep", "end", "file", "flush")
	if err != nil {
		return nil, err
	}
	sep, end := " ", "\n"
	for name, dst := range map[string]*string{"sep": &sep, "end": &end} {
		v, ok := opts[name]
		if !ok || v == None {
			continue
		}
		s, ok := v.(Str)
		if !ok {
			return nil, vm.typeError("%s must be None or a string, not %s", name, TypeName(v))
		}
		*dst = string(s)
	}
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteString(sep)
		}
		s, err := vm.Str(a)
		if err != nil {
			return nil, err
		}
		sb.WriteString(s)
	}
	sb.WriteString(end)
	if err := vm.write(sb.String()); err != nil {
		return nil, err
	}
	return None, nil
}

func builtinInput(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("input", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		prompt, err := vm.Str(args[0])
		if err != nil {
			return nil, err
		}
		if err := vm.write(prompt); err != nil {
			return nil, err
		}
	}
	if vm.stdin == nil {
		return nil, vm.raise(EOFErrorClass, "EOF when reading a line")
	}
	line, err := vm.stdin.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return nil, vm.raise(EOFErrorClass, "EOF when reading a line")
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return Str(line), nil
}

func builtinLen(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("len", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := vm.length(args[0])
	if err != nil {
		return nil, err
	}
	return Int(n), nil
}

func builtinRepr(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("repr", args, 1, 1); err != nil {
		return nil, err
	}
	s, err := vm.Repr(args[0])
	return Str(s), err
}

func builtinASCII(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("ascii", args, 1, 1); err != nil {
		return nil, err
	}
	s, err := vm.Repr(args[0])
	return Str(asciiEscape(s)), err
}

func builtinAbs(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("abs", args, 1, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case Int:
		if x == math.MinInt64 {
			return nil, vm.overflow()
		}
		if x < 0 {
			return -x, nil
		}
		return x, nil
	case Bool:
		i, _ := asInt(x)
		return Int(i), nil
	case Float:
		return Float(math.Abs(float64(x))), nil
	case *Instance:
		if m, ok := userMethod(x, "__abs__"); ok {
			return vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
		}
	}
	return nil, vm.typeError("bad operand type for abs(): '%s'", TypeName(args[0]))
}

// keyed applies an optional key function.
func (vm *VM) keyed(key Value, v Value) (Value, error) {
	if key == nil || key == None {
		return v, nil
	}
	return vm.Call(key, []Value{v}, nil)
}

// minMax implements min (dir -1) and max (dir 1).
func (vm *VM) minMax(name string, args []Value, kwargs []KwArg, dir int) (Value, error) {
	opts, err := vm.kwargsOnly(name, kwargs, "key", "default")
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, vm.typeError("%s expected at least 1 argument, got 0", name)
	}
	items := args
	if len(args) == 1 {
		if items, err = vm.toSlice(args[0]); err != nil {
			return nil, err
		}
	} else if _, ok := opts["default"]; ok {
		return nil, vm.typeError("Cannot specify a default for %s() with multiple positional arguments", name)
	}
	if len(items) == 0 {
		if d, ok := opts["default"]; ok {
			return d, nil
		}
		return nil, vm.valueError("%s() iterable argument is empty", name)
	}
	best := items[0]
	bestKey, err := vm.keyed(opts["key"], best)
	if err != nil {
		return nil, err
	}
	op := ast.CmpLt
	if dir > 0 {
		op = ast.CmpGt
	}
	for _, it := range items[1:] {
		k, err := vm.keyed(opts["key"], it)
		if err != nil {
			return nil, err
		}
		better, err := vm.order(op, k, bestKey)
		if err != nil {
			return nil, err
		}
		if better {
			best, bestKey = it, k
		}
	}
	return best, nil
}

func builtinSum(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("sum", kwargs, "start")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("sum", args, 1, 2); err != nil {
		return nil, err
	}
	var acc Value = Int(0)
	if len(args) == 2 {
		acc = args[1]
	} else if s, ok := opts["start"]; ok {
		acc = s
	}
	if _, ok := acc.(Str); ok {
		return nil, vm.typeError("sum() can't sum strings [use ''.join(seq) instead]")
	}
	it, err := vm.iterate(args[0])
	if err != nil {
		return nil, err
	}
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return acc, nil
		}
		if acc, err = vm.binaryOp(token.Plus, acc, v); err != nil {
			return nil, err
		}
	}
}

// sortValues sorts items in place, stable, comparing keys with <.
func (vm *VM) sortValues(items []Value, key Value, reverse bool) error {
	keys := items
	if key != nil && key != None {
		keys = make([]Value, len(items))
		for i, it := range items {
			k, err := vm.Call(key, []Value{it}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	less := func(a, b Value) bool {
		if sortErr != nil {
			return false
		}
		lt, err := vm.order(ast.CmpLt, a, b)
		if err != nil {
			sortErr = err
		}
		return lt
	}
	slices.SortStableFunc(idx, func(i, j int) int {
		a, b := keys[i], keys[j]
		if reverse {
			a, b = b, a
		}
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}

func builtinSorted(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("sorted", kwargs, "key", "reverse")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("sorted", args, 1, 1); err != nil {
		return nil, err
	}
	items, err := vm.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	reverse := false
	if r, ok := opts["reverse"]; ok {
		if reverse, err = vm.truthy(r); err != nil {
			return nil, err
		}
	}
	if err := vm.sortValues(items, opts["key"], reverse); err != nil {
		return nil, err
	}
	if items == nil {
		items = []Value{}
	}
	return NewList(items), nil
}

func builtinReversed(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("reversed", args, 1, 1); err != nil {
		return nil, err
	}
	var items []Value
	switch x := args[0].(type) {
	case *List:
		i := len(x.Items)
		return newIterator(reversedClass, func() (Value, bool, error) {
			if i > len(x.Items) {
				i = len(x.Items)
			}
			if i <= 0 {
				return nil, false, nil
			}
			i--
			return x.Items[i], true, nil
		}), nil
	case *Tuple:
		items = x.Items
	case Str, *Range, *Dict, *DictView:
		var err error
		if items, err = vm.toSlice(x); err != nil {
			return nil, err
		}
	case *Instance:
		if m, ok := userMethod(x, "__reversed__"); ok {
			return vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
		}
		if _, ok := userMethod(x, "__getitem__"); ok {
			n, err := vm.length(x)
			if err != nil {
				return nil, err
			}
			i := int64(n)
			return newIterator(reversedClass, func() (Value, bool, error) {
				if i <= 0 {
					return nil, false, nil
				}
				i--
				v, err := vm.getItem(x, Int(i))
				return v, err == nil, err
			}), nil
		}
		return nil, vm.typeError("'%s' object is not reversible", TypeName(args[0]))
	default:
		return nil, vm.typeError("'%s' object is not reversible", TypeName(args[0]))
	}
	rev := slices.Clone(items)
	slices.Reverse(rev)
	return sliceIterator(reversedClass, rev), nil
}

func builtinEnumerate(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("enumerate", kwargs, "start")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("enumerate", args, 1, 2); err != nil {
		return nil, err
	}
	var start int64
	startVal, ok := opts["start"]
	if len(args) == 2 {
		startVal, ok = args[1], true
	}
	if ok {
		if start, err = vm.intArg(startVal); err != nil {
			return nil, err
		}
	}
	it, err := vm.iterate(args[0])
	if err != nil {
		return nil, err
	}
	n := start
	return newIterator(enumerateClass, func() (Value, bool, error) {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		n++
		return NewTuple(Int(n-1), v), true, nil
	}), nil
}

func builtinZip(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("zip", kwargs, "strict")
	if err != nil {
		return nil, err
	}
	strict := false
	if s, ok := opts["strict"]; ok {
		if strict, err = vm.truthy(s); err != nil {
			return nil, err
		}
	}
	its := make([]*Iterator, len(args))
	for i, a := range args {
		if its[i], err = vm.iterate(a); err != nil {
			return nil, err
		}
	}
	return newIterator(zipClass, func() (Value, bool, error) {
		if len(its) == 0 {
			return nil, false, nil
		}
		row := make([]Value, len(its))
		for i, it := range its {
			v, ok, err := it.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				if strict && i > 0 {
					return nil, false, vm.valueError("zip() argument %d is shorter than argument 1", i+1)
				}
				if strict {
					for j := 1; j < len(its); j++ {
						if _, more, err := its[j].Next(); err != nil || more {
							if err != nil {
								return nil, false, err
							}
							return nil, false, vm.valueError("zip() argument %d is longer than argument 1", j+1)
						}
					}
				}
				return nil, false, nil
			}
			row[i] = v
		}
		return NewTuple(row...), true, nil
	}), nil
}

func builtinMap(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("map", kwargs); err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, vm.typeError("map() must have at least two arguments.")
	}
	fn := args[0]
	its := make([]*Iterator, len(args)-1)
	for i, a := range args[1:] {
		var err error
		if its[i], err = vm.iterate(a); err != nil {
			return nil, err
		}
	}
	return newIterator(mapClass, func() (Value, bool, error) {
		call := make([]Value, len(its))
		for i, it := range its {
			v, ok, err := it.Next()
			if err != nil || !ok {
				return nil, false, err
			}
			call[i] = v
		}
		v, err := vm.Call(fn, call, nil)
		return v, err == nil, err
	}), nil
}

func builtinFilter(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("filter", kwargs); err != nil {
		return nil, err
	}
	if err := vm.argc("filter", args, 2, 2); err != nil {
		return nil, err
	}
	fn := args[0]
	it, err := vm.iterate(args[1])
	if err != nil {
		return nil, err
	}
	return newIterator(filterClass, func() (Value, bool, error) {
		for {
			v, ok, err := it.Next()
			if err != nil || !ok {
				return nil, false, err
			}
			test := v
			if fn != None {
				if test, err = vm.Call(fn, []Value{v}, nil); err != nil {
					return nil, false, err
				}
			}
			keep, err := vm.truthy(test)
			if err != nil {
				return nil, false, err
			}
			if keep {
				return v, true, nil
			}
		}
	}), nil
}

func builtinRound(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("round", kwargs, "ndigits")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("round", args, 1, 2); err != nil {
		return nil, err
	}
	nd, hasDigits := opts["ndigits"]
	if len(args) == 2 {
		nd, hasDigits = args[1], true
	}
	if hasDigits && nd == None {
		hasDigits = false
	}
	var digits int64
	if hasDigits {
		if digits, err = vm.intArg(nd); err != nil {
			return nil, err
		}
	}
	switch x := args[0].(type) {
	case Int, Bool:
		n, _ := asInt(x)
		if !hasDigits || digits >= 0 {
			return Int(n), nil
		}
		if digits < -18 {
			return Int(0), nil
		}
		p, _ := powChecked(10, -digits)
		q, _ := floorDiv(n, p)
		rem := n - q*p
		if 2*rem > p || (2*rem == p && q%2 != 0) {
			q++
		}
		res, ok := mulChecked(q, p)
		if !ok {
			return nil, vm.overflow()
		}
		return Int(res), nil
	case Float:
		f := float64(x)
		if !hasDigits {
			if math.IsInf(f, 0) {
				return nil, vm.raise(OverflowErrorClass, "cannot convert float infinity to integer")
			}
			if math.IsNaN(f) {
				return nil, vm.valueError("cannot convert float NaN to integer")
			}
			i, ok := floatToInt(math.RoundToEven(f))
			if !ok {
				return nil, vm.overflow()
			}
			return Int(i), nil
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return x, nil
		}
		if digits >= 0 {
			if digits > 17 {
				return x, nil
			}
			r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(digits), 64), 64)
			if err != nil {
				return x, nil
			}
			return Float(r), nil
		}
		p := math.Pow(10, float64(-digits))
		return Float(math.RoundToEven(f/p) * p), nil
	case *Instance:
		if m, ok := userMethod(x, "__round__"); ok {
			call := []Value{}
			if hasDigits {
				call = append(call, nd)
			}
			return vm.Call(vm.bindTo(m, x, x.Class), call, nil)
		}
	}
	return nil, vm.typeError("type %s doesn't define __round__ method", TypeName(args[0]))
}

// classInfo flattens the second argument of isinstance/issubclass.
func (vm *VM) classInfo(fn string, v Value) ([]*Class, error) {
	switch x := v.(type) {
	case *Class:
		return []*Class{x}, nil
	case *Tuple:
		var out []*Class
		for _, it := range x.Items {
			cs, err := vm.classInfo(fn, it)
			if err != nil {
				return nil, err
			}
			out = append(out, cs...)
		}
		return out, nil
	}
	return nil, vm.typeError("%s() arg 2 must be a type, a tuple of types, or a union", fn)
}

func builtinIsInstance(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("isinstance", args, 2, 2); err != nil {
		return nil, err
	}
	classes, err := vm.classInfo("isinstance", args[1])
	if err != nil {
		return nil, err
	}
	t := args[0].Type()
	for _, c := range classes {
		if t.IsSubclass(c) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func builtinIsSubclass(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("issubclass", args, 2, 2); err != nil {
		return nil, err
	}
	c, ok := args[0].(*Class)
	if !ok {
		return nil, vm.typeError("issubclass() arg 1 must be a class")
	}
	classes, err := vm.classInfo("issubclass", args[1])
	if err != nil {
		return nil, err
	}
	for _, k := range classes {
		if c.IsSubclass(k) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func builtinChr(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("chr", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := vm.intArg(args[0])
	if err != nil {
		return nil, err
	}
	r, cerr := safecast.Conv[int32](n)
	if cerr != nil || r < 0 || r > 0x10FFFF {
		return nil, vm.valueError("chr() arg not in range(0x110000)")
	}
	return Str(string(rune(r))), nil
}

func builtinOrd(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("ord", args, 1, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(Str)
	if !ok {
		return nil, vm.typeError("ord() expected string of length 1, but %s found", TypeName(args[0]))
	}
	runes := []rune(string(s))
	if len(runes) != 1 {
		return nil, vm.typeError("ord() expected a character, but string of length %d found", len(runes))
	}
	return Int(runes[0]), nil
}

func builtinPow(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("pow", kwargs, "base", "exp", "mod")
	if err != nil {
		return nil, err
	}
	for i, name := range []string{"base", "exp", "mod"} {
		if v, ok := opts[name]; ok && i >= len(args) {
			args = append(args, v)
		}
	}
	if err := vm.argc("pow", args, 2, 3); err != nil {
		return nil, err
	}
	if len(args) == 2 || args[2] == None {
		return vm.binaryOp(token.StarStar, args[0], args[1])
	}
	base, bok := asInt(args[0])
	exp, eok := asInt(args[1])
	mod, mok := asInt(args[2])
	if !bok || !eok || !mok {
		return nil, vm.typeError("pow() 3rd argument not allowed unless all arguments are integers")
	}
	if mod == 0 {
		return nil, vm.valueError("pow() 3rd argument cannot be 0")
	}
	if exp < 0 {
		return nil, vm.valueError("base is not invertible for the given modulus")
	}
	res := floorMod(1, mod)
	base = floorMod(base, mod)
	for exp > 0 {
		if exp&1 == 1 {
			res = mulMod(res, base, mod)
		}
		base = mulMod(base, base, mod)
		exp >>= 1
	}
	return Int(res), nil
}

// mulMod computes a*b mod m without overflowing for |m| < 2^62.
func mulMod(a, b, m int64) int64 {
	if p, ok := mulChecked(a, b); ok {
		return floorMod(p, m)
	}
	var res int64
	a = floorMod(a, m)
	for b > 0 {
		if b&1 == 1 {
			res = floorMod(res+a, m)
		}
		a = floorMod(a*2, m)
		b >>= 1
	}
	return res
}

func builtinDivmod(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("divmod", args, 2, 2); err != nil {
		return nil, err
	}
	q, err := vm.binaryOp(token.SlashSlash, args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := vm.binaryOp(token.Percent, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return NewTuple(q, r), nil
}

func (vm *VM) anyAll(name string, args []Value, kwargs []KwArg, want bool) (Value, error) {
	if err := vm.argc(name, args, 1, 1); err != nil {
		return nil, err
	}
	it, err := vm.iterate(args[0])
	if err != nil {
		return nil, err
	}
	for {
		v, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return Bool(!want), nil
		}
		t, err := vm.truthy(v)
		if err != nil {
			return nil, err
		}
		if t == want {
			return Bool(want), nil
		}
	}
}

func builtinIter(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("iter", args, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 2 {
		fn, sentinel := args[0], args[1]
		if !IsCallable(fn) {
			return nil, vm.typeError("iter(v, w): v must be callable")
		}
		return newIterator(callIteratorClass, func() (Value, bool, error) {
			v, err := vm.Call(fn, nil, nil)
			if err != nil {
				return nil, false, err
			}
			if eq, err := vm.equal(v, sentinel); err != nil || eq {
				return nil, false, err
			}
			return v, true, nil
		}), nil
	}
	return vm.iterate(args[0])
}

func builtinNext(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("next", args, 1, 2); err != nil {
		return nil, err
	}
	var def Value
	if len(args) == 2 {
		def = args[1]
	}
	switch x := args[0].(type) {
	case *Iterator:
		return vm.next(x, def)
	case *Instance:
		if m, ok := userMethod(x, "__next__"); ok {
			v, err := vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
			if exc, ok := err.(*Exception); ok && exc.Is(StopIterationClass) && def != nil {
				return def, nil
			}
			return v, err
		}
	}
	return nil, vm.typeError("'%s' object is not an iterator", TypeName(args[0]))
}

func builtinHash(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("hash", args, 1, 1); err != nil {
		return nil, err
	}
	h, err := vm.hashValue(args[0])
	return Int(h), err
}

func builtinID(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("id", args, 1, 1); err != nil {
		return nil, err
	}
	id, err := safecast.Conv[int64](vm.objectID(args[0]))
	if err != nil {
		return nil, vm.overflow()
	}
	return Int(id), nil
}

func (vm *VM) radix(name string, args []Value, kwargs []KwArg, typ string) (Value, error) {
	if err := vm.argc(name, args, 1, 1); err != nil {
		return nil, err
	}
	n, err := vm.intArg(args[0])
	if err != nil {
		return nil, err
	}
	s, err := vm.format(Int(n), "#"+typ)
	return Str(s), err
}

func builtinFormat(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("format", args, 1, 2); err != nil {
		return nil, err
	}
	spec := ""
	if len(args) == 2 {
		var err error
		if spec, err = vm.strArg("format() argument 2", args[1]); err != nil {
			return nil, err
		}
	}
	s, err := vm.format(args[0], spec)
	return Str(s), err
}

func builtinCallable(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("callable", args, 1, 1); err != nil {
		return nil, err
	}
	return Bool(IsCallable(args[0])), nil
}

func builtinGetattr(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("getattr", args, 2, 3); err != nil {
		return nil, err
	}
	name, err := vm.strArg("attribute name", args[1])
	if err != nil {
		return nil, err
	}
	v, err := vm.getAttr(args[0], name)
	if exc, ok := err.(*Exception); ok && exc.Is(AttributeErrorClass) && len(args) == 3 {
		return args[2], nil
	}
	return v, err
}

func builtinSetattr(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("setattr", args, 3, 3); err != nil {
		return nil, err
	}
	name, err := vm.strArg("attribute name", args[1])
	if err != nil {
		return nil, err
	}
	return None, vm.setAttr(args[0], name, args[2])
}

func builtinHasattr(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("hasattr", args, 2, 2); err != nil {
		return nil, err
	}
	name, err := vm.strArg("attribute name", args[1])
	if err != nil {
		return nil, err
	}
	ok, err := vm.hasAttr(args[0], name)
	return Bool(ok), err
}

func builtinDelattr(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("delattr", args, 2, 2); err != nil {
		return nil, err
	}
	name, err := vm.strArg("attribute name", args[1])
	if err != nil {
		return nil, err
	}
	return None, vm.delAttr(args[0], name)
}
