package vm

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

func init() {
	IntClass.new = newInt
	FloatClass.new = newFloat
	StrClass.new = newStr
	BoolClass.new = newBool
	ListClass.new = func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		items, err := vm.seqArg("list", args, kwargs)
		if err != nil {
			return nil, err
		}
		return NewList(items), nil
	}
	TupleClass.new = func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		items, err := vm.seqArg("tuple", args, kwargs)
		if err != nil {
			return nil, err
		}
		return NewTuple(items...), nil
	}
	SetClass.new = func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		return vm.newSetFrom("set", args, kwargs, false)
	}
	FrozenSetClass.new = func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		return vm.newSetFrom("frozenset", args, kwargs, true)
	}
	DictClass.new = newDictValue
	RangeClass.new = newRange
	TypeClass.new = newType
	SliceClass.new = newSlice
	PropertyClass.new = newProperty
	StaticMethodClass.new = func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.argc("staticmethod", args, 1, 1); err != nil {
			return nil, err
		}
		return &StaticMethod{Func: args[0]}, nil
	}
	ClassMethodClass.new = func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.argc("classmethod", args, 1, 1); err != nil {
			return nil, err
		}
		return &ClassMethod{Func: args[0]}, nil
	}
	SuperClass.new = newSuper

	ObjectClass.defMethod("__init__", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		if len(args) > 1 || len(kwargs) > 0 {
			return nil, vm.typeError("object.__init__() takes exactly one argument (the instance to initialize)")
		}
		return None, nil
	})
}

// seqArg materialises the optional iterable argument of list() or tuple().
func (vm *VM) seqArg(name string, args []Value, kwargs []KwArg) ([]Value, error) {
	if err := vm.noKwargs(name, kwargs); err != nil {
		return nil, err
	}
	if err := vm.argc(name, args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return []Value{}, nil
	}
	items, err := vm.toSlice(args[0])
	if items == nil && err == nil {
		items = []Value{}
	}
	return items, err
}

func (vm *VM) newSetFrom(name string, args []Value, kwargs []KwArg, frozen bool) (Value, error) {
	items, err := vm.seqArg(name, args, kwargs)
	if err != nil {
		return nil, err
	}
	s := NewSet()
	s.Frozen = frozen
	for _, it := range items {
		if err := s.Add(vm, it); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func newInt(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("int", kwargs, "base")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("int", args, 0, 2); err != nil {
		return nil, err
	}
	base, hasBase := opts["base"]
	if len(args) == 2 {
		base, hasBase = args[1], true
	}
	if len(args) == 0 {
		if hasBase {
			return nil, vm.typeError("int() missing string argument")
		}
		return Int(0), nil
	}
	if hasBase {
		s, ok := args[0].(Str)
		if !ok {
			return nil, vm.typeError("int() can't convert non-string with explicit base")
		}
		b, err := vm.intArg(base)
		if err != nil {
			return nil, err
		}
		if b != 0 && (b < 2 || b > 36) {
			return nil, vm.valueError("int() base must be >= 2 and <= 36, or 0")
		}
		return vm.parseInt(string(s), int(b))
	}
	switch x := args[0].(type) {
	case Int:
		return x, nil
	case Bool:
		i, _ := asInt(x)
		return Int(i), nil
	case Float:
		f := float64(x)
		if math.IsInf(f, 0) {
			return nil, vm.raise(OverflowErrorClass, "cannot convert float infinity to integer")
		}
		if math.IsNaN(f) {
			return nil, vm.valueError("cannot convert float NaN to integer")
		}
		i, ok := floatToInt(f)
		if !ok {
			return nil, vm.overflow()
		}
		return Int(i), nil
	case Str:
		return vm.parseInt(string(x), 10)
	case *Instance:
		for _, name := range []string{"__int__", "__index__"} {
			if m, ok := userMethod(x, name); ok {
				r, err := vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
				if err != nil {
					return nil, err
				}
				if _, ok := r.(Int); !ok {
					return nil, vm.typeError("%s returned non-int (type %s)", name, TypeName(r))
				}
				return r, nil
			}
		}
	}
	return nil, vm.typeError("int() argument must be a string, a bytes-like object or a real number, not '%s'", TypeName(args[0]))
}

// parseInt implements int(str, base) including sign, prefixes and
// underscores between digits.
func (vm *VM) parseInt(src string, base int) (Value, error) {
	bad := func() error {
		return vm.valueError("invalid literal for int() with base %d: %s", base, strRepr(src))
	}
	s := strings.TrimFunc(src, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if len(s) > 1 && s[0] == '0' {
		prefixBase := map[byte]int{'x': 16, 'X': 16, 'o': 8, 'O': 8, 'b': 2, 'B': 2}[s[1]]
		if prefixBase != 0 && (base == 0 || base == prefixBase) {
			base = prefixBase
			s = s[2:]
			s = strings.TrimPrefix(s, "_")
		}
	}
	if base == 0 {
		if len(s) > 1 && s[0] == '0' && strings.Trim(s, "0_") != "" {
			return nil, bad()
		}
		base = 10
	}
	if s == "" || s[0] == '_' || s[len(s)-1] == '_' || strings.Contains(s, "__") {
		return nil, bad()
	}
	s = strings.ReplaceAll(s, "_", "")
	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return nil, vm.overflow()
		}
		return nil, bad()
	}
	if neg {
		if u > 1<<63 {
			return nil, vm.overflow()
		}
		return Int(-int64(u)), nil
	}
	if u > math.MaxInt64 {
		return nil, vm.overflow()
	}
	return Int(int64(u)), nil
}

func newFloat(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("float", kwargs); err != nil {
		return nil, err
	}
	if err := vm.argc("float", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Float(0), nil
	}
	switch x := args[0].(type) {
	case Float:
		return x, nil
	case Int, Bool:
		f, _ := asFloat(x)
		return Float(f), nil
	case Str:
		return vm.parseFloat(string(x))
	case *Instance:
		if m, ok := userMethod(x, "__float__"); ok {
			r, err := vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
			if err != nil {
				return nil, err
			}
			if _, ok := r.(Float); !ok {
				return nil, vm.typeError("%s.__float__ returned non-float (type %s)", x.Class.Name, TypeName(r))
			}
			return r, nil
		}
	}
	return nil, vm.typeError("float() argument must be a string or a real number, not '%s'", TypeName(args[0]))
}

func (vm *VM) parseFloat(src string) (Value, error) {
	s := strings.TrimFunc(src, unicode.IsSpace)
	bad := func() error {
		return vm.valueError("could not convert string to float: %s", strRepr(src))
	}
	body := strings.TrimLeft(s, "+-")
	switch strings.ToLower(body) {
	case "inf", "infinity":
		if strings.HasPrefix(s, "-") {
			return Float(math.Inf(-1)), nil
		}
		return Float(math.Inf(1)), nil
	case "nan":
		return Float(math.NaN()), nil
	}
	if len(s)-len(body) > 1 || body == "" || strings.Contains(s, "__") || body[0] == '_' || s[len(s)-1] == '_' {
		return nil, bad()
	}
	if strings.ContainsAny(body, "xXpP") {
		return nil, bad()
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return Float(f), nil
		}
		return nil, bad()
	}
	return Float(f), nil
}

func newStr(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("str", kwargs); err != nil {
		return nil, err
	}
	if err := vm.argc("str", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Str(""), nil
	}
	s, err := vm.Str(args[0])
	return Str(s), err
}

func newBool(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("bool", kwargs); err != nil {
		return nil, err
	}
	if err := vm.argc("bool", args, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return Bool(false), nil
	}
	t, err := vm.truthy(args[0])
	return Bool(t), err
}

func newDictValue(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("dict", args, 0, 1); err != nil {
		return nil, err
	}
	d := NewDict()
	if len(args) == 1 {
		if err := vm.dictUpdate(d, args[0], ""); err != nil {
			return nil, err
		}
	}
	for _, kw := range kwargs {
		d.SetStr(kw.Name, kw.Value)
	}
	return d, nil
}

func newRange(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("range", kwargs); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, vm.typeError("range expected at least 1 argument, got 0")
	}
	if err := vm.argc("range", args, 1, 3); err != nil {
		return nil, err
	}
	vals := make([]int64, len(args))
	for i, a := range args {
		n, err := vm.intArg(a)
		if err != nil {
			return nil, err
		}
		vals[i] = n
	}
	r := &Range{Step: 1}
	switch len(vals) {
	case 1:
		r.Stop = vals[0]
	case 2:
		r.Start, r.Stop = vals[0], vals[1]
	case 3:
		r.Start, r.Stop, r.Step = vals[0], vals[1], vals[2]
		if r.Step == 0 {
			return nil, vm.valueError("range() arg 3 must not be zero")
		}
	}
	return r, nil
}

func newType(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	switch len(args) {
	case 1:
		return args[0].Type(), nil
	case 3:
	default:
		return nil, vm.typeError("type() takes 1 or 3 arguments")
	}
	name, err := vm.strArg("type.__new__() argument 1", args[0])
	if err != nil {
		return nil, err
	}
	baseTuple, ok := args[1].(*Tuple)
	if !ok {
		return nil, vm.typeError("type.__new__() argument 2 must be tuple, not %s", TypeName(args[1]))
	}
	body, ok := args[2].(*Dict)
	if !ok {
		return nil, vm.typeError("type.__new__() argument 3 must be dict, not %s", TypeName(args[2]))
	}
	var bases []*Class
	for _, b := range baseTuple.Items {
		c, ok := b.(*Class)
		if !ok || !subclassable(c) {
			return nil, vm.typeError("type.__new__() bases must be user classes")
		}
		bases = append(bases, c)
	}
	if len(bases) == 0 {
		bases = []*Class{ObjectClass}
	}
	ns := NewNamespace()
	var bad error
	body.Items(func(k, v Value) bool {
		ks, ok := k.(Str)
		if !ok {
			bad = vm.typeError("type.__new__() attribute names must be strings")
			return false
		}
		ns.Set(string(ks), v)
		return true
	})
	if bad != nil {
		return nil, bad
	}
	module := "__main__"
	if m, ok := ns.Get("__module__"); ok {
		if s, ok := m.(Str); ok {
			module = string(s)
		}
	}
	cls := &Class{Name: name, Module: module, Bases: bases, Dict: ns}
	mro, ok := linearize(cls, bases)
	if !ok {
		return nil, vm.typeError("Cannot create a consistent method resolution order (MRO) for bases")
	}
	cls.MRO = mro
	return cls, nil
}

func newSlice(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("slice", args, 1, 3); err != nil {
		return nil, err
	}
	switch len(args) {
	case 1:
		return &Slice{Start: None, Stop: args[0], Step: None}, nil
	case 2:
		return &Slice{Start: args[0], Stop: args[1], Step: None}, nil
	}
	return &Slice{Start: args[0], Stop: args[1], Step: args[2]}, nil
}

func newProperty(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	opts, err := vm.kwargsOnly("property", kwargs, "fget", "fset", "fdel", "doc")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("property", args, 0, 4); err != nil {
		return nil, err
	}
	p := &Property{}
	slots := []*Value{&p.Get, &p.Set, &p.Del}
	for i, name := range []string{"fget", "fset", "fdel"} {
		v, ok := opts[name]
		if i < len(args) {
			v, ok = args[i], true
		}
		if ok && v != None {
			*slots[i] = v
		}
	}
	return p, nil
}

// newSuper implements both super(C, obj) and the zero-argument form, which
// reads the defining class and first argument of the calling function.
func newSuper(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("super", kwargs); err != nil {
		return nil, err
	}
	switch len(args) {
	case 2:
		c, ok := args[0].(*Class)
		if !ok {
			return nil, vm.typeError("super() argument 1 must be a type, not %s", TypeName(args[0]))
		}
		return &Super{After: c, Self: args[1]}, nil
	case 0:
	default:
		return nil, vm.typeError("super() takes 0 or 2 arguments")
	}
	fr := vm.frame
	if fr == nil || fr.fn == nil || fr.fn.defClass == nil {
		return nil, vm.raise(RuntimeErrorClass, "super(): __class__ cell not found")
	}
	names := fr.fn.Params.Names()
	if len(names) == 0 {
		return nil, vm.raise(RuntimeErrorClass, "super(): no arguments")
	}
	self, ok := fr.scope.ns.Get(names[0])
	if !ok {
		return nil, vm.raise(RuntimeErrorClass, "super(): arg[0] deleted")
	}
	return &Super{After: fr.fn.defClass, Self: self}, nil
}
