package vm

import (
	"math"

	"pytrace/internal/token"
)

type dunderPair struct {
	name, rname, iname string
}

var binaryDunders = map[token.Kind]dunderPair{
	token.Plus:       {"__add__", "__radd__", "__iadd__"},
	token.Minus:      {"__sub__", "__rsub__", "__isub__"},
	token.Star:       {"__mul__", "__rmul__", "__imul__"},
	token.Slash:      {"__truediv__", "__rtruediv__", "__itruediv__"},
	token.SlashSlash: {"__floordiv__", "__rfloordiv__", "__ifloordiv__"},
	token.Percent:    {"__mod__", "__rmod__", "__imod__"},
	token.StarStar:   {"__pow__", "__rpow__", "__ipow__"},
	token.At:         {"__matmul__", "__rmatmul__", "__imatmul__"},
	token.Amp:        {"__and__", "__rand__", "__iand__"},
	token.Pipe:       {"__or__", "__ror__", "__ior__"},
	token.Caret:      {"__xor__", "__rxor__", "__ixor__"},
	token.Shl:        {"__lshift__", "__rlshift__", "__ilshift__"},
	token.Shr:        {"__rshift__", "__rrshift__", "__irshift__"},
}

// notImplemented is returned by dunder dispatch when neither operand
// handles the operator.
var notImplemented = &Instance{Class: newBuiltinClass("NotImplementedType", ObjectClass), Dict: NewNamespace()}

func (vm *VM) unsupported(op token.Kind, l, r Value) error {
	return vm.typeError("unsupported operand type(s) for %s: '%s' and '%s'", op, TypeName(l), TypeName(r))
}

// binaryOp evaluates l op r.
func (vm *VM) binaryOp(op token.Kind, l, r Value) (Value, error) {
	if _, ok := l.(*Instance); ok {
		if v, ok, err := vm.userBinary(op, l, r); ok || err != nil {
			return v, err
		}
	} else if _, ok := r.(*Instance); ok {
		if v, ok, err := vm.userBinary(op, l, r); ok || err != nil {
			return v, err
		}
	}
	if li, lok := asInt(l); lok {
		if ri, rok := asInt(r); rok {
			if op == token.Amp || op == token.Pipe || op == token.Caret {
				if lb, ok := l.(Bool); ok {
					if rb, ok := r.(Bool); ok {
						return boolBitwise(op, bool(lb), bool(rb)), nil
					}
				}
			}
			return vm.intOp(op, li, ri)
		}
	}
	if isNumber(l) && isNumber(r) {
		lf, _ := asFloat(l)
		rf, _ := asFloat(r)
		return vm.floatOp(op, lf, rf, l, r)
	}
	switch a := l.(type) {
	case Str:
		switch op {
		case token.Plus:
			if b, ok := r.(Str); ok {
				return a + b, nil
			}
			return nil, vm.typeError("can only concatenate str (not \"%s\") to str", TypeName(r))
		case token.Star:
			if n, ok := asInt(r); ok {
				return vm.repeatStr(a, n)
			}
		case token.Percent:
			s, err := vm.percentFormat(string(a), r)
			if err != nil {
				return nil, err
			}
			return Str(s), nil
		}
	case *List:
		switch op {
		case token.Plus:
			if b, ok := r.(*List); ok {
				out := make([]Value, 0, len(a.Items)+len(b.Items))
				out = append(append(out, a.Items...), b.Items...)
				return NewList(out), nil
			}
			return nil, vm.typeError("can only concatenate list (not \"%s\") to list", TypeName(r))
		case token.Star:
			if n, ok := asInt(r); ok {
				items, err := vm.repeatItems(a.Items, n)
				if err != nil {
					return nil, err
				}
				return NewList(items), nil
			}
		}
	case *Tuple:
		switch op {
		case token.Plus:
			if b, ok := r.(*Tuple); ok {
				out := make([]Value, 0, len(a.Items)+len(b.Items))
				out = append(append(out, a.Items...), b.Items...)
				return NewTuple(out...), nil
			}
			return nil, vm.typeError("can only concatenate tuple (not \"%s\") to tuple", TypeName(r))
		case token.Star:
			if n, ok := asInt(r); ok {
				items, err := vm.repeatItems(a.Items, n)
				if err != nil {
					return nil, err
				}
				return NewTuple(items...), nil
			}
		}
	case *Set:
		if b, ok := r.(*Set); ok {
			if res, ok, err := vm.setOp(op, a, b); ok || err != nil {
				return res, err
			}
		}
	case *Dict:
		if b, ok := r.(*Dict); ok && op == token.Pipe {
			out := a.Copy()
			if err := vm.dictUpdate(out, b, ""); err != nil {
				return nil, err
			}
			return out, nil
		}
	case Int, Bool:
		if op == token.Star {
			n, _ := asInt(a)
			switch b := r.(type) {
			case Str:
				return vm.repeatStr(b, n)
			case *List:
				items, err := vm.repeatItems(b.Items, n)
				if err != nil {
					return nil, err
				}
				return NewList(items), nil
			case *Tuple:
				items, err := vm.repeatItems(b.Items, n)
				if err != nil {
					return nil, err
				}
				return NewTuple(items...), nil
			}
		}
	}
	if op == token.Star && (isSequence(l) || isSequence(r)) {
		other := r
		if !isSequence(l) {
			other = l
		}
		return nil, vm.typeError("can't multiply sequence by non-int of type '%s'", TypeName(other))
	}
	return nil, vm.unsupported(op, l, r)
}

func isSequence(v Value) bool {
	switch v.(type) {
	case Str, *List, *Tuple:
		return true
	}
	return false
}

func boolBitwise(op token.Kind, a, b bool) Value {
	switch op {
	case token.Amp:
		return Bool(a && b)
	case token.Pipe:
		return Bool(a || b)
	}
	return Bool(a != b)
}

// userBinary tries __op__ on l and then __rop__ on r.
func (vm *VM) userBinary(op token.Kind, l, r Value) (Value, bool, error) {
	d, ok := binaryDunders[op]
	if !ok {
		return nil, false, nil
	}
	if m, ok := userMethod(l, d.name); ok {
		inst := l.(*Instance)
		res, err := vm.Call(vm.bindTo(m, inst, inst.Class), []Value{r}, nil)
		if err != nil {
			return nil, true, err
		}
		if res != Value(notImplemented) {
			return res, true, nil
		}
	}
	if m, ok := userMethod(r, d.rname); ok {
		inst := r.(*Instance)
		res, err := vm.Call(vm.bindTo(m, inst, inst.Class), []Value{l}, nil)
		if err != nil {
			return nil, true, err
		}
		if res != Value(notImplemented) {
			return res, true, nil
		}
	}
	return nil, false, nil
}

func (vm *VM) overflow() error {
	return vm.raise(OverflowErrorClass, "integer overflow")
}

func (vm *VM) intOp(op token.Kind, a, b int64) (Value, error) {
	var (
		res int64
		ok  = true
	)
	switch op {
	case token.Plus:
		res, ok = addChecked(a, b)
	case token.Minus:
		res, ok = subChecked(a, b)
	case token.Star:
		res, ok = mulChecked(a, b)
	case token.Slash:
		if b == 0 {
			return nil, vm.raise(ZeroDivisionErrorClass, "division by zero")
		}
		return Float(float64(a) / float64(b)), nil
	case token.SlashSlash:
		if b == 0 {
			return nil, vm.raise(ZeroDivisionErrorClass, "integer division or modulo by zero")
		}
		res, ok = floorDiv(a, b)
	case token.Percent:
		if b == 0 {
			return nil, vm.raise(ZeroDivisionErrorClass, "integer modulo by zero")
		}
		res = floorMod(a, b)
	case token.StarStar:
		if b < 0 {
			if a == 0 {
				return nil, vm.raise(ZeroDivisionErrorClass, "0.0 cannot be raised to a negative power")
			}
			return Float(math.Pow(float64(a), float64(b))), nil
		}
		res, ok = powChecked(a, b)
	case token.Amp:
		res = a & b
	case token.Pipe:
		res = a | b
	case token.Caret:
		res = a ^ b
	case token.Shl:
		if b < 0 {
			return nil, vm.valueError("negative shift count")
		}
		if a == 0 {
			return Int(0), nil
		}
		if b >= 63 {
			return nil, vm.overflow()
		}
		res = a << uint(b)
		ok = res>>uint(b) == a
	case token.Shr:
		if b < 0 {
			return nil, vm.valueError("negative shift count")
		}
		if b >= 63 {
			if a < 0 {
				return Int(-1), nil
			}
			return Int(0), nil
		}
		res = a >> uint(b)
	default:
		return nil, vm.unsupported(op, Int(a), Int(b))
	}
	if !ok {
		return nil, vm.overflow()
	}
	return Int(res), nil
}

func (vm *VM) floatOp(op token.Kind, a, b float64, l, r Value) (Value, error) {
	switch op {
	case token.Plus:
		return Float(a + b), nil
	case token.Minus:
		return Float(a - b), nil
	case token.Star:
		return Float(a * b), nil
	case token.Slash:
		if b == 0 {
			return nil, vm.raise(ZeroDivisionErrorClass, "float division by zero")
		}
		return Float(a / b), nil
	case token.SlashSlash:
		if b == 0 {
			return nil, vm.raise(ZeroDivisionErrorClass, "float floor division by zero")
		}
		return Float(math.Floor(a / b)), nil
	case token.Percent:
		if b == 0 {
			return nil, vm.raise(ZeroDivisionErrorClass, "float modulo")
		}
		return Float(floatFloorMod(a, b)), nil
	case token.StarStar:
		if a == 0 && b < 0 {
			return nil, vm.raise(ZeroDivisionErrorClass, "0.0 cannot be raised to a negative power")
		}
		if a < 0 && b != math.Trunc(b) {
			return nil, vm.valueError("negative number cannot be raised to a fractional power")
		}
		res := math.Pow(a, b)
		if math.IsInf(res, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) {
			return nil, vm.raise(OverflowErrorClass, "(34, 'Numerical result out of range')")
		}
		return Float(res), nil
	}
	return nil, vm.unsupported(op, l, r)
}

func (vm *VM) repeatStr(s Str, n int64) (Value, error) {
	if n <= 0 || s == "" {
		return Str(""), nil
	}
	if int64(len(s)) > int64(vm.opts.MaxSequence)/n {
		return nil, vm.newException(MemoryErrorClass)
	}
	out := make([]byte, 0, int64(len(s))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return Str(out), nil
}

func (vm *VM) repeatItems(items []Value, n int64) ([]Value, error) {
	if n <= 0 || len(items) == 0 {
		return []Value{}, nil
	}
	if int64(len(items)) > int64(vm.opts.MaxSequence)/n {
		return nil, vm.newException(MemoryErrorClass)
	}
	out := make([]Value, 0, int64(len(items))*n)
	for i := int64(0); i < n; i++ {
		out = append(out, items...)
	}
	return out, nil
}

// setOp implements | & - ^ on sets; the result takes the left operand's
// kind.
func (vm *VM) setOp(op token.Kind, a, b *Set) (Value, bool, error) {
	out := &Set{d: NewDict(), Frozen: a.Frozen}
	switch op {
	case token.Pipe:
		out.d = a.d.Copy()
		for _, e := range b.Elems() {
			if err := out.Add(vm, e); err != nil {
				return nil, true, err
			}
		}
	case token.Amp, token.Minus:
		for _, e := range a.Elems() {
			in, err := b.Contains(vm, e)
			if err != nil {
				return nil, true, err
			}
			if in == (op == token.Amp) {
				if err := out.Add(vm, e); err != nil {
					return nil, true, err
				}
			}
		}
	case token.Caret:
		for _, pair := range [2][2]*Set{{a, b}, {b, a}} {
			for _, e := range pair[0].Elems() {
				in, err := pair[1].Contains(vm, e)
				if err != nil {
					return nil, true, err
				}
				if !in {
					if err := out.Add(vm, e); err != nil {
						return nil, true, err
					}
				}
			}
		}
	default:
		return nil, false, nil
	}
	return out, true, nil
}

// inplaceOp evaluates cur op= rhs, mutating cur when its type allows it.
func (vm *VM) inplaceOp(op token.Kind, cur, rhs Value) (Value, error) {
	if inst, ok := cur.(*Instance); ok {
		if d, ok := binaryDunders[op]; ok {
			if m, ok := userMethod(inst, d.iname); ok {
				res, err := vm.Call(vm.bindTo(m, inst, inst.Class), []Value{rhs}, nil)
				if err != nil || res != Value(notImplemented) {
					return res, err
				}
			}
		}
	}
	switch c := cur.(type) {
	case *List:
		switch op {
		case token.Plus:
			items, err := vm.toSlice(rhs)
			if err != nil {
				if !vm.isIterable(rhs) {
					return nil, vm.typeError("'%s' object is not iterable", TypeName(rhs))
				}
				return nil, err
			}
			c.Items = append(c.Items, items...)
			return c, nil
		case token.Star:
			if n, ok := asInt(rhs); ok {
				items, err := vm.repeatItems(c.Items, n)
				if err != nil {
					return nil, err
				}
				c.Items = items
				return c, nil
			}
		}
	case *Set:
		if b, ok := rhs.(*Set); ok && !c.Frozen {
			res, ok, err := vm.setOp(op, c, b)
			if err != nil {
				return nil, err
			}
			if ok {
				c.d = res.(*Set).d
				return c, nil
			}
		}
	case *Dict:
		if op == token.Pipe {
			if err := vm.dictUpdate(c, rhs, ""); err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	return vm.binaryOp(op, cur, rhs)
}

func (vm *VM) unaryOp(op token.Kind, v Value) (Value, error) {
	if op == token.KwNot {
		t, err := vm.truthy(v)
		if err != nil {
			return nil, err
		}
		return Bool(!t), nil
	}
	if inst, ok := v.(*Instance); ok {
		name := map[token.Kind]string{token.Minus: "__neg__", token.Plus: "__pos__", token.Tilde: "__invert__"}[op]
		if m, ok := userMethod(inst, name); ok {
			return vm.Call(vm.bindTo(m, inst, inst.Class), nil, nil)
		}
	}
	if i, ok := asInt(v); ok {
		switch op {
		case token.Minus:
			if i == math.MinInt64 {
				return nil, vm.overflow()
			}
			return Int(-i), nil
		case token.Plus:
			return Int(i), nil
		case token.Tilde:
			return Int(^i), nil
		}
	}
	if f, ok := v.(Float); ok {
		switch op {
		case token.Minus:
			return -f, nil
		case token.Plus:
			return f, nil
		}
	}
	return nil, vm.typeError("bad operand type for unary %s: '%s'", op, TypeName(v))
}
