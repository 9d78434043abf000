package vm

import (
	"math"
	"strings"

	"pytrace/internal/ast"
)

var richDunders = map[ast.CmpOp][2]string{
	ast.CmpEq:    {"__eq__", "__eq__"},
	ast.CmpNotEq: {"__ne__", "__ne__"},
	ast.CmpLt:    {"__lt__", "__gt__"},
	ast.CmpLtE:   {"__le__", "__ge__"},
	ast.CmpGt:    {"__gt__", "__lt__"},
	ast.CmpGtE:   {"__ge__", "__le__"},
}

// compare evaluates a single comparison a op b.
func (vm *VM) compare(op ast.CmpOp, a, b Value) (bool, error) {
	switch op {
	case ast.CmpIs:
		return identical(a, b), nil
	case ast.CmpIsNot:
		return !identical(a, b), nil
	case ast.CmpIn:
		return vm.contains(b, a)
	case ast.CmpNotIn:
		in, err := vm.contains(b, a)
		return !in, err
	case ast.CmpEq:
		return vm.equal(a, b)
	case ast.CmpNotEq:
		if res, ok, err := vm.userCompare(op, a, b); ok || err != nil {
			return res, err
		}
		eq, err := vm.equal(a, b)
		return !eq, err
	}
	return vm.order(op, a, b)
}

// identical implements `is`. Scalars compare by value, which matches
// CPython's interning for the values scripts can observe.
func identical(a, b Value) bool {
	switch x := a.(type) {
	case NoneType, EllipsisType, Bool, Int, Str:
		return a == b
	case Float:
		y, ok := b.(Float)
		return ok && (x == y || math.IsNaN(float64(x)) && math.IsNaN(float64(y)))
	}
	return a == b
}

// userCompare dispatches a rich comparison to a user class, trying the
// reflected method on the right operand second.
func (vm *VM) userCompare(op ast.CmpOp, a, b Value) (bool, bool, error) {
	names, ok := richDunders[op]
	if !ok {
		return false, false, nil
	}
	try := func(self Value, name string, other Value) (bool, bool, error) {
		m, ok := userMethod(self, name)
		if !ok {
			return false, false, nil
		}
		inst := self.(*Instance)
		res, err := vm.Call(vm.bindTo(m, inst, inst.Class), []Value{other}, nil)
		if err != nil {
			return false, true, err
		}
		if res == Value(notImplemented) {
			return false, false, nil
		}
		t, err := vm.truthy(res)
		return t, true, err
	}
	if r, ok, err := try(a, names[0], b); ok || err != nil {
		return r, true, err
	}
	return try(b, names[1], a)
}

// equal implements ==.
func (vm *VM) equal(a, b Value) (bool, error) {
	if res, ok, err := vm.userCompare(ast.CmpEq, a, b); ok || err != nil {
		return res, err
	}
	if isNumber(a) && isNumber(b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)
		if aok && bok {
			return ai == bi, nil
		}
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		return af == bf, nil
	}
	switch x := a.(type) {
	case Str:
		y, ok := b.(Str)
		return ok && x == y, nil
	case *List:
		if y, ok := b.(*List); ok {
			return vm.equalItems(x.Items, y.Items)
		}
		return false, nil
	case *Tuple:
		if y, ok := b.(*Tuple); ok {
			return vm.equalItems(x.Items, y.Items)
		}
		return false, nil
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		eq := true
		var err error
		x.Items(func(k, v Value) bool {
			var w Value
			var found bool
			if w, found, err = y.Get(vm, k); err != nil || !found {
				eq = false
				return false
			}
			if identical(v, w) {
				return true
			}
			eq, err = vm.equal(v, w)
			return err == nil && eq
		})
		return eq, err
	case *Set:
		y, ok := b.(*Set)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		return vm.subset(x, y)
	case *Range:
		y, ok := b.(*Range)
		if !ok {
			return false, nil
		}
		n := x.Len()
		if n != y.Len() {
			return false, nil
		}
		return n == 0 || (x.Start == y.Start && (n == 1 || x.Step == y.Step)), nil
	case *DictView:
		if y, ok := b.(*DictView); ok && x.kind == viewKeys && y.kind == viewKeys {
			if x.d.Len() != y.d.Len() {
				return false, nil
			}
			for _, k := range x.d.Keys() {
				if _, found, err := y.d.Get(vm, k); err != nil || !found {
					return false, err
				}
			}
			return true, nil
		}
	case *BoundMethod:
		if y, ok := b.(*BoundMethod); ok {
			return identical(x.Self, y.Self) && x.Func == y.Func, nil
		}
		return false, nil
	}
	return identical(a, b), nil
}

func (vm *VM) equalItems(a, b []Value) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		if identical(a[i], b[i]) {
			continue
		}
		eq, err := vm.equal(a[i], b[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

func (vm *VM) subset(a, b *Set) (bool, error) {
	for _, e := range a.Elems() {
		in, err := b.Contains(vm, e)
		if err != nil || !in {
			return false, err
		}
	}
	return true, nil
}

// order implements < <= > >=.
func (vm *VM) order(op ast.CmpOp, a, b Value) (bool, error) {
	if res, ok, err := vm.userCompare(op, a, b); ok || err != nil {
		return res, err
	}
	c, ok, err := vm.cmp3(a, b, op)
	if err != nil {
		return false, err
	}
	if !ok {
		if x, isSet := a.(*Set); isSet {
			if y, isSet := b.(*Set); isSet {
				return vm.setOrder(op, x, y)
			}
		}
		return false, vm.typeError("'%s' not supported between instances of '%s' and '%s'", op, TypeName(a), TypeName(b))
	}
	switch op {
	case ast.CmpLt:
		return c < 0, nil
	case ast.CmpLtE:
		return c <= 0, nil
	case ast.CmpGt:
		return c > 0, nil
	}
	return c >= 0, nil
}

// cmp3 three-way compares totally ordered builtin values. ok is false when
// the pair has no ordering. A NaN operand yields a result that makes op
// false.
func (vm *VM) cmp3(a, b Value, op ast.CmpOp) (int, bool, error) {
	if isNumber(a) && isNumber(b) {
		ai, aok := asInt(a)
		bi, bok := asInt(b)
		if aok && bok {
			return cmpOrdered(ai, bi), true, nil
		}
		af, _ := asFloat(a)
		bf, _ := asFloat(b)
		if math.IsNaN(af) || math.IsNaN(bf) {
			return nanResult(op), true, nil
		}
		return cmpOrdered(af, bf), true, nil
	}
	switch x := a.(type) {
	case Str:
		if y, ok := b.(Str); ok {
			return cmpOrdered(x, y), true, nil
		}
	case *List:
		if y, ok := b.(*List); ok {
			return vm.cmpItems(x.Items, y.Items, op)
		}
	case *Tuple:
		if y, ok := b.(*Tuple); ok {
			return vm.cmpItems(x.Items, y.Items, op)
		}
	}
	return 0, false, nil
}

// nanResult picks a three-way result that makes op evaluate false.
func nanResult(op ast.CmpOp) int {
	switch op {
	case ast.CmpLt, ast.CmpLtE:
		return 1
	}
	return -1
}

func cmpOrdered[T int64 | float64 | Str](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// cmpItems compares sequences lexicographically from the first unequal
// element.
func (vm *VM) cmpItems(a, b []Value, op ast.CmpOp) (int, bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		if identical(a[i], b[i]) {
			continue
		}
		eq, err := vm.equal(a[i], b[i])
		if err != nil {
			return 0, false, err
		}
		if eq {
			continue
		}
		lt, err := vm.order(ast.CmpLt, a[i], b[i])
		if err != nil {
			return 0, false, err
		}
		if lt {
			return -1, true, nil
		}
		if op == ast.CmpLt || op == ast.CmpLtE {
			gt, err := vm.order(ast.CmpGt, a[i], b[i])
			if err != nil || !gt {
				return nanResult(op), true, err
			}
		}
		return 1, true, nil
	}
	return cmpOrdered(int64(len(a)), int64(len(b))), true, nil
}

func (vm *VM) setOrder(op ast.CmpOp, a, b *Set) (bool, error) {
	switch op {
	case ast.CmpLt:
		if a.Len() >= b.Len() {
			return false, nil
		}
		return vm.subset(a, b)
	case ast.CmpLtE:
		return vm.subset(a, b)
	case ast.CmpGt:
		if a.Len() <= b.Len() {
			return false, nil
		}
		return vm.subset(b, a)
	}
	return vm.subset(b, a)
}

// contains implements `needle in container`.
func (vm *VM) contains(container, needle Value) (bool, error) {
	switch c := container.(type) {
	case Str:
		s, ok := needle.(Str)
		if !ok {
			return false, vm.typeError("'in <string>' requires string as left operand, not %s", TypeName(needle))
		}
		return strings.Contains(string(c), string(s)), nil
	case *List:
		return vm.containsItem(c.Items, needle)
	case *Tuple:
		return vm.containsItem(c.Items, needle)
	case *Dict:
		_, ok, err := c.Get(vm, needle)
		return ok, err
	case *Set:
		return c.Contains(vm, needle)
	case *DictView:
		if c.kind == viewKeys {
			_, ok, err := c.d.Get(vm, needle)
			return ok, err
		}
	case *Range:
		i, ok := asInt(needle)
		if !ok {
			if f, isFloat := needle.(Float); isFloat && float64(f) == math.Trunc(float64(f)) {
				i, ok = floatToInt(float64(f))
			}
		}
		if !ok {
			return false, nil
		}
		if c.Step > 0 && (i < c.Start || i >= c.Stop) || c.Step < 0 && (i > c.Start || i <= c.Stop) {
			return false, nil
		}
		return (i-c.Start)%c.Step == 0, nil
	case *Instance:
		if m, ok := userMethod(c, "__contains__"); ok {
			res, err := vm.Call(vm.bindTo(m, c, c.Class), []Value{needle}, nil)
			if err != nil {
				return false, err
			}
			return vm.truthy(res)
		}
	}
	if !vm.isIterable(container) {
		return false, vm.typeError("argument of type '%s' is not iterable", TypeName(container))
	}
	it, err := vm.iterate(container)
	if err != nil {
		return false, err
	}
	for {
		v, ok, err := it.Next()
		if err != nil || !ok {
			return false, err
		}
		if identical(v, needle) {
			return true, nil
		}
		if eq, err := vm.equal(v, needle); err != nil || eq {
			return eq, err
		}
	}
}

func (vm *VM) containsItem(items []Value, needle Value) (bool, error) {
	for _, v := range items {
		if identical(v, needle) {
			return true, nil
		}
		eq, err := vm.equal(v, needle)
		if err != nil || eq {
			return eq, err
		}
	}
	return false, nil
}

// truthy implements bool(v).
func (vm *VM) truthy(v Value) (bool, error) {
	switch x := v.(type) {
	case NoneType:
		return false, nil
	case Bool:
		return bool(x), nil
	case Int:
		return x != 0, nil
	case Float:
		return x != 0, nil
	case Str:
		return x != "", nil
	case *List:
		return len(x.Items) > 0, nil
	case *Tuple:
		return len(x.Items) > 0, nil
	case *Dict:
		return x.Len() > 0, nil
	case *Set:
		return x.Len() > 0, nil
	case *Range:
		return x.Len() > 0, nil
	case *DictView:
		return x.d.Len() > 0, nil
	case *Instance:
		if m, ok := userMethod(x, "__bool__"); ok {
			res, err := vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
			if err != nil {
				return false, err
			}
			b, ok := res.(Bool)
			if !ok {
				return false, vm.typeError("__bool__ should return bool, returned %s", TypeName(res))
			}
			return bool(b), nil
		}
		if _, ok := userMethod(x, "__len__"); ok {
			n, err := vm.length(x)
			return n > 0, err
		}
	}
	return true, nil
}
