package vm

import "unicode/utf8"

// iterate returns an iterator over v, implementing iter(v).
func (vm *VM) iterate(v Value) (*Iterator, error) {
	switch x := v.(type) {
	case *Iterator:
		return x, nil
	case *List:
		i := 0
		return newIterator(listIteratorClass, func() (Value, bool, error) {
			if i >= len(x.Items) {
				return nil, false, nil
			}
			i++
			return x.Items[i-1], true, nil
		}), nil
	case *Tuple:
		return sliceIterator(tupleIteratorClass, x.Items), nil
	case Str:
		s := string(x)
		return newIterator(strIteratorClass, func() (Value, bool, error) {
			if s == "" {
				return nil, false, nil
			}
			r, n := utf8.DecodeRuneInString(s)
			s = s[n:]
			return Str(string(r)), true, nil
		}), nil
	case *Range:
		var i int64
		n := x.Len()
		return newIterator(rangeIteratorClass, func() (Value, bool, error) {
			if i >= n {
				return nil, false, nil
			}
			i++
			return Int(x.At(i - 1)), true, nil
		}), nil
	case *Dict:
		return vm.dictIterator(x, viewKeys, dictKeyIterClass, "dictionary"), nil
	case *DictView:
		cls := dictKeyIterClass
		switch x.kind {
		case viewValues:
			cls = dictValueIterClass
		case viewItems:
			cls = dictItemIterClass
		}
		return vm.dictIterator(x.d, x.kind, cls, "dictionary"), nil
	case *Set:
		return vm.dictIterator(x.d, viewKeys, setIteratorClass, "Set"), nil
	case *Instance:
		m, ok := userMethod(x, "__iter__")
		if !ok {
			if _, ok := userMethod(x, "__getitem__"); ok {
				return vm.sequenceIterator(x), nil
			}
			break
		}
		res, err := vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
		if err != nil {
			return nil, err
		}
		if it, ok := res.(*Iterator); ok {
			return it, nil
		}
		obj, ok := res.(*Instance)
		if !ok {
			return nil, vm.typeError("iter() returned non-iterator of type '%s'", TypeName(res))
		}
		next, ok := userMethod(obj, "__next__")
		if !ok {
			return nil, vm.typeError("iter() returned non-iterator of type '%s'", TypeName(res))
		}
		bound := vm.bindTo(next, obj, obj.Class)
		return newIterator(obj.Class, func() (Value, bool, error) {
			v, err := vm.Call(bound, nil, nil)
			if exc, ok := err.(*Exception); ok && exc.Is(StopIterationClass) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			return v, true, nil
		}), nil
	}
	return nil, vm.typeError("'%s' object is not iterable", TypeName(v))
}

func sliceIterator(cls *Class, items []Value) *Iterator {
	i := 0
	return newIterator(cls, func() (Value, bool, error) {
		if i >= len(items) {
			return nil, false, nil
		}
		i++
		return items[i-1], true, nil
	})
}

// dictIterator walks live entries and fails if keys are added or removed
// while it is active.
func (vm *VM) dictIterator(d *Dict, kind viewKind, cls *Class, what string) *Iterator {
	i := 0
	gen := d.gen
	return newIterator(cls, func() (Value, bool, error) {
		if d.gen != gen {
			return nil, false, vm.raise(RuntimeErrorClass, "%s changed size during iteration", what)
		}
		for i < len(d.keys) && d.keys[i] == nil {
			i++
		}
		if i >= len(d.keys) {
			return nil, false, nil
		}
		k, v := d.keys[i], d.vals[i]
		i++
		switch kind {
		case viewValues:
			return v, true, nil
		case viewItems:
			return NewTuple(k, v), true, nil
		}
		return k, true, nil
	})
}

// sequenceIterator drives the legacy __getitem__ protocol until IndexError.
func (vm *VM) sequenceIterator(x *Instance) *Iterator {
	var i int64
	return newIterator(callIteratorClass, func() (Value, bool, error) {
		v, err := vm.getItem(x, Int(i))
		if exc, ok := err.(*Exception); ok && (exc.Is(IndexErrorClass) || exc.Is(StopIterationClass)) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		i++
		return v, true, nil
	})
}

// isIterable reports whether iterate would accept v.
func (vm *VM) isIterable(v Value) bool {
	switch x := v.(type) {
	case *Iterator, *List, *Tuple, Str, *Range, *Dict, *DictView, *Set:
		return true
	case *Instance:
		if _, ok := userMethod(x, "__iter__"); ok {
			return true
		}
		_, ok := userMethod(x, "__getitem__")
		return ok
	}
	return false
}

// toSlice materialises v, bounded by the sequence ceiling.
func (vm *VM) toSlice(v Value) ([]Value, error) {
	switch x := v.(type) {
	case *List:
		return append([]Value(nil), x.Items...), nil
	case *Tuple:
		return append([]Value(nil), x.Items...), nil
	case *Range:
		if x.Len() > int64(vm.opts.MaxSequence) {
			return nil, vm.newException(MemoryErrorClass)
		}
	}
	it, err := vm.iterate(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		item, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if len(out) >= vm.opts.MaxSequence {
			return nil, vm.newException(MemoryErrorClass)
		}
		out = append(out, item)
		if len(out)%pollInterval == 0 {
			if err := vm.ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
}

// next advances it, returning StopIteration when exhausted unless def is
// non-nil.
func (vm *VM) next(it *Iterator, def Value) (Value, error) {
	v, ok, err := it.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		if def != nil {
			return def, nil
		}
		return nil, vm.newException(StopIterationClass)
	}
	return v, nil
}
