package vm

import (
	"unicode/utf8"
)

// sliceIndices resolves a slice against a sequence length the way
// slice.indices does.
func (vm *VM) sliceIndices(s *Slice, length int64) (start, stop, step int64, err error) {
	step = 1
	if s.Step != None {
		v, ok := asInt(s.Step)
		if !ok {
			return 0, 0, 0, vm.typeError("slice indices must be integers or None or have an __index__ method")
		}
		if v == 0 {
			return 0, 0, 0, vm.valueError("slice step cannot be zero")
		}
		step = v
	}
	lower, upper := int64(0), length
	if step < 0 {
		lower, upper = -1, length-1
	}
	resolve := func(v Value, def int64) (int64, error) {
		if v == None {
			return def, nil
		}
		x, ok := asInt(v)
		if !ok {
			return 0, vm.typeError("slice indices must be integers or None or have an __index__ method")
		}
		if x < 0 {
			x += length
			if x < lower {
				x = lower
			}
		} else if x > upper {
			x = upper
		}
		return x, nil
	}
	if step > 0 {
		start, err = resolve(s.Start, 0)
		if err == nil {
			stop, err = resolve(s.Stop, length)
		}
	} else {
		start, err = resolve(s.Start, length-1)
		if err == nil {
			stop, err = resolve(s.Stop, -1)
		}
	}
	return start, stop, step, err
}

// sliceLen is the number of elements a resolved slice selects.
func sliceLen(start, stop, step int64) int64 {
	if step > 0 && start < stop {
		return (stop-start-1)/step + 1
	}
	if step < 0 && start > stop {
		return (start-stop-1)/(-step) + 1
	}
	return 0
}

func sliceItems(items []Value, start, stop, step int64) []Value {
	n := sliceLen(start, stop, step)
	out := make([]Value, 0, n)
	for i, j := int64(0), start; i < n; i, j = i+1, j+step {
		out = append(out, items[j])
	}
	return out
}

// seqIndex normalises a subscript for a sequence of the given length.
func (vm *VM) seqIndex(idx Value, length int, kind string) (int, error) {
	i, ok := asInt(idx)
	if !ok {
		return 0, vm.typeError("%s indices must be integers or slices, not %s", kind, TypeName(idx))
	}
	if i < 0 {
		i += int64(length)
	}
	if i < 0 || i >= int64(length) {
		return 0, vm.raise(IndexErrorClass, "%s index out of range", kind)
	}
	return int(i), nil
}

// strRunes returns s as code points; ASCII strings avoid the copy.
func strRunes(s string) ([]rune, bool) {
	if isASCII(s) {
		return nil, true
	}
	return []rune(s), false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// strLen counts code points.
func strLen(s string) int {
	if isASCII(s) {
		return len(s)
	}
	return utf8.RuneCountInString(s)
}

func (vm *VM) getItem(obj, idx Value) (Value, error) {
	switch o := obj.(type) {
	case *List:
		if sl, ok := idx.(*Slice); ok {
			start, stop, step, err := vm.sliceIndices(sl, int64(len(o.Items)))
			if err != nil {
				return nil, err
			}
			return NewList(sliceItems(o.Items, start, stop, step)), nil
		}
		i, err := vm.seqIndex(idx, len(o.Items), "list")
		if err != nil {
			return nil, err
		}
		return o.Items[i], nil
	case *Tuple:
		if sl, ok := idx.(*Slice); ok {
			start, stop, step, err := vm.sliceIndices(sl, int64(len(o.Items)))
			if err != nil {
				return nil, err
			}
			return NewTuple(sliceItems(o.Items, start, stop, step)...), nil
		}
		i, err := vm.seqIndex(idx, len(o.Items), "tuple")
		if err != nil {
			return nil, err
		}
		return o.Items[i], nil
	case Str:
		return vm.strItem(string(o), idx)
	case *Range:
		if sl, ok := idx.(*Slice); ok {
			start, stop, step, err := vm.sliceIndices(sl, o.Len())
			if err != nil {
				return nil, err
			}
			return &Range{Start: o.Start + start*o.Step, Stop: o.Start + stop*o.Step, Step: step * o.Step}, nil
		}
		i, ok := asInt(idx)
		if !ok {
			return nil, vm.typeError("range indices must be integers or slices, not %s", TypeName(idx))
		}
		n := o.Len()
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return nil, vm.raise(IndexErrorClass, "range object index out of range")
		}
		return Int(o.At(i)), nil
	case *Dict:
		v, ok, err := o.Get(vm, idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, vm.newException(KeyErrorClass, idx)
		}
		return v, nil
	case *Instance:
		if m, ok := userMethod(o, "__getitem__"); ok {
			return vm.Call(vm.bindTo(m, o, o.Class), []Value{idx}, nil)
		}
	case *Class:
		if o.builtin {
			return o, nil
		}
	}
	return nil, vm.typeError("'%s' object is not subscriptable", TypeName(obj))
}

func (vm *VM) strItem(s string, idx Value) (Value, error) {
	runes, ascii := strRunes(s)
	length := len(s)
	if !ascii {
		length = len(runes)
	}
	if sl, ok := idx.(*Slice); ok {
		start, stop, step, err := vm.sliceIndices(sl, int64(length))
		if err != nil {
			return nil, err
		}
		n := sliceLen(start, stop, step)
		if ascii && step == 1 {
			return Str(s[start : start+n]), nil
		}
		out := make([]rune, 0, n)
		for i, j := int64(0), start; i < n; i, j = i+1, j+step {
			if ascii {
				out = append(out, rune(s[j]))
			} else {
				out = append(out, runes[j])
			}
		}
		return Str(string(out)), nil
	}
	i, err := vm.seqIndex(idx, length, "string")
	if err != nil {
		return nil, err
	}
	if ascii {
		return Str(s[i : i+1]), nil
	}
	return Str(string(runes[i])), nil
}

func (vm *VM) setItem(obj, idx, v Value) error {
	switch o := obj.(type) {
	case *List:
		if sl, ok := idx.(*Slice); ok {
			return vm.setListSlice(o, sl, v)
		}
		i, err := vm.seqIndex(idx, len(o.Items), "list")
		if err != nil {
			if exc, ok := err.(*Exception); ok && exc.Is(IndexErrorClass) {
				return vm.raise(IndexErrorClass, "list assignment index out of range")
			}
			return err
		}
		o.Items[i] = v
		return nil
	case *Dict:
		return o.Set(vm, idx, v)
	case *Instance:
		if m, ok := userMethod(o, "__setitem__"); ok {
			_, err := vm.Call(vm.bindTo(m, o, o.Class), []Value{idx, v}, nil)
			return err
		}
	}
	return vm.typeError("'%s' object does not support item assignment", TypeName(obj))
}

func (vm *VM) setListSlice(l *List, sl *Slice, v Value) error {
	items, err := vm.toSlice(v)
	if err != nil {
		if !vm.isIterable(v) {
			return vm.typeError("can only assign an iterable")
		}
		return err
	}
	start, stop, step, err := vm.sliceIndices(sl, int64(len(l.Items)))
	if err != nil {
		return err
	}
	if step == 1 {
		if stop < start {
			stop = start
		}
		out := make([]Value, 0, int64(len(l.Items))-(stop-start)+int64(len(items)))
		out = append(out, l.Items[:start]...)
		out = append(out, items...)
		out = append(out, l.Items[stop:]...)
		l.Items = out
		return nil
	}
	n := sliceLen(start, stop, step)
	if int64(len(items)) != n {
		return vm.valueError("attempt to assign sequence of size %d to extended slice of size %d", len(items), n)
	}
	for i, j := int64(0), start; i < n; i, j = i+1, j+step {
		l.Items[j] = items[i]
	}
	return nil
}

func (vm *VM) delItem(obj, idx Value) error {
	switch o := obj.(type) {
	case *List:
		if sl, ok := idx.(*Slice); ok {
			start, stop, step, err := vm.sliceIndices(sl, int64(len(o.Items)))
			if err != nil {
				return err
			}
			n := sliceLen(start, stop, step)
			drop := make(map[int64]bool, n)
			for i, j := int64(0), start; i < n; i, j = i+1, j+step {
				drop[j] = true
			}
			kept := o.Items[:0:0]
			for i, it := range o.Items {
				if !drop[int64(i)] {
					kept = append(kept, it)
				}
			}
			o.Items = kept
			return nil
		}
		i, err := vm.seqIndex(idx, len(o.Items), "list")
		if err != nil {
			if exc, ok := err.(*Exception); ok && exc.Is(IndexErrorClass) {
				return vm.raise(IndexErrorClass, "list assignment index out of range")
			}
			return err
		}
		o.Items = append(o.Items[:i], o.Items[i+1:]...)
		return nil
	case *Dict:
		_, ok, err := o.Delete(vm, idx)
		if err != nil {
			return err
		}
		if !ok {
			return vm.newException(KeyErrorClass, idx)
		}
		return nil
	case *Instance:
		if m, ok := userMethod(o, "__delitem__"); ok {
			_, err := vm.Call(vm.bindTo(m, o, o.Class), []Value{idx}, nil)
			return err
		}
	}
	return vm.typeError("'%s' object doesn't support item deletion", TypeName(obj))
}

// length implements len().
func (vm *VM) length(v Value) (int, error) {
	switch o := v.(type) {
	case Str:
		return strLen(string(o)), nil
	case *List:
		return len(o.Items), nil
	case *Tuple:
		return len(o.Items), nil
	case *Dict:
		return o.Len(), nil
	case *Set:
		return o.Len(), nil
	case *Range:
		return int(o.Len()), nil
	case *DictView:
		return o.d.Len(), nil
	case *Instance:
		if m, ok := userMethod(o, "__len__"); ok {
			r, err := vm.Call(vm.bindTo(m, o, o.Class), nil, nil)
			if err != nil {
				return 0, err
			}
			n, ok := asInt(r)
			if !ok {
				return 0, vm.typeError("'%s' object cannot be interpreted as an integer", TypeName(r))
			}
			if n < 0 {
				return 0, vm.valueError("__len__() should return >= 0")
			}
			return int(n), nil
		}
	}
	return 0, vm.typeError("object of type '%s' has no len()", TypeName(v))
}
