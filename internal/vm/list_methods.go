package vm

import (
	"slices"
)

func init() {
	def := func(name string, fn func(vm *VM, l *List, args []Value, kwargs []KwArg) (Value, error)) {
		ListClass.defMethod(name, func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			self, rest, err := selfArg[*List](vm, ListClass, name, args)
			if err != nil {
				return nil, err
			}
			if name != "sort" {
				if err := vm.noKwargs("list."+name, kwargs); err != nil {
					return nil, err
				}
			}
			return fn(vm, self, rest, kwargs)
		})
	}
	def("append", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("list.append", args, 1, 1); err != nil {
			return nil, err
		}
		if err := vm.checkGrowth(len(l.Items) + 1); err != nil {
			return nil, err
		}
		l.Items = append(l.Items, args[0])
		return None, nil
	})
	def("extend", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("list.extend", args, 1, 1); err != nil {
			return nil, err
		}
		items, err := vm.toSlice(args[0])
		if err != nil {
			return nil, err
		}
		if err := vm.checkGrowth(len(l.Items) + len(items)); err != nil {
			return nil, err
		}
		l.Items = append(l.Items, items...)
		return None, nil
	})
	def("insert", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("insert", args, 2, 2); err != nil {
			return nil, err
		}
		i, err := vm.intArg(args[0])
		if err != nil {
			return nil, err
		}
		if err := vm.checkGrowth(len(l.Items) + 1); err != nil {
			return nil, err
		}
		n := int64(len(l.Items))
		if i < 0 {
			i = max(i+n, 0)
		}
		i = min(i, n)
		l.Items = slices.Insert(l.Items, int(i), args[1])
		return None, nil
	})
	def("pop", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("pop", args, 0, 1); err != nil {
			return nil, err
		}
		if len(l.Items) == 0 {
			return nil, vm.raise(IndexErrorClass, "pop from empty list")
		}
		i := int64(len(l.Items) - 1)
		if len(args) == 1 {
			var err error
			if i, err = vm.intArg(args[0]); err != nil {
				return nil, err
			}
			if i < 0 {
				i += int64(len(l.Items))
			}
			if i < 0 || i >= int64(len(l.Items)) {
				return nil, vm.raise(IndexErrorClass, "pop index out of range")
			}
		}
		v := l.Items[i]
		l.Items = slices.Delete(l.Items, int(i), int(i)+1)
		return v, nil
	})
	def("remove", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("list.remove", args, 1, 1); err != nil {
			return nil, err
		}
		i, err := vm.indexOf(l.Items, args[0], 0, len(l.Items))
		if err != nil {
			return nil, err
		}
		if i < 0 {
			return nil, vm.valueError("list.remove(x): x not in list")
		}
		l.Items = slices.Delete(l.Items, i, i+1)
		return None, nil
	})
	def("index", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		return vm.seqIndexOf("list", l.Items, args)
	})
	def("count", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		return vm.seqCount("list", l.Items, args)
	})
	def("reverse", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("list.reverse", args, 0, 0); err != nil {
			return nil, err
		}
		slices.Reverse(l.Items)
		return None, nil
	})
	def("sort", func(vm *VM, l *List, args []Value, kwargs []KwArg) (Value, error) {
		kw, err := vm.kwargsOnly("sort", kwargs, "key", "reverse")
		if err != nil {
			return nil, err
		}
		if len(args) > 0 {
			return nil, vm.typeError("sort() takes no positional arguments")
		}
		reverse, err := vm.truthy(optArg(nil, 0, kw, "reverse", Bool(false)))
		if err != nil {
			return nil, err
		}
		// The list reads as empty while sorting, as CPython does.
		items := l.Items
		l.Items = nil
		err = vm.sortValues(items, optArg(nil, 0, kw, "key", None), reverse)
		if l.Items != nil && err == nil {
			err = vm.valueError("list modified during sort")
		}
		l.Items = items
		return None, err
	})
	def("copy", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("list.copy", args, 0, 0); err != nil {
			return nil, err
		}
		return NewList(slices.Clone(l.Items)), nil
	})
	def("clear", func(vm *VM, l *List, args []Value, _ []KwArg) (Value, error) {
		if err := vm.argc("list.clear", args, 0, 0); err != nil {
			return nil, err
		}
		l.Items = []Value{}
		return None, nil
	})

	TupleClass.defMethod("index", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		self, rest, err := selfArg[*Tuple](vm, TupleClass, "index", args)
		if err != nil {
			return nil, err
		}
		return vm.seqIndexOf("tuple", self.Items, rest)
	})
	TupleClass.defMethod("count", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		self, rest, err := selfArg[*Tuple](vm, TupleClass, "count", args)
		if err != nil {
			return nil, err
		}
		return vm.seqCount("tuple", self.Items, rest)
	})
}

// indexOf returns the first position in items[start:end] equal to x, or -1.
func (vm *VM) indexOf(items []Value, x Value, start, end int) (int, error) {
	for i := start; i < end && i < len(items); i++ {
		eq, err := vm.equal(items[i], x)
		if err != nil {
			return 0, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

func (vm *VM) seqIndexOf(kind string, items []Value, args []Value) (Value, error) {
	if err := vm.argc("index", args, 1, 3); err != nil {
		return nil, err
	}
	start, end, err := vm.bounds(args[1:], len(items))
	if err != nil {
		return nil, err
	}
	i, err := vm.indexOf(items, args[0], start, end)
	if err != nil {
		return nil, err
	}
	if i < 0 {
		if kind == "tuple" {
			return nil, vm.valueError("tuple.index(x): x not in tuple")
		}
		r, err := vm.Repr(args[0])
		if err != nil {
			return nil, err
		}
		return nil, vm.valueError("%s is not in list", r)
	}
	return Int(i), nil
}

func (vm *VM) seqCount(kind string, items []Value, args []Value) (Value, error) {
	if err := vm.argc(kind+".count", args, 1, 1); err != nil {
		return nil, err
	}
	n := 0
	for _, it := range items {
		eq, err := vm.equal(it, args[0])
		if err != nil {
			return nil, err
		}
		if eq {
			n++
		}
	}
	return Int(n), nil
}
