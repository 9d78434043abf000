package vm

// selfArg unpacks the receiver of a builtin method. Calls through the class,
// such as str.upper(5), land here with a receiver of the wrong type.
func selfArg[T Value](vm *VM, cls *Class, name string, args []Value) (T, []Value, error) {
	var zero T
	if len(args) == 0 {
		return zero, nil, vm.typeError("unbound method %s.%s() needs an argument", cls.Name, name)
	}
	self, ok := args[0].(T)
	if !ok {
		return zero, nil, vm.typeError("descriptor '%s' for '%s' objects doesn't apply to a '%s' object", name, cls.Name, TypeName(args[0]))
	}
	return self, args[1:], nil
}

// bounds resolves the optional start and end arguments of the searching
// methods against a sequence of length n. start may exceed end, in which
// case the window is empty.
func (vm *VM) bounds(args []Value, n int) (start, end int, err error) {
	start, end = 0, n
	resolve := func(v Value) (int, error) {
		i, err := vm.intArg(v)
		if err != nil {
			return 0, vm.typeError("slice indices must be integers or None or have an __index__ method")
		}
		if i < 0 {
			i += int64(n)
			if i < 0 {
				i = 0
			}
		}
		if i > int64(n) {
			i = int64(n) + 1
		}
		return int(i), nil
	}
	if len(args) > 0 && args[0] != None {
		if start, err = resolve(args[0]); err != nil {
			return 0, 0, err
		}
	}
	if len(args) > 1 && args[1] != None {
		if end, err = resolve(args[1]); err != nil {
			return 0, 0, err
		}
		end = min(end, n)
	}
	return start, end, nil
}

// optArg returns the i-th positional argument or the named keyword, or def.
func optArg(args []Value, i int, kw map[string]Value, name string, def Value) Value {
	if i < len(args) {
		return args[i]
	}
	if v, ok := kw[name]; ok {
		return v
	}
	return def
}

// checkGrowth fails with MemoryError when a sequence would exceed the
// configured ceiling.
func (vm *VM) checkGrowth(n int) error {
	if n > vm.opts.MaxSequence {
		return vm.newException(MemoryErrorClass)
	}
	return nil
}
