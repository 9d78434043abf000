package vm

func init() {
	def := func(name string, lo, hi int, fn func(vm *VM, d *Dict, args []Value) (Value, error)) {
		DictClass.defMethod(name, func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			self, rest, err := selfArg[*Dict](vm, DictClass, name, args)
			if err != nil {
				return nil, err
			}
			if err := vm.noKwargs("dict."+name, kwargs); err != nil {
				return nil, err
			}
			if err := vm.argc(name, rest, lo, hi); err != nil {
				return nil, err
			}
			return fn(vm, self, rest)
		})
	}
	for name, kind := range map[string]viewKind{"keys": viewKeys, "values": viewValues, "items": viewItems} {
		def(name, 0, 0, func(_ *VM, d *Dict, _ []Value) (Value, error) {
			return &DictView{d: d, kind: kind}, nil
		})
	}
	def("get", 1, 2, func(vm *VM, d *Dict, args []Value) (Value, error) {
		v, ok, err := d.Get(vm, args[0])
		if err != nil || ok {
			return v, err
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return None, nil
	})
	def("pop", 1, 2, func(vm *VM, d *Dict, args []Value) (Value, error) {
		v, ok, err := d.Delete(vm, args[0])
		if err != nil || ok {
			return v, err
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, vm.newException(KeyErrorClass, args[0])
	})
	def("popitem", 0, 0, func(vm *VM, d *Dict, _ []Value) (Value, error) {
		keys := d.Keys()
		if len(keys) == 0 {
			return nil, vm.raise(KeyErrorClass, "popitem(): dictionary is empty")
		}
		k := keys[len(keys)-1]
		v, _, err := d.Delete(vm, k)
		if err != nil {
			return nil, err
		}
		return NewTuple(k, v), nil
	})
	def("setdefault", 1, 2, func(vm *VM, d *Dict, args []Value) (Value, error) {
		v, ok, err := d.Get(vm, args[0])
		if err != nil || ok {
			return v, err
		}
		v = None
		if len(args) == 2 {
			v = args[1]
		}
		return v, d.Set(vm, args[0], v)
	})
	def("copy", 0, 0, func(_ *VM, d *Dict, _ []Value) (Value, error) {
		return d.Copy(), nil
	})
	def("clear", 0, 0, func(_ *VM, d *Dict, _ []Value) (Value, error) {
		d.Clear()
		return None, nil
	})
	DictClass.defMethod("update", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		d, rest, err := selfArg[*Dict](vm, DictClass, "update", args)
		if err != nil {
			return nil, err
		}
		if err := vm.argc("update", rest, 0, 1); err != nil {
			return nil, err
		}
		if len(rest) == 1 {
			if err := vm.dictUpdate(d, rest[0], ""); err != nil {
				return nil, err
			}
		}
		for _, kw := range kwargs {
			d.SetStr(kw.Name, kw.Value)
		}
		return None, nil
	})
	DictClass.Dict.Set("fromkeys", &ClassMethod{Func: builtin("fromkeys", func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.noKwargs("dict.fromkeys", kwargs); err != nil {
			return nil, err
		}
		if err := vm.argc("fromkeys", args, 2, 3); err != nil {
			return nil, err
		}
		keys, err := vm.toSlice(args[1])
		if err != nil {
			return nil, err
		}
		v := Value(None)
		if len(args) == 3 {
			v = args[2]
		}
		d := NewDict()
		for _, k := range keys {
			if err := d.Set(vm, k, v); err != nil {
				return nil, err
			}
		}
		return d, nil
	})})
}

// dictUpdate merges m into d. m may be a dict, an object with keys() and
// __getitem__, or, when notMapping is empty, an iterable of pairs. A
// non-empty notMapping is the TypeError format used for anything that is
// not a mapping.
func (vm *VM) dictUpdate(d *Dict, m Value, notMapping string) error {
	switch x := m.(type) {
	case *Dict:
		if x == d {
			return nil
		}
		var err error
		x.Items(func(k, v Value) bool {
			err = d.Set(vm, k, v)
			return err == nil
		})
		return err
	case *Instance:
		if keysFn, ok := userMethod(x, "keys"); ok {
			ks, err := vm.Call(vm.bindTo(keysFn, x, x.Class), nil, nil)
			if err != nil {
				return err
			}
			keys, err := vm.toSlice(ks)
			if err != nil {
				return err
			}
			for _, k := range keys {
				v, err := vm.getItem(x, k)
				if err != nil {
					return err
				}
				if err := d.Set(vm, k, v); err != nil {
					return err
				}
			}
			return nil
		}
	}
	if notMapping != "" {
		return vm.typeError(notMapping, TypeName(m))
	}
	if !vm.isIterable(m) {
		return vm.typeError("'%s' object is not iterable", TypeName(m))
	}
	items, err := vm.toSlice(m)
	if err != nil {
		return err
	}
	for i, it := range items {
		if !vm.isIterable(it) {
			return vm.typeError("cannot convert dictionary update sequence element #%d to a sequence", i)
		}
		pair, err := vm.toSlice(it)
		if err != nil {
			return err
		}
		if len(pair) != 2 {
			return vm.valueError("dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}
		if err := d.Set(vm, pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}
