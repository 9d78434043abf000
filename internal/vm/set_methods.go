package vm

import "pytrace/internal/token"

type setMethod func(vm *VM, s *Set, args []Value) (Value, error)

func init() {
	def := func(classes []*Class, name string, lo, hi int, fn setMethod) {
		for _, cls := range classes {
			cls.defMethod(name, func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
				self, rest, err := selfArg[*Set](vm, cls, name, args)
				if err != nil {
					return nil, err
				}
				if self.Type() != cls {
					return nil, vm.typeError("descriptor '%s' for '%s' objects doesn't apply to a '%s' object", name, cls.Name, TypeName(self))
				}
				if err := vm.noKwargs(cls.Name+"."+name, kwargs); err != nil {
					return nil, err
				}
				if err := vm.argc(name, rest, lo, hi); err != nil {
					return nil, err
				}
				return fn(vm, self, rest)
			})
		}
	}
	both := []*Class{SetClass, FrozenSetClass}
	mutable := []*Class{SetClass}

	def(mutable, "add", 1, 1, func(vm *VM, s *Set, args []Value) (Value, error) {
		return None, s.Add(vm, args[0])
	})
	def(mutable, "remove", 1, 1, func(vm *VM, s *Set, args []Value) (Value, error) {
		ok, err := s.Remove(vm, args[0])
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, vm.newException(KeyErrorClass, args[0])
		}
		return None, nil
	})
	def(mutable, "discard", 1, 1, func(vm *VM, s *Set, args []Value) (Value, error) {
		_, err := s.Remove(vm, args[0])
		return None, err
	})
	def(mutable, "pop", 0, 0, func(vm *VM, s *Set, _ []Value) (Value, error) {
		elems := s.Elems()
		if len(elems) == 0 {
			return nil, vm.raise(KeyErrorClass, "pop from an empty set")
		}
		_, err := s.Remove(vm, elems[0])
		return elems[0], err
	})
	def(mutable, "clear", 0, 0, func(_ *VM, s *Set, _ []Value) (Value, error) {
		s.d.Clear()
		return None, nil
	})
	def(both, "copy", 0, 0, func(_ *VM, s *Set, _ []Value) (Value, error) {
		return s.Copy(), nil
	})
	for name, op := range map[string]token.Kind{
		"union":                token.Pipe,
		"intersection":         token.Amp,
		"difference":           token.Minus,
		"symmetric_difference": token.Caret,
	} {
		lo, hi := 0, -1
		if op == token.Caret {
			lo, hi = 1, 1
		}
		def(both, name, lo, hi, func(vm *VM, s *Set, args []Value) (Value, error) {
			return vm.setFold(op, s, args)
		})
		if op == token.Pipe {
			name = "update"
		} else {
			name += "_update"
		}
		def(mutable, name, lo, hi, func(vm *VM, s *Set, args []Value) (Value, error) {
			res, err := vm.setFold(op, s, args)
			if err != nil {
				return nil, err
			}
			s.d = res.(*Set).d
			return None, nil
		})
	}
	def(both, "issubset", 1, 1, func(vm *VM, s *Set, args []Value) (Value, error) {
		other, err := vm.asSet(args[0])
		if err != nil {
			return nil, err
		}
		ok, err := vm.subset(s, other)
		return Bool(ok), err
	})
	def(both, "issuperset", 1, 1, func(vm *VM, s *Set, args []Value) (Value, error) {
		other, err := vm.asSet(args[0])
		if err != nil {
			return nil, err
		}
		ok, err := vm.subset(other, s)
		return Bool(ok), err
	})
	def(both, "isdisjoint", 1, 1, func(vm *VM, s *Set, args []Value) (Value, error) {
		other, err := vm.asSet(args[0])
		if err != nil {
			return nil, err
		}
		res, _, err := vm.setOp(token.Amp, s, other)
		if err != nil {
			return nil, err
		}
		return Bool(res.(*Set).Len() == 0), nil
	})
}

// asSet accepts any iterable as the argument of a set method.
func (vm *VM) asSet(v Value) (*Set, error) {
	if s, ok := v.(*Set); ok {
		return s, nil
	}
	if !vm.isIterable(v) {
		return nil, vm.typeError("'%s' object is not iterable", TypeName(v))
	}
	items, err := vm.toSlice(v)
	if err != nil {
		return nil, err
	}
	s := NewSet()
	for _, it := range items {
		if err := s.Add(vm, it); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// setFold applies op between s and each argument in turn, always returning
// a fresh set of s's kind.
func (vm *VM) setFold(op token.Kind, s *Set, args []Value) (Value, error) {
	acc := s.Copy()
	for _, a := range args {
		other, err := vm.asSet(a)
		if err != nil {
			return nil, err
		}
		res, _, err := vm.setOp(op, acc, other)
		if err != nil {
			return nil, err
		}
		acc = res.(*Set)
	}
	return acc, nil
}
