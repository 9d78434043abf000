package vm

// bindTo applies descriptor binding to a class attribute fetched for self.
func (vm *VM) bindTo(attr Value, self Value, cls *Class) Value {
	switch a := attr.(type) {
	case *Function, *Builtin:
		return &BoundMethod{Self: self, Func: a}
	case *StaticMethod:
		return a.Func
	case *ClassMethod:
		return &BoundMethod{Self: cls, Func: a.Func}
	}
	return attr
}

func (vm *VM) getAttr(obj Value, name string) (Value, error) {
	switch o := obj.(type) {
	case *Instance:
		return vm.instanceAttr(o, name)
	case *Class:
		return vm.classAttr(o, name)
	case *Module:
		if v, ok := o.Dict.Get(name); ok {
			return v, nil
		}
		return nil, vm.raise(AttributeErrorClass, "module '%s' has no attribute '%s'", o.Name, name)
	case *Super:
		return vm.superAttr(o, name)
	case *Function:
		switch name {
		case "__name__":
			return Str(o.Name), nil
		case "__qualname__":
			return Str(o.QualName), nil
		case "__module__":
			return Str(o.module), nil
		}
	case *Builtin:
		if name == "__name__" {
			return Str(o.Name), nil
		}
	case *BoundMethod:
		switch name {
		case "__self__":
			return o.Self, nil
		case "__func__":
			return o.Func, nil
		}
		return vm.getAttr(o.Func, name)
	case *Property:
		if m, ok := vm.propertyAttr(o, name); ok {
			return m, nil
		}
	case *Slice:
		switch name {
		case "start":
			return o.Start, nil
		case "stop":
			return o.Stop, nil
		case "step":
			return o.Step, nil
		}
	case *Range:
		switch name {
		case "start":
			return Int(o.Start), nil
		case "stop":
			return Int(o.Stop), nil
		case "step":
			return Int(o.Step), nil
		}
	}
	cls := obj.Type()
	if name == "__class__" {
		return cls, nil
	}
	if v, _, ok := cls.Lookup(name); ok {
		return vm.bindTo(v, obj, cls), nil
	}
	return nil, vm.raise(AttributeErrorClass, "'%s' object has no attribute '%s'", cls.Name, name)
}

func (vm *VM) instanceAttr(o *Instance, name string) (Value, error) {
	cv, _, inClass := o.Class.Lookup(name)
	if p, ok := cv.(*Property); inClass && ok {
		if p.Get == nil {
			return nil, vm.raise(AttributeErrorClass, "property '%s' of '%s' object has no getter", name, o.Class.Name)
		}
		return vm.Call(p.Get, []Value{o}, nil)
	}
	if v, ok := o.Dict.Get(name); ok {
		return v, nil
	}
	if inClass {
		return vm.bindTo(cv, o, o.Class), nil
	}
	switch name {
	case "__class__":
		return o.Class, nil
	case "__dict__":
		d := NewDict()
		o.Dict.Each(func(k string, v Value) { d.SetStr(k, v) })
		return d, nil
	}
	if ga, ok := userMethod(o, "__getattr__"); ok {
		return vm.Call(vm.bindTo(ga, o, o.Class), []Value{Str(name)}, nil)
	}
	return nil, vm.raise(AttributeErrorClass, "'%s' object has no attribute '%s'", o.Class.Name, name)
}

func (vm *VM) classAttr(c *Class, name string) (Value, error) {
	if v, _, ok := c.Lookup(name); ok {
		switch a := v.(type) {
		case *StaticMethod:
			return a.Func, nil
		case *ClassMethod:
			return &BoundMethod{Self: c, Func: a.Func}, nil
		}
		return v, nil
	}
	switch name {
	case "__name__":
		return Str(c.Name), nil
	case "__qualname__":
		return Str(c.Name), nil
	case "__module__":
		return Str(c.Module), nil
	case "__class__":
		return TypeClass, nil
	case "__bases__":
		items := make([]Value, len(c.Bases))
		for i, b := range c.Bases {
			items[i] = b
		}
		return NewTuple(items...), nil
	case "__mro__":
		items := make([]Value, len(c.MRO))
		for i, b := range c.MRO {
			items[i] = b
		}
		return NewTuple(items...), nil
	case "__doc__":
		return None, nil
	}
	return nil, vm.raise(AttributeErrorClass, "type object '%s' has no attribute '%s'", c.Name, name)
}

func (vm *VM) superAttr(s *Super, name string) (Value, error) {
	var mro []*Class
	cls, isClass := s.Self.(*Class)
	if isClass {
		mro = cls.MRO
	} else {
		cls = s.Self.Type()
		mro = cls.MRO
	}
	i := 0
	for i < len(mro) && mro[i] != s.After {
		i++
	}
	for _, k := range mro[min(i+1, len(mro)):] {
		v, ok := k.Dict.Get(name)
		if !ok {
			continue
		}
		if isClass {
			switch a := v.(type) {
			case *ClassMethod:
				return &BoundMethod{Self: cls, Func: a.Func}, nil
			case *StaticMethod:
				return a.Func, nil
			}
			return v, nil
		}
		if p, ok := v.(*Property); ok && p.Get != nil {
			return vm.Call(p.Get, []Value{s.Self}, nil)
		}
		return vm.bindTo(v, s.Self, cls), nil
	}
	return nil, vm.raise(AttributeErrorClass, "'super' object has no attribute '%s'", name)
}

// propertyAttr implements property.setter, getter and deleter.
func (vm *VM) propertyAttr(p *Property, name string) (Value, bool) {
	var set func(np *Property, fn Value)
	switch name {
	case "setter":
		set = func(np *Property, fn Value) { np.Set = fn }
	case "getter":
		set = func(np *Property, fn Value) { np.Get = fn }
	case "deleter":
		set = func(np *Property, fn Value) { np.Del = fn }
	case "fget":
		return orNone(p.Get), true
	case "fset":
		return orNone(p.Set), true
	default:
		return nil, false
	}
	return &Builtin{Name: name, Fn: func(vm *VM, args []Value, _ []KwArg) (Value, error) {
		if len(args) != 1 {
			return nil, vm.typeError("%s() takes exactly one argument (%d given)", name, len(args))
		}
		np := &Property{Get: p.Get, Set: p.Set, Del: p.Del}
		set(np, args[0])
		return np, nil
	}}, true
}

func orNone(v Value) Value {
	if v == nil {
		return None
	}
	return v
}

func (vm *VM) setAttr(obj Value, name string, v Value) error {
	switch o := obj.(type) {
	case *Instance:
		if cv, _, ok := o.Class.Lookup(name); ok {
			if p, ok := cv.(*Property); ok {
				if p.Set == nil {
					return vm.raise(AttributeErrorClass, "property '%s' of '%s' object has no setter", name, o.Class.Name)
				}
				_, err := vm.Call(p.Set, []Value{o, v}, nil)
				return err
			}
		}
		o.Dict.Set(name, v)
		return nil
	case *Class:
		if o.builtin {
			return vm.typeError("cannot set '%s' attribute of immutable type '%s'", name, o.Name)
		}
		o.Dict.Set(name, v)
		return nil
	case *Module:
		o.Dict.Set(name, v)
		return nil
	}
	return vm.raise(AttributeErrorClass, "'%s' object has no attribute '%s'", TypeName(obj), name)
}

func (vm *VM) delAttr(obj Value, name string) error {
	switch o := obj.(type) {
	case *Instance:
		if cv, _, ok := o.Class.Lookup(name); ok {
			if p, ok := cv.(*Property); ok {
				if p.Del == nil {
					return vm.raise(AttributeErrorClass, "property '%s' of '%s' object has no deleter", name, o.Class.Name)
				}
				_, err := vm.Call(p.Del, []Value{o}, nil)
				return err
			}
		}
		if o.Dict.Delete(name) {
			return nil
		}
		return vm.raise(AttributeErrorClass, "'%s' object has no attribute '%s'", o.Class.Name, name)
	case *Class:
		if !o.builtin && o.Dict.Delete(name) {
			return nil
		}
		return vm.raise(AttributeErrorClass, "type object '%s' has no attribute '%s'", o.Name, name)
	case *Module:
		if o.Dict.Delete(name) {
			return nil
		}
		return vm.raise(AttributeErrorClass, "module '%s' has no attribute '%s'", o.Name, name)
	}
	return vm.raise(AttributeErrorClass, "'%s' object has no attribute '%s'", TypeName(obj), name)
}

// hasAttr reports whether getattr would succeed; only AttributeError is
// swallowed.
func (vm *VM) hasAttr(obj Value, name string) (bool, error) {
	_, err := vm.getAttr(obj, name)
	if err == nil {
		return true, nil
	}
	if exc, ok := err.(*Exception); ok && exc.Is(AttributeErrorClass) {
		return false, nil
	}
	return false, err
}
