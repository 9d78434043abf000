package vm

import (
	"strings"

	"pytrace/internal/ast"
	"pytrace/internal/token"
)

func (vm *VM) eval(fr *Frame, e ast.Expr) (Value, error) {
	switch e := e.(type) {
	case *ast.Name:
		return vm.lookup(fr.scope, e.ID)
	case *ast.IntLit:
		return Int(e.Value), nil
	case *ast.FloatLit:
		return Float(e.Value), nil
	case *ast.StrLit:
		return Str(e.Value), nil
	case *ast.BoolLit:
		return Bool(e.Value), nil
	case *ast.NoneLit:
		return None, nil
	case *ast.EllipsisLit:
		return Ellipsis, nil
	case *ast.FString:
		s, err := vm.evalFString(fr, e)
		return Str(s), err
	case *ast.List:
		items, err := vm.evalStarred(fr, e.Elts)
		if err != nil {
			return nil, err
		}
		return NewList(items), nil
	case *ast.Tuple:
		items, err := vm.evalStarred(fr, e.Elts)
		if err != nil {
			return nil, err
		}
		return NewTuple(items...), nil
	case *ast.Set:
		items, err := vm.evalStarred(fr, e.Elts)
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
	case *ast.Dict:
		return vm.evalDict(fr, e)
	case *ast.BinOp:
		l, err := vm.eval(fr, e.Left)
		if err != nil {
			return nil, err
		}
		r, err := vm.eval(fr, e.Right)
		if err != nil {
			return nil, err
		}
		return vm.binaryOp(e.Op, l, r)
	case *ast.UnaryOp:
		v, err := vm.eval(fr, e.Operand)
		if err != nil {
			return nil, err
		}
		return vm.unaryOp(e.Op, v)
	case *ast.BoolOp:
		var v Value
		for _, operand := range e.Values {
			var err error
			if v, err = vm.eval(fr, operand); err != nil {
				return nil, err
			}
			t, err := vm.truthy(v)
			if err != nil {
				return nil, err
			}
			if (e.Op == token.KwAnd) != t {
				return v, nil
			}
		}
		return v, nil
	case *ast.Compare:
		return vm.evalCompare(fr, e)
	case *ast.IfExp:
		t, err := vm.evalTruth(fr, e.Test)
		if err != nil {
			return nil, err
		}
		if t {
			return vm.eval(fr, e.Body)
		}
		return vm.eval(fr, e.OrElse)
	case *ast.Lambda:
		fn, err := vm.makeFunction(fr, "<lambda>", e.Params, e)
		if err != nil {
			return nil, err
		}
		return fn, nil
	case *ast.Call:
		return vm.evalCall(fr, e)
	case *ast.Attribute:
		obj, err := vm.eval(fr, e.Value)
		if err != nil {
			return nil, err
		}
		return vm.getAttr(obj, e.Attr)
	case *ast.Subscript:
		obj, err := vm.eval(fr, e.Value)
		if err != nil {
			return nil, err
		}
		idx, err := vm.evalIndex(fr, e.Index)
		if err != nil {
			return nil, err
		}
		return vm.getItem(obj, idx)
	case *ast.Slice:
		return vm.evalIndex(fr, e)
	case *ast.Starred:
		return nil, vm.raise(SyntaxErrorClass, "can't use starred expression here")
	case *ast.NamedExpr:
		v, err := vm.eval(fr, e.Value)
		if err != nil {
			return nil, err
		}
		return v, vm.storeWalrus(fr.scope, e.Target.ID, v)
	case *ast.Comp:
		return vm.evalComp(fr, e)
	}
	return nil, vm.raise(SyntaxErrorClass, "unsupported expression")
}

func (vm *VM) evalTruth(fr *Frame, e ast.Expr) (bool, error) {
	v, err := vm.eval(fr, e)
	if err != nil {
		return false, err
	}
	return vm.truthy(v)
}

func (vm *VM) evalList(fr *Frame, exprs []ast.Expr) ([]Value, error) {
	out := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		v, err := vm.eval(fr, e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// evalStarred evaluates display or argument elements, expanding *iterables.
func (vm *VM) evalStarred(fr *Frame, exprs []ast.Expr) ([]Value, error) {
	out := make([]Value, 0, len(exprs))
	for _, e := range exprs {
		if st, ok := e.(*ast.Starred); ok {
			v, err := vm.eval(fr, st.Value)
			if err != nil {
				return nil, err
			}
			items, err := vm.toSlice(v)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
			continue
		}
		v, err := vm.eval(fr, e)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (vm *VM) evalDict(fr *Frame, e *ast.Dict) (Value, error) {
	d := NewDict()
	for i, ke := range e.Keys {
		if ke == nil {
			m, err := vm.eval(fr, e.Values[i])
			if err != nil {
				return nil, err
			}
			if err := vm.dictUpdate(d, m, "'%s' object is not a mapping"); err != nil {
				return nil, err
			}
			continue
		}
		k, err := vm.eval(fr, ke)
		if err != nil {
			return nil, err
		}
		v, err := vm.eval(fr, e.Values[i])
		if err != nil {
			return nil, err
		}
		if err := d.Set(vm, k, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// evalIndex evaluates a subscript index; slices become *Slice values.
func (vm *VM) evalIndex(fr *Frame, e ast.Expr) (Value, error) {
	sl, ok := e.(*ast.Slice)
	if !ok {
		return vm.eval(fr, e)
	}
	parts := [3]Value{None, None, None}
	for i, pe := range []ast.Expr{sl.Lower, sl.Upper, sl.Step} {
		if pe == nil {
			continue
		}
		v, err := vm.eval(fr, pe)
		if err != nil {
			return nil, err
		}
		parts[i] = v
	}
	return &Slice{Start: parts[0], Stop: parts[1], Step: parts[2]}, nil
}

func (vm *VM) evalCompare(fr *Frame, e *ast.Compare) (Value, error) {
	left, err := vm.eval(fr, e.Left)
	if err != nil {
		return nil, err
	}
	for i, op := range e.Ops {
		right, err := vm.eval(fr, e.Comparators[i])
		if err != nil {
			return nil, err
		}
		ok, err := vm.compare(op, left, right)
		if err != nil {
			return nil, err
		}
		if !ok {
			return Bool(false), nil
		}
		left = right
	}
	return Bool(true), nil
}

func (vm *VM) evalCall(fr *Frame, e *ast.Call) (Value, error) {
	fn, err := vm.eval(fr, e.Func)
	if err != nil {
		return nil, err
	}
	args, err := vm.evalStarred(fr, e.Args)
	if err != nil {
		return nil, err
	}
	var kwargs []KwArg
	for _, kw := range e.Keywords {
		v, err := vm.eval(fr, kw.Value)
		if err != nil {
			return nil, err
		}
		if kw.Name != "" {
			kwargs = append(kwargs, KwArg{Name: kw.Name, Value: v})
			continue
		}
		d, ok := v.(*Dict)
		if !ok {
			return nil, vm.typeError("argument after ** must be a mapping, not %s", TypeName(v))
		}
		var kerr error
		d.Items(func(k, val Value) bool {
			name, ok := k.(Str)
			if !ok {
				kerr = vm.typeError("keywords must be strings")
				return false
			}
			kwargs = append(kwargs, KwArg{Name: string(name), Value: val})
			return true
		})
		if kerr != nil {
			return nil, kerr
		}
	}
	return vm.Call(fn, args, kwargs)
}

func (vm *VM) evalFString(fr *Frame, e *ast.FString) (string, error) {
	var sb strings.Builder
	for _, part := range e.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Lit)
			continue
		}
		sb.WriteString(part.Debug)
		v, err := vm.eval(fr, part.Expr)
		if err != nil {
			return "", err
		}
		switch part.Conversion {
		case 's':
			s, err := vm.Str(v)
			if err != nil {
				return "", err
			}
			v = Str(s)
		case 'r':
			s, err := vm.Repr(v)
			if err != nil {
				return "", err
			}
			v = Str(s)
		case 'a':
			s, err := vm.Repr(v)
			if err != nil {
				return "", err
			}
			v = Str(asciiEscape(s))
		}
		spec := ""
		if part.Spec != nil {
			if spec, err = vm.evalFString(fr, part.Spec); err != nil {
				return "", err
			}
		}
		s, err := vm.format(v, spec)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// compFrame returns a view of fr that resolves names in a fresh
// comprehension scope.
func (vm *VM) compFrame(fr *Frame, c *ast.Comp) *Frame {
	view := *fr
	view.scope = &scope{
		kind:    scopeComp,
		ns:      NewNamespace(),
		info:    vm.scopeInfoFor(c, func() *scopeInfo { return analyzeComp(c) }),
		parent:  fr.scope,
		globals: fr.scope.globals,
	}
	return &view
}

// compCursor walks the nested loops of a comprehension lazily.
type compCursor struct {
	vm    *VM
	fr    *Frame
	c     *ast.Comp
	iters []*Iterator
	first *Iterator
}

func (vm *VM) newCompCursor(fr *Frame, c *ast.Comp) (*compCursor, error) {
	src, err := vm.eval(fr, c.Generators[0].Iter)
	if err != nil {
		return nil, err
	}
	it, err := vm.iterate(src)
	if err != nil {
		return nil, err
	}
	return &compCursor{vm: vm, fr: vm.compFrame(fr, c), c: c, first: it}, nil
}

// advance binds the loop targets to the next combination that passes all
// filters. It reports false when the comprehension is exhausted.
func (cc *compCursor) advance() (bool, error) {
	vm := cc.vm
	if cc.iters == nil {
		if cc.first == nil {
			return false, nil
		}
		cc.iters = []*Iterator{cc.first}
		cc.first = nil
	}
	for len(cc.iters) > 0 {
		if err := vm.tick(); err != nil {
			return false, err
		}
		level := len(cc.iters) - 1
		gen := cc.c.Generators[level]
		v, ok, err := cc.iters[level].Next()
		if err != nil {
			return false, err
		}
		if !ok {
			cc.iters = cc.iters[:level]
			continue
		}
		if err := vm.assign(cc.fr, gen.Target, v); err != nil {
			return false, err
		}
		pass := true
		for _, cond := range gen.Ifs {
			t, err := vm.evalTruth(cc.fr, cond)
			if err != nil {
				return false, err
			}
			if !t {
				pass = false
				break
			}
		}
		if !pass {
			continue
		}
		if level+1 == len(cc.c.Generators) {
			return true, nil
		}
		src, err := vm.eval(cc.fr, cc.c.Generators[level+1].Iter)
		if err != nil {
			return false, err
		}
		it, err := vm.iterate(src)
		if err != nil {
			return false, err
		}
		cc.iters = append(cc.iters, it)
	}
	return false, nil
}

func (vm *VM) evalComp(fr *Frame, c *ast.Comp) (Value, error) {
	cc, err := vm.newCompCursor(fr, c)
	if err != nil {
		return nil, err
	}
	switch c.Kind {
	case ast.GenExp:
		return newIterator(generatorClass, func() (Value, bool, error) {
			ok, err := cc.advance()
			if err != nil || !ok {
				return nil, false, err
			}
			v, err := vm.eval(cc.fr, c.Elt)
			return v, err == nil, err
		}), nil
	case ast.DictComp:
		d := NewDict()
		for {
			ok, err := cc.advance()
			if err != nil {
				return nil, err
			}
			if !ok {
				return d, nil
			}
			k, err := vm.eval(cc.fr, c.Elt)
			if err != nil {
				return nil, err
			}
			v, err := vm.eval(cc.fr, c.Value)
			if err != nil {
				return nil, err
			}
			if err := d.Set(vm, k, v); err != nil {
				return nil, err
			}
		}
	}
	var items []Value
	for {
		ok, err := cc.advance()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, err := vm.eval(cc.fr, c.Elt)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if len(items) > vm.opts.MaxSequence {
			return nil, vm.newException(MemoryErrorClass)
		}
	}
	if c.Kind == ast.SetComp {
		s := NewSet()
		for _, it := range items {
			if err := s.Add(vm, it); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
	return NewList(items), nil
}
