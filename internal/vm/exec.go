package vm

import (
	"pytrace/internal/ast"
)

type ctlKind uint8

const (
	ctlNone ctlKind = iota
	ctlBreak
	ctlContinue
	ctlReturn
)

// execBody runs a module, class or function body, skipping its docstring.
func (vm *VM) execBody(fr *Frame, body []ast.Stmt, doc bool) (ctlKind, error) {
	if doc && len(body) > 0 {
		body = body[1:]
	}
	return vm.execBlock(fr, body)
}

func (vm *VM) execBlock(fr *Frame, body []ast.Stmt) (ctlKind, error) {
	for _, s := range body {
		ctl, err := vm.execStmt(fr, s)
		if err != nil || ctl != ctlNone {
			return ctl, err
		}
	}
	return ctlNone, nil
}

func (vm *VM) execStmt(fr *Frame, s ast.Stmt) (ctlKind, error) {
	if err := vm.tick(); err != nil {
		return ctlNone, err
	}
	switch s.(type) {
	case *ast.Global, *ast.Nonlocal:
		return ctlNone, nil
	}
	if err := vm.lineEvent(fr, s.Position().Line, false); err != nil {
		return ctlNone, err
	}

	switch s := s.(type) {
	case *ast.ExprStmt:
		_, err := vm.eval(fr, s.Value)
		return ctlNone, err
	case *ast.Assign:
		v, err := vm.eval(fr, s.Value)
		if err != nil {
			return ctlNone, err
		}
		for _, t := range s.Targets {
			if err := vm.assign(fr, t, v); err != nil {
				return ctlNone, err
			}
		}
		return ctlNone, nil
	case *ast.AugAssign:
		return ctlNone, vm.execAugAssign(fr, s)
	case *ast.AnnAssign:
		if s.Value == nil {
			return ctlNone, nil
		}
		v, err := vm.eval(fr, s.Value)
		if err != nil {
			return ctlNone, err
		}
		return ctlNone, vm.assign(fr, s.Target, v)
	case *ast.If:
		ok, err := vm.evalTruth(fr, s.Test)
		if err != nil {
			return ctlNone, err
		}
		if ok {
			return vm.execBlock(fr, s.Body)
		}
		return vm.execBlock(fr, s.OrElse)
	case *ast.While:
		return vm.execWhile(fr, s)
	case *ast.For:
		return vm.execFor(fr, s)
	case *ast.Break:
		return ctlBreak, nil
	case *ast.Continue:
		return ctlContinue, nil
	case *ast.Pass:
		return ctlNone, nil
	case *ast.Return:
		fr.retval = None
		if s.Value != nil {
			v, err := vm.eval(fr, s.Value)
			if err != nil {
				return ctlNone, err
			}
			fr.retval = v
		}
		return ctlReturn, nil
	case *ast.FunctionDef:
		return ctlNone, vm.execFunctionDef(fr, s)
	case *ast.ClassDef:
		return ctlNone, vm.execClassDef(fr, s)
	case *ast.Try:
		return vm.execTry(fr, s)
	case *ast.Raise:
		return ctlNone, vm.execRaise(fr, s)
	case *ast.Assert:
		ok, err := vm.evalTruth(fr, s.Test)
		if err != nil || ok {
			return ctlNone, err
		}
		if s.Msg == nil {
			return ctlNone, vm.newException(AssertionErrorClass)
		}
		msg, err := vm.eval(fr, s.Msg)
		if err != nil {
			return ctlNone, err
		}
		return ctlNone, vm.newException(AssertionErrorClass, msg)
	case *ast.Delete:
		for _, t := range s.Targets {
			if err := vm.deleteTarget(fr, t); err != nil {
				return ctlNone, err
			}
		}
		return ctlNone, nil
	case *ast.Import:
		for _, a := range s.Names {
			mod, err := vm.importModule(a.Name)
			if err != nil {
				return ctlNone, err
			}
			if err := vm.store(fr.scope, importBinding(a), mod); err != nil {
				return ctlNone, err
			}
		}
		return ctlNone, nil
	case *ast.ImportFrom:
		return ctlNone, vm.execImportFrom(fr, s)
	}
	return ctlNone, vm.raise(SyntaxErrorClass, "unsupported statement")
}

func (vm *VM) execWhile(fr *Frame, s *ast.While) (ctlKind, error) {
	line := s.Position().Line
	for first := true; ; first = false {
		if !first {
			if err := vm.tick(); err != nil {
				return ctlNone, err
			}
			if err := vm.lineEvent(fr, line, true); err != nil {
				return ctlNone, err
			}
		}
		ok, err := vm.evalTruth(fr, s.Test)
		if err != nil {
			return ctlNone, err
		}
		if !ok {
			return vm.execBlock(fr, s.OrElse)
		}
		ctl, err := vm.execBlock(fr, s.Body)
		if err != nil {
			return ctlNone, err
		}
		switch ctl {
		case ctlBreak:
			return ctlNone, nil
		case ctlReturn:
			return ctl, nil
		}
	}
}

func (vm *VM) execFor(fr *Frame, s *ast.For) (ctlKind, error) {
	src, err := vm.eval(fr, s.Iter)
	if err != nil {
		return ctlNone, err
	}
	it, err := vm.iterate(src)
	if err != nil {
		return ctlNone, err
	}
	line := s.Position().Line
	for {
		v, ok, err := it.Next()
		if err != nil {
			return ctlNone, err
		}
		if !ok {
			return vm.execBlock(fr, s.OrElse)
		}
		if err := vm.assign(fr, s.Target, v); err != nil {
			return ctlNone, err
		}
		ctl, err := vm.execBlock(fr, s.Body)
		if err != nil {
			return ctlNone, err
		}
		switch ctl {
		case ctlBreak:
			return ctlNone, nil
		case ctlReturn:
			return ctl, nil
		}
		if err := vm.tick(); err != nil {
			return ctlNone, err
		}
		if err := vm.lineEvent(fr, line, true); err != nil {
			return ctlNone, err
		}
	}
}

func (vm *VM) execTry(fr *Frame, s *ast.Try) (ctlKind, error) {
	ctl, err := vm.execBlock(fr, s.Body)
	if exc, ok := err.(*Exception); ok {
		ctl, err = vm.handleException(fr, s, exc)
	} else if err == nil && ctl == ctlNone {
		ctl, err = vm.execBlock(fr, s.OrElse)
	}
	if len(s.Finally) == 0 {
		return ctl, err
	}
	if err != nil {
		if _, ok := err.(*Exception); !ok {
			return ctl, err
		}
	}
	retval := fr.retval
	fctl, ferr := vm.execBlock(fr, s.Finally)
	if ferr != nil || fctl != ctlNone {
		return fctl, ferr
	}
	fr.retval = retval
	return ctl, err
}

// handleException runs the first matching except clause. Unmatched
// exceptions are returned unchanged.
func (vm *VM) handleException(fr *Frame, s *ast.Try, exc *Exception) (ctlKind, error) {
	for _, h := range s.Handlers {
		if err := vm.lineEvent(fr, h.Line, false); err != nil {
			return ctlNone, err
		}
		if h.Type != nil {
			t, err := vm.eval(fr, h.Type)
			if err != nil {
				return ctlNone, err
			}
			match, err := vm.exceptionMatches(exc, t)
			if err != nil {
				return ctlNone, err
			}
			if !match {
				continue
			}
		}
		if h.Name != "" {
			if err := vm.store(fr.scope, h.Name, exc.Value); err != nil {
				return ctlNone, err
			}
		}
		vm.handling = append(vm.handling, exc)
		ctl, err := vm.execBlock(fr, h.Body)
		vm.handling = vm.handling[:len(vm.handling)-1]
		if h.Name != "" {
			if ns, terr := vm.target(fr.scope, h.Name); terr == nil {
				ns.Delete(h.Name)
			}
		}
		return ctl, err
	}
	return ctlNone, exc
}

func (vm *VM) exceptionMatches(exc *Exception, t Value) (bool, error) {
	switch x := t.(type) {
	case *Class:
		if isExceptionClass(x) {
			return exc.Is(x), nil
		}
	case *Tuple:
		for _, el := range x.Items {
			ok, err := vm.exceptionMatches(exc, el)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return false, vm.typeError("catching classes that do not inherit from BaseException is not allowed")
}

func (vm *VM) execRaise(fr *Frame, s *ast.Raise) error {
	if s.Exc == nil {
		if n := len(vm.handling); n > 0 {
			return vm.handling[n-1]
		}
		return vm.raise(RuntimeErrorClass, "No active exception to reraise")
	}
	v, err := vm.eval(fr, s.Exc)
	if err != nil {
		return err
	}
	exc, err := vm.exceptionFromValue(v)
	if err != nil {
		return err
	}
	if s.Cause != nil {
		cause, err := vm.eval(fr, s.Cause)
		if err != nil {
			return err
		}
		exc.Value.Dict.Set("__cause__", cause)
	}
	return exc
}

func (vm *VM) execAugAssign(fr *Frame, s *ast.AugAssign) error {
	switch t := s.Target.(type) {
	case *ast.Name:
		cur, err := vm.lookup(fr.scope, t.ID)
		if err != nil {
			return err
		}
		rhs, err := vm.eval(fr, s.Value)
		if err != nil {
			return err
		}
		nv, err := vm.inplaceOp(s.Op, cur, rhs)
		if err != nil {
			return err
		}
		return vm.store(fr.scope, t.ID, nv)
	case *ast.Attribute:
		obj, err := vm.eval(fr, t.Value)
		if err != nil {
			return err
		}
		cur, err := vm.getAttr(obj, t.Attr)
		if err != nil {
			return err
		}
		rhs, err := vm.eval(fr, s.Value)
		if err != nil {
			return err
		}
		nv, err := vm.inplaceOp(s.Op, cur, rhs)
		if err != nil {
			return err
		}
		return vm.setAttr(obj, t.Attr, nv)
	case *ast.Subscript:
		obj, err := vm.eval(fr, t.Value)
		if err != nil {
			return err
		}
		idx, err := vm.evalIndex(fr, t.Index)
		if err != nil {
			return err
		}
		cur, err := vm.getItem(obj, idx)
		if err != nil {
			return err
		}
		rhs, err := vm.eval(fr, s.Value)
		if err != nil {
			return err
		}
		nv, err := vm.inplaceOp(s.Op, cur, rhs)
		if err != nil {
			return err
		}
		return vm.setItem(obj, idx, nv)
	}
	return vm.raise(SyntaxErrorClass, "illegal expression for augmented assignment")
}

// assign stores v into an assignment target.
func (vm *VM) assign(fr *Frame, target ast.Expr, v Value) error {
	switch t := target.(type) {
	case *ast.Name:
		return vm.store(fr.scope, t.ID, v)
	case *ast.Attribute:
		obj, err := vm.eval(fr, t.Value)
		if err != nil {
			return err
		}
		return vm.setAttr(obj, t.Attr, v)
	case *ast.Subscript:
		obj, err := vm.eval(fr, t.Value)
		if err != nil {
			return err
		}
		idx, err := vm.evalIndex(fr, t.Index)
		if err != nil {
			return err
		}
		return vm.setItem(obj, idx, v)
	case *ast.Tuple:
		return vm.unpack(fr, t.Elts, v)
	case *ast.List:
		return vm.unpack(fr, t.Elts, v)
	}
	return vm.raise(SyntaxErrorClass, "cannot assign to expression")
}

func (vm *VM) unpack(fr *Frame, targets []ast.Expr, v Value) error {
	items, err := vm.toSlice(v)
	if err != nil {
		if exc, ok := err.(*Exception); ok && exc.Is(TypeErrorClass) && !vm.isIterable(v) {
			return vm.typeError("cannot unpack non-iterable %s object", TypeName(v))
		}
		return err
	}
	star := -1
	for i, t := range targets {
		if _, ok := t.(*ast.Starred); ok {
			star = i
		}
	}
	if star < 0 {
		switch {
		case len(items) < len(targets):
			return vm.valueError("not enough values to unpack (expected %d, got %d)", len(targets), len(items))
		case len(items) > len(targets):
			return vm.valueError("too many values to unpack (expected %d)", len(targets))
		}
		for i, t := range targets {
			if err := vm.assign(fr, t, items[i]); err != nil {
				return err
			}
		}
		return nil
	}
	after := len(targets) - star - 1
	if len(items) < len(targets)-1 {
		return vm.valueError("not enough values to unpack (expected at least %d, got %d)", len(targets)-1, len(items))
	}
	for i := 0; i < star; i++ {
		if err := vm.assign(fr, targets[i], items[i]); err != nil {
			return err
		}
	}
	rest := make([]Value, len(items)-star-after)
	copy(rest, items[star:len(items)-after])
	if err := vm.assign(fr, targets[star].(*ast.Starred).Value, NewList(rest)); err != nil {
		return err
	}
	for i := 0; i < after; i++ {
		if err := vm.assign(fr, targets[star+1+i], items[len(items)-after+i]); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) deleteTarget(fr *Frame, target ast.Expr) error {
	switch t := target.(type) {
	case *ast.Name:
		return vm.unbind(fr.scope, t.ID)
	case *ast.Attribute:
		obj, err := vm.eval(fr, t.Value)
		if err != nil {
			return err
		}
		return vm.delAttr(obj, t.Attr)
	case *ast.Subscript:
		obj, err := vm.eval(fr, t.Value)
		if err != nil {
			return err
		}
		idx, err := vm.evalIndex(fr, t.Index)
		if err != nil {
			return err
		}
		return vm.delItem(obj, idx)
	case *ast.Tuple:
		for _, el := range t.Elts {
			if err := vm.deleteTarget(fr, el); err != nil {
				return err
			}
		}
		return nil
	case *ast.List:
		for _, el := range t.Elts {
			if err := vm.deleteTarget(fr, el); err != nil {
				return err
			}
		}
		return nil
	}
	return vm.raise(SyntaxErrorClass, "cannot delete expression")
}

func (vm *VM) execFunctionDef(fr *Frame, s *ast.FunctionDef) error {
	decorators, err := vm.evalList(fr, s.Decorators)
	if err != nil {
		return err
	}
	fn, err := vm.makeFunction(fr, s.Name, s.Params, s)
	if err != nil {
		return err
	}
	fn.Body = s.Body
	fn.Doc = s.Doc
	var v Value = fn
	for i := len(decorators) - 1; i >= 0; i-- {
		if v, err = vm.Call(decorators[i], []Value{v}, nil); err != nil {
			return err
		}
	}
	return vm.store(fr.scope, s.Name, v)
}

// makeFunction evaluates defaults and captures the defining scope.
func (vm *VM) makeFunction(fr *Frame, name string, params *ast.Params, node ast.Node) (*Function, error) {
	fn := &Function{
		Name:     name,
		QualName: vm.qualName(fr, name),
		Params:   params,
		Line:     node.Position().Line,
		file:     fr.file,
		closure:  fr.scope,
		globals:  fr.scope.globals,
	}
	if m, ok := fr.scope.globals.Get("__name__"); ok {
		if s, ok := m.(Str); ok {
			fn.module = string(s)
		}
	}
	if params != nil {
		fn.Defaults = make([]Value, len(params.List))
		for i, p := range params.List {
			if p.Default == nil {
				continue
			}
			d, err := vm.eval(fr, p.Default)
			if err != nil {
				return nil, err
			}
			fn.Defaults[i] = d
		}
	}
	switch n := node.(type) {
	case *ast.FunctionDef:
		fn.info = vm.scopeInfoFor(n, func() *scopeInfo { return analyzeScope(n.Params, n.Body) })
	case *ast.Lambda:
		fn.Expr = n.Body
		fn.info = vm.scopeInfoFor(n, func() *scopeInfo {
			return analyzeScope(n.Params, []ast.Stmt{&ast.ExprStmt{Pos: n.Pos, Value: n.Body}})
		})
	}
	return fn, nil
}

func (vm *VM) qualName(fr *Frame, name string) string {
	switch {
	case fr.scope.kind == scopeClass:
		return fr.name + "." + name
	case fr.fn != nil:
		return fr.fn.QualName + ".<locals>." + name
	}
	return name
}

func (vm *VM) execClassDef(fr *Frame, s *ast.ClassDef) error {
	decorators, err := vm.evalList(fr, s.Decorators)
	if err != nil {
		return err
	}
	baseVals, err := vm.evalList(fr, s.Bases)
	if err != nil {
		return err
	}
	bases := make([]*Class, 0, len(baseVals))
	for _, b := range baseVals {
		c, ok := b.(*Class)
		if !ok {
			return vm.typeError("bases must be types")
		}
		if !subclassable(c) {
			return vm.typeError("subclassing builtin type '%s' is not supported", c.Name)
		}
		bases = append(bases, c)
	}
	if len(bases) == 0 {
		bases = []*Class{ObjectClass}
	}

	ns := NewNamespace()
	module := "__main__"
	if m, ok := fr.scope.globals.Get("__name__"); ok {
		if s, ok := m.(Str); ok {
			module = string(s)
		}
	}
	ns.Set("__module__", Str(module))
	ns.Set("__qualname__", Str(vm.qualName(fr, s.Name)))
	if s.Doc {
		if es, ok := s.Body[0].(*ast.ExprStmt); ok {
			if lit, ok := es.Value.(*ast.StrLit); ok {
				ns.Set("__doc__", Str(lit.Value))
			}
		}
	}
	body := &Frame{
		name: s.Name,
		file: fr.file,
		fn:   fr.fn,
		scope: &scope{
			kind:    scopeClass,
			ns:      ns,
			info:    vm.scopeInfoFor(s, func() *scopeInfo { return analyzeScope(nil, s.Body) }),
			parent:  fr.scope,
			globals: fr.scope.globals,
		},
	}
	if err := vm.pushFrame(body); err != nil {
		return err
	}
	// The class body frame opens on the header line, before its first
	// statement.
	err = vm.lineEvent(body, s.Position().Line, false)
	if err == nil {
		_, err = vm.execBody(body, s.Body, s.Doc)
	}
	vm.popFrame()
	if err != nil {
		return err
	}

	cls := &Class{Name: s.Name, Module: module, Bases: bases, Dict: ns}
	mro, ok := linearize(cls, bases)
	if !ok {
		return vm.typeError("Cannot create a consistent method resolution order (MRO) for bases")
	}
	cls.MRO = mro
	ns.Each(func(_ string, v Value) { setDefClass(v, cls) })

	var v Value = cls
	for i := len(decorators) - 1; i >= 0; i-- {
		if v, err = vm.Call(decorators[i], []Value{v}, nil); err != nil {
			return err
		}
	}
	return vm.store(fr.scope, s.Name, v)
}

// setDefClass records the class a method was defined in, for super().
func setDefClass(v Value, cls *Class) {
	switch f := v.(type) {
	case *Function:
		if f.defClass == nil {
			f.defClass = cls
		}
	case *StaticMethod:
		setDefClass(f.Func, cls)
	case *ClassMethod:
		setDefClass(f.Func, cls)
	case *Property:
		setDefClass(f.Get, cls)
		setDefClass(f.Set, cls)
		setDefClass(f.Del, cls)
	}
}

func (vm *VM) execImportFrom(fr *Frame, s *ast.ImportFrom) error {
	mod, err := vm.importModule(s.Module)
	if err != nil {
		return err
	}
	for _, a := range s.Names {
		if a.Name == "*" {
			var names []string
			if all, ok := mod.Dict.Get("__all__"); ok {
				items, err := vm.toSlice(all)
				if err != nil {
					return err
				}
				for _, it := range items {
					if name, ok := it.(Str); ok {
						names = append(names, string(name))
					}
				}
			} else {
				for _, name := range mod.Dict.Names() {
					if len(name) > 0 && name[0] != '_' {
						names = append(names, name)
					}
				}
			}
			for _, name := range names {
				v, ok := mod.Dict.Get(name)
				if !ok {
					return vm.raise(AttributeErrorClass, "module '%s' has no attribute '%s'", mod.Name, name)
				}
				if err := vm.store(fr.scope, name, v); err != nil {
					return err
				}
			}
			continue
		}
		v, ok := mod.Dict.Get(a.Name)
		if !ok {
			where := "unknown location"
			if mod.Path != "" {
				where = mod.Path
			}
			return vm.raise(ImportErrorClass, "cannot import name '%s' from '%s' (%s)", a.Name, mod.Name, where)
		}
		if err := vm.store(fr.scope, a.Bound(), v); err != nil {
			return err
		}
	}
	return nil
}
