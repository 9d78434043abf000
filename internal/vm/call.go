package vm

import (
	"fmt"
	"strings"

	"pytrace/internal/ast"
)

// Call invokes any callable value.
func (vm *VM) Call(fn Value, args []Value, kwargs []KwArg) (Value, error) {
	switch f := fn.(type) {
	case *Function:
		return vm.callFunction(f, args, kwargs)
	case *Builtin:
		return f.Fn(vm, args, kwargs)
	case *BoundMethod:
		full := make([]Value, 0, len(args)+1)
		full = append(full, f.Self)
		full = append(full, args...)
		return vm.Call(f.Func, full, kwargs)
	case *Class:
		return vm.instantiate(f, args, kwargs)
	case *StaticMethod:
		return vm.Call(f.Func, args, kwargs)
	case *Instance:
		if call, _, ok := f.Class.Lookup("__call__"); ok {
			return vm.Call(vm.bindTo(call, f, f.Class), args, kwargs)
		}
	}
	return nil, vm.typeError("'%s' object is not callable", TypeName(fn))
}

// IsCallable reports whether v can be called.
func IsCallable(v Value) bool {
	switch x := v.(type) {
	case *Function, *Builtin, *BoundMethod, *Class, *StaticMethod:
		return true
	case *Instance:
		_, _, ok := x.Class.Lookup("__call__")
		return ok
	}
	return false
}

func (vm *VM) callFunction(fn *Function, args []Value, kwargs []KwArg) (Value, error) {
	sc := &scope{
		kind:    scopeFunction,
		ns:      NewNamespace(),
		info:    fn.info,
		parent:  fn.closure,
		globals: fn.globals,
	}
	if err := vm.bindArgs(fn, sc.ns, args, kwargs); err != nil {
		return nil, err
	}
	fr := &Frame{name: fn.Name, file: fn.file, scope: sc, fn: fn}
	if err := vm.pushFrame(fr); err != nil {
		return nil, err
	}
	defer vm.popFrame()

	if fn.Expr != nil {
		if err := vm.tick(); err != nil {
			return nil, err
		}
		if err := vm.lineEvent(fr, fn.Expr.Position().Line, false); err != nil {
			return nil, err
		}
		return vm.eval(fr, fn.Expr)
	}
	ctl, err := vm.execBody(fr, fn.Body, fn.Doc)
	if err != nil {
		return nil, err
	}
	if ctl == ctlReturn {
		return fr.retval, nil
	}
	return None, nil
}

// bindArgs matches call arguments to fn's parameters.
func (vm *VM) bindArgs(fn *Function, ns *Namespace, args []Value, kwargs []KwArg) error {
	var params []ast.Param
	if fn.Params != nil {
		params = fn.Params.List
	}
	name := fn.QualName + "()"
	npos, varArgs, varKw := 0, -1, -1
	for i, p := range params {
		switch p.Kind {
		case ast.ParamPositional:
			npos++
		case ast.ParamVarArgs:
			varArgs = i
		case ast.ParamVarKw:
			varKw = i
		}
	}

	bound := make([]bool, len(params))
	for i := 0; i < len(args) && i < npos; i++ {
		ns.Set(params[i].Name, args[i])
		bound[i] = true
	}
	if len(args) > npos && varArgs < 0 {
		return vm.typeError("%s", positionalCountMessage(fn, name, npos, len(args)))
	}
	if varArgs >= 0 {
		var rest []Value
		if len(args) > npos {
			rest = append(rest, args[npos:]...)
		}
		ns.Set(params[varArgs].Name, NewTuple(rest...))
		bound[varArgs] = true
	}

	var extra *Dict
	if varKw >= 0 {
		extra = NewDict()
	}
	for _, kw := range kwargs {
		idx := -1
		for i, p := range params {
			if p.Name == kw.Name && (p.Kind == ast.ParamPositional || p.Kind == ast.ParamKwOnly) {
				idx = i
				break
			}
		}
		switch {
		case idx >= 0 && bound[idx]:
			return vm.typeError("%s got multiple values for argument '%s'", name, kw.Name)
		case idx >= 0:
			ns.Set(kw.Name, kw.Value)
			bound[idx] = true
		case extra != nil:
			extra.SetStr(kw.Name, kw.Value)
		default:
			return vm.typeError("%s got an unexpected keyword argument '%s'", name, kw.Name)
		}
	}
	if varKw >= 0 {
		ns.Set(params[varKw].Name, extra)
		bound[varKw] = true
	}

	var missingPos, missingKw []string
	for i, p := range params {
		if bound[i] {
			continue
		}
		if d := fn.Defaults[i]; d != nil {
			ns.Set(p.Name, d)
			continue
		}
		if p.Kind == ast.ParamKwOnly {
			missingKw = append(missingKw, p.Name)
		} else {
			missingPos = append(missingPos, p.Name)
		}
	}
	if len(missingPos) > 0 {
		return vm.typeError("%s missing %d required positional argument%s: %s", name, len(missingPos), plural(len(missingPos)), quoteList(missingPos))
	}
	if len(missingKw) > 0 {
		return vm.typeError("%s missing %d required keyword-only argument%s: %s", name, len(missingKw), plural(len(missingKw)), quoteList(missingKw))
	}
	return nil
}

func positionalCountMessage(fn *Function, name string, npos, given int) string {
	required := 0
	if fn.Params != nil {
		for i, p := range fn.Params.List {
			if p.Kind == ast.ParamPositional && fn.Defaults[i] == nil {
				required++
			}
		}
	}
	takes := fmt.Sprintf("%d positional argument%s", npos, plural(npos))
	if required < npos {
		takes = fmt.Sprintf("from %d to %d positional arguments", required, npos)
	}
	was := "were"
	if given == 1 {
		was = "was"
	}
	return fmt.Sprintf("%s takes %s but %d %s given", name, takes, given, was)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// quoteList renders names as 'a', 'a' and 'b', or 'a', 'b', and 'c'.
func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = "'" + n + "'"
	}
	switch len(q) {
	case 1:
		return q[0]
	case 2:
		return q[0] + " and " + q[1]
	}
	return strings.Join(q[:len(q)-1], ", ") + ", and " + q[len(q)-1]
}

// instantiate calls a class.
func (vm *VM) instantiate(c *Class, args []Value, kwargs []KwArg) (Value, error) {
	if c.new != nil {
		return c.new(vm, args, kwargs)
	}
	if c.builtin && c != ObjectClass && !isExceptionClass(c) {
		return nil, vm.typeError("cannot create '%s' instances", c.Name)
	}
	inst := newInstance(c)
	if isExceptionClass(c) {
		inst.Dict.Set("args", NewTuple(args...))
	}
	init, owner, ok := c.Lookup("__init__")
	if !ok || owner == ObjectClass {
		if len(args) > 0 || len(kwargs) > 0 {
			return nil, vm.typeError("%s() takes no arguments", c.Name)
		}
		return inst, nil
	}
	res, err := vm.Call(vm.bindTo(init, inst, c), args, kwargs)
	if err != nil {
		return nil, err
	}
	if res != None {
		return nil, vm.typeError("__init__() should return None, not '%s'", TypeName(res))
	}
	return inst, nil
}

// callMethod looks up a dunder on v's class and calls it. ok is false when
// the class does not define it.
func (vm *VM) callMethod(v Value, name string, args ...Value) (Value, bool, error) {
	cls := v.Type()
	m, _, found := cls.Lookup(name)
	if !found {
		return nil, false, nil
	}
	res, err := vm.Call(vm.bindTo(m, v, cls), args, nil)
	return res, true, err
}

// userMethod reports a dunder defined by a user class, not a builtin one.
func userMethod(v Value, name string) (Value, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	m, owner, found := inst.Class.Lookup(name)
	if !found || owner.builtin {
		return nil, false
	}
	return m, true
}
