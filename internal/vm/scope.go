package vm

import (
	"strings"

	"pytrace/internal/ast"
)

type scopeKind uint8

const (
	scopeModule scopeKind = iota
	scopeFunction
	scopeClass
	scopeComp
)

// scopeInfo is the static name classification of a function, class body or
// comprehension.
type scopeInfo struct {
	// locals keeps parameters first, then names in order of first binding.
	locals    []string
	isLocal   map[string]bool
	globals   map[string]bool
	nonlocals map[string]bool
	// refs are names used but not bound locally; candidates for free variables.
	refs []string
}

func newScopeInfo() *scopeInfo {
	return &scopeInfo{
		isLocal:   make(map[string]bool),
		globals:   make(map[string]bool),
		nonlocals: make(map[string]bool),
	}
}

func (si *scopeInfo) bind(name string) {
	if si.isLocal[name] || si.globals[name] || si.nonlocals[name] {
		return
	}
	si.isLocal[name] = true
	si.locals = append(si.locals, name)
}

func (si *scopeInfo) bindTarget(e ast.Expr) {
	switch t := e.(type) {
	case *ast.Name:
		si.bind(t.ID)
	case *ast.Tuple:
		for _, el := range t.Elts {
			si.bindTarget(el)
		}
	case *ast.List:
		for _, el := range t.Elts {
			si.bindTarget(el)
		}
	case *ast.Starred:
		si.bindTarget(t.Value)
	}
}

// analyzeScope classifies the names of a function or class body.
func analyzeScope(params *ast.Params, body []ast.Stmt) *scopeInfo {
	si := newScopeInfo()
	for _, s := range body {
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.Global:
				for _, name := range n.Names {
					si.globals[name] = true
				}
			case *ast.Nonlocal:
				for _, name := range n.Names {
					si.nonlocals[name] = true
				}
			case *ast.FunctionDef, *ast.ClassDef, *ast.Lambda:
				return false
			}
			return true
		})
	}
	for _, name := range params.VarNames() {
		si.bind(name)
	}
	seenRef := make(map[string]bool)
	for _, s := range body {
		ast.Inspect(s, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FunctionDef:
				si.bind(n.Name)
				inspectOuter(n.Decorators, n.Params, si)
				return false
			case *ast.ClassDef:
				si.bind(n.Name)
				inspectOuter(n.Decorators, nil, si)
				inspectOuter(n.Bases, nil, si)
				return false
			case *ast.Lambda:
				inspectOuter(nil, n.Params, si)
				return false
			case *ast.Comp:
				return true
			case *ast.Assign:
				for _, t := range n.Targets {
					si.bindTarget(t)
				}
			case *ast.AugAssign:
				si.bindTarget(n.Target)
			case *ast.AnnAssign:
				si.bindTarget(n.Target)
			case *ast.For:
				si.bindTarget(n.Target)
			case *ast.Delete:
				for _, t := range n.Targets {
					si.bindTarget(t)
				}
			case *ast.Import:
				for _, a := range n.Names {
					si.bind(importBinding(a))
				}
			case *ast.ImportFrom:
				for _, a := range n.Names {
					if a.Name != "*" {
						si.bind(a.Bound())
					}
				}
			case *ast.Try:
				for _, h := range n.Handlers {
					if h.Name != "" {
						si.bind(h.Name)
					}
				}
			case *ast.NamedExpr:
				si.bind(n.Target.ID)
			case *ast.Name:
				if !seenRef[n.ID] {
					seenRef[n.ID] = true
					si.refs = append(si.refs, n.ID)
				}
			}
			return true
		})
	}
	refs := si.refs[:0]
	for _, r := range si.refs {
		if !si.isLocal[r] && !si.globals[r] {
			refs = append(refs, r)
		}
	}
	si.refs = refs
	return si
}

// inspectOuter records walrus bindings in expressions evaluated in the
// enclosing scope of a nested definition.
func inspectOuter(exprs []ast.Expr, params *ast.Params, si *scopeInfo) {
	visit := func(e ast.Expr) {
		if e == nil {
			return
		}
		ast.Inspect(e, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.Lambda:
				return false
			case *ast.NamedExpr:
				si.bind(n.Target.ID)
			}
			return true
		})
	}
	for _, e := range exprs {
		visit(e)
	}
	if params != nil {
		for _, p := range params.List {
			visit(p.Default)
		}
	}
}

// analyzeComp classifies a comprehension: its loop targets are local.
func analyzeComp(c *ast.Comp) *scopeInfo {
	si := newScopeInfo()
	for _, g := range c.Generators {
		si.bindTarget(g.Target)
	}
	return si
}

// importBinding is the name `import a.b.c [as x]` binds.
func importBinding(a ast.Alias) string {
	if a.AsName != "" {
		return a.AsName
	}
	if i := strings.IndexByte(a.Name, '.'); i >= 0 {
		return a.Name[:i]
	}
	return a.Name
}

// scope is a runtime name environment.
type scope struct {
	kind    scopeKind
	ns      *Namespace
	info    *scopeInfo
	parent  *scope
	globals *Namespace
}

func newModuleScope(globals *Namespace) *scope {
	return &scope{kind: scopeModule, ns: globals, globals: globals, info: newScopeInfo()}
}

func (vm *VM) lookup(sc *scope, name string) (Value, error) {
	switch sc.kind {
	case scopeModule:
		return vm.lookupGlobal(sc.globals, name)
	case scopeClass:
		if v, ok := sc.ns.Get(name); ok {
			return v, nil
		}
		if sc.info.globals[name] {
			return vm.lookupGlobal(sc.globals, name)
		}
	default:
		if sc.info.globals[name] {
			return vm.lookupGlobal(sc.globals, name)
		}
		if sc.info.isLocal[name] {
			if v, ok := sc.ns.Get(name); ok {
				return v, nil
			}
			return nil, vm.raise(UnboundLocalErrorClass, "cannot access local variable '%s' where it is not associated with a value", name)
		}
	}
	v, found, err := vm.lookupEnclosing(sc.parent, name)
	if found || err != nil {
		return v, err
	}
	return vm.lookupGlobal(sc.globals, name)
}

// lookupEnclosing resolves name in enclosing function scopes. Class scopes
// are skipped.
func (vm *VM) lookupEnclosing(sc *scope, name string) (Value, bool, error) {
	for p := sc; p != nil && p.kind != scopeModule; p = p.parent {
		if p.kind == scopeClass || !p.info.isLocal[name] {
			continue
		}
		if v, ok := p.ns.Get(name); ok {
			return v, true, nil
		}
		return nil, true, vm.raise(NameErrorClass, "cannot access free variable '%s' where it is not associated with a value in enclosing scope", name)
	}
	return nil, false, nil
}

func (vm *VM) lookupGlobal(globals *Namespace, name string) (Value, error) {
	if v, ok := globals.Get(name); ok {
		return v, nil
	}
	if v, ok := vm.builtins.Get(name); ok {
		return v, nil
	}
	return nil, vm.raise(NameErrorClass, "name '%s' is not defined", name)
}

// target returns the namespace a store to name in sc writes to.
func (vm *VM) target(sc *scope, name string) (*Namespace, error) {
	if sc.kind == scopeModule || sc.info.globals[name] {
		return sc.globals, nil
	}
	if sc.info.nonlocals[name] {
		for p := sc.parent; p != nil && p.kind != scopeModule; p = p.parent {
			if p.kind != scopeClass && p.info.isLocal[name] {
				return p.ns, nil
			}
		}
		return nil, vm.raise(SyntaxErrorClass, "no binding for nonlocal '%s' found", name)
	}
	return sc.ns, nil
}

func (vm *VM) store(sc *scope, name string, v Value) error {
	ns, err := vm.target(sc, name)
	if err != nil {
		return err
	}
	ns.Set(name, v)
	return nil
}

// storeWalrus binds a := target in the nearest non-comprehension scope.
func (vm *VM) storeWalrus(sc *scope, name string, v Value) error {
	for sc.kind == scopeComp && sc.parent != nil {
		sc = sc.parent
	}
	return vm.store(sc, name, v)
}

func (vm *VM) unbind(sc *scope, name string) error {
	ns, err := vm.target(sc, name)
	if err != nil {
		return err
	}
	if ns.Delete(name) {
		return nil
	}
	if sc.kind == scopeFunction && sc.info.isLocal[name] {
		return vm.raise(UnboundLocalErrorClass, "cannot access local variable '%s' where it is not associated with a value", name)
	}
	return vm.raise(NameErrorClass, "name '%s' is not defined", name)
}

// bindings lists the visible bindings of sc: function locals in static
// order followed by free variables, or namespace order elsewhere.
func (sc *scope) bindings() []Binding {
	var out []Binding
	if sc.kind != scopeFunction {
		sc.ns.Each(func(name string, v Value) {
			out = append(out, Binding{Name: name, Value: v})
		})
		return out
	}
	for _, name := range sc.info.locals {
		if v, ok := sc.ns.Get(name); ok {
			out = append(out, Binding{Name: name, Value: v})
		}
	}
	for _, name := range sc.info.refs {
		for p := sc.parent; p != nil && p.kind != scopeModule; p = p.parent {
			if p.kind == scopeClass || !p.info.isLocal[name] {
				continue
			}
			if v, ok := p.ns.Get(name); ok {
				out = append(out, Binding{Name: name, Value: v})
			}
			break
		}
	}
	return out
}
