package vm

import "slices"

// Namespace is an insertion-ordered name to value mapping used for module
// globals, class bodies, instance attributes and function locals.
type Namespace struct {
	names []string
	vals  map[string]Value
}

func NewNamespace() *Namespace {
	return &Namespace{vals: make(map[string]Value)}
}

func (ns *Namespace) Get(name string) (Value, bool) {
	if ns == nil {
		return nil, false
	}
	v, ok := ns.vals[name]
	return v, ok
}

// Set binds name, keeping the original position when rebinding.
func (ns *Namespace) Set(name string, v Value) {
	if _, ok := ns.vals[name]; !ok {
		ns.names = append(ns.names, name)
	}
	ns.vals[name] = v
}

// Delete unbinds name and reports whether it was bound.
func (ns *Namespace) Delete(name string) bool {
	if _, ok := ns.vals[name]; !ok {
		return false
	}
	delete(ns.vals, name)
	if i := slices.Index(ns.names, name); i >= 0 {
		ns.names = slices.Delete(ns.names, i, i+1)
	}
	return true
}

func (ns *Namespace) Len() int {
	if ns == nil {
		return 0
	}
	return len(ns.names)
}

// Names returns the bound names in insertion order.
func (ns *Namespace) Names() []string {
	if ns == nil {
		return nil
	}
	return slices.Clone(ns.names)
}

// Each calls fn for every binding in insertion order.
func (ns *Namespace) Each(fn func(name string, v Value)) {
	if ns == nil {
		return
	}
	for _, name := range ns.names {
		fn(name, ns.vals[name])
	}
}
