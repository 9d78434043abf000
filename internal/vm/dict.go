package vm

// Dict is an insertion-ordered hash map keyed by hashable values.
type Dict struct {
	keys  []Value
	vals  []Value
	index map[any]int
	live  int
	// gen changes on every insertion or removal of a key.
	gen uint64
}

func NewDict() *Dict {
	return &Dict{index: make(map[any]int)}
}

func (*Dict) Type() *Class { return DictClass }

func (d *Dict) Len() int { return d.live }

// Get looks up k. The error is a TypeError for unhashable keys.
func (d *Dict) Get(vm *VM, k Value) (Value, bool, error) {
	hk, err := vm.hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[hk]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

func (d *Dict) Set(vm *VM, k, v Value) error {
	hk, err := vm.hashKey(k)
	if err != nil {
		return err
	}
	d.setHashed(hk, k, v)
	return nil
}

func (d *Dict) setHashed(hk any, k, v Value) {
	if i, ok := d.index[hk]; ok {
		d.vals[i] = v
		return
	}
	d.index[hk] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	d.live++
	d.gen++
}

// SetStr binds a string key; string keys are always hashable.
func (d *Dict) SetStr(k string, v Value) {
	d.setHashed(k, Str(k), v)
}

// Delete removes k and returns the removed value.
func (d *Dict) Delete(vm *VM, k Value) (Value, bool, error) {
	hk, err := vm.hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[hk]
	if !ok {
		return nil, false, nil
	}
	v := d.vals[i]
	delete(d.index, hk)
	d.keys[i] = nil
	d.vals[i] = nil
	d.live--
	d.gen++
	if len(d.keys) > 32 && d.live < len(d.keys)/2 {
		d.compact(vm)
	}
	return v, true, nil
}

func (d *Dict) compact(vm *VM) {
	keys := make([]Value, 0, d.live)
	vals := make([]Value, 0, d.live)
	for i, k := range d.keys {
		if k == nil {
			continue
		}
		hk, _ := vm.hashKey(k)
		d.index[hk] = len(keys)
		keys = append(keys, k)
		vals = append(vals, d.vals[i])
	}
	d.keys, d.vals = keys, vals
}

func (d *Dict) Clear() {
	d.keys, d.vals = nil, nil
	d.index = make(map[any]int)
	d.live = 0
	d.gen++
}

// Keys returns live keys in insertion order.
func (d *Dict) Keys() []Value {
	out := make([]Value, 0, d.live)
	for _, k := range d.keys {
		if k != nil {
			out = append(out, k)
		}
	}
	return out
}

// Items calls fn for each live entry in insertion order.
func (d *Dict) Items(fn func(k, v Value) bool) {
	for i, k := range d.keys {
		if k == nil {
			continue
		}
		if !fn(k, d.vals[i]) {
			return
		}
	}
}

func (d *Dict) Copy() *Dict {
	out := NewDict()
	hashed := make(map[int]any, len(d.index))
	for hk, i := range d.index {
		hashed[i] = hk
	}
	for i, k := range d.keys {
		if k != nil {
			out.setHashed(hashed[i], k, d.vals[i])
		}
	}
	return out
}

// Set is a mutable set or, with Frozen, a frozenset. Elements keep
// insertion order.
type Set struct {
	d      *Dict
	Frozen bool
}

func NewSet() *Set { return &Set{d: NewDict()} }

func (s *Set) Type() *Class {
	if s.Frozen {
		return FrozenSetClass
	}
	return SetClass
}

func (s *Set) Len() int { return s.d.Len() }

func (s *Set) Add(vm *VM, v Value) error { return s.d.Set(vm, v, None) }

func (s *Set) Contains(vm *VM, v Value) (bool, error) {
	_, ok, err := s.d.Get(vm, v)
	return ok, err
}

func (s *Set) Remove(vm *VM, v Value) (bool, error) {
	_, ok, err := s.d.Delete(vm, v)
	return ok, err
}

// Elems returns the elements in insertion order.
func (s *Set) Elems() []Value { return s.d.Keys() }

func (s *Set) Copy() *Set { return &Set{d: s.d.Copy(), Frozen: s.Frozen} }
