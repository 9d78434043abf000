// Package vm implements a line-traced interpreter for pytrace Python.
package vm

import (
	"math"
)

// Value is any runtime value. Scalars are plain Go types; containers and
// objects are pointers so identity survives aliasing.
type Value interface {
	Type() *Class
}

type (
	NoneType struct{}
	Bool     bool
	Int      int64
	Float    float64
	Str      string
)

// None is the singleton None value.
var None Value = NoneType{}

type EllipsisType struct{}

var Ellipsis Value = EllipsisType{}

// Slice is the value of a slice expression such as xs[1:n:2].
type Slice struct {
	Start, Stop, Step Value
}

type List struct {
	Items []Value
}

type Tuple struct {
	Items []Value
}

// Range is an immutable arithmetic progression.
type Range struct {
	Start, Stop, Step int64
}

// Len returns the number of elements in r.
func (r *Range) Len() int64 {
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		return (r.Stop-r.Start-1)/r.Step + 1
	case r.Step < 0 && r.Start > r.Stop:
		return (r.Start-r.Stop-1)/(-r.Step) + 1
	}
	return 0
}

// At returns the i-th element; i must be in range.
func (r *Range) At(i int64) int64 { return r.Start + i*r.Step }

func (NoneType) Type() *Class     { return NoneClass }
func (Bool) Type() *Class         { return BoolClass }
func (Int) Type() *Class          { return IntClass }
func (Float) Type() *Class        { return FloatClass }
func (Str) Type() *Class          { return StrClass }
func (*List) Type() *Class        { return ListClass }
func (*Tuple) Type() *Class       { return TupleClass }
func (*Range) Type() *Class       { return RangeClass }
func (EllipsisType) Type() *Class { return EllipsisClass }
func (*Slice) Type() *Class       { return SliceClass }

// NewList wraps items in a fresh list.
func NewList(items []Value) *List { return &List{Items: items} }

// NewTuple wraps items in a fresh tuple.
func NewTuple(items ...Value) *Tuple { return &Tuple{Items: items} }

func boolOf(b bool) Value { return Bool(b) }

// TypeName returns the Python type name of v.
func TypeName(v Value) string {
	if v == nil {
		return "NULL"
	}
	return v.Type().Name
}

// asInt reports v as an int64 when it is an int or bool.
func asInt(v Value) (int64, bool) {
	switch x := v.(type) {
	case Int:
		return int64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// asFloat reports v as a float64 when it is numeric.
func asFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case Float:
		return float64(x), true
	case Int:
		return float64(x), true
	case Bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, Float, Bool:
		return true
	}
	return false
}

// floatToInt truncates f toward zero, failing for non-finite or huge values.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}
