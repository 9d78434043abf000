package vm

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Hash keys are comparable Go values chosen so that Python-equal keys map
// to the same key: ints, bools and integral floats share int64 keys.
type (
	tupleKey  string
	frozenKey string
	userKey   int64
)

// hashKey returns the dict key for v, or a TypeError for unhashable values.
func (vm *VM) hashKey(v Value) (any, error) {
	switch x := v.(type) {
	case Int:
		return int64(x), nil
	case Bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case Float:
		f := float64(x)
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return int64(f), nil
		}
		return f, nil
	case Str:
		return string(x), nil
	case NoneType, EllipsisType:
		return x, nil
	case *Tuple:
		var sb strings.Builder
		for _, it := range x.Items {
			hk, err := vm.hashKey(it)
			if err != nil {
				return nil, err
			}
			writeKey(&sb, hk)
		}
		return tupleKey(sb.String()), nil
	case *Set:
		if !x.Frozen {
			break
		}
		parts := make([]string, 0, x.Len())
		for _, it := range x.Elems() {
			hk, err := vm.hashKey(it)
			if err != nil {
				return nil, err
			}
			var sb strings.Builder
			writeKey(&sb, hk)
			parts = append(parts, sb.String())
		}
		slices.Sort(parts)
		return frozenKey(strings.Join(parts, "")), nil
	case *Range:
		return tupleKey(fmt.Sprintf("range:%d:%d:%d", x.Start, x.Stop, x.Step)), nil
	case *Instance:
		if h, owner, ok := x.Class.Lookup("__hash__"); ok && !owner.builtin {
			if h == None {
				break
			}
			res, err := vm.Call(vm.bindTo(h, x, x.Class), nil, nil)
			if err != nil {
				return nil, err
			}
			n, ok := asInt(res)
			if !ok {
				return nil, vm.typeError("__hash__ method should return an integer")
			}
			return userKey(n), nil
		}
		if _, owner, ok := x.Class.Lookup("__eq__"); ok && !owner.builtin {
			break
		}
		return x, nil
	case *List, *Dict, *Slice, *DictView:
	default:
		return v, nil
	}
	return nil, vm.typeError("unhashable type: '%s'", TypeName(v))
}

// writeKey appends a self-delimiting encoding of a hash key.
func writeKey(sb *strings.Builder, hk any) {
	switch k := hk.(type) {
	case int64:
		sb.WriteString("i")
		sb.WriteString(strconv.FormatInt(k, 10))
		sb.WriteByte(';')
	case float64:
		sb.WriteString("f")
		sb.WriteString(strconv.FormatFloat(k, 'g', -1, 64))
		sb.WriteByte(';')
	case string:
		fmt.Fprintf(sb, "s%d:%s", len(k), k)
	case tupleKey:
		fmt.Fprintf(sb, "t%d:%s", len(k), k)
	case frozenKey:
		fmt.Fprintf(sb, "z%d:%s", len(k), k)
	case userKey:
		fmt.Fprintf(sb, "u%d;", int64(k))
	case NoneType:
		sb.WriteString("n;")
	case EllipsisType:
		sb.WriteString("e;")
	default:
		fmt.Fprintf(sb, "p%p;", k)
	}
}

// hashValue implements hash(): a deterministic int derived from the key.
func (vm *VM) hashValue(v Value) (int64, error) {
	hk, err := vm.hashKey(v)
	if err != nil {
		return 0, err
	}
	switch k := hk.(type) {
	case int64:
		if k == -1 {
			return -2, nil
		}
		return k, nil
	case userKey:
		return int64(k), nil
	case NoneType, EllipsisType:
		return int64(vm.objectID(v) >> 4), nil
	case string, float64, tupleKey, frozenKey:
		var sb strings.Builder
		writeKey(&sb, hk)
		return fnv64(sb.String()), nil
	}
	return int64(vm.objectID(v) >> 4), nil
}

func fnv64(s string) int64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return int64(h >> 1)
}
