package vm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Str implements str(v).
func (vm *VM) Str(v Value) (string, error) {
	switch x := v.(type) {
	case Str:
		return string(x), nil
	case *Instance:
		if m, ok := userMethod(x, "__str__"); ok {
			return vm.callStringer(x, m, "__str__")
		}
		if isExceptionClass(x.Class) {
			return vm.exceptionStr(x)
		}
	}
	return vm.Repr(v)
}

// Repr implements repr(v).
func (vm *VM) Repr(v Value) (string, error) {
	switch x := v.(type) {
	case nil:
		return "<NULL>", nil
	case NoneType:
		return "None", nil
	case EllipsisType:
		return "Ellipsis", nil
	case Bool:
		if x {
			return "True", nil
		}
		return "False", nil
	case Int:
		return strconv.FormatInt(int64(x), 10), nil
	case Float:
		return floatRepr(float64(x)), nil
	case Str:
		return strRepr(string(x)), nil
	case *List:
		return vm.reprContainer(x, "[", "]", x.Items, false)
	case *Tuple:
		return vm.reprContainer(x, "(", ")", x.Items, len(x.Items) == 1)
	case *Set:
		if x.Len() == 0 {
			if x.Frozen {
				return "frozenset()", nil
			}
			return "set()", nil
		}
		s, err := vm.reprContainer(x, "{", "}", x.Elems(), false)
		if err != nil || !x.Frozen {
			return s, err
		}
		return "frozenset(" + s + ")", nil
	case *Dict:
		return vm.reprDict(x)
	case *DictView:
		return vm.reprView(x)
	case *Range:
		if x.Step == 1 {
			return fmt.Sprintf("range(%d, %d)", x.Start, x.Stop), nil
		}
		return fmt.Sprintf("range(%d, %d, %d)", x.Start, x.Stop, x.Step), nil
	case *Slice:
		parts := make([]string, 3)
		for i, p := range []Value{x.Start, x.Stop, x.Step} {
			s, err := vm.Repr(p)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "slice(" + strings.Join(parts, ", ") + ")", nil
	case *Class:
		return fmt.Sprintf("<class '%s'>", x.QualName()), nil
	case *Function:
		return fmt.Sprintf("<function %s at %s>", x.QualName, vm.addr(x)), nil
	case *Builtin:
		return fmt.Sprintf("<built-in function %s>", x.Name), nil
	case *BoundMethod:
		return vm.reprMethod(x)
	case *Module:
		if x.Path == "" {
			return fmt.Sprintf("<module '%s' (built-in)>", x.Name), nil
		}
		return fmt.Sprintf("<module '%s' from '%s'>", x.Name, x.Path), nil
	case *Super:
		self, err := vm.Repr(x.Self)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("<super: <class '%s'>, %s>", x.After.Name, self), nil
	case *Instance:
		if x == notImplemented {
			return "NotImplemented", nil
		}
		if m, ok := userMethod(x, "__repr__"); ok {
			return vm.callStringer(x, m, "__repr__")
		}
		if isExceptionClass(x.Class) {
			args, err := vm.reprContainer(x, "(", ")", exceptionArgs(x), false)
			if err != nil {
				return "", err
			}
			return x.Class.Name + args, nil
		}
		return fmt.Sprintf("<%s object at %s>", x.Class.QualName(), vm.addr(x)), nil
	}
	return fmt.Sprintf("<%s object at %s>", TypeName(v), vm.addr(v)), nil
}

func (vm *VM) addr(v Value) string {
	return fmt.Sprintf("0x%x", vm.objectID(v))
}

func (vm *VM) callStringer(x *Instance, m Value, name string) (string, error) {
	res, err := vm.Call(vm.bindTo(m, x, x.Class), nil, nil)
	if err != nil {
		return "", err
	}
	s, ok := res.(Str)
	if !ok {
		return "", vm.typeError("%s returned non-string (type %s)", name, TypeName(res))
	}
	return string(s), nil
}

func (vm *VM) reprMethod(m *BoundMethod) (string, error) {
	self, err := vm.Repr(m.Self)
	if err != nil {
		return "", err
	}
	switch f := m.Func.(type) {
	case *Builtin:
		return fmt.Sprintf("<built-in method %s of %s object at %s>", f.Name, TypeName(m.Self), vm.addr(m.Self)), nil
	case *Function:
		return fmt.Sprintf("<bound method %s of %s>", f.QualName, self), nil
	}
	return fmt.Sprintf("<bound method of %s>", self), nil
}

// enterRepr guards recursive containers; ok is false when v is already
// being printed.
func (vm *VM) enterRepr(v Value) (leave func(), ok bool) {
	if vm.reprBusy[v] {
		return nil, false
	}
	vm.reprBusy[v] = true
	return func() { delete(vm.reprBusy, v) }, true
}

func (vm *VM) reprContainer(self Value, open, close string, items []Value, trailingComma bool) (string, error) {
	leave, ok := vm.enterRepr(self)
	if !ok {
		return open + "..." + close, nil
	}
	defer leave()
	var sb strings.Builder
	sb.WriteString(open)
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		s, err := vm.Repr(it)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	if trailingComma {
		sb.WriteByte(',')
	}
	sb.WriteString(close)
	return sb.String(), nil
}

func (vm *VM) reprDict(d *Dict) (string, error) {
	leave, ok := vm.enterRepr(d)
	if !ok {
		return "{...}", nil
	}
	defer leave()
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	var err error
	d.Items(func(k, v Value) bool {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		var ks, vs string
		if ks, err = vm.Repr(k); err != nil {
			return false
		}
		if vs, err = vm.Repr(v); err != nil {
			return false
		}
		sb.WriteString(ks)
		sb.WriteString(": ")
		sb.WriteString(vs)
		return true
	})
	if err != nil {
		return "", err
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

func (vm *VM) reprView(v *DictView) (string, error) {
	var items []Value
	switch v.kind {
	case viewKeys:
		items = v.d.Keys()
	case viewValues:
		v.d.Items(func(_, val Value) bool {
			items = append(items, val)
			return true
		})
	case viewItems:
		v.d.Items(func(k, val Value) bool {
			items = append(items, NewTuple(k, val))
			return true
		})
	}
	s, err := vm.reprContainer(v, "[", "]", items, false)
	if err != nil {
		return "", err
	}
	return v.Type().Name + "(" + s + ")", nil
}

// floatRepr formats f the way Python's repr does: the shortest digits
// that round-trip, in positional notation for exponents in [-4, 16).
func floatRepr(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	_, expPart, _ := strings.Cut(e, "e")
	if exp, _ := strconv.Atoi(expPart); exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// strRepr quotes s like Python: single quotes unless s contains a single
// quote and no double quote.
func strRepr(s string) string {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == rune(quote) || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r < 0x80 || unicode.IsPrint(r):
			sb.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}
	sb.WriteByte(quote)
	return sb.String()
}

// asciiEscape implements ascii(): non-ASCII code points become escapes.
func asciiEscape(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r < 0x80:
			sb.WriteRune(r)
		case r < 0x100:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r < 0x10000:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}
	return sb.String()
}

// FormatFloat renders f the way repr(float) does.
func FormatFloat(f float64) string { return floatRepr(f) }
