package vm

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatSpec is a parsed format-spec mini-language string.
type formatSpec struct {
	fill      rune
	align     byte // 0, '<', '>', '^', '='
	sign      byte // 0, '+', '-', ' '
	alt       bool
	zero      bool
	width     int
	grouping  byte // 0, ',', '_'
	precision int  // -1 when absent
	typ       byte
}

func (vm *VM) parseSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', precision: -1}
	s := spec
	isAlign := func(c byte) bool { return c == '<' || c == '>' || c == '^' || c == '=' }
	if r, n := utf8.DecodeRuneInString(s); n > 0 && len(s) > n && isAlign(s[n]) {
		fs.fill, fs.align = r, s[n]
		s = s[n+1:]
	} else if len(s) > 0 && isAlign(s[0]) {
		fs.align = s[0]
		s = s[1:]
	}
	if len(s) > 0 && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		fs.sign = s[0]
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '#' {
		fs.alt = true
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '0' {
		fs.zero = true
		s = s[1:]
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 {
		fs.width, _ = strconv.Atoi(s[:i])
		s = s[i:]
	}
	if len(s) > 0 && (s[0] == ',' || s[0] == '_') {
		fs.grouping = s[0]
		s = s[1:]
	}
	if len(s) > 0 && s[0] == '.' {
		i = 1
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 1 {
			return fs, vm.valueError("Format specifier missing precision")
		}
		fs.precision, _ = strconv.Atoi(s[1:i])
		s = s[i:]
	}
	if len(s) > 1 {
		return fs, vm.valueError("Invalid format specifier '%s'", spec)
	}
	if len(s) == 1 {
		fs.typ = s[0]
	}
	if fs.zero && fs.align == 0 {
		fs.fill, fs.align = '0', '='
	}
	return fs, nil
}

// format implements format(v, spec).
func (vm *VM) format(v Value, spec string) (string, error) {
	if inst, ok := v.(*Instance); ok {
		if m, ok := userMethod(inst, "__format__"); ok {
			res, err := vm.Call(vm.bindTo(m, inst, inst.Class), []Value{Str(spec)}, nil)
			if err != nil {
				return "", err
			}
			s, ok := res.(Str)
			if !ok {
				return "", vm.typeError("__format__ must return a str, not %s", TypeName(res))
			}
			return string(s), nil
		}
	}
	if spec == "" {
		return vm.Str(v)
	}
	fs, err := vm.parseSpec(spec)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case Bool:
		if fs.typ == 0 || fs.typ == 's' {
			return vm.formatStr(map[bool]string{true: "True", false: "False"}[bool(x)], fs)
		}
		return vm.formatInt(boolToInt(bool(x)), fs)
	case Int:
		return vm.formatInt(int64(x), fs)
	case Float:
		return vm.formatFloat(float64(x), fs)
	case Str:
		return vm.formatStr(string(x), fs)
	}
	return "", vm.typeError("unsupported format string passed to %s.__format__", TypeName(v))
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (vm *VM) formatStr(s string, fs formatSpec) (string, error) {
	if fs.typ != 0 && fs.typ != 's' {
		return "", vm.valueError("Unknown format code '%c' for object of type 'str'", fs.typ)
	}
	if fs.sign != 0 {
		return "", vm.valueError("Sign not allowed in string format specifier")
	}
	if fs.align == '=' {
		return "", vm.valueError("'=' alignment not allowed in string format specifier")
	}
	if fs.precision >= 0 {
		if runes := []rune(s); len(runes) > fs.precision {
			s = string(runes[:fs.precision])
		}
	}
	return pad("", s, fs, '<'), nil
}

func (vm *VM) formatInt(n int64, fs formatSpec) (string, error) {
	switch fs.typ {
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		return vm.formatFloat(float64(n), fs)
	}
	if fs.precision >= 0 {
		return "", vm.valueError("Precision not allowed in integer format specifier")
	}
	neg := n < 0
	mag := uint64(n)
	if neg {
		mag = -mag
	}
	var digits, prefix string
	switch fs.typ {
	case 0, 'd', 'n':
		digits = strconv.FormatUint(mag, 10)
	case 'b':
		digits, prefix = strconv.FormatUint(mag, 2), "0b"
	case 'o':
		digits, prefix = strconv.FormatUint(mag, 8), "0o"
	case 'x':
		digits, prefix = strconv.FormatUint(mag, 16), "0x"
	case 'X':
		digits, prefix = strings.ToUpper(strconv.FormatUint(mag, 16)), "0X"
	case 'c':
		if n < 0 || n > utf8.MaxRune {
			return "", vm.raise(OverflowErrorClass, "%%c arg not in range(0x110000)")
		}
		return pad("", string(rune(n)), fs, '<'), nil
	default:
		return "", vm.valueError("Unknown format code '%c' for object of type 'int'", fs.typ)
	}
	if fs.grouping != 0 {
		every := 3
		if fs.typ != 0 && fs.typ != 'd' && fs.typ != 'n' {
			every = 4
		}
		digits = group(digits, every, fs.grouping)
	}
	if !fs.alt {
		prefix = ""
	}
	return pad(signOf(neg, fs.sign)+prefix, digits, fs, '>'), nil
}

func signOf(neg bool, sign byte) string {
	switch {
	case neg:
		return "-"
	case sign == '+':
		return "+"
	case sign == ' ':
		return " "
	}
	return ""
}

func (vm *VM) formatFloat(f float64, fs formatSpec) (string, error) {
	neg := math.Signbit(f) && !math.IsNaN(f)
	mag := math.Abs(f)
	prec := fs.precision
	var body string
	switch fs.typ {
	case 'f', 'F', '%':
		if prec < 0 {
			prec = 6
		}
		if fs.typ == '%' {
			mag *= 100
		}
		body = strconv.FormatFloat(mag, 'f', prec, 64)
		if fs.alt && prec == 0 {
			body += "."
		}
		if fs.typ == '%' {
			body += "%"
		}
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(mag, 'e', prec, 64)
	case 'g', 'G', 'n':
		if prec < 0 {
			prec = 6
		}
		if prec == 0 {
			prec = 1
		}
		body = strconv.FormatFloat(mag, 'g', prec, 64)
	case 0:
		if prec < 0 {
			body = floatRepr(mag)
		} else {
			body = strconv.FormatFloat(mag, 'g', max(prec, 1), 64)
			if !strings.ContainsAny(body, ".e") && !math.IsInf(mag, 0) && !math.IsNaN(mag) {
				body += ".0"
			}
		}
	default:
		return "", vm.valueError("Unknown format code '%c' for object of type 'float'", fs.typ)
	}
	switch {
	case math.IsNaN(f):
		body = "nan"
	case math.IsInf(f, 0):
		body = "inf"
		if fs.typ == '%' {
			body += "%"
		}
	}
	if fs.typ == 'E' || fs.typ == 'F' || fs.typ == 'G' {
		body = strings.ToUpper(body)
	}
	if fs.grouping != 0 {
		intPart, rest := body, ""
		if i := strings.IndexAny(body, ".e%"); i >= 0 {
			intPart, rest = body[:i], body[i:]
		}
		body = group(intPart, 3, fs.grouping) + rest
	}
	return pad(signOf(neg, fs.sign), body, fs, '>'), nil
}

// group inserts sep every n digits from the right.
func group(digits string, n int, sep byte) string {
	if len(digits) <= n {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % n
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += n {
		if sb.Len() > 0 {
			sb.WriteByte(sep)
		}
		sb.WriteString(digits[i : i+n])
	}
	return sb.String()
}

// pad applies width, fill and alignment. sign is kept left of '=' padding.
func pad(sign, body string, fs formatSpec, defAlign byte) string {
	n := utf8.RuneCountInString(sign) + utf8.RuneCountInString(body)
	if fs.width <= n {
		return sign + body
	}
	fill := strings.Repeat(string(fs.fill), fs.width-n)
	align := fs.align
	if align == 0 {
		align = defAlign
	}
	switch align {
	case '<':
		return sign + body + fill
	case '^':
		left := (fs.width - n) / 2
		lf := strings.Repeat(string(fs.fill), left)
		rf := strings.Repeat(string(fs.fill), fs.width-n-left)
		return lf + sign + body + rf
	case '=':
		return sign + fill + body
	}
	return fill + sign + body
}

// percentFormat implements str % args.
func (vm *VM) percentFormat(format string, arg Value) (string, error) {
	var args []Value
	var mapping *Dict
	switch a := arg.(type) {
	case *Tuple:
		args = a.Items
	case *Dict:
		mapping = a
		args = []Value{a}
	default:
		args = []Value{arg}
	}
	next := 0
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return "", vm.valueError("incomplete format")
		}
		var val Value
		if format[i] == '(' {
			end := strings.IndexByte(format[i:], ')')
			if end < 0 {
				return "", vm.valueError("incomplete format key")
			}
			if mapping == nil {
				return "", vm.typeError("format requires a mapping")
			}
			key := Str(format[i+1 : i+end])
			v, ok, err := mapping.Get(vm, key)
			if err != nil {
				return "", err
			}
			if !ok {
				return "", vm.newException(KeyErrorClass, key)
			}
			val = v
			i += end + 1
		}
		fs := formatSpec{fill: ' ', precision: -1}
	flags:
		for ; i < len(format); i++ {
			switch format[i] {
			case '-':
				fs.align = '<'
			case '+':
				fs.sign = '+'
			case ' ':
				if fs.sign == 0 {
					fs.sign = ' '
				}
			case '#':
				fs.alt = true
			case '0':
				fs.zero = true
			default:
				break flags
			}
		}
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			fs.width = fs.width*10 + int(format[i]-'0')
			i++
		}
		if i < len(format) && format[i] == '.' {
			i++
			fs.precision = 0
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				fs.precision = fs.precision*10 + int(format[i]-'0')
				i++
			}
		}
		if i >= len(format) {
			return "", vm.valueError("incomplete format")
		}
		conv := format[i]
		if conv == '%' {
			sb.WriteByte('%')
			continue
		}
		if val == nil {
			if next >= len(args) {
				return "", vm.typeError("not enough arguments for format string")
			}
			val = args[next]
			next++
		}
		if fs.zero && fs.align == 0 {
			fs.fill, fs.align = '0', '='
		}
		s, err := vm.percentOne(conv, val, fs)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	if mapping == nil && next < len(args) {
		return "", vm.typeError("not all arguments converted during string formatting")
	}
	return sb.String(), nil
}

func (vm *VM) percentOne(conv byte, val Value, fs formatSpec) (string, error) {
	switch conv {
	case 's', 'r', 'a':
		var s string
		var err error
		switch conv {
		case 's':
			s, err = vm.Str(val)
		case 'r':
			s, err = vm.Repr(val)
		default:
			s, err = vm.Repr(val)
			s = asciiEscape(s)
		}
		if err != nil {
			return "", err
		}
		if fs.precision >= 0 {
			if runes := []rune(s); len(runes) > fs.precision {
				s = string(runes[:fs.precision])
			}
		}
		if fs.align == '=' {
			fs.fill, fs.align = ' ', '>'
		}
		return pad("", s, fs, '>'), nil
	case 'd', 'i', 'u', 'x', 'X', 'o':
		var n int64
		switch x := val.(type) {
		case Float:
			t, ok := floatToInt(float64(x))
			if !ok {
				return "", vm.raise(OverflowErrorClass, "cannot convert float infinity to integer")
			}
			n = t
		default:
			i, ok := asInt(val)
			if !ok {
				return "", vm.typeError("%%%c format: a real number is required, not %s", conv, TypeName(val))
			}
			n = i
		}
		fs.typ = conv
		if conv == 'i' || conv == 'u' {
			fs.typ = 'd'
		}
		prec := fs.precision
		fs.precision = -1
		s, err := vm.formatInt(n, fs)
		if err != nil || prec <= 0 {
			return s, err
		}
		return zeroPadDigits(s, prec), nil
	case 'e', 'E', 'f', 'F', 'g', 'G':
		f, ok := asFloat(val)
		if !ok {
			return "", vm.typeError("must be real number, not %s", TypeName(val))
		}
		fs.typ = conv
		return vm.formatFloat(f, fs)
	case 'c':
		switch x := val.(type) {
		case Str:
			if strLen(string(x)) != 1 {
				return "", vm.typeError("%%c requires an int or a unicode character, not a string of length %d", strLen(string(x)))
			}
			return pad("", string(x), fs, '>'), nil
		case Int:
			fs.typ = 'c'
			return vm.formatInt(int64(x), fs)
		}
		return "", vm.typeError("%%c requires an int or a unicode character, not %s", TypeName(val))
	}
	return "", vm.valueError("unsupported format character '%c' (0x%x)", conv, conv)
}

// zeroPadDigits widens the digit run of an already formatted integer to
// at least prec digits.
func zeroPadDigits(s string, prec int) string {
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return s
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end-start >= prec {
		return s
	}
	return s[:start] + strings.Repeat("0", prec-(end-start)) + s[start:]
}

// strFormat implements str.format.
func (vm *VM) strFormat(format string, args []Value, kwargs []KwArg) (string, error) {
	var sb strings.Builder
	auto := 0
	manual := false
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '}' {
			if i+1 < len(format) && format[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", vm.valueError("Single '}' encountered in format string")
		}
		if c != '{' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '{' {
			sb.WriteByte('{')
			i++
			continue
		}
		depth, j := 1, i+1
		for j < len(format) && depth > 0 {
			switch format[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			j++
		}
		if depth > 0 {
			return "", vm.valueError("expected '}' before end of string")
		}
		field := format[i+1 : j-1]
		i = j - 1

		spec := ""
		if k := strings.IndexByte(field, ':'); k >= 0 {
			field, spec = field[:k], field[k+1:]
		}
		var conv byte
		if k := strings.IndexByte(field, '!'); k >= 0 {
			if k+2 != len(field) {
				return "", vm.valueError("expected ':' after conversion specifier")
			}
			field, conv = field[:k], field[k+1]
		}
		name, rest := field, ""
		if k := strings.IndexAny(field, ".["); k >= 0 {
			name, rest = field[:k], field[k:]
		}
		var val Value
		switch {
		case name == "":
			if manual {
				return "", vm.valueError("cannot switch from manual field specification to automatic field numbering")
			}
			if auto >= len(args) {
				return "", vm.raise(IndexErrorClass, "Replacement index %d out of range for positional args tuple", auto)
			}
			val = args[auto]
			auto++
		case name[0] >= '0' && name[0] <= '9':
			if auto > 0 {
				return "", vm.valueError("cannot switch from automatic field numbering to manual field specification")
			}
			manual = true
			idx, err := strconv.Atoi(name)
			if err != nil || idx >= len(args) {
				return "", vm.raise(IndexErrorClass, "Replacement index %s out of range for positional args tuple", name)
			}
			val = args[idx]
		default:
			found := false
			for _, kw := range kwargs {
				if kw.Name == name {
					val, found = kw.Value, true
				}
			}
			if !found {
				return "", vm.newException(KeyErrorClass, Str(name))
			}
		}
		val, err := vm.formatField(val, rest)
		if err != nil {
			return "", err
		}
		switch conv {
		case 0:
		case 's', 'r', 'a':
			var s string
			if conv == 's' {
				s, err = vm.Str(val)
			} else {
				s, err = vm.Repr(val)
			}
			if err != nil {
				return "", err
			}
			if conv == 'a' {
				s = asciiEscape(s)
			}
			val = Str(s)
		default:
			return "", vm.valueError("Unknown conversion specifier %c", conv)
		}
		if strings.ContainsRune(spec, '{') {
			if spec, err = vm.strFormatNested(spec, args, kwargs, &auto, manual); err != nil {
				return "", err
			}
		}
		s, err := vm.format(val, spec)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// strFormatNested expands replacement fields inside a format spec.
func (vm *VM) strFormatNested(spec string, args []Value, kwargs []KwArg, auto *int, manual bool) (string, error) {
	if manual {
		return vm.strFormat(spec, args, kwargs)
	}
	shifted := args[min(*auto, len(args)):]
	n := strings.Count(spec, "{}")
	out, err := vm.strFormat(spec, shifted, kwargs)
	*auto += n
	return out, err
}

// formatField follows .attr and [key] accessors of a replacement field.
func (vm *VM) formatField(v Value, rest string) (Value, error) {
	for rest != "" {
		switch rest[0] {
		case '.':
			end := strings.IndexAny(rest[1:], ".[")
			if end < 0 {
				end = len(rest) - 1
			}
			attr := rest[1 : end+1]
			rest = rest[end+1:]
			var err error
			if v, err = vm.getAttr(v, attr); err != nil {
				return nil, err
			}
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, vm.valueError("Missing ']' in format string")
			}
			key := rest[1:end]
			rest = rest[end+1:]
			var idx Value = Str(key)
			if n, err := strconv.ParseInt(key, 10, 64); err == nil {
				idx = Int(n)
			}
			var err error
			if v, err = vm.getItem(v, idx); err != nil {
				return nil, err
			}
		default:
			return nil, vm.valueError("Only '.' or '[' may follow ']' in format field specifier")
		}
	}
	return v, nil
}
