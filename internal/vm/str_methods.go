package vm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type strMethod func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error)

func init() {
	def := func(name string, fn strMethod) {
		StrClass.defMethod(name, func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			self, rest, err := selfArg[Str](vm, StrClass, name, args)
			if err != nil {
				return nil, err
			}
			return fn(vm, string(self), rest, kwargs)
		})
	}
	for name, c := range map[string]func() cases.Caser{
		"upper":    func() cases.Caser { return cases.Upper(language.Und) },
		"lower":    func() cases.Caser { return cases.Lower(language.Und) },
		"casefold": func() cases.Caser { return cases.Fold() },
	} {
		def(name, simple("str."+name, func(s string) string { return c().String(s) }))
	}
	def("title", simple("str.title", title))
	def("capitalize", simple("str.capitalize", capitalize))
	def("swapcase", simple("str.swapcase", swapcase))
	for name, pred := range map[string]func(rune) bool{
		"isdigit":   unicode.IsDigit,
		"isdecimal": unicode.IsDigit,
		"isnumeric": unicode.IsNumber,
		"isalpha":   unicode.IsLetter,
		"isalnum":   func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) },
		"isspace":   unicode.IsSpace,
	} {
		def(name, func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.argc("str."+name, args, 0, 0); err != nil {
				return nil, err
			}
			return Bool(s != "" && strings.IndexFunc(s, func(r rune) bool { return !pred(r) }) < 0), nil
		})
	}
	def("isupper", casedCheck("str.isupper", unicode.IsLower))
	def("islower", casedCheck("str.islower", unicode.IsUpper))
	def("isidentifier", func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.argc("str.isidentifier", args, 0, 0); err != nil {
			return nil, err
		}
		return Bool(isIdentifier(s)), nil
	})
	def("strip", strStrip(strings.TrimFunc, strings.Trim))
	def("lstrip", strStrip(strings.TrimLeftFunc, strings.TrimLeft))
	def("rstrip", strStrip(strings.TrimRightFunc, strings.TrimRight))
	def("split", strSplit)
	def("rsplit", strRSplit)
	def("splitlines", strSplitLines)
	def("join", strJoin)
	def("replace", strReplace)
	def("startswith", affix("startswith", strings.HasPrefix))
	def("endswith", affix("endswith", strings.HasSuffix))
	def("find", search("find", false, false))
	def("rfind", search("rfind", true, false))
	def("index", search("index", false, true))
	def("rindex", search("rindex", true, true))
	def("count", strCount)
	def("partition", partition(false))
	def("rpartition", partition(true))
	def("removeprefix", func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		p, err := oneStr(vm, "removeprefix", args, kwargs)
		return Str(strings.TrimPrefix(s, p)), err
	})
	def("removesuffix", func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		p, err := oneStr(vm, "removesuffix", args, kwargs)
		return Str(strings.TrimSuffix(s, p)), err
	})
	def("zfill", strZfill)
	def("center", justify("center"))
	def("ljust", justify("ljust"))
	def("rjust", justify("rjust"))
	def("format", func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		out, err := vm.strFormat(s, args, kwargs)
		return Str(out), err
	})
	def("__len__", func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		return Int(strLen(s)), nil
	})
}

func simple(name string, fn func(string) string) strMethod {
	return func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := vm.argc(name, args, 0, 0); err != nil {
			return nil, err
		}
		return Str(fn(s)), nil
	}
}

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}

// title uppercases the first cased rune of every run of cased runes and
// lowercases the rest, so "they're 3rd" becomes "They'Re 3Rd".
func title(s string) string {
	var sb strings.Builder
	prevCased := false
	for _, r := range s {
		if prevCased {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(unicode.ToTitle(r))
		}
		prevCased = isCased(r)
	}
	return sb.String()
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToTitle(r)) + cases.Lower(language.Und).String(s[n:])
}

func swapcase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return unicode.ToLower(r)
		case unicode.IsLower(r):
			return unicode.ToUpper(r)
		}
		return r
	}, s)
}

// casedCheck reports true when s has a cased rune and none matching reject.
func casedCheck(name string, reject func(rune) bool) strMethod {
	return func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.argc(name, args, 0, 0); err != nil {
			return nil, err
		}
		cased := false
		for _, r := range s {
			if reject(r) || unicode.IsTitle(r) {
				return Bool(false), nil
			}
			cased = cased || isCased(r)
		}
		return Bool(cased), nil
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && (unicode.IsDigit(r) || unicode.Is(unicode.Mn, r))) {
			continue
		}
		return false
	}
	return true
}

// strArgOf returns v as a Go string with the generic message CPython uses
// for str method arguments.
func (vm *VM) strArgOf(v Value) (string, error) {
	s, ok := v.(Str)
	if !ok {
		return "", vm.typeError("must be str, not %s", TypeName(v))
	}
	return string(s), nil
}

func oneStr(vm *VM, name string, args []Value, kwargs []KwArg) (string, error) {
	if err := vm.noKwargs("str."+name, kwargs); err != nil {
		return "", err
	}
	if err := vm.argc("str."+name, args, 1, 1); err != nil {
		return "", err
	}
	return vm.strArgOf(args[0])
}

func strStrip(byFunc func(string, func(rune) bool) string, byChars func(string, string) string) strMethod {
	return func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.argc("strip", args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 || args[0] == None {
			return Str(byFunc(s, unicode.IsSpace)), nil
		}
		chars, ok := args[0].(Str)
		if !ok {
			return nil, vm.typeError("strip arg must be None or str")
		}
		return Str(byChars(s, string(chars))), nil
	}
}

// splitArgs parses (sep=None, maxsplit=-1).
func (vm *VM) splitArgs(name string, args []Value, kwargs []KwArg) (sep string, hasSep bool, maxSplit int, err error) {
	kw, err := vm.kwargsOnly(name, kwargs, "sep", "maxsplit")
	if err != nil {
		return "", false, 0, err
	}
	if err := vm.argc(name, args, 0, 2); err != nil {
		return "", false, 0, err
	}
	if v := optArg(args, 0, kw, "sep", None); v != None {
		s, ok := v.(Str)
		if !ok {
			return "", false, 0, vm.typeError("must be str or None, not %s", TypeName(v))
		}
		if s == "" {
			return "", false, 0, vm.valueError("empty separator")
		}
		sep, hasSep = string(s), true
	}
	n, err := vm.intArg(optArg(args, 1, kw, "maxsplit", Int(-1)))
	if err != nil {
		return "", false, 0, err
	}
	return sep, hasSep, int(n), nil
}

func strList(parts []string) *List {
	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = Str(p)
	}
	return NewList(items)
}

func strSplit(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
	sep, hasSep, maxSplit, err := vm.splitArgs("split", args, kwargs)
	if err != nil {
		return nil, err
	}
	if hasSep {
		n := -1
		if maxSplit >= 0 {
			n = maxSplit + 1
		}
		return strList(strings.SplitN(s, sep, n)), nil
	}
	var out []string
	rest := s
	for {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			break
		}
		if maxSplit == 0 {
			out = append(out, rest)
			break
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}
		out = append(out, rest[:end])
		rest = rest[end:]
		maxSplit--
	}
	return strList(out), nil
}

func strRSplit(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
	sep, hasSep, maxSplit, err := vm.splitArgs("rsplit", args, kwargs)
	if err != nil {
		return nil, err
	}
	var out []string
	rest := s
	for {
		if !hasSep {
			rest = strings.TrimRightFunc(rest, unicode.IsSpace)
			if rest == "" {
				break
			}
		}
		if maxSplit == 0 {
			out = append(out, rest)
			break
		}
		var start, cut int
		if hasSep {
			cut = strings.LastIndex(rest, sep)
			if cut < 0 {
				out = append(out, rest)
				break
			}
			start = cut + len(sep)
		} else {
			cut = strings.LastIndexFunc(rest, unicode.IsSpace)
			if cut < 0 {
				out = append(out, rest)
				break
			}
			_, n := utf8.DecodeRuneInString(rest[cut:])
			start = cut + n
		}
		out = append(out, rest[start:])
		rest = rest[:cut]
		maxSplit--
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return strList(out), nil
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}

func strSplitLines(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
	kw, err := vm.kwargsOnly("splitlines", kwargs, "keepends")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("splitlines", args, 0, 1); err != nil {
		return nil, err
	}
	keep, err := vm.truthy(optArg(args, 0, kw, "keepends", Bool(false)))
	if err != nil {
		return nil, err
	}
	var out []string
	for s != "" {
		i := strings.IndexFunc(s, isLineBreak)
		if i < 0 {
			out = append(out, s)
			break
		}
		_, n := utf8.DecodeRuneInString(s[i:])
		if strings.HasPrefix(s[i:], "\r\n") {
			n = 2
		}
		if keep {
			out = append(out, s[:i+n])
		} else {
			out = append(out, s[:i])
		}
		s = s[i+n:]
	}
	return strList(out), nil
}

func strJoin(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("str.join", args, 1, 1); err != nil {
		return nil, err
	}
	if !vm.isIterable(args[0]) {
		return nil, vm.typeError("can only join an iterable")
	}
	items, err := vm.toSlice(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, it := range items {
		p, ok := it.(Str)
		if !ok {
			return nil, vm.typeError("sequence item %d: expected str instance, %s found", i, TypeName(it))
		}
		parts[i] = string(p)
	}
	return Str(strings.Join(parts, s)), nil
}

func strReplace(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
	kw, err := vm.kwargsOnly("replace", kwargs, "count")
	if err != nil {
		return nil, err
	}
	if err := vm.argc("replace", args, 2, 3); err != nil {
		return nil, err
	}
	old, err := vm.strArgOf(args[0])
	if err != nil {
		return nil, err
	}
	repl, err := vm.strArgOf(args[1])
	if err != nil {
		return nil, err
	}
	n, err := vm.intArg(optArg(args, 2, kw, "count", Int(-1)))
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = -1
	}
	out := strings.Replace(s, old, repl, int(n))
	if err := vm.checkGrowth(len(out)); err != nil {
		return nil, err
	}
	return Str(out), nil
}

// window returns the code points of s between start and end; ok is false
// when start lies past end.
func window(s string, start, end int) (string, bool) {
	if start > end {
		return "", false
	}
	if isASCII(s) {
		return s[start:end], true
	}
	rs := []rune(s)
	return string(rs[start:end]), true
}

func affix(name string, match func(s, fix string) bool) strMethod {
	return func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := vm.argc(name, args, 1, 3); err != nil {
			return nil, err
		}
		start, end, err := vm.bounds(args[1:], strLen(s))
		if err != nil {
			return nil, err
		}
		var fixes []Value
		switch x := args[0].(type) {
		case Str:
			fixes = []Value{x}
		case *Tuple:
			fixes = x.Items
		default:
			return nil, vm.typeError("%s first arg must be str or a tuple of str, not %s", name, TypeName(args[0]))
		}
		sub, ok := window(s, start, end)
		for _, f := range fixes {
			fs, isStr := f.(Str)
			if !isStr {
				return nil, vm.typeError("tuple for %s must only contain str, not %s", name, TypeName(f))
			}
			if ok && match(sub, string(fs)) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}
}

// find locates sub within s[start:end] and returns a code point index or -1.
func (vm *VM) find(name string, s string, args []Value, last bool) (int, error) {
	if err := vm.argc(name, args, 1, 3); err != nil {
		return 0, err
	}
	sub, err := vm.strArgOf(args[0])
	if err != nil {
		return 0, err
	}
	start, end, err := vm.bounds(args[1:], strLen(s))
	if err != nil {
		return 0, err
	}
	w, ok := window(s, start, end)
	if !ok {
		return -1, nil
	}
	var i int
	if last {
		i = strings.LastIndex(w, sub)
	} else {
		i = strings.Index(w, sub)
	}
	if i < 0 {
		return -1, nil
	}
	return start + strLen(w[:i]), nil
}

func search(name string, last, strict bool) strMethod {
	return func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		i, err := vm.find(name, s, args, last)
		if err != nil {
			return nil, err
		}
		if i < 0 && strict {
			return nil, vm.valueError("substring not found")
		}
		return Int(i), nil
	}
}

func strCount(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.noKwargs("count", kwargs); err != nil {
		return nil, err
	}
	if err := vm.argc("count", args, 1, 3); err != nil {
		return nil, err
	}
	sub, err := vm.strArgOf(args[0])
	if err != nil {
		return nil, err
	}
	start, end, err := vm.bounds(args[1:], strLen(s))
	if err != nil {
		return nil, err
	}
	w, ok := window(s, start, end)
	if !ok {
		return Int(0), nil
	}
	return Int(strings.Count(w, sub)), nil
}

func partition(last bool) strMethod {
	name := "partition"
	if last {
		name = "rpartition"
	}
	return func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		sep, err := oneStr(vm, name, args, kwargs)
		if err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, vm.valueError("empty separator")
		}
		var i int
		if last {
			i = strings.LastIndex(s, sep)
		} else {
			i = strings.Index(s, sep)
		}
		if i < 0 {
			if last {
				return NewTuple(Str(""), Str(""), Str(s)), nil
			}
			return NewTuple(Str(s), Str(""), Str("")), nil
		}
		return NewTuple(Str(s[:i]), Str(sep), Str(s[i+len(sep):])), nil
	}
}

func strZfill(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("str.zfill", args, 1, 1); err != nil {
		return nil, err
	}
	width, err := vm.intArg(args[0])
	if err != nil {
		return nil, err
	}
	n := strLen(s)
	if int64(n) >= width {
		return Str(s), nil
	}
	if err := vm.checkGrowth(int(width)); err != nil {
		return nil, err
	}
	fill := strings.Repeat("0", int(width)-n)
	if s != "" && (s[0] == '+' || s[0] == '-') {
		return Str(s[:1] + fill + s[1:]), nil
	}
	return Str(fill + s), nil
}

func justify(name string) strMethod {
	return func(vm *VM, s string, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := vm.argc(name, args, 1, 2); err != nil {
			return nil, err
		}
		width, err := vm.intArg(args[0])
		if err != nil {
			return nil, err
		}
		fill := " "
		if len(args) == 2 {
			f, ok := args[1].(Str)
			if !ok {
				return nil, vm.typeError("The fill character must be a unicode character, not %s", TypeName(args[1]))
			}
			if strLen(string(f)) != 1 {
				return nil, vm.typeError("The fill character must be exactly one character long")
			}
			fill = string(f)
		}
		n := strLen(s)
		if int64(n) >= width {
			return Str(s), nil
		}
		if err := vm.checkGrowth(int(width)); err != nil {
			return nil, err
		}
		marg := int(width) - n
		var left int
		switch name {
		case "ljust":
			left = 0
		case "rjust":
			left = marg
		default:
			left = marg/2 + (marg & int(width) & 1)
		}
		return Str(strings.Repeat(fill, left) + s + strings.Repeat(fill, marg-left)), nil
	}
}
