package vm

import (
	"errors"
	"io/fs"
	"math"
	"math/rand/v2"
	"path/filepath"

	"pytrace/internal/parser"
)

// importModule returns the named module, loading a builtin module or a
// sibling source file on first use.
func (vm *VM) importModule(name string) (*Module, error) {
	if m, ok := vm.modules[name]; ok {
		return m, nil
	}
	var m *Module
	switch name {
	case "math":
		m = vm.mathModule()
	case "random":
		m = vm.randomModule()
	default:
		return vm.importFile(name)
	}
	vm.modules[name] = m
	return m, nil
}

// importFile loads <ImportDir>/<name>.py. The module is cached before its
// body runs so circular imports see the partially initialised module.
func (vm *VM) importFile(name string) (*Module, error) {
	notFound := func() error {
		exc := vm.raise(ModuleNotFoundErrorClass, "No module named '%s'", name)
		exc.Value.Dict.Set("name", Str(name))
		return exc
	}
	if vm.opts.ImportDir == "" {
		return nil, notFound()
	}
	path := filepath.Join(vm.opts.ImportDir, name+".py")
	id, err := vm.Files.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound()
	}
	if err != nil {
		return nil, vm.raise(ImportErrorClass, "cannot load module '%s': %v", name, err)
	}
	file := vm.Files.Get(id)
	res := parser.Parse(vm.Files, id)
	if res.Module == nil {
		msg, line := "invalid syntax", 0
		if res.Bag != nil {
			if d, ok := res.Bag.FirstError(); ok {
				msg = d.Message
				start, _ := vm.Files.Resolve(d.Primary)
				line = int(start.Line)
			}
		}
		return nil, vm.raise(SyntaxErrorClass, "%s (%s, line %d)", msg, filepath.Base(file.Path), line)
	}
	m := &Module{Name: name, Path: file.Path, Dict: NewNamespace()}
	m.Dict.Set("__name__", Str(name))
	m.Dict.Set("__file__", Str(file.Path))
	vm.modules[name] = m
	if err := vm.execModule(m, res.Module); err != nil {
		delete(vm.modules, name)
		return nil, err
	}
	return m, nil
}

func newBuiltinModule(name string, fns map[string]BuiltinFunc) *Module {
	m := &Module{Name: name, Dict: NewNamespace()}
	m.Dict.Set("__name__", Str(name))
	for fname, fn := range fns {
		m.Dict.Set(fname, builtin(fname, fn))
	}
	return m
}

// realArg converts a numeric argument of a math function to float64.
func (vm *VM) realArg(v Value) (float64, error) {
	if f, ok := asFloat(v); ok {
		return f, nil
	}
	if inst, ok := v.(*Instance); ok {
		if m, ok := userMethod(inst, "__float__"); ok {
			r, err := vm.Call(vm.bindTo(m, inst, inst.Class), nil, nil)
			if err != nil {
				return 0, err
			}
			if f, ok := r.(Float); ok {
				return float64(f), nil
			}
		}
	}
	return 0, vm.typeError("must be real number, not %s", TypeName(v))
}

// mathResult maps a NaN result of non-NaN inputs, or an infinite result of
// finite inputs, onto the errors the math module raises.
func (vm *VM) mathResult(res float64, in ...float64) (Value, error) {
	finite, nan := true, false
	for _, x := range in {
		finite = finite && !math.IsInf(x, 0) && !math.IsNaN(x)
		nan = nan || math.IsNaN(x)
	}
	switch {
	case math.IsNaN(res) && !nan:
		return nil, vm.valueError("math domain error")
	case math.IsInf(res, 0) && finite:
		return nil, vm.raise(OverflowErrorClass, "math range error")
	}
	return Float(res), nil
}

func unaryMath(name string, fn func(float64) float64) BuiltinFunc {
	return func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := vm.argc(name, args, 1, 1); err != nil {
			return nil, err
		}
		x, err := vm.realArg(args[0])
		if err != nil {
			return nil, err
		}
		return vm.mathResult(fn(x), x)
	}
}

// positive wraps fn so that inputs outside its domain raise instead of
// returning NaN or -inf.
func positive(fn func(float64) float64) func(float64) float64 {
	return func(x float64) float64 {
		if x <= 0 {
			return math.NaN()
		}
		return fn(x)
	}
}

// rounding implements math.floor and math.ceil, which return ints.
func rounding(name string, fn func(float64) float64) BuiltinFunc {
	return func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
		if err := vm.noKwargs(name, kwargs); err != nil {
			return nil, err
		}
		if err := vm.argc(name, args, 1, 1); err != nil {
			return nil, err
		}
		if n, ok := asInt(args[0]); ok {
			return Int(n), nil
		}
		x, err := vm.realArg(args[0])
		if err != nil {
			return nil, err
		}
		switch {
		case math.IsInf(x, 0):
			return nil, vm.raise(OverflowErrorClass, "cannot convert float infinity to integer")
		case math.IsNaN(x):
			return nil, vm.valueError("cannot convert float NaN to integer")
		}
		i, ok := floatToInt(fn(x))
		if !ok {
			return nil, vm.overflow()
		}
		return Int(i), nil
	}
}

func (vm *VM) mathModule() *Module {
	m := newBuiltinModule("math", map[string]BuiltinFunc{
		"sqrt":  unaryMath("sqrt", math.Sqrt),
		"fabs":  unaryMath("fabs", math.Abs),
		"sin":   unaryMath("sin", math.Sin),
		"cos":   unaryMath("cos", math.Cos),
		"tan":   unaryMath("tan", math.Tan),
		"log2":  unaryMath("log2", positive(math.Log2)),
		"log10": unaryMath("log10", positive(math.Log10)),
		"floor": rounding("floor", math.Floor),
		"ceil":  rounding("ceil", math.Ceil),
		"log":   mathLog,
		"pow":   mathPow,
		"gcd":   mathGCD,
		"isqrt": mathIsqrt,
		"factorial": func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.argc("factorial", args, 1, 1); err != nil {
				return nil, err
			}
			n, err := vm.intArg(args[0])
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, vm.valueError("factorial() not defined for negative values")
			}
			res := int64(1)
			for i := int64(2); i <= n; i++ {
				var ok bool
				if res, ok = mulChecked(res, i); !ok {
					return nil, vm.overflow()
				}
			}
			return Int(res), nil
		},
	})
	m.Dict.Set("pi", Float(math.Pi))
	m.Dict.Set("e", Float(math.E))
	m.Dict.Set("tau", Float(2*math.Pi))
	m.Dict.Set("inf", Float(math.Inf(1)))
	m.Dict.Set("nan", Float(math.NaN()))
	return m
}

func mathLog(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("log", args, 1, 2); err != nil {
		return nil, err
	}
	x, err := vm.realArg(args[0])
	if err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, vm.valueError("math domain error")
	}
	res := math.Log(x)
	if len(args) == 2 {
		b, err := vm.realArg(args[1])
		if err != nil {
			return nil, err
		}
		if b <= 0 {
			return nil, vm.valueError("math domain error")
		}
		if b == 1 {
			return nil, vm.raise(ZeroDivisionErrorClass, "float division by zero")
		}
		res /= math.Log(b)
	}
	return Float(res), nil
}

func mathPow(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("pow", args, 2, 2); err != nil {
		return nil, err
	}
	x, err := vm.realArg(args[0])
	if err != nil {
		return nil, err
	}
	y, err := vm.realArg(args[1])
	if err != nil {
		return nil, err
	}
	if x == 0 && y < 0 {
		return nil, vm.valueError("math domain error")
	}
	return vm.mathResult(math.Pow(x, y), x, y)
}

func mathGCD(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	var g int64
	for _, a := range args {
		n, err := vm.intArg(a)
		if err != nil {
			return nil, err
		}
		for n != 0 {
			g, n = n, g%n
		}
	}
	if g < 0 {
		if g == math.MinInt64 {
			return nil, vm.overflow()
		}
		g = -g
	}
	return Int(g), nil
}

func mathIsqrt(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
	if err := vm.argc("isqrt", args, 1, 1); err != nil {
		return nil, err
	}
	n, err := vm.intArg(args[0])
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, vm.valueError("isqrt() argument must be nonnegative")
	}
	r := int64(math.Sqrt(float64(n)))
	for r > 0 && r > n/r {
		r--
	}
	for r+1 <= n/(r+1) {
		r++
	}
	return Int(r), nil
}

func (vm *VM) reseed(seed uint64) {
	vm.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// randBelow returns a uniform value in [0, n); n must be positive.
func (vm *VM) randBelow(n int64) int64 { return vm.rng.Int64N(n) }

func (vm *VM) randomModule() *Module {
	return newBuiltinModule("random", map[string]BuiltinFunc{
		"seed": func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.argc("seed", args, 0, 1); err != nil {
				return nil, err
			}
			seed := vm.opts.Seed
			if len(args) == 1 && args[0] != None {
				h, err := vm.hashValue(args[0])
				if err != nil {
					return nil, err
				}
				seed = uint64(h)
			}
			vm.reseed(seed)
			return None, nil
		},
		"random": func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.argc("random", args, 0, 0); err != nil {
				return nil, err
			}
			return Float(vm.rng.Float64()), nil
		},
		"randint": func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.argc("randint", args, 2, 2); err != nil {
				return nil, err
			}
			b, err := vm.intArg(args[1])
			if err != nil {
				return nil, err
			}
			stop, ok := addChecked(b, 1)
			if !ok {
				return nil, vm.overflow()
			}
			return vm.randrange([]Value{args[0], Int(stop)})
		},
		"randrange": func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.noKwargs("randrange", kwargs); err != nil {
				return nil, err
			}
			if err := vm.argc("randrange", args, 1, 3); err != nil {
				return nil, err
			}
			return vm.randrange(args)
		},
		"choice": func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.argc("choice", args, 1, 1); err != nil {
				return nil, err
			}
			n, err := vm.length(args[0])
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, vm.raise(IndexErrorClass, "Cannot choose from an empty sequence")
			}
			return vm.getItem(args[0], Int(vm.randBelow(int64(n))))
		},
		"shuffle": func(vm *VM, args []Value, kwargs []KwArg) (Value, error) {
			if err := vm.argc("shuffle", args, 1, 1); err != nil {
				return nil, err
			}
			l, ok := args[0].(*List)
			if !ok {
				return nil, vm.typeError("'%s' object does not support item assignment", TypeName(args[0]))
			}
			for i := len(l.Items) - 1; i > 0; i-- {
				j := vm.randBelow(int64(i + 1))
				l.Items[i], l.Items[j] = l.Items[j], l.Items[i]
			}
			return None, nil
		},
	})
}

func (vm *VM) randrange(args []Value) (Value, error) {
	vals := make([]int64, len(args))
	for i, a := range args {
		n, err := vm.intArg(a)
		if err != nil {
			return nil, err
		}
		vals[i] = n
	}
	if len(vals) == 1 {
		if vals[0] > 0 {
			return Int(vm.randBelow(vals[0])), nil
		}
		return nil, vm.valueError("empty range in randrange(%d)", vals[0])
	}
	start, stop := vals[0], vals[1]
	width, ok := subChecked(stop, start)
	if !ok {
		return nil, vm.overflow()
	}
	if len(vals) == 2 || vals[2] == 1 {
		if width > 0 {
			return Int(start + vm.randBelow(width)), nil
		}
		if len(vals) == 2 {
			return nil, vm.valueError("empty range in randrange(%d, %d)", start, stop)
		}
		return nil, vm.valueError("empty range in randrange(%d, %d, 1)", start, stop)
	}
	step := vals[2]
	var n int64
	switch {
	case step > 0:
		n = (width + step - 1) / step
	case step < 0:
		n = (width + step + 1) / step
	default:
		return nil, vm.valueError("zero step for randrange()")
	}
	if n <= 0 {
		return nil, vm.valueError("empty range in randrange(%d, %d, %d)", start, stop, step)
	}
	return Int(start + step*vm.randBelow(n)), nil
}
