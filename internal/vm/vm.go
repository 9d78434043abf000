package vm

import (
	"bufio"
	"context"
	"io"
	"math/rand/v2"

	"pytrace/internal/ast"
	"pytrace/internal/source"
)

const (
	DefaultMaxDepth    = 1000
	DefaultMaxSequence = 10_000_000

	// pollInterval is how many statements run between context checks.
	pollInterval = 128
)

// Options configures an interpreter instance.
type Options struct {
	// MaxDepth bounds the call depth; exceeding it raises RecursionError.
	MaxDepth int
	// MaxSequence bounds sequence repetition and materialisation; exceeding
	// it raises MemoryError.
	MaxSequence int
	// Seed initialises the random module.
	Seed   uint64
	Stdin  io.Reader
	Stdout io.Writer
	// ImportDir is searched for sibling modules; empty disables file imports.
	ImportDir string
}

// VM interprets parsed modules.
type VM struct {
	Files *source.FileSet

	opts     Options
	builtins *Namespace
	modules  map[string]*Module
	main     *Module

	stdout io.Writer
	stdin  *bufio.Reader

	hook    Hook
	hookOff int

	frame *Frame
	depth int
	ctx   context.Context
	ticks uint64

	ids    map[Value]uint64
	nextID uint64
	rng    *rand.Rand

	handling []*Exception
	reprBusy map[Value]bool
	infos    map[ast.Node]*scopeInfo
}

// New creates an interpreter sharing files with the caller.
func New(files *source.FileSet, opts Options) *VM {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxSequence <= 0 {
		opts.MaxSequence = DefaultMaxSequence
	}
	if files == nil {
		files = source.NewFileSet()
	}
	vm := &VM{
		Files:    files,
		opts:     opts,
		modules:  make(map[string]*Module),
		stdout:   opts.Stdout,
		ids:      make(map[Value]uint64),
		reprBusy: make(map[Value]bool),
		infos:    make(map[ast.Node]*scopeInfo),
		ctx:      context.Background(),
	}
	if vm.stdout == nil {
		vm.stdout = io.Discard
	}
	if opts.Stdin != nil {
		vm.stdin = bufio.NewReader(opts.Stdin)
	}
	vm.reseed(opts.Seed)
	vm.builtins = newBuiltins()
	return vm
}

// SetHook installs the line hook.
func (vm *VM) SetHook(h Hook) { vm.hook = h }

// ClearHook removes the line hook.
func (vm *VM) ClearHook() { vm.hook = nil }

// WithoutHook runs fn with line events suppressed.
func (vm *VM) WithoutHook(fn func()) {
	vm.hookOff++
	defer func() { vm.hookOff-- }()
	fn()
}

// SetStdout replaces the writer print() uses and returns the previous one.
func (vm *VM) SetStdout(w io.Writer) io.Writer {
	prev := vm.stdout
	if w == nil {
		w = io.Discard
	}
	vm.stdout = w
	return prev
}

// Globals returns the __main__ namespace of the last run.
func (vm *VM) Globals() *Namespace {
	if vm.main == nil {
		return nil
	}
	return vm.main.Dict
}

// Run executes mod as __main__. It returns nil on success, an *Exception
// for an uncaught script exception, or the error that halted execution
// (a hook error, a context error or a stdout write error). The hook is
// removed before Run returns an error.
func (vm *VM) Run(ctx context.Context, mod *ast.Module) error {
	if ctx != nil {
		vm.ctx = ctx
	}
	if err := vm.ctx.Err(); err != nil {
		return err
	}
	path := ""
	if mod.File != nil {
		path = mod.File.Path
	}
	vm.main = &Module{Name: "__main__", Path: path, Dict: NewNamespace()}
	vm.main.Dict.Set("__name__", Str("__main__"))
	vm.main.Dict.Set("__file__", Str(path))
	vm.modules["__main__"] = vm.main
	err := vm.execModule(vm.main, mod)
	if err != nil {
		vm.hook = nil
	}
	return err
}

func (vm *VM) execModule(m *Module, mod *ast.Module) error {
	if mod.Doc {
		if es, ok := mod.Body[0].(*ast.ExprStmt); ok {
			if s, ok := es.Value.(*ast.StrLit); ok {
				m.Dict.Set("__doc__", Str(s.Value))
			}
		}
	} else {
		m.Dict.Set("__doc__", None)
	}
	fr := &Frame{name: "<module>", file: mod.File, scope: newModuleScope(m.Dict)}
	if err := vm.pushFrame(fr); err != nil {
		return err
	}
	defer vm.popFrame()
	_, err := vm.execBody(fr, mod.Body, mod.Doc)
	return err
}

// tick counts an executed statement and polls the context periodically.
func (vm *VM) tick() error {
	vm.ticks++
	if vm.ticks%pollInterval == 0 {
		return vm.ctx.Err()
	}
	return nil
}

// write sends text to the script's stdout. Write failures halt execution.
func (vm *VM) write(s string) error {
	_, err := io.WriteString(vm.stdout, s)
	return err
}

// objectID returns a stable identity number for v.
func (vm *VM) objectID(v Value) uint64 {
	if id, ok := vm.ids[v]; ok {
		return id
	}
	vm.nextID++
	id := uint64(0x7f3a5c000000) + vm.nextID*0x30
	vm.ids[v] = id
	return id
}

// scopeInfoFor caches static analysis per definition node.
func (vm *VM) scopeInfoFor(n ast.Node, build func() *scopeInfo) *scopeInfo {
	if si, ok := vm.infos[n]; ok {
		return si
	}
	si := build()
	vm.infos[n] = si
	return si
}
