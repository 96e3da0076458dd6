// Package quickjs implements the PAC script backend on modernc.org/quickjs.
// Each activation gets its own VM, so tearing down a context releases the
// whole QuickJS runtime behind it.
package quickjs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cryguy/pacrunner/internal/core"
	"github.com/cryguy/pacrunner/internal/pacjs"
	"modernc.org/quickjs"
)

// Hidden, non-writable globals installed by preludeJS.
const (
	runnerName  = "__pacrunner_run__"
	binderName  = "__pacrunner_bind__"
	invokerName = "__pacrunner_call__"
)

// preludeJS runs in the fresh VM before any other code. It captures the
// intrinsics the runner, binder and invoker depend on, so nothing a script
// does to JSON, Reflect, Object or eval reaches the replies read by Go.
// Replies are built on null-prototype objects for the same reason.
const preludeJS = `(function(G) {
	var apply = Reflect.apply, stringify = JSON.stringify, S = String,
		create = Object.create, define = Object.defineProperty,
		geval = eval, SyntaxErr = SyntaxError;
	var entry = null;

	function failure(e) {
		var r = create(null);
		r.t = 'exception'; r.s = ''; r.l = 0;
		try { r.t = S(e); } catch (e2) {}
		try {
			if (e !== null && typeof e === 'object') {
				if (e.stack) r.s = S(e.stack);
				if (typeof e.lineNumber === 'number') r.l = e.lineNumber;
				if (e instanceof SyntaxErr) r.c = true;
			}
		} catch (e3) {}
		return stringify(r);
	}

	define(G, %[1]s, {value: function(src) {
		try { geval(src); } catch (e) { return failure(e); }
		return '{}';
	}});
	define(G, %[2]s, {value: function() {
		if (entry !== null) return 'ok';
		var fn = G[%[4]s];
		if (typeof fn === 'undefined') return 'missing';
		if (typeof fn !== 'function') return 'notfn';
		entry = fn;
		return 'ok';
	}});
	define(G, %[3]s, {value: function(url, host) {
		var r = create(null), v;
		if (entry === null) {
			r.n = 'undefined';
			return stringify(r);
		}
		try { v = apply(entry, G, [url, host]); } catch (e) { return failure(e); }
		if (typeof v === 'string') r.v = v; else r.n = typeof v;
		return stringify(r);
	}});
})(globalThis)`

var prelude = fmt.Sprintf(preludeJS,
	strconv.Quote(runnerName), strconv.Quote(binderName),
	strconv.Quote(invokerName), strconv.Quote(core.EntryPoint))

// Engine is a core.Backend running PAC scripts in QuickJS.
type Engine struct {
	cfg core.EngineConfig

	vm    *quickjs.VM
	gc    gcHandle
	entry bool

	// mu serializes Interrupt, which runs on the watchdog goroutine, against
	// Unload closing the VM.
	mu          sync.Mutex
	live        *quickjs.VM
	interrupted atomic.Bool
}

var _ core.Backend = (*Engine)(nil)

// New creates a QuickJS backend. No VM exists until Load.
func New(cfg core.EngineConfig) (*Engine, error) {
	return &Engine{cfg: cfg}, nil
}

// Load creates a fresh VM, binds fns, runs library and script, and resolves
// FindProxyForURL.
func (e *Engine) Load(library, script string, fns []core.HostFunc) error {
	if e.vm != nil {
		return fmt.Errorf("quickjs: context already loaded")
	}

	vm, err := quickjs.NewVM()
	if err != nil {
		return fmt.Errorf("creating QuickJS VM: %w", err)
	}
	if e.cfg.MemoryLimitMB > 0 {
		vm.SetMemoryLimit(uintptr(e.cfg.MemoryLimitMB) * 1024 * 1024)
	}

	if err := loadVM(vm, library, script, fns); err != nil {
		vm.Close()
		return err
	}

	e.vm = vm
	e.gc, _ = runtimeHandle(vm)
	e.entry = true
	e.mu.Lock()
	e.live = vm
	e.mu.Unlock()
	return nil
}

func loadVM(vm *quickjs.VM, library, script string, fns []core.HostFunc) error {
	v, err := vm.EvalValue(prelude, quickjs.EvalGlobal)
	if err != nil {
		return fmt.Errorf("quickjs: installing prelude: %w", err)
	}
	v.Free()

	if err := registerHostFuncs(vm, fns); err != nil {
		return err
	}
	if err := evalScript(vm, library, pacjs.LibraryOrigin, core.StageLibrary); err != nil {
		return err
	}
	if err := evalScript(vm, script, pacjs.ScriptOrigin, core.StageScript); err != nil {
		return err
	}

	res, err := vm.Eval(binderName+"()", quickjs.EvalGlobal)
	if err != nil {
		return &core.ScriptError{Stage: core.StageScript, Phase: core.PhaseRun, Message: err.Error()}
	}
	switch fmt.Sprint(res) {
	case "ok":
		return nil
	case "missing":
		return core.ErrNoEntryPoint
	default:
		return core.ErrEntryNotCallable
	}
}

// evalScript classifies syntax errors with the esbuild parser, since the
// QuickJS wrapper only exposes compile-and-run, then runs source as global
// code through the prelude's runner so a thrown error keeps its stack.
// Strict-mode sources run through the wrapper directly: strict eval code
// would keep its declarations out of the global object.
func evalScript(vm *quickjs.VM, source, origin string, stage core.Stage) error {
	if err := pacjs.Check(source, origin); err != nil {
		se := &core.ScriptError{Stage: stage, Phase: core.PhaseCompile, Message: err.Error()}
		var syn *pacjs.SyntaxError
		if errors.As(err, &syn) {
			se.Line = syn.Line
			se.Message = syn.Message
		}
		return se
	}

	if pacjs.IsStrict(source) {
		v, err := vm.EvalValue(source, quickjs.EvalGlobal)
		if err != nil {
			return &core.ScriptError{
				Stage:   stage,
				Phase:   core.PhaseRun,
				Line:    pacjs.LineFromStack(err.Error()),
				Message: err.Error(),
			}
		}
		v.Free()
		return nil
	}

	res, err := vm.Eval(runnerName+"("+jsString(source)+")", quickjs.EvalGlobal)
	if err != nil {
		return &core.ScriptError{Stage: stage, Phase: core.PhaseRun, Message: err.Error()}
	}
	raw, _ := res.(string)
	var reply callReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return fmt.Errorf("quickjs: decoding %s reply: %w", stage, err)
	}
	if reply.T == nil {
		return nil
	}
	se := &core.ScriptError{Stage: stage, Phase: core.PhaseRun, Line: reply.line(), Message: *reply.T}
	if reply.Compile {
		se.Phase = core.PhaseCompile
	}
	return se
}

// Unload drops the entry point and closes the VM.
func (e *Engine) Unload() {
	e.entry = false
	if e.vm == nil {
		return
	}
	e.mu.Lock()
	e.live = nil
	e.vm.Close()
	e.mu.Unlock()
	e.vm = nil
	e.gc = gcHandle{}
}

// Loaded reports whether a VM with a resolved entry point is live.
func (e *Engine) Loaded() bool {
	return e.vm != nil && e.entry
}

// Interrupt aborts the running evaluation, if any.
func (e *Engine) Interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.live != nil {
		e.interrupted.Store(true)
		e.live.Interrupt()
	}
}

// Close releases the VM.
func (e *Engine) Close() {
	e.Unload()
}
