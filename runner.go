// Package pacrunner evaluates Proxy Auto-Config scripts. A Runner drives one
// embedded JavaScript engine (QuickJS by default, V8 with -tags v8); a Plugin
// registers it as a driver with a host Registry.
package pacrunner

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryguy/pacrunner/internal/core"
	"github.com/cryguy/pacrunner/internal/hostfn"
	"github.com/cryguy/pacrunner/internal/idle"
	"github.com/cryguy/pacrunner/internal/pacjs"
)

// maxDrainSteps bounds the synchronous collection performed by Close.
const maxDrainSteps = 64

// Runner drives one script engine: it owns the active proxy configuration,
// the engine's namespace and entry point, and the idle reclamation task.
// All public methods are safe for concurrent use; script execution is
// serialized by a single interpreter lock.
type Runner struct {
	mu      sync.Mutex // interpreter lock
	backend core.Backend
	config  EngineConfig
	proxy   atomic.Pointer[core.Proxy]
	loop    *idle.Loop
	gc      idle.SourceID
	closed  bool
	logf    func(format string, args ...any)
}

// RunnerOption configures optional Runner behaviour.
type RunnerOption func(*Runner)

// WithLogf routes diagnostics to logf instead of the standard logger.
func WithLogf(logf func(format string, args ...any)) RunnerOption {
	return func(r *Runner) {
		if logf != nil {
			r.logf = logf
		}
	}
}

// NewRunner wraps backend. The Runner takes ownership and closes the backend
// in Close.
func NewRunner(backend core.Backend, cfg EngineConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		backend: backend,
		config:  cfg,
		logf:    log.Printf,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.loop = idle.New(cfg.ReclaimInterval())
	return r
}

// Current returns the active proxy configuration, or nil.
func (r *Runner) Current() *Proxy {
	return r.proxy.Load()
}

// SetProxy activates p, or deactivates when p is nil.
func (r *Runner) SetProxy(p *Proxy) error {
	if p == nil {
		r.Deactivate()
		return nil
	}
	return r.Activate(p)
}

// Activate tears down any existing context and builds a new one for p.
func (r *Runner) Activate(p *Proxy) error {
	if p == nil {
		return errors.New("pacrunner: nil proxy")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return core.ErrClosed
	}
	r.deactivateLocked()

	if p.Script == "" {
		r.logf("pacrunner: no script in proxy configuration")
		return core.ErrNoScript
	}
	if limit := r.config.MaxScriptSizeKB; limit > 0 && len(p.Script) > limit*1024 {
		r.logf("pacrunner: script is %d bytes, limit is %d KB", len(p.Script), limit)
		return fmt.Errorf("%w: %d bytes", core.ErrScriptTooLarge, len(p.Script))
	}

	if err := r.load(p); err != nil {
		r.logf("pacrunner: %v", err)
		return err
	}
	r.scheduleReclaimLocked()
	return nil
}

// load publishes p and builds its context. Caller holds r.mu with nothing
// loaded. On failure the slot is cleared again.
func (r *Runner) load(p *Proxy) (err error) {
	r.proxy.Store(p)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pacrunner: engine panic during load: %v", rec)
		}
		if err != nil {
			r.backend.Unload()
			r.proxy.Store(nil)
		}
	}()

	bindings := hostfn.New(r.Current, r.config.ResolveTimeout())
	return r.backend.Load(pacjs.Library, p.Script, bindings.Funcs())
}

// Deactivate releases the entry point and context and clears the active
// configuration. It is idempotent.
func (r *Runner) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivateLocked()
}

func (r *Runner) deactivateLocked() {
	if r.proxy.Load() == nil && !r.backend.Loaded() {
		return
	}
	r.backend.Unload()
	r.proxy.Store(nil)
}

// Execute returns the directive FindProxyForURL produces for url and host.
func (r *Runner) Execute(url, host string) (directive string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", core.ErrClosed
	}
	if r.proxy.Load() == nil || !r.backend.Loaded() {
		return "", core.ErrNoContext
	}

	wd := r.startWatchdog()
	defer func() {
		wd.stop()
		if rec := recover(); rec != nil {
			r.logf("pacrunner: discarding context after engine panic: %v", rec)
			r.backend.Unload()
			r.proxy.Store(nil)
			directive, err = "", fmt.Errorf("pacrunner: engine panic: %v", rec)
		}
	}()

	directive, err = r.backend.Call(url, host)
	if wd.stop() {
		// The engine may have finished first and still hold the interrupt.
		err = core.ErrTimeout
	}
	switch {
	case err == nil:
		r.scheduleReclaimLocked()
		return directive, nil
	case errors.Is(err, core.ErrTimeout):
		r.logf("pacrunner: %s() timed out after %v", core.EntryPoint, r.config.Timeout())
		r.rebuildLocked()
		return "", core.ErrTimeout
	default:
		var se *core.ScriptError
		if errors.As(err, &se) && se.Line > 0 {
			r.logf("pacrunner: error running script at line %d: %s", se.Line, se.Message)
		} else {
			r.logf("pacrunner: %v", err)
		}
		return "", err
	}
}

// watchdog interrupts the backend when a call overruns the execution timeout.
type watchdog struct {
	timer    *time.Timer
	fired    chan struct{}
	once     sync.Once
	timedOut bool
}

// startWatchdog arms a watchdog, or returns nil when no timeout is set.
func (r *Runner) startWatchdog() *watchdog {
	timeout := r.config.Timeout()
	if timeout <= 0 {
		return nil
	}
	w := &watchdog{fired: make(chan struct{})}
	w.timer = time.AfterFunc(timeout, func() {
		defer close(w.fired)
		r.backend.Interrupt()
	})
	return w
}

// stop disarms the watchdog and reports whether it fired. A callback that
// already started is waited for, so no Interrupt is in flight once stop
// returns.
func (w *watchdog) stop() bool {
	if w == nil {
		return false
	}
	w.once.Do(func() {
		if !w.timer.Stop() {
			<-w.fired
			w.timedOut = true
		}
	})
	return w.timedOut
}

// rebuildLocked replaces a context left in an unknown state with a fresh one
// for the current configuration.
func (r *Runner) rebuildLocked() {
	p := r.proxy.Load()
	r.backend.Unload()
	r.proxy.Store(nil)
	if p == nil {
		return
	}
	if err := r.load(p); err != nil {
		r.logf("pacrunner: rebuilding context: %v", err)
	}
}

// Close deactivates, cancels reclamation, drains pending collection and
// releases the engine. It is idempotent.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.deactivateLocked()
	if r.gc != 0 {
		r.loop.Remove(r.gc)
		r.gc = 0
	}
	for i := 0; i < maxDrainSteps; i++ {
		if !r.backend.Collect() {
			break
		}
	}
	r.backend.Close()
	r.mu.Unlock()

	// The loop may be blocked on our lock inside a task; stop it unlocked.
	r.loop.Close()
}
