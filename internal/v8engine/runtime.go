//go:build v8

// Package v8engine implements the PAC script backend on V8. One isolate
// lives as long as the Engine; every activation gets a new context in it.
package v8engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cryguy/pacrunner/internal/core"
	v8 "github.com/tommie/v8go"
)

var exposeGCOnce sync.Once

// Engine is a core.Backend running PAC scripts in V8.
type Engine struct {
	cfg core.EngineConfig
	iso *v8.Isolate

	// housekeeping context holding the gc() function; PAC contexts never
	// see it.
	gcCtx *v8.Context
	gcFn  *v8.Function

	ctx   *v8.Context
	entry *v8.Function

	// imu keeps Interrupt, called from the watchdog goroutine, off a
	// disposed isolate.
	imu         sync.Mutex
	interrupted atomic.Bool
}

var _ core.Backend = (*Engine)(nil)

// New creates the isolate and captures V8's gc() for idle reclamation.
func New(cfg core.EngineConfig) (*Engine, error) {
	exposeGCOnce.Do(func() {
		v8.SetFlags("--expose-gc")
	})

	var iso *v8.Isolate
	if cfg.MemoryLimitMB > 0 {
		heapSize := uint64(cfg.MemoryLimitMB) * 1024 * 1024
		iso = v8.NewIsolate(v8.WithResourceConstraints(heapSize/2, heapSize))
	} else {
		iso = v8.NewIsolate()
	}

	gcCtx := v8.NewContext(iso)
	gcVal, err := gcCtx.Global().Get("gc")
	if err != nil {
		gcCtx.Close()
		iso.Dispose()
		return nil, fmt.Errorf("looking up gc: %w", err)
	}
	gcFn, err := gcVal.AsFunction()
	if err != nil {
		gcCtx.Close()
		iso.Dispose()
		return nil, fmt.Errorf("gc is not exposed: %w", err)
	}

	return &Engine{cfg: cfg, iso: iso, gcCtx: gcCtx, gcFn: gcFn}, nil
}

// Collect runs one full collection and reports more work while the used
// heap keeps shrinking.
func (e *Engine) Collect() bool {
	if e.iso == nil {
		return false
	}
	before := e.iso.GetHeapStatistics().UsedHeapSize
	if _, err := e.gcFn.Call(v8.Undefined(e.iso)); err != nil {
		return false
	}
	after := e.iso.GetHeapStatistics().UsedHeapSize
	return after < before
}

// Interrupt terminates the running script.
func (e *Engine) Interrupt() {
	e.imu.Lock()
	defer e.imu.Unlock()
	if e.iso != nil {
		e.interrupted.Store(true)
		e.iso.TerminateExecution()
	}
}

// Close unloads any context and disposes the isolate.
func (e *Engine) Close() {
	e.Unload()
	if e.iso == nil {
		return
	}
	e.gcFn = nil
	e.gcCtx.Close()
	e.gcCtx = nil
	e.imu.Lock()
	e.iso.Dispose()
	e.iso = nil
	e.imu.Unlock()
}
