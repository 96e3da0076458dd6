package pacrunner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cryguy/pacrunner/internal/core"
)

// fakeBackend records how the Runner drives an engine.
type fakeBackend struct {
	mu          sync.Mutex
	loaded      bool
	live        int // namespaces currently alive
	maxLive     int
	loads       int
	unloads     int
	closed      bool
	script      string
	library     string
	fns         []core.HostFunc
	loadErr     error
	call        func(url, host string) (string, error)
	collectLeft int
	collects    int
	interrupts  int
	interrupt   chan struct{}

	// onInterrupt runs inside Interrupt; inInterrupt is set meanwhile.
	onInterrupt       func()
	inInterrupt       bool
	unloadInInterrupt int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{interrupt: make(chan struct{}, 1)}
}

func (f *fakeBackend) Load(library, script string, fns []core.HostFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return core.ErrClosed
	}
	if f.loaded {
		return errors.New("fake: already loaded")
	}
	f.loads++
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = true
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	f.library, f.script, f.fns = library, script, fns
	return nil
}

func (f *fakeBackend) Unload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloads++
	if f.inInterrupt {
		f.unloadInInterrupt++
	}
	if f.loaded {
		f.loaded = false
		f.live--
	}
}

func (f *fakeBackend) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *fakeBackend) Call(url, host string) (string, error) {
	f.mu.Lock()
	call := f.call
	f.mu.Unlock()
	if call == nil {
		return "DIRECT", nil
	}
	return call(url, host)
}

func (f *fakeBackend) Interrupt() {
	f.mu.Lock()
	f.interrupts++
	f.inInterrupt = true
	hook := f.onInterrupt
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	f.mu.Lock()
	f.inInterrupt = false
	f.mu.Unlock()
	select {
	case f.interrupt <- struct{}{}:
	default:
	}
}

func (f *fakeBackend) Collect() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collects++
	if f.collectLeft > 0 {
		f.collectLeft--
	}
	return f.collectLeft > 0
}

func (f *fakeBackend) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeBackend) setCall(call func(url, host string) (string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.call = call
}

func (f *fakeBackend) setCollectLeft(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collectLeft = n
}

type fakeStats struct {
	loaded      bool
	live        int
	maxLive     int
	loads       int
	unloads     int
	closed      bool
	script      string
	library     string
	fns         []core.HostFunc
	collectLeft int
	collects    int
	interrupts  int

	inInterrupt       bool
	unloadInInterrupt int
}

func (f *fakeBackend) stats() fakeStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeStats{
		loaded:      f.loaded,
		live:        f.live,
		maxLive:     f.maxLive,
		loads:       f.loads,
		unloads:     f.unloads,
		closed:      f.closed,
		script:      f.script,
		library:     f.library,
		fns:         f.fns,
		collectLeft: f.collectLeft,
		collects:    f.collects,
		interrupts:  f.interrupts,

		inInterrupt:       f.inInterrupt,
		unloadInInterrupt: f.unloadInInterrupt,
	}
}

// logRecorder captures Runner diagnostics.
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *logRecorder) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
