package pacrunner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cryguy/pacrunner/internal/core"
)

// BackendFactory creates the engine a Plugin drives.
type BackendFactory func(cfg EngineConfig) (core.Backend, error)

// Plugin adapts a Runner to the host's driver contract. Init builds the
// engine and registers the driver; Exit undoes both.
type Plugin struct {
	name       string
	priority   Priority
	newBackend BackendFactory
	config     EngineConfig
	opts       []RunnerOption

	mu     sync.Mutex
	runner *Runner
	reg    *Registry
}

// NewPlugin describes a driver named name backed by engines from newBackend.
func NewPlugin(name string, priority Priority, newBackend BackendFactory, cfg EngineConfig, opts ...RunnerOption) *Plugin {
	return &Plugin{
		name:       name,
		priority:   priority,
		newBackend: newBackend,
		config:     cfg,
		opts:       opts,
	}
}

// Name implements Driver.
func (p *Plugin) Name() string { return p.name }

// Priority implements Driver; the Registry asks higher tiers first.
func (p *Plugin) Priority() Priority { return p.priority }

// Init creates the engine and registers the driver with reg.
func (p *Plugin) Init(reg *Registry) error {
	if reg == nil {
		return errors.New("pacrunner: nil registry")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.runner != nil {
		return fmt.Errorf("pacrunner: driver %q already initialized", p.name)
	}

	backend, err := p.newBackend(p.config)
	if err != nil {
		return fmt.Errorf("creating %s engine: %w", p.name, err)
	}
	runner := NewRunner(backend, p.config, p.opts...)
	if err := reg.Register(p); err != nil {
		runner.Close()
		return err
	}
	p.runner = runner
	p.reg = reg
	return nil
}

// Exit unregisters the driver and shuts the engine down. No background work
// survives it.
func (p *Plugin) Exit() {
	p.mu.Lock()
	runner, reg := p.runner, p.reg
	p.runner, p.reg = nil, nil
	p.mu.Unlock()

	if reg != nil {
		reg.Unregister(p.name)
	}
	if runner != nil {
		runner.Close()
	}
}

// Runner returns the plugin's Runner, or nil outside Init/Exit.
func (p *Plugin) Runner() *Runner {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runner
}

// SetProxy implements Driver.
func (p *Plugin) SetProxy(proxy *Proxy) error {
	r := p.Runner()
	if r == nil {
		return core.ErrClosed
	}
	return r.SetProxy(proxy)
}

// Execute implements Driver. Any failure is reported as no answer.
func (p *Plugin) Execute(url, host string) (string, bool) {
	r := p.Runner()
	if r == nil {
		return "", false
	}
	directive, err := r.Execute(url, host)
	if err != nil {
		return "", false
	}
	return directive, true
}
