package pacrunner

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry is the host side of the driver contract: drivers ordered by
// priority, highest first, with registration order breaking ties.
type Registry struct {
	mu      sync.RWMutex
	drivers []Driver
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds d. Names must be unique.
func (r *Registry) Register(d Driver) error {
	if d == nil {
		return errors.New("pacrunner: nil driver")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.drivers {
		if existing.Name() == d.Name() {
			return fmt.Errorf("pacrunner: driver %q already registered", d.Name())
		}
	}
	r.drivers = append(r.drivers, d)
	sort.SliceStable(r.drivers, func(i, j int) bool {
		return r.drivers[i].Priority() > r.drivers[j].Priority()
	})
	return nil
}

// Unregister removes the driver called name and reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.drivers {
		if d.Name() == name {
			r.drivers = append(r.drivers[:i], r.drivers[i+1:]...)
			return true
		}
	}
	return false
}

// Drivers returns the registered drivers in dispatch order.
func (r *Registry) Drivers() []Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Driver, len(r.drivers))
	copy(out, r.drivers)
	return out
}

// SetProxy hands p to every driver. A failing driver does not stop the
// others; their errors are joined.
func (r *Registry) SetProxy(p *Proxy) error {
	var errs []error
	for _, d := range r.Drivers() {
		if err := d.SetProxy(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Execute asks each driver in order and returns the first answer.
func (r *Registry) Execute(url, host string) (string, bool) {
	for _, d := range r.Drivers() {
		if directive, ok := d.Execute(url, host); ok {
			return directive, true
		}
	}
	return "", false
}
