package core

// Priority arbitrates between interchangeable script drivers. Higher wins.
type Priority int

const (
	PriorityLow     Priority = -100
	PriorityDefault Priority = 0
	PriorityHigh    Priority = 100
)

// Driver is the capability a script engine exposes to the host.
type Driver interface {
	Name() string
	Priority() Priority

	// SetProxy replaces the active configuration. nil deactivates.
	SetProxy(p *Proxy) error

	// Execute returns the proxy directive for url/host. ok is false when the
	// driver has no answer and the host should ask the next candidate.
	Execute(url, host string) (directive string, ok bool)
}
