package core

// HostFunc is a native function exposed in the script namespace. Arguments
// arrive converted to strings. A non-nil error is thrown into the script as a
// string exception whose text is err.Error().
type HostFunc struct {
	Name string
	Call func(args []string) (string, error)
}

// Backend is the interface that engine implementations (QuickJS, V8) must
// satisfy. A Backend holds at most one loaded namespace at a time and is not
// safe for concurrent use; the Runner serializes every call except Interrupt.
type Backend interface {
	// Load builds a fresh namespace exposing exactly fns, runs library and
	// then script in it, and resolves the FindProxyForURL entry point. Any
	// previously loaded namespace must have been released with Unload.
	// On error nothing stays loaded.
	Load(library, script string, fns []HostFunc) error

	// Unload releases the entry point and then the namespace. Safe to call
	// when nothing is loaded.
	Unload()

	// Loaded reports whether a namespace and entry point are live.
	Loaded() bool

	// Call invokes the entry point with (url, host). A thrown exception is
	// returned as *ScriptError, a non-string result as ErrNotString.
	Call(url, host string) (string, error)

	// Interrupt aborts a running Call. It may be called from any goroutine.
	Interrupt()

	// Collect performs one step of garbage collection and reports whether
	// the engine has more reclamation work left.
	Collect() bool

	// Close releases the engine. The Backend is unusable afterwards.
	Close()
}
