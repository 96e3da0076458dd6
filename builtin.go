package pacrunner

// builtins lists the engines compiled into this build, added by init
// functions in the build-tagged backend files.
var builtins []builtin

type builtin struct {
	name       string
	priority   Priority
	newBackend BackendFactory
}

// Builtins returns a Plugin for every engine compiled into this build.
func Builtins(cfg EngineConfig, opts ...RunnerOption) []*Plugin {
	plugins := make([]*Plugin, 0, len(builtins))
	for _, b := range builtins {
		plugins = append(plugins, NewPlugin(b.name, b.priority, b.newBackend, cfg, opts...))
	}
	return plugins
}

// Engines names the engines compiled into this build.
func Engines() []string {
	names := make([]string, 0, len(builtins))
	for _, b := range builtins {
		names = append(names, b.name)
	}
	return names
}
