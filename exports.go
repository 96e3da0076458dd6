package pacrunner

import "github.com/cryguy/pacrunner/internal/core"

// Type aliases re-exporting internal/core types so callers can use
// pacrunner.Proxy, pacrunner.ScriptError, etc. without importing the
// internal package directly.

type Proxy = core.Proxy
type EngineConfig = core.EngineConfig
type Driver = core.Driver
type Priority = core.Priority
type ScriptError = core.ScriptError
type Stage = core.Stage
type Phase = core.Phase

// Constants re-exported from core.
const (
	PriorityLow     = core.PriorityLow
	PriorityDefault = core.PriorityDefault
	PriorityHigh    = core.PriorityHigh
	EntryPoint      = core.EntryPoint
)

// Errors re-exported from core.
var (
	ErrNoContext        = core.ErrNoContext
	ErrClosed           = core.ErrClosed
	ErrNoScript         = core.ErrNoScript
	ErrScriptTooLarge   = core.ErrScriptTooLarge
	ErrNoEntryPoint     = core.ErrNoEntryPoint
	ErrEntryNotCallable = core.ErrEntryNotCallable
	ErrNotString        = core.ErrNotString
	ErrTimeout          = core.ErrTimeout
)
