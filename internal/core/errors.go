package core

import (
	"errors"
	"fmt"
)

var (
	ErrNoContext        = errors.New("no active script context")
	ErrClosed           = errors.New("driver is shut down")
	ErrNoScript         = errors.New("proxy has no script")
	ErrScriptTooLarge   = errors.New("script exceeds size limit")
	ErrNoEntryPoint     = errors.New(EntryPoint + " is not defined")
	ErrEntryNotCallable = errors.New(EntryPoint + " is not a function")
	ErrNotString        = errors.New(EntryPoint + "() failed to return a string")
	ErrTimeout          = errors.New("script execution timed out")
)

// Stage names the script a ScriptError came from.
type Stage string

const (
	StageLibrary Stage = "library"
	StageScript  Stage = "script"
	StageEntry   Stage = "entry"
)

// Phase distinguishes compilation failures from runtime exceptions.
type Phase string

const (
	PhaseCompile Phase = "compile"
	PhaseRun     Phase = "run"
)

// ScriptError is a compilation failure or an uncaught exception raised by
// script code. Line is 1-based, 0 when the engine did not report one.
type ScriptError struct {
	Stage   Stage
	Phase   Phase
	Line    int
	Message string
}

func (e *ScriptError) Error() string {
	var what string
	switch {
	case e.Stage == StageEntry:
		what = "failed to run " + EntryPoint + "()"
	case e.Phase == PhaseCompile:
		what = string(e.Stage) + " failed to compile"
	default:
		what = string(e.Stage) + " failed"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s: at line %d: %s", what, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", what, e.Message)
}
