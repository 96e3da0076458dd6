//go:build v8

package v8engine

import (
	"errors"
	"fmt"

	"github.com/cryguy/pacrunner/internal/core"
	"github.com/cryguy/pacrunner/internal/pacjs"
	v8 "github.com/tommie/v8go"
)

// Load creates a context whose global template carries fns, runs library
// and script, and resolves FindProxyForURL.
func (e *Engine) Load(library, script string, fns []core.HostFunc) error {
	if e.ctx != nil {
		return fmt.Errorf("v8: context already loaded")
	}
	if e.iso == nil {
		return core.ErrClosed
	}

	global := v8.NewObjectTemplate(e.iso)
	for _, fn := range fns {
		if err := global.Set(fn.Name, e.functionTemplate(fn)); err != nil {
			return fmt.Errorf("binding %s: %w", fn.Name, err)
		}
	}
	ctx := v8.NewContext(e.iso, global)
	ctx.Global().Delete("gc")

	if err := e.run(ctx, library, pacjs.LibraryOrigin, core.StageLibrary); err != nil {
		ctx.Close()
		return err
	}
	if err := e.run(ctx, script, pacjs.ScriptOrigin, core.StageScript); err != nil {
		ctx.Close()
		return err
	}

	val, err := ctx.Global().Get(core.EntryPoint)
	if err != nil {
		ctx.Close()
		return fmt.Errorf("looking up %s: %w", core.EntryPoint, err)
	}
	if val.IsUndefined() {
		ctx.Close()
		return core.ErrNoEntryPoint
	}
	if !val.IsFunction() {
		ctx.Close()
		return core.ErrEntryNotCallable
	}
	fn, err := val.AsFunction()
	if err != nil {
		ctx.Close()
		return fmt.Errorf("%w: %w", core.ErrEntryNotCallable, err)
	}

	e.ctx = ctx
	e.entry = fn
	return nil
}

// run compiles and runs source, separating compile from runtime failures.
func (e *Engine) run(ctx *v8.Context, source, origin string, stage core.Stage) error {
	script, err := e.iso.CompileUnboundScript(source, origin, v8.CompileOptions{})
	if err != nil {
		return scriptError(stage, core.PhaseCompile, err)
	}
	if _, err := script.Run(ctx); err != nil {
		return scriptError(stage, core.PhaseRun, err)
	}
	return nil
}

func scriptError(stage core.Stage, phase core.Phase, err error) *core.ScriptError {
	se := &core.ScriptError{Stage: stage, Phase: phase, Message: err.Error()}
	var jsErr *v8.JSError
	if errors.As(err, &jsErr) {
		se.Message = jsErr.Message
		se.Line = pacjs.LineFromLocation(jsErr.Location)
		if se.Line == 0 {
			se.Line = pacjs.LineFromStack(jsErr.StackTrace)
		}
	}
	return se
}

// functionTemplate wraps fn so that a returned error is thrown as a string.
func (e *Engine) functionTemplate(fn core.HostFunc) *v8.FunctionTemplate {
	return v8.NewFunctionTemplate(e.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		iso := e.iso
		jsArgs := info.Args()
		args := make([]string, len(jsArgs))
		for i, a := range jsArgs {
			args[i] = a.String()
		}

		v, err := fn.Call(args)
		if err != nil {
			msg, _ := v8.NewValue(iso, err.Error())
			return iso.ThrowException(msg)
		}
		res, _ := v8.NewValue(iso, v)
		return res
	})
}

// Unload releases the entry point, then the context.
func (e *Engine) Unload() {
	e.entry = nil
	if e.ctx != nil {
		e.ctx.Close()
		e.ctx = nil
	}
}

// Loaded reports whether a context with a callable entry point is live.
func (e *Engine) Loaded() bool {
	return e.ctx != nil && e.entry != nil
}
