//go:build v8

package v8engine

import (
	"fmt"

	"github.com/cryguy/pacrunner/internal/core"
	v8 "github.com/tommie/v8go"
)

// Call runs FindProxyForURL(url, host) with the context's global as receiver.
func (e *Engine) Call(url, host string) (string, error) {
	if !e.Loaded() {
		return "", core.ErrNoContext
	}

	e.interrupted.Store(false)

	jsURL, err := v8.NewValue(e.iso, url)
	if err != nil {
		return "", fmt.Errorf("converting url: %w", err)
	}
	jsHost, err := v8.NewValue(e.iso, host)
	if err != nil {
		return "", fmt.Errorf("converting host: %w", err)
	}

	result, err := e.entry.Call(e.ctx.Global(), jsURL, jsHost)
	if err != nil {
		if e.interrupted.Load() {
			return "", core.ErrTimeout
		}
		return "", scriptError(core.StageEntry, core.PhaseRun, err)
	}

	if result == nil || !result.IsString() {
		return "", core.ErrNotString
	}
	return result.String(), nil
}
