//go:build v8

package pacrunner

import (
	"github.com/cryguy/pacrunner/internal/core"
	"github.com/cryguy/pacrunner/internal/v8engine"
)

func init() {
	builtins = append(builtins, builtin{
		name:     "v8",
		priority: PriorityHigh,
		newBackend: func(cfg EngineConfig) (core.Backend, error) {
			e, err := v8engine.New(cfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
	})
}
