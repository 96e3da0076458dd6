package pacrunner

import (
	"github.com/cryguy/pacrunner/internal/core"
	"github.com/cryguy/pacrunner/internal/quickjs"
)

func init() {
	builtins = append(builtins, builtin{
		name:     "quickjs",
		priority: PriorityDefault,
		newBackend: func(cfg EngineConfig) (core.Backend, error) {
			e, err := quickjs.New(cfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
	})
}
