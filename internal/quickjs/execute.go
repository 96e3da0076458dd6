package quickjs

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cryguy/pacrunner/internal/core"
	"github.com/cryguy/pacrunner/internal/pacjs"
	"modernc.org/quickjs"
)

// callReply is the JSON the prelude's runner and invoker return.
type callReply struct {
	V       *string `json:"v"`
	N       string  `json:"n"` // typeof a non-string result
	T       *string `json:"t"` // thrown value, stringified
	Stack   string  `json:"s"`
	Line    int     `json:"l"`
	Compile bool    `json:"c"` // thrown value is a SyntaxError
}

func (r *callReply) line() int {
	if r.Line > 0 {
		return r.Line
	}
	return pacjs.LineFromStack(r.Stack)
}

// Call runs FindProxyForURL(url, host) in the loaded VM.
func (e *Engine) Call(url, host string) (string, error) {
	if !e.Loaded() {
		return "", core.ErrNoContext
	}
	e.interrupted.Store(false)

	js := invokerName + "(" + jsString(url) + ", " + jsString(host) + ")"
	res, err := e.vm.Eval(js, quickjs.EvalGlobal)
	if err != nil {
		if e.interrupted.Load() {
			return "", core.ErrTimeout
		}
		return "", &core.ScriptError{
			Stage:   core.StageEntry,
			Phase:   core.PhaseRun,
			Line:    pacjs.LineFromStack(err.Error()),
			Message: err.Error(),
		}
	}

	raw, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("quickjs: invoker returned %T", res)
	}
	var reply callReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return "", fmt.Errorf("quickjs: decoding invoker reply: %w", err)
	}

	switch {
	case reply.T != nil:
		return "", &core.ScriptError{Stage: core.StageEntry, Phase: core.PhaseRun, Line: reply.line(), Message: *reply.T}
	case reply.V != nil:
		return *reply.V, nil
	default:
		return "", fmt.Errorf("%w (got %s)", core.ErrNotString, reply.N)
	}
}

// jsString returns s as a JavaScript string literal. JSON string syntax is
// valid JavaScript, and encoding/json escapes U+2028/U+2029.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return strconv.Quote(s)
	}
	return string(b)
}
