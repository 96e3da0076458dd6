package quickjs

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cryguy/pacrunner/internal/core"
	"modernc.org/quickjs"
)

// hostShimJS replaces the raw Go function with a script-facing wrapper that
// stringifies arguments, and turns an {"e": msg} reply into a thrown string.
// The intrinsics it uses and the raw function are captured before any script
// runs. Arguments are encoded one primitive at a time so no toJSON hook on a
// prototype takes part.
const hostShimJS = `(function() {
	var raw = globalThis[%[2]s];
	delete globalThis[%[2]s];
	var parse = JSON.parse, stringify = JSON.stringify, S = String,
		apply = Reflect.apply, hasOwn = Object.prototype.hasOwnProperty;
	globalThis[%[1]s] = function() {
		var enc = '[';
		for (var i = 0; i < arguments.length; i++) {
			if (i > 0) enc += ',';
			enc += stringify(S(arguments[i]));
		}
		var r = parse(raw(enc + ']'));
		if (apply(hasOwn, r, ['e'])) throw r.e;
		return r.v;
	};
})()`

// registerHostFuncs exposes fns as globals of vm.
func registerHostFuncs(vm *quickjs.VM, fns []core.HostFunc) error {
	for _, fn := range fns {
		rawName := "__raw_" + fn.Name
		if err := vm.RegisterFunc(rawName, hostCall(fn), false); err != nil {
			return fmt.Errorf("registering %s: %w", fn.Name, err)
		}
		v, err := vm.EvalValue(fmt.Sprintf(hostShimJS, strconv.Quote(fn.Name), strconv.Quote(rawName)), quickjs.EvalGlobal)
		if err != nil {
			return fmt.Errorf("wrapping %s: %w", fn.Name, err)
		}
		v.Free()
	}
	return nil
}

// hostCall adapts a HostFunc to the single-string calling convention of the
// shim. Errors never cross as Go errors; they become {"e": msg}.
func hostCall(fn core.HostFunc) func(string) string {
	return func(in string) (out string) {
		defer func() {
			if r := recover(); r != nil {
				out = replyThrow(fn.Name + ": internal error")
			}
		}()
		var args []string
		if err := json.Unmarshal([]byte(in), &args); err != nil {
			return replyThrow("Bad parameters")
		}
		v, err := fn.Call(args)
		if err != nil {
			return replyThrow(err.Error())
		}
		return replyValue(v)
	}
}

func replyValue(v string) string {
	b, _ := json.Marshal(map[string]string{"v": v})
	return string(b)
}

func replyThrow(msg string) string {
	b, _ := json.Marshal(map[string]string{"e": msg})
	return string(b)
}
