package quickjs

import (
	"reflect"

	"modernc.org/libc"
	lib "modernc.org/libquickjs"
	"modernc.org/quickjs"
)

// gcHandle is what JS_RunGC needs: the C runtime of a VM and the TLS its
// C calls run on. The zero value means collection is unavailable.
type gcHandle struct {
	rt  uintptr
	tls *libc.TLS
}

// Collect runs a full QuickJS collection. Reference counting frees acyclic
// garbage eagerly and the cycle collector finishes in one pass, so no work
// is ever left for a later step.
func (e *Engine) Collect() bool {
	if e.vm == nil || e.gc.tls == nil {
		return false
	}
	lib.XJS_RunGC(e.gc.tls, e.gc.rt)
	return false
}

// runtimeHandle reads the GC handle out of vm, which keeps it in the
// unexported runtime.{cRuntime,tls} fields (modernc.org/quickjs v0.17). If
// the layout changes, ok is false and Collect becomes a no-op; QuickJS still
// frees memory through reference counting.
func runtimeHandle(vm *quickjs.VM) (h gcHandle, ok bool) {
	defer func() {
		if recover() != nil {
			h, ok = gcHandle{}, false
		}
	}()

	rt := reflect.ValueOf(vm).Elem().FieldByName("runtime")
	if rt.Kind() != reflect.Pointer || rt.IsNil() {
		return gcHandle{}, false
	}
	fields := reflect.NewAt(rt.Type().Elem(), rt.UnsafePointer()).Elem()

	cRuntime := fields.FieldByName("cRuntime")
	tls := fields.FieldByName("tls")
	if cRuntime.Kind() != reflect.Uintptr || tls.Kind() != reflect.Pointer || tls.IsNil() {
		return gcHandle{}, false
	}
	return gcHandle{rt: uintptr(cRuntime.Uint()), tls: (*libc.TLS)(tls.UnsafePointer())}, true
}
