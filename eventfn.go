package llcore

import (
	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/linksym"
)

// EventFn is a bound, callable entry point inside a namespace (spec.md
// §4.K): a resolved JIT address plus the fixed event_fn_t calling
// convention, int32(void*).
type EventFn struct {
	symbol linksym.Symbol
	addr   uintptr
	jit    backend.JIT
	isInit bool
}

func newEventFn(sym linksym.Symbol) *EventFn { return &EventFn{symbol: sym} }

// NullEventFn is the sentinel EventFn (SUPPLEMENTED FEATURES §6).
func NullEventFn() *EventFn { return &EventFn{} }

func (e *EventFn) IsNull() bool   { return e == nil || e.symbol.Name.Short == "" }
func (e *EventFn) HasError() bool { return e.IsNull() }

// IsInit reports whether JIT.Bind resolved this function's address yet.
func (e *EventFn) IsInit() bool { return e != nil && e.isInit }

func (e *EventFn) bind(jit backend.JIT, addr uintptr) {
	e.jit = jit
	e.addr = addr
	e.isInit = true
}

// OnEvent implements on_event(obj): requires is_init and a frozen obj,
// then invokes the resolved function with obj.ref() as its single
// argument.
func (e *EventFn) OnEvent(ec *errstack.Context, obj *Object) (int32, bool) {
	defer ec.Here()()
	if !e.IsInit() {
		ec.PushError(errstack.KindJIT, "on_event: "+e.symbol.FullName()+" was never bound", errstack.SourceLoc{})
		return 0, false
	}
	if obj.IsNull() || !obj.IsFrozen() {
		ec.PushError(errstack.KindValueError, "on_event: argument object is not frozen", errstack.SourceLoc{})
		return 0, false
	}
	if ec.HasError() {
		return 0, false
	}
	return e.jit.Invoke(e.addr, obj.Ref()), true
}
