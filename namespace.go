package llcore

import (
	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/linksym"
)

// Namespace groups the public symbols the JIT resolved under one
// LinkSymbolName.namespace (spec.md §4.K): a struct_registry of
// StructMirrors and an event_registry of EventFns, bound once per JIT
// run.
type Namespace struct {
	name       string
	events     map[string]*EventFn
	eventOrder []string
	structs    map[string]*StructMirror
	bound      bool
}

func newNamespace(name string) *Namespace {
	return &Namespace{name: name, events: map[string]*EventFn{}, structs: map[string]*StructMirror{}}
}

func (ns *Namespace) Name() string { return ns.name }

func (ns *Namespace) addEvent(sym linksym.Symbol) *EventFn {
	ev := newEventFn(sym)
	ns.events[sym.Name.Short] = ev
	ns.eventOrder = append(ns.eventOrder, sym.Name.Short)
	return ev
}

func (ns *Namespace) addStruct(sm *StructMirror) { ns.structs[sm.Name()] = sm }

// EventFn looks up a bound function by its short (unqualified) name.
func (ns *Namespace) EventFn(name string) (*EventFn, bool) {
	e, ok := ns.events[name]
	return e, ok
}

// Struct looks up a registered struct mirror by its short name.
func (ns *Namespace) Struct(name string) (*StructMirror, bool) {
	s, ok := ns.structs[name]
	return s, ok
}

// bind resolves every registered event function's address via the JIT,
// reporting false if any lookup fails; a failed lookup pushes an error
// and the remaining events are still bound.
// Binding an already-bound namespace is itself an error (spec.md §4.J
// "namespace already bound").
func (ns *Namespace) bind(jit backend.JIT, ec *errstack.Context) bool {
	if ns.bound {
		ec.PushError(errstack.KindJIT, "namespace "+ns.name+" already bound", errstack.SourceLoc{})
		return false
	}
	ok := true
	for _, short := range ns.eventOrder {
		ev := ns.events[short]
		addr, err := jit.Lookup(ev.symbol.FullName())
		if err != nil {
			ec.PushError(errstack.KindJIT, "bind: "+err.Error(), errstack.SourceLoc{})
			ok = false
			continue
		}
		ev.bind(jit, addr)
	}
	ns.bound = true
	return ok
}
