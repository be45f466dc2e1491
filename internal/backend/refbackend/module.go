package refbackend

import (
	"bytes"
	"fmt"
	"io"

	"github.com/irforge/llcore/internal/backend"
)

type rModule struct {
	name       string
	dataLayout string
	triple     string
	pic, pie   bool
	b          *rBackend
	// localFuncs is this module's own view of declared/defined functions
	// (by the name they were declared under), used by GetFunction; the
	// underlying *rFunction is shared across every module of one backend
	// via rBackend.funcs so that cross-module
	// declare-then-link (spec.md §4.E call_fn) resolves to one object.
	localFuncs map[string]*rFunction
	taken      bool
}

func (m *rModule) Name() string           { return m.name }
func (m *rModule) SetDataLayout(s string) { m.dataLayout = s }
func (m *rModule) SetTargetTriple(s string) { m.triple = s }
func (m *rModule) SetPIC(v bool)          { m.pic = v }
func (m *rModule) SetPIE(v bool)          { m.pie = v }

func (m *rModule) DeclareFunction(name string, argType, retType backend.Type, external bool) backend.Function {
	if fn, ok := m.b.funcs[name]; ok {
		m.localFuncs[name] = fn
		return fn
	}
	fn := &rFunction{
		name:     name,
		argType:  argType.(*rType),
		retType:  retType.(*rType),
		external: external,
		attrs:    map[string]bool{},
		owner:    m.b,
	}
	fn.argValueID = m.b.nextValueID()
	m.b.funcs[name] = fn
	m.localFuncs[name] = fn
	return fn
}

func (m *rModule) GetFunction(name string) (backend.Function, bool) {
	fn, ok := m.localFuncs[name]
	return fn, ok
}

func (m *rModule) WriteIR(w io.Writer) error {
	fmt.Fprintf(w, "; ModuleID = '%s'\n", m.name)
	fmt.Fprintf(w, "target datalayout = \"%s\"\ntarget triple = \"%s\"\n\n", m.dataLayout, m.triple)
	for _, fn := range m.localFuncs {
		fn.Print(w)
	}
	return nil
}

func (m *rModule) ThreadSafe() backend.ThreadSafeModule {
	m.taken = true
	return &rThreadSafeModule{m: m}
}

type rThreadSafeModule struct{ m *rModule }

func (t *rThreadSafeModule) ModuleName() string { return t.m.name }

// String is a debug helper returning the serialized IR without a live
// io.Writer handy.
func (m *rModule) String() string {
	var buf bytes.Buffer
	_ = m.WriteIR(&buf)
	return buf.String()
}
