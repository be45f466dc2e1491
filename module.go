package llcore

import (
	"io"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/linksym"
	"github.com/irforge/llcore/internal/types"
)

// Module wraps one backend.Module plus its public symbol table and
// struct-definition registry (spec.md §4.H).
type Module struct {
	cursor  *Cursor
	name    string
	bm      backend.Module
	symbols *linksym.Registry
	structs map[string]*StructMirror
	taken   bool
}

func newModule(cursor *Cursor, name string) *Module {
	bm := cursor.be.NewModule(name)
	cursor.be.HostDefaults(bm)
	bm.SetPIC(cursor.cfg.pic)
	bm.SetPIE(cursor.cfg.pie)
	return &Module{cursor: cursor, name: name, bm: bm, symbols: linksym.NewRegistry(), structs: map[string]*StructMirror{}}
}

func (m *Module) Name() string                  { return m.name }
func (m *Module) BackendModule() backend.Module { return m.bm }
func (m *Module) Cursor() *Cursor               { return m.cursor }

// RegisterSymbol implements register_symbol(sym): rejects duplicate full
// names (spec.md §4.H).
func (m *Module) RegisterSymbol(sym linksym.Symbol) bool {
	defer m.cursor.ec.Here()()
	if !m.symbols.Register(sym) {
		m.cursor.ec.PushError(errstack.KindLinkSymbol, "register_symbol: duplicate full name "+sym.FullName(), errstack.SourceLoc{})
		return false
	}
	return true
}

// RegisterFunctionSymbol satisfies internal/function.ModuleHandle,
// delegating straight to RegisterSymbol.
func (m *Module) RegisterFunctionSymbol(sym linksym.Symbol) bool { return m.RegisterSymbol(sym) }

// AddStructDefinition implements add_struct_definition(name, type): a
// named struct type becomes both a backend.Struct and a LinkSymbol of
// class custom_struct, registered under the given namespace (spec.md
// §4.H, §4.K).
func (m *Module) AddStructDefinition(namespace, name string, typ types.TypeInfo) *StructMirror {
	defer m.cursor.ec.Here()()
	if typ.HasError() || typ.Kind() != backend.KindStruct {
		m.cursor.ec.PushError(errstack.KindModule, "add_struct_definition: not a struct type: "+name, errstack.SourceLoc{})
		return nil
	}
	symName := linksym.Global(name)
	if namespace != "" {
		symName = linksym.Namespaced(namespace, name)
	}
	sym := linksym.Symbol{Name: symName, Type: typ, Class: linksym.ClassCustomStruct}
	if !m.RegisterSymbol(sym) {
		return nil
	}
	sm := newStructMirror(sym.FullName(), typ, m.cursor.ec)
	m.structs[sym.FullName()] = sm
	return sm
}

// GetFunction mirrors backend.Module.GetFunction for introspection
// (spec.md §4.H).
func (m *Module) GetFunction(name string) (backend.Function, bool) { return m.bm.GetFunction(name) }

// InitStandard applies the host default data layout / target triple and
// the conservative PIC/PIE defaults every module of this Cursor shares
// (spec.md §6 "Environment").
func (m *Module) InitStandard() {
	m.cursor.be.HostDefaults(m.bm)
	m.bm.SetPIC(m.cursor.cfg.pic)
	m.bm.SetPIE(m.cursor.cfg.pie)
}

// WriteToOStream implements write_to_file (renamed: llcore has no file
// handle of its own, so it writes IR text to any io.Writer, spec.md
// §4.H).
func (m *Module) WriteToOStream(w io.Writer) error { return m.bm.WriteIR(w) }

// TakeThreadSafeModule implements take_thread_safe_module: after this
// call the Module is no longer usable by the Cursor (spec.md §4.H,
// §4.J); repeat calls are rejected.
func (m *Module) TakeThreadSafeModule() (backend.ThreadSafeModule, bool) {
	defer m.cursor.ec.Here()()
	if m.taken {
		m.cursor.ec.PushError(errstack.KindModule, "take_thread_safe_module: module "+m.name+" already taken", errstack.SourceLoc{})
		return nil, false
	}
	m.taken = true
	return m.bm.ThreadSafe(), true
}
