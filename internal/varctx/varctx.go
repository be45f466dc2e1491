// Package varctx implements spec.md §4.G: the variable-context stack of
// named pointer/value bindings used inside a function body.
package varctx

import (
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/values"
)

// frame is one stack level: name -> pointer-ValueInfo bindings (mk_ptr),
// and name -> plain-value bindings (set without a prior mk_ptr).
type frame struct {
	ptrBindings   map[string]values.ValueInfo
	ptrElemType   map[string]types.TypeInfo
	valueBindings map[string]values.ValueInfo
	parent        *frame
	active        bool
}

func newFrame(parent *frame) *frame {
	return &frame{
		ptrBindings:   map[string]values.ValueInfo{},
		ptrElemType:   map[string]types.TypeInfo{},
		valueBindings: map[string]values.ValueInfo{},
		parent:        parent,
		active:        true,
	}
}

// Manager is the VariableContextMgr (spec.md §5: rendered as an explicit
// struct owned by whoever creates it, per design note 9, not a
// thread-local). Cursor does not create or hold one.
type Manager struct {
	ec  *errstack.Context
	env *values.Env
	top *frame
}

func New(ec *errstack.Context) *Manager {
	return &Manager{ec: ec}
}

// SetEnv points the manager at the materialization environment of the
// currently open CodeSection, so mk_ptr/set/pop can emit
// alloca/store/load. Nothing in this module calls it automatically:
// CodeSection.Enter's SetContext call leaves the environment unchanged,
// so the owner of the Manager calls SetEnv whenever the active section
// changes.
func (m *Manager) SetEnv(env *values.Env) { m.env = env }

// PushContext implements push_context: a new frame whose parent is the
// prior head; the prior head becomes inactive.
func (m *Manager) PushContext() {
	if m.top != nil {
		m.top.active = false
	}
	m.top = newFrame(m.top)
}

// PopContext implements pop_context: popping the last frame leaves the
// stack empty (a no-op if already empty).
func (m *Manager) PopContext() {
	if m.top == nil {
		return
	}
	m.top = m.top.parent
	if m.top != nil {
		m.top.active = true
	}
}

// SetContext implements the implicit "context" binding `enter()` installs
// in the current frame (spec.md §4.F), satisfying
// internal/codesection.VarFrameSetter.
func (m *Manager) SetContext(v values.ValueInfo) {
	m.ensureFrame()
	m.top.valueBindings["context"] = v
}

func (m *Manager) ensureFrame() {
	if m.top == nil {
		m.top = newFrame(nil)
	}
}

// MkPtr implements mk_ptr(name, type, default_value?): allocates a
// pointer via the value graph's MkPtr node and registers it; if
// defaultValue is valid (non-null), emits a store.
func (m *Manager) MkPtr(name string, t types.TypeInfo, ptrType types.TypeInfo, defaultValue values.ValueInfo) values.ValueInfo {
	m.ensureFrame()
	ptr := values.MkPtr(t, ptrType)
	m.top.ptrBindings[name] = ptr
	m.top.ptrElemType[name] = t
	if !defaultValue.IsNull() && !defaultValue.HasError() {
		stored := values.Store(ptr, defaultValue)
		if m.env != nil {
			stored.Materialize(m.env)
		}
	} else if m.env != nil {
		ptr.Materialize(m.env)
	}
	return ptr
}

// Set implements set(name, v): if a pointer exists under name (anywhere
// in the active chain), emits a store through it; otherwise registers v
// directly in the active frame's value_bindings.
func (m *Manager) Set(name string, v values.ValueInfo) {
	m.ensureFrame()
	if ptr, ok := m.lookupPtr(name); ok {
		stored := values.Store(ptr, v)
		if m.env != nil {
			stored.Materialize(m.env)
		}
		return
	}
	m.top.valueBindings[name] = v
}

// Pop implements pop(name): returns the latest bound value; for
// pointer-bound names this is a Load.
func (m *Manager) Pop(name string) values.ValueInfo {
	if ptr, elemType, ok := m.lookupPtrTyped(name); ok {
		loaded := values.Load(ptr, elemType)
		if m.env != nil {
			loaded.Materialize(m.env)
		}
		return loaded
	}
	if v, ok := m.lookupValue(name); ok {
		return v
	}
	m.ec.PushError(errstack.KindValueError, "pop: no binding named "+name, errstack.SourceLoc{})
	return values.Null()
}

func (m *Manager) lookupPtr(name string) (values.ValueInfo, bool) {
	for f := m.top; f != nil; f = f.parent {
		if p, ok := f.ptrBindings[name]; ok {
			return p, true
		}
	}
	return values.Null(), false
}

func (m *Manager) lookupPtrTyped(name string) (values.ValueInfo, types.TypeInfo, bool) {
	for f := m.top; f != nil; f = f.parent {
		if p, ok := f.ptrBindings[name]; ok {
			return p, f.ptrElemType[name], true
		}
	}
	return values.Null(), types.Null(), false
}

func (m *Manager) lookupValue(name string) (values.ValueInfo, bool) {
	for f := m.top; f != nil; f = f.parent {
		if v, ok := f.valueBindings[name]; ok {
			return v, true
		}
	}
	return values.Null(), false
}
