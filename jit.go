package llcore

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/function"
	"github.com/irforge/llcore/internal/linksym"
)

// Listener mirrors the teacher's experimental/logging +
// FunctionListener pattern: a small set of hooks the JIT invokes around
// module materialization, namespace binding and pass execution (spec.md
// §4.J, §6). No third-party structured-logging library is introduced;
// see DESIGN.md.
type Listener interface {
	BeforeAddModule(sessionID, moduleName string)
	AfterAddModule(sessionID, moduleName string, err error)
	BeforeBindNamespace(sessionID, namespace string)
	AfterBindNamespace(sessionID, namespace string, ok bool)
	BeforeNonSkipped(passName string)
	After(passName string)
	AfterAnalysis(passName string)
}

// TextListener is the default Listener, writing one line per event to
// an io.Writer.
type TextListener struct{ W io.Writer }

func NewTextListener(w io.Writer) *TextListener { return &TextListener{W: w} }

func (l *TextListener) BeforeAddModule(sessionID, moduleName string) {
	fmt.Fprintf(l.W, "[%s] add_module: %s\n", sessionID, moduleName)
}
func (l *TextListener) AfterAddModule(sessionID, moduleName string, err error) {
	if err != nil {
		fmt.Fprintf(l.W, "[%s] add_module: %s failed: %v\n", sessionID, moduleName, err)
		return
	}
	fmt.Fprintf(l.W, "[%s] add_module: %s ok\n", sessionID, moduleName)
}
func (l *TextListener) BeforeBindNamespace(sessionID, namespace string) {
	fmt.Fprintf(l.W, "[%s] bind: namespace %q\n", sessionID, namespace)
}
func (l *TextListener) AfterBindNamespace(sessionID, namespace string, ok bool) {
	fmt.Fprintf(l.W, "[%s] bind: namespace %q ok=%v\n", sessionID, namespace, ok)
}
func (l *TextListener) BeforeNonSkipped(passName string) { fmt.Fprintf(l.W, "pass: %s\n", passName) }
func (l *TextListener) After(passName string)            { fmt.Fprintf(l.W, "pass: %s done\n", passName) }
func (l *TextListener) AfterAnalysis(passName string)     { fmt.Fprintf(l.W, "analysis: %s done\n", passName) }

// noopListener discards every event; used when NewJIT is given a nil
// Listener.
type noopListener struct{}

func (noopListener) BeforeAddModule(string, string)        {}
func (noopListener) AfterAddModule(string, string, error)  {}
func (noopListener) BeforeBindNamespace(string, string)    {}
func (noopListener) AfterBindNamespace(string, string, bool) {}
func (noopListener) BeforeNonSkipped(string)                {}
func (noopListener) After(string)                           {}
func (noopListener) AfterAnalysis(string)                   {}

// JIT is the ORC-style binding layer (spec.md §4.J): it freezes the
// Cursor's modules, resolves symbols into namespaces, and exposes the
// runtime-reflection surface (Namespace, EventFn, Struct) once bound.
type JIT struct {
	cursor   *Cursor
	bj       backend.JIT
	listener Listener

	globalNS     *Namespace
	namespaceSeq []*Namespace
	namespaceMap map[string]*Namespace

	definedSymbols  map[string]linksym.Symbol
	declaredSymbols map[string]linksym.Symbol

	addedModules bool
	isBind       bool
}

// NewJIT constructs a JIT against a bound Cursor (spec.md §4.J
// "construction requires a live cursor in context").
func NewJIT(c *Cursor, listener Listener) (*JIT, error) {
	if !c.IsBindCalled() {
		c.fail(errstack.KindJIT, "NewJIT: cursor is not bound yet")
		return nil, fmt.Errorf("llcore: cursor %q is not bound", c.Name())
	}
	bj, err := c.be.NewJIT()
	if err != nil {
		c.fail(errstack.KindJIT, "NewJIT: "+err.Error())
		return nil, err
	}
	if listener == nil {
		listener = noopListener{}
	}
	j := &JIT{
		cursor:          c,
		bj:              bj,
		listener:        listener,
		globalNS:        newNamespace(""),
		namespaceMap:    map[string]*Namespace{},
		definedSymbols:  map[string]linksym.Symbol{},
		declaredSymbols: map[string]linksym.Symbol{},
	}
	j.namespaceSeq = append(j.namespaceSeq, j.globalNS)
	return j, nil
}

func (j *JIT) namespaceFor(n linksym.Name) *Namespace {
	if n.IsGlobal() {
		return j.globalNS
	}
	ns, ok := j.namespaceMap[n.Namespace]
	if !ok {
		ns = newNamespace(n.Namespace)
		j.namespaceMap[n.Namespace] = ns
		j.namespaceSeq = append(j.namespaceSeq, ns)
	}
	return ns
}

// AddModule implements add_module(cursor): iterates the cursor's
// modules, hands each to the backend JIT, and places every public
// symbol into its namespace (spec.md §4.J). Requires bind() to have
// been called on the cursor already.
func (j *JIT) AddModule() bool {
	defer j.cursor.ec.Here()()
	if !j.cursor.IsBindCalled() {
		j.cursor.fail(errstack.KindJIT, "add_module: cursor.bind() was never called")
		return false
	}
	sessionID := uuid.New().String()
	j.cursor.ec.SetTraceTag(sessionID)
	ok := true
	for _, m := range j.cursor.AllModules() {
		j.listener.BeforeAddModule(sessionID, m.Name())
		tsm, taken := m.TakeThreadSafeModule()
		if !taken {
			ok = false
			j.listener.AfterAddModule(sessionID, m.Name(), fmt.Errorf("module already taken"))
			continue
		}
		if err := j.bj.AddIRModule(tsm); err != nil {
			j.cursor.fail(errstack.KindJIT, "add_module: "+err.Error())
			j.listener.AfterAddModule(sessionID, m.Name(), err)
			ok = false
			continue
		}
		j.listener.AfterAddModule(sessionID, m.Name(), nil)
		for _, sym := range m.symbols.All() {
			j.definedSymbols[sym.FullName()] = sym
			ns := j.namespaceFor(sym.Name)
			switch sym.Class {
			case linksym.ClassFunction:
				ns.addEvent(sym)
			case linksym.ClassCustomStruct:
				j.globalNS.addStruct(newStructMirror(sym.FullName(), sym.Type, j.cursor.ec))
			}
		}
	}
	j.addedModules = true
	return ok
}

// Bind implements bind(): binds every namespace in reverse insertion
// order (spec.md §4.J). The global namespace is appended first by
// NewJIT and the others in discovery order during AddModule, so a
// namespace discovered later binds before one discovered earlier, and
// the global namespace binds last.
func (j *JIT) Bind() bool {
	defer j.cursor.ec.Here()()
	if !j.addedModules {
		j.cursor.fail(errstack.KindJIT, "bind: add_module was never called")
		return false
	}
	if j.isBind {
		j.cursor.fail(errstack.KindJIT, "bind: already bound")
		return false
	}
	sessionID := uuid.New().String()
	j.cursor.ec.SetTraceTag(sessionID)
	ok := true
	for i := len(j.namespaceSeq) - 1; i >= 0; i-- {
		ns := j.namespaceSeq[i]
		j.listener.BeforeBindNamespace(sessionID, ns.Name())
		nsOK := ns.bind(j.bj, j.cursor.ec)
		j.listener.AfterBindNamespace(sessionID, ns.Name(), nsOK)
		ok = ok && nsOK
	}
	j.isBind = true
	return ok
}

// GetFn implements get_fn(name): the host address of a resolved
// definition-or-declaration symbol.
func (j *JIT) GetFn(name string) (uintptr, bool) {
	defer j.cursor.ec.Here()()
	if !j.isBind {
		j.cursor.fail(errstack.KindJIT, "get_fn: jit is not bound yet")
		return 0, false
	}
	addr, err := j.bj.Lookup(name)
	if err != nil {
		j.cursor.fail(errstack.KindJIT, "get_fn: "+err.Error())
		return 0, false
	}
	return addr, true
}

// GlobalNamespace returns the unnamed namespace holding every
// is_global symbol.
func (j *JIT) GlobalNamespace() *Namespace { return j.globalNS }

// Namespace looks up a bound namespace by name.
func (j *JIT) Namespace(name string) (*Namespace, bool) {
	if name == "" {
		return j.globalNS, true
	}
	ns, ok := j.namespaceMap[name]
	return ns, ok
}

// ProcessModuleFn implements process_module_fn(function): runs the
// backend's fixed optimization pipeline (InstCombine -> Reassociate ->
// GVN, spec.md §4.J) over one already-verified function, instrumented
// through this JIT's Listener.
func (j *JIT) ProcessModuleFn(fn *function.Function) {
	if fn.HasError() {
		return
	}
	j.cursor.be.Pipeline().Run(fn.BackendFunction(), passInstrumentationAdapter{j.listener})
}

// passInstrumentationAdapter satisfies backend.PassInstrumentation by
// forwarding to a Listener, so the same hook set serves both module
// binding and pass-level tracing.
type passInstrumentationAdapter struct{ l Listener }

func (a passInstrumentationAdapter) BeforeNonSkipped(passName string) { a.l.BeforeNonSkipped(passName) }
func (a passInstrumentationAdapter) After(passName string)            { a.l.After(passName) }
func (a passInstrumentationAdapter) AfterAnalysis(passName string)    { a.l.AfterAnalysis(passName) }

// Close releases the underlying backend JIT.
func (j *JIT) Close() error { return j.bj.Close() }
