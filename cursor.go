package llcore

import (
	"fmt"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/function"
	"github.com/irforge/llcore/internal/types"
)

// Cursor is the top-level compilation unit (spec.md §4.I): it owns the
// backend context, the interned type factory, the module graph and the
// function-name registry until modules are taken by a JIT.
type Cursor struct {
	name string
	be   backend.Backend
	ec   *errstack.Context
	tf   *types.Factory
	cfg  config

	modules     map[string]*Module
	moduleOrder []string
	mainModule  *Module
	moduleCount int

	funcs map[string]*function.Function

	hooks []func(*Module)

	isBind    bool
	isDeleted bool
}

// New constructs a Cursor against the given backend (spec.md §4.I).
// Config options (see config.go) customize the error-log capacity and
// other ambient knobs before any module exists.
func New(name string, be backend.Backend, opts ...Option) *Cursor {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	c := &Cursor{
		name:    name,
		be:      be,
		ec:      errstack.New(cfg.errorLogCapacity),
		cfg:     cfg,
		modules: map[string]*Module{},
		funcs:   map[string]*function.Function{},
	}
	c.tf = types.NewFactory(be, c.ec, func() bool { return c.isBind })
	return c
}

func (c *Cursor) Name() string                  { return c.name }
func (c *Cursor) Backend() backend.Backend      { return c.be }
func (c *Cursor) Errors() *errstack.Context      { return c.ec }
func (c *Cursor) Types() *types.Factory          { return c.tf }
func (c *Cursor) IsBindCalled() bool             { return c.isBind }
func (c *Cursor) IsDeleted() bool                { return c.isDeleted }

func (c *Cursor) fail(kind errstack.Kind, msg string) {
	defer c.ec.Here()()
	c.ec.PushError(kind, msg, errstack.SourceLoc{})
}

func (c *Cursor) checkLive() bool {
	if c.isDeleted {
		c.fail(errstack.KindContext, "cursor: use after cleanup")
		return false
	}
	return true
}

// MainModuleHook registers fn to run on the main module at bind() time;
// refused once bind has already happened (spec.md §4.I).
func (c *Cursor) MainModuleHook(fn func(*Module)) {
	defer c.ec.Here()()
	if !c.checkLive() {
		return
	}
	if c.isBind {
		c.fail(errstack.KindModule, "main_module_hook: refused after bind")
		return
	}
	c.hooks = append(c.hooks, fn)
}

// Bind implements bind(): a single transition that creates the main
// module and runs every registered hook against it. Calling it twice is
// an error (spec.md §4.I).
func (c *Cursor) Bind() *Module {
	defer c.ec.Here()()
	if !c.checkLive() {
		return nil
	}
	if c.isBind {
		c.fail(errstack.KindContext, "bind: already bound")
		return c.mainModule
	}
	c.isBind = true
	m := c.genModule(c.name)
	c.mainModule = m
	for _, hook := range c.hooks {
		hook(m)
	}
	return m
}

// GenModule implements gen_module(): produces a numbered module
// "{cursor}_{count}" after bind. Before bind, only Bind() itself may
// mint the main module.
func (c *Cursor) GenModule() *Module {
	defer c.ec.Here()()
	if !c.checkLive() {
		return nil
	}
	if !c.isBind {
		c.fail(errstack.KindModule, "gen_module: cursor is not bound yet")
		return nil
	}
	return c.genModule(fmt.Sprintf("%s_%d", c.name, c.moduleCount))
}

func (c *Cursor) genModule(name string) *Module {
	m := newModule(c, name)
	c.modules[name] = m
	c.moduleOrder = append(c.moduleOrder, name)
	c.moduleCount++
	return m
}

// ForEachModule iterates every module except the main one, insertion
// order (spec.md §4.I).
func (c *Cursor) ForEachModule(fn func(*Module)) {
	for _, name := range c.moduleOrder {
		if c.mainModule != nil && name == c.mainModule.Name() {
			continue
		}
		fn(c.modules[name])
	}
}

// AllModules returns every module including the main one, insertion
// order; used by JIT.AddModule.
func (c *Cursor) AllModules() []*Module {
	out := make([]*Module, 0, len(c.moduleOrder))
	for _, name := range c.moduleOrder {
		out = append(out, c.modules[name])
	}
	return out
}

// Cleanup implements cleanup(): drops every module and function record;
// the cursor becomes unusable (spec.md §4.I). The type factory and the
// types it has interned are not dropped.
func (c *Cursor) Cleanup() {
	c.modules = map[string]*Module{}
	c.moduleOrder = nil
	c.mainModule = nil
	c.funcs = map[string]*function.Function{}
	c.hooks = nil
	c.isDeleted = true
}

// CurrentModule satisfies internal/function.CursorHandle: the implicit
// enclosing module for functions built without an explicit In(module)
// (spec.md design note 9: rendered as an owned field, not a thread-local
// global).
func (c *Cursor) CurrentModule() function.ModuleHandle {
	if c.mainModule == nil {
		return nil
	}
	return c.mainModule
}

// LookupFunction and RegisterFunction satisfy
// internal/function.CursorHandle.
func (c *Cursor) LookupFunction(name string) (*function.Function, bool) {
	fn, ok := c.funcs[name]
	return fn, ok
}

func (c *Cursor) RegisterFunction(fn *function.Function) { c.funcs[fn.Name()] = fn }

// NewFunction returns a fresh FunctionBuilder bound to this cursor
// (spec.md §4.E).
func (c *Cursor) NewFunction() *function.Builder { return function.NewBuilder(c) }

// ABINamespace appends the cursor's debug/release ABI tag to a
// namespace name (REDESIGN FLAGS "Debug vs release ABI"): functions
// built under a debug-configured Cursor publish under a different
// namespace than a release-configured one, so the two can never
// accidentally link against each other. Global (un-namespaced) symbols
// are unaffected by this; give a project-level symbol an explicit
// namespace to get ABI isolation.
func (c *Cursor) ABINamespace(ns string) string {
	if c.cfg.debugABI {
		return ns + "_debug"
	}
	return ns + "_release"
}
