package function_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/function"
	"github.com/irforge/llcore/internal/linksym"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/values"
)

// fakeModule and fakeCursor are minimal stand-ins for the root llcore
// Cursor/Module, sufficient to exercise FunctionBuilder and call_fn
// without the (not yet built at the time this test was written) root
// package.
type fakeModule struct {
	name string
	bm   backend.Module
	syms *linksym.Registry
}

func (m *fakeModule) Name() string                  { return m.name }
func (m *fakeModule) BackendModule() backend.Module { return m.bm }
func (m *fakeModule) RegisterFunctionSymbol(sym linksym.Symbol) bool {
	if m.syms == nil {
		m.syms = linksym.NewRegistry()
	}
	return m.syms.Register(sym)
}

type fakeCursor struct {
	be      backend.Backend
	ec      *errstack.Context
	fns     map[string]*function.Function
	current *fakeModule
}

func newFakeCursor() *fakeCursor {
	be := refbackend.New()
	return &fakeCursor{be: be, ec: errstack.New(0), fns: map[string]*function.Function{}}
}

func (c *fakeCursor) Backend() backend.Backend { return c.be }
func (c *fakeCursor) Errors() *errstack.Context { return c.ec }
func (c *fakeCursor) LookupFunction(name string) (*function.Function, bool) {
	fn, ok := c.fns[name]
	return fn, ok
}
func (c *fakeCursor) RegisterFunction(fn *function.Function) { c.fns[fn.Name()] = fn }
func (c *fakeCursor) CurrentModule() function.ModuleHandle   { return c.current }

func (c *fakeCursor) newModule(name string) *fakeModule {
	m := &fakeModule{name: name, bm: c.be.NewModule(name)}
	if c.current == nil {
		c.current = m
	}
	return m
}

func TestBuilderMissingContextFails(t *testing.T) {
	c := newFakeCursor()
	m := c.newModule("m")
	fn := function.NewBuilder(c).Named("f").In(m).WithReturnType(types.NewFactory(c.be, c.ec, func() bool { return false }).Int32()).Compile()
	require.True(t, fn.HasError())
	require.True(t, c.ec.HasError())
}

func TestBuilderDuplicateNameRejected(t *testing.T) {
	c := newFakeCursor()
	m := c.newModule("m")
	tf := types.NewFactory(c.be, c.ec, func() bool { return false })
	i32 := tf.Int32()

	first := function.NewBuilder(c).Named("f").In(m).WithContext(i32).WithReturnType(i32).Compile()
	require.False(t, first.HasError())

	second := function.NewBuilder(c).Named("f").In(m).WithContext(i32).WithReturnType(i32).Compile()
	require.True(t, second.HasError())
}

func TestCallFnAutoDeclaresAcrossModules(t *testing.T) {
	c := newFakeCursor()
	m1 := c.newModule("m1")
	tf := types.NewFactory(c.be, c.ec, func() bool { return false })
	i32 := tf.Int32()

	callee := function.NewBuilder(c).Named("callee").In(m1).WithContext(i32).WithReturnType(i32).Compile()
	require.False(t, callee.HasError())

	m2 := &fakeModule{name: "m2", bm: c.be.NewModule("m2")}
	_, ok := m2.BackendModule().GetFunction("callee")
	require.False(t, ok, "callee must not be visible in m2 before call_fn")

	arg := values.Constant(i32, true, 0)
	callResult := callee.CallFn(m2, arg)
	require.False(t, callResult.HasError())

	_, ok = m2.BackendModule().GetFunction("callee")
	require.True(t, ok, "call_fn must auto-declare callee into the caller's module")
}
