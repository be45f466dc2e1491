package codesection_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/function"
	"github.com/irforge/llcore/internal/linksym"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/values"
)

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

// TestSingleSectionReturnsConstant builds a function with one section
// that returns a constant, exercising mk_section/enter/set_return_value
// end to end through the reference backend.
func TestSingleSectionReturnsConstant(t *testing.T) {
	c := newFakeCursor()
	m := c.newModule("m")
	tf := types.NewFactory(c.be, c.ec, func() bool { return false })
	i32 := tf.Int32()

	fn := function.NewBuilder(c).Named("answer").In(m).WithContext(i32).WithReturnType(i32).Compile()
	require.False(t, fn.HasError())

	sec := fn.MkSection("entry")
	require.False(t, sec.HasError())
	sec.Enter()
	sec.SetReturnValue(values.Constant(i32, true, 42))
	require.True(t, sec.IsSealed())

	require.True(t, fn.Verify(nil))

	jit, err := c.be.NewJIT()
	require.NoError(t, err)
	require.NoError(t, jit.AddIRModule(m.BackendModule().ThreadSafe()))
	addr, err := jit.Lookup("answer")
	require.NoError(t, err)

	var ctxVal int32
	require.Equal(t, int32(42), jit.Invoke(addr, unsafe.Pointer(&ctxVal)))
}

func TestDuplicateSectionNameRejected(t *testing.T) {
	c := newFakeCursor()
	m := c.newModule("m")
	tf := types.NewFactory(c.be, c.ec, func() bool { return false })
	i32 := tf.Int32()
	fn := function.NewBuilder(c).Named("f").In(m).WithContext(i32).WithReturnType(i32).Compile()

	first := fn.MkSection("entry")
	require.False(t, first.HasError())
	second := fn.MkSection("entry")
	require.True(t, second.HasError())
}

func TestDoubleEnterRejected(t *testing.T) {
	c := newFakeCursor()
	m := c.newModule("m")
	tf := types.NewFactory(c.be, c.ec, func() bool { return false })
	i32 := tf.Int32()
	fn := function.NewBuilder(c).Named("f").In(m).WithContext(i32).WithReturnType(i32).Compile()

	sec := fn.MkSection("entry")
	sec.Enter()
	sec.Enter()
	require.True(t, c.ec.HasError())

	// set_return_value after the failed re-enter is a no-op, not a panic.
	sec.SetReturnValue(values.Constant(i32, true, 0))
}
