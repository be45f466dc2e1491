package values_test

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/values"
)

// TestIdentityScenario mirrors spec.md §8's worked "Identity function"
// example: ctx = {a:int32, result:int32}; body loads ctx.a and stores it
// into ctx.result; returns the constant 0.
func TestIdentityScenario(t *testing.T) {
	be := refbackend.New()
	ec := errstack.New(0)
	tf := types.NewFactory(be, ec, func() bool { return false })

	i32 := tf.Int32()
	ctxStruct := tf.Struct("ctx", []types.FieldEntry{
		{Name: "a", Type: i32},
		{Name: "result", Type: i32},
	}, false)
	require.False(t, ctxStruct.HasError())
	ctxPtr := tf.Pointer(ctxStruct)

	var ctxBuf struct{ a, result int32 }
	ctxBuf.a = 7

	m := be.NewModule("m")
	fn := m.DeclareFunction("id", ctxPtr.Backend(), i32.Backend(), false)
	blk := fn.AppendBasicBlock("entry")
	builder := be.Builder()
	builder.SetInsertBlock(blk)

	env := &values.Env{Builder: builder, CtxValue: fn.ArgValue(0)}

	ctx := values.Context(ctxPtr)
	aField := ctxStruct.Fields()[0]
	resultField := ctxStruct.Fields()[1]

	aPtr := values.InnerEntry(ctx, ctxStruct, []int{0}, tf.Pointer(aField.Type))
	loadedA := values.Load(aPtr, aField.Type)
	resultPtr := values.InnerEntry(ctx, ctxStruct, []int{1}, tf.Pointer(resultField.Type))
	stored := values.Store(resultPtr, loadedA)
	zero := values.Constant(i32, true, 0)

	_, ok := stored.Materialize(env)
	require.True(t, ok)
	zv, ok := zero.Materialize(env)
	require.True(t, ok)
	builder.Ret(zv)

	var vbuf bytes.Buffer
	require.True(t, fn.Verify(&vbuf), vbuf.String())

	jit, err := be.NewJIT()
	require.NoError(t, err)
	require.NoError(t, jit.AddIRModule(m.ThreadSafe()))
	addr, err := jit.Lookup("id")
	require.NoError(t, err)

	ret := jit.Invoke(addr, unsafe.Pointer(&ctxBuf))
	require.Equal(t, int32(0), ret)
	require.Equal(t, int32(7), ctxBuf.result)
	require.False(t, ec.HasError())
}

func TestValueEqualityIsNeverStructural(t *testing.T) {
	be := refbackend.New()
	tf := types.NewFactory(be, errstack.New(0), func() bool { return false })
	i32 := tf.Int32()

	a := values.Constant(i32, true, 5)
	b := values.Constant(i32, true, 5)
	require.False(t, a.Equal(b), "two independently constructed ValueInfo must never compare equal")
	require.True(t, a.Equal(a))
}

func TestTagInheritance(t *testing.T) {
	be := refbackend.New()
	tf := types.NewFactory(be, errstack.New(0), func() bool { return false })
	i32 := tf.Int32()

	lhs := values.Constant(i32, true, 1).WithTag("lhs")
	rhs := values.Constant(i32, true, 2)
	sum := values.Binary(backend.OpAdd, true, lhs, rhs, i32)
	require.Equal(t, "lhs", sum.Tag())
}

func TestMaterializeIsMemoized(t *testing.T) {
	be := refbackend.New()
	tf := types.NewFactory(be, errstack.New(0), func() bool { return false })
	i32 := tf.Int32()

	m := be.NewModule("m")
	fn := m.DeclareFunction("f", i32.Backend(), i32.Backend(), false)
	blk := fn.AppendBasicBlock("entry")
	builder := be.Builder()
	builder.SetInsertBlock(blk)
	env := &values.Env{Builder: builder, CtxValue: fn.ArgValue(0)}

	one := values.Constant(i32, true, 1)
	sum := values.Binary(backend.OpAdd, true, one, one, i32)

	v1, _ := sum.Materialize(env)
	v2, _ := sum.Materialize(env)
	require.Same(t, v1, v2, "repeated Materialize on the same node must return the memoized value, not re-emit")
}
