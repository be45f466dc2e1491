package llcore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/values"
)

// TestEndToEndEventFn builds a function that copies ctx.a into
// ctx.result, binds it into a namespace through JIT, then drives it via
// an Object built from the namespace's Struct mirror -- the full path
// spec.md §8's worked scenario describes end to end through the public
// Cursor/Module/JIT/Namespace/EventFn/Object surface.
func TestEndToEndEventFn(t *testing.T) {
	c := New("prog", refbackend.New())
	tf := c.Types()
	i32 := tf.Int32()
	ctxStruct := tf.Struct("ctx", []types.FieldEntry{
		{Name: "a", Type: i32},
		{Name: "result", Type: i32},
	}, false)
	require.False(t, ctxStruct.HasError())
	ctxPtr := tf.Pointer(ctxStruct)

	m := c.Bind()
	require.NotNil(t, m)

	sm := m.AddStructDefinition("", "ctx", ctxStruct)
	require.False(t, sm.HasError())

	fn := c.NewFunction().Named("copy_a").In(m).WithContext(ctxPtr).WithReturnType(i32).WithNamespace("evt").Compile()
	require.False(t, fn.HasError())

	sec := fn.MkSection("entry")
	sec.Enter()

	ctxVal := fn.Context().Value()
	aField := ctxStruct.Fields()[0]
	resultField := ctxStruct.Fields()[1]

	aPtr := values.InnerEntry(ctxVal, ctxStruct, []int{0}, tf.Pointer(aField.Type))
	loadedA := values.Load(aPtr, aField.Type)
	resultPtr := values.InnerEntry(ctxVal, ctxStruct, []int{1}, tf.Pointer(resultField.Type))
	stored := values.Store(resultPtr, loadedA)
	_, ok := stored.Materialize(sec.Env())
	require.True(t, ok)

	sec.SetReturnValue(values.Constant(i32, true, 0))
	require.True(t, sec.IsSealed())

	var verifyBuf bytes.Buffer
	require.True(t, fn.Verify(func(s string) { verifyBuf.WriteString(s) }), verifyBuf.String())

	jit, err := NewJIT(c, nil)
	require.NoError(t, err)
	require.True(t, jit.AddModule())
	require.True(t, jit.Bind())

	ns, ok := jit.Namespace("evt")
	require.True(t, ok)
	ev, ok := ns.EventFn("copy_a")
	require.True(t, ok)
	require.True(t, ev.IsInit())

	structMirror, ok := jit.GlobalNamespace().Struct("ctx")
	require.True(t, ok)

	obj := structMirror.MkObject()
	obj.SetInt("a", 7)
	obj.SetInt("result", 0)
	obj.Freeze()
	require.True(t, obj.IsFrozen())

	ret, ok := ev.OnEvent(c.Errors(), obj)
	require.True(t, ok)
	require.Equal(t, int32(0), ret)

	got, ok := obj.GetInt("result")
	require.True(t, ok)
	require.Equal(t, int64(7), got)
	require.False(t, c.Errors().HasError())
}

func TestNewJITRequiresBind(t *testing.T) {
	c := New("prog", refbackend.New())
	_, err := NewJIT(c, nil)
	require.Error(t, err)
	require.True(t, c.Errors().HasError())
}

func TestOnEventRequiresFrozenObject(t *testing.T) {
	c := New("prog", refbackend.New())
	tf := c.Types()
	i32 := tf.Int32()
	ctxStruct := tf.Struct("ctx", []types.FieldEntry{{Name: "a", Type: i32}}, false)
	ctxPtr := tf.Pointer(ctxStruct)

	m := c.Bind()
	sm := m.AddStructDefinition("", "ctx", ctxStruct)
	fn := c.NewFunction().Named("f").In(m).WithContext(ctxPtr).WithReturnType(i32).WithNamespace("evt").Compile()
	sec := fn.MkSection("entry")
	sec.Enter()
	sec.SetReturnValue(values.Constant(i32, true, 1))
	require.True(t, fn.Verify(nil))

	jit, err := NewJIT(c, nil)
	require.NoError(t, err)
	require.True(t, jit.AddModule())
	require.True(t, jit.Bind())

	ns, _ := jit.Namespace("evt")
	ev, _ := ns.EventFn("f")
	obj := sm.MkObject()

	_, ok := ev.OnEvent(c.Errors(), obj)
	require.False(t, ok, "on_event must refuse an unfrozen object")
	require.True(t, c.Errors().HasError())
}
