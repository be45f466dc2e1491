package varctx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/varctx"
	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/values"
)

func TestSetWithoutPointerBindsPlainValue(t *testing.T) {
	ec := errstack.New(0)
	be := refbackend.New()
	tf := types.NewFactory(be, ec, func() bool { return false })
	i32 := tf.Int32()

	m := varctx.New(ec)
	five := values.Constant(i32, true, 5)
	m.Set("x", five)

	got := m.Pop("x")
	require.True(t, got.Equal(five))
}

func TestPushPopContextChain(t *testing.T) {
	ec := errstack.New(0)
	be := refbackend.New()
	tf := types.NewFactory(be, ec, func() bool { return false })
	i32 := tf.Int32()

	m := varctx.New(ec)
	outer := values.Constant(i32, true, 1)
	m.Set("x", outer)

	m.PushContext()
	got := m.Pop("x")
	require.True(t, got.Equal(outer), "lookup must walk the parent chain")

	inner := values.Constant(i32, true, 2)
	m.Set("x", inner)
	require.True(t, m.Pop("x").Equal(inner))

	m.PopContext()
	require.True(t, m.Pop("x").Equal(outer), "popping the frame restores the outer binding")
}

func TestPopContextOnEmptyStackIsNoOp(t *testing.T) {
	ec := errstack.New(0)
	m := varctx.New(ec)
	m.PopContext()
	m.PopContext()
	require.False(t, ec.HasError())
}

func TestPopUnknownNameErrors(t *testing.T) {
	ec := errstack.New(0)
	m := varctx.New(ec)
	v := m.Pop("nope")
	require.True(t, v.HasError())
	require.True(t, ec.HasError())
}
