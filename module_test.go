package llcore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/types"
)

func TestAddStructDefinitionRejectsNonStructType(t *testing.T) {
	c := New("prog", refbackend.New())
	m := c.Bind()
	i32 := c.Types().Int32()

	sm := m.AddStructDefinition("", "notastruct", i32)
	require.Nil(t, sm)
	require.True(t, c.Errors().HasError())
}

func TestAddStructDefinitionRejectsDuplicateFullName(t *testing.T) {
	c := New("prog", refbackend.New())
	tf := c.Types()
	s := tf.Struct("s", []types.FieldEntry{{Name: "x", Type: tf.Int32()}}, false)
	m := c.Bind()

	first := m.AddStructDefinition("ns", "s", s)
	require.False(t, first.HasError())
	second := m.AddStructDefinition("ns", "s", s)
	require.Nil(t, second)
	require.True(t, c.Errors().HasError())
}

func TestTakeThreadSafeModuleIsSingleUse(t *testing.T) {
	c := New("prog", refbackend.New())
	m := c.Bind()

	_, ok := m.TakeThreadSafeModule()
	require.True(t, ok)
	_, ok = m.TakeThreadSafeModule()
	require.False(t, ok)
	require.True(t, c.Errors().HasError())
}

func TestWriteToOStreamEmitsIR(t *testing.T) {
	c := New("prog", refbackend.New())
	m := c.Bind()
	i32 := c.Types().Int32()
	fn := c.NewFunction().Named("f").In(m).WithContext(i32).WithReturnType(i32).Compile()
	require.False(t, fn.HasError())

	var buf bytes.Buffer
	require.NoError(t, m.WriteToOStream(&buf))
	require.Contains(t, buf.String(), "prog")
}
