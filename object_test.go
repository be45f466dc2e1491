package llcore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
)

// newTestCursorWithStructs returns an unbound cursor and its type
// factory; structs must be created before the caller binds it.
func newTestCursorWithStructs(t *testing.T) (*Cursor, *types.Factory) {
	t.Helper()
	c := New("prog", refbackend.New())
	return c, c.Types()
}

func TestObjectFreezeRejectsUnlinkedPointerField(t *testing.T) {
	c, tf := newTestCursorWithStructs(t)
	i32 := tf.Int32()
	leaf := tf.Struct("leaf", []types.FieldEntry{{Name: "v", Type: i32}}, false)
	outer := tf.Struct("outer", []types.FieldEntry{
		{Name: "child", Type: tf.Pointer(leaf)},
	}, false)
	m := c.Bind()

	leafSM := m.AddStructDefinition("", "leaf", leaf)
	outerSM := m.AddStructDefinition("", "outer", outer)
	require.False(t, leafSM.HasError())
	require.False(t, outerSM.HasError())

	obj := outerSM.MkObject()
	obj.Freeze()
	require.False(t, obj.IsFrozen(), "freeze must fail while child is unlinked")
}

func TestObjectSetObjectRequiresFrozenOther(t *testing.T) {
	c, tf := newTestCursorWithStructs(t)
	i32 := tf.Int32()
	leaf := tf.Struct("leaf", []types.FieldEntry{{Name: "v", Type: i32}}, false)
	outer := tf.Struct("outer", []types.FieldEntry{
		{Name: "child", Type: tf.Pointer(leaf)},
	}, false)
	m := c.Bind()
	leafSM := m.AddStructDefinition("", "leaf", leaf)
	outerSM := m.AddStructDefinition("", "outer", outer)

	child := leafSM.MkObject()
	child.SetInt("v", 1)
	// not frozen yet

	parent := outerSM.MkObject()
	parent.SetObject("child", child)
	require.True(t, parent.HasError(), "set_object must reject an unfrozen other")
}

func TestObjectSetAfterFreezeIsForbidden(t *testing.T) {
	c, tf := newTestCursorWithStructs(t)
	i32 := tf.Int32()
	leaf := tf.Struct("leaf", []types.FieldEntry{{Name: "v", Type: i32}}, false)
	m := c.Bind()
	sm := m.AddStructDefinition("", "leaf", leaf)

	obj := sm.MkObject()
	obj.SetInt("v", 1)
	obj.Freeze()
	require.True(t, obj.IsFrozen())

	obj.SetInt("v", 2)
	require.True(t, obj.HasError(), "writing a field after freeze must fail")
}

func TestObjectSetObjectThenFreezeSucceeds(t *testing.T) {
	c, tf := newTestCursorWithStructs(t)
	i32 := tf.Int32()
	leaf := tf.Struct("leaf", []types.FieldEntry{{Name: "v", Type: i32}}, false)
	outer := tf.Struct("outer", []types.FieldEntry{
		{Name: "child", Type: tf.Pointer(leaf)},
	}, false)
	m := c.Bind()
	leafSM := m.AddStructDefinition("", "leaf", leaf)
	outerSM := m.AddStructDefinition("", "outer", outer)

	child := leafSM.MkObject()
	child.SetInt("v", 9)
	child.Freeze()
	require.True(t, child.IsFrozen())

	parent := outerSM.MkObject()
	parent.SetObject("child", child)
	parent.Freeze()
	require.True(t, parent.IsFrozen())

	got, ok := parent.GetObject("child")
	require.True(t, ok)
	require.Same(t, child, got)
}

func TestArrayFreezeRequiresLinkedPointerSlots(t *testing.T) {
	c, tf := newTestCursorWithStructs(t)
	i32 := tf.Int32()
	leaf := tf.Struct("leaf", []types.FieldEntry{{Name: "v", Type: i32}}, false)
	m := c.Bind()
	leafSM := m.AddStructDefinition("", "leaf", leaf)

	arr := NewArray(tf.Pointer(leaf), 2, errstack.New(0))
	require.False(t, arr.HasError())

	child := leafSM.MkObject()
	child.SetInt("v", 1)
	child.Freeze()

	arr.SetObject(0, child)
	arr.Freeze()
	require.False(t, arr.IsFrozen(), "freeze must fail while slot 1 is unlinked")
}

func TestArrayOfIntsFreezesImmediately(t *testing.T) {
	_, tf := newTestCursorWithStructs(t)
	i32 := tf.Int32()
	arr := NewArray(i32, 3, errstack.New(0))
	arr.SetInt(0, 1)
	arr.SetInt(1, 2)
	arr.SetInt(2, 3)
	arr.Freeze()
	require.True(t, arr.IsFrozen())
}
