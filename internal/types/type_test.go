package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/backend/refbackend"
	"github.com/irforge/llcore/internal/errstack"
)

func newFactory() (*Factory, *errstack.Context) {
	be := refbackend.New()
	ec := errstack.New(0)
	return NewFactory(be, ec, func() bool { return false }), ec
}

func TestScalarInterning(t *testing.T) {
	f, ec := newFactory()
	a := f.Int32()
	b := f.Int32()
	require.True(t, a.Equal(b))
	require.False(t, ec.HasError())
}

func TestPointerAndArray(t *testing.T) {
	f, ec := newFactory()
	i32 := f.Int32()
	p1 := f.Pointer(i32)
	p2 := f.Pointer(i32)
	require.True(t, p1.Equal(p2))

	arr := f.Array(i32, 4)
	require.False(t, arr.HasError())
	require.Equal(t, 4, arr.Count())
	require.Equal(t, backend.KindArray, arr.Kind())
	require.False(t, ec.HasError())
}

func TestArrayRejectsZeroCount(t *testing.T) {
	f, ec := newFactory()
	arr := f.Array(f.Int8(), 0)
	require.True(t, arr.HasError())
	require.True(t, ec.HasError())
}

func TestVectorRejectsPointerElem(t *testing.T) {
	f, ec := newFactory()
	ptr := f.Pointer(f.Int32())
	v := f.Vector(ptr, 4)
	require.True(t, v.HasError())
	require.True(t, ec.HasError())
}

func TestStructDuplicateField(t *testing.T) {
	f, ec := newFactory()
	i32 := f.Int32()
	st := f.Struct("Point", []FieldEntry{
		{Name: "x", Type: i32},
		{Name: "x", Type: i32},
	}, false)
	require.True(t, st.HasError())
	require.True(t, ec.HasError())
}

func TestStructFieldMustBeScalarOrAggregatePointer(t *testing.T) {
	f, ec := newFactory()
	i32 := f.Int32()
	arr := f.Array(i32, 4)
	arrPtr := f.Pointer(arr)

	good := f.Struct("Good", []FieldEntry{
		{Name: "n", Type: i32},
		{Name: "items", Type: arrPtr},
	}, false)
	require.False(t, good.HasError())
	require.False(t, ec.HasError())

	// A struct field that is a pointer-to-pointer is rejected: the
	// pointer's base must be struct/array/vector, not another pointer.
	badField := f.Struct("Bad", []FieldEntry{
		{Name: "pp", Type: f.Pointer(f.Pointer(i32))},
	}, false)
	require.True(t, badField.HasError())
}

func TestStructRejectedAfterBind(t *testing.T) {
	be := refbackend.New()
	ec := errstack.New(0)
	bound := true
	f := NewFactory(be, ec, func() bool { return bound })

	st := f.Struct("Late", []FieldEntry{{Name: "x", Type: f.Int32()}}, false)
	require.True(t, st.HasError())
}

func TestStructFieldOffsets(t *testing.T) {
	f, _ := newFactory()
	i8 := f.Int8()
	i32 := f.Int32()
	st := f.Struct("Packed", []FieldEntry{
		{Name: "a", Type: i8},
		{Name: "b", Type: i32},
	}, false)
	require.False(t, st.HasError())
	fields := st.Fields()
	require.Len(t, fields, 2)
	require.Equal(t, 0, fields[0].Offset)
	// b is 4-byte aligned, so it cannot sit at offset 1.
	require.Equal(t, 4, fields[1].Offset)
}

func TestNullTypeHasError(t *testing.T) {
	n := Null()
	require.True(t, n.HasError())
	require.True(t, n.Equal(Null()))
}
