package llcore

import (
	"math"
	"unsafe"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
)

// Array is the runtime reflection handle for a heap-allocated array
// instance (spec.md §4.K Array): fixed element count and type, mirroring
// Object's set<T>/set_object/set_array/set_fn_ptr/freeze surface but
// indexed instead of named.
type Array struct {
	elemType types.TypeInfo
	count    int
	ec       *errstack.Context
	buf      []byte
	linked   map[int]interface{}
	frozen   bool
	errored  bool
}

// NewArray implements Array.from(element_type, size): heap-allocates a
// zero-initialized buffer of size contiguous elements.
func NewArray(elemType types.TypeInfo, size int, ec *errstack.Context) *Array {
	if elemType.HasError() || size <= 0 {
		ec.PushError(errstack.KindValueError, "array: invalid element type or non-positive size", errstack.SourceLoc{})
		return NullArray()
	}
	stride := elemType.SizeBytes()
	return &Array{
		elemType: elemType,
		count:    size,
		ec:       ec,
		buf:      make([]byte, stride*size),
		linked:   map[int]interface{}{},
	}
}

func NullArray() *Array { return &Array{errored: true} }

func (a *Array) IsNull() bool    { return a == nil || a.errored }
func (a *Array) HasError() bool  { return a.IsNull() }
func (a *Array) IsFrozen() bool  { return a != nil && a.frozen }
func (a *Array) Count() int      { return a.count }
func (a *Array) ElemType() types.TypeInfo { return a.elemType }

func (a *Array) Ref() unsafe.Pointer {
	if a.IsNull() || len(a.buf) == 0 {
		return nil
	}
	return unsafe.Pointer(&a.buf[0])
}

func (a *Array) fail(msg string) {
	defer a.ec.Here()()
	a.ec.PushError(errstack.KindValueError, msg, errstack.SourceLoc{})
	a.errored = true
}

func (a *Array) offsetOf(i int) (int, bool) {
	if i < 0 || i >= a.count {
		a.fail("array: index out of range")
		return 0, false
	}
	return i * a.elemType.SizeBytes(), true
}

func (a *Array) checkWritable() bool {
	if a.IsNull() {
		return false
	}
	if a.frozen {
		a.fail("array: cannot write after freeze")
		return false
	}
	return true
}

func (a *Array) SetInt(i int, v int64) {
	if !a.checkWritable() {
		return
	}
	off, ok := a.offsetOf(i)
	if !ok {
		return
	}
	if a.elemType.Kind() != backend.KindInt && a.elemType.Kind() != backend.KindBool {
		a.fail("array: element type is not an integer")
		return
	}
	putIntAt(a.buf, off, a.elemType.SizeBytes(), v)
}

func (a *Array) SetFloat(i int, v float64) {
	if !a.checkWritable() {
		return
	}
	off, ok := a.offsetOf(i)
	if !ok {
		return
	}
	if a.elemType.Kind() != backend.KindFloat {
		a.fail("array: element type is not a float")
		return
	}
	if a.elemType.SizeBytes() == 4 {
		putIntAt(a.buf, off, 4, int64(math.Float32bits(float32(v))))
	} else {
		putIntAt(a.buf, off, 8, int64(math.Float64bits(v)))
	}
}

func (a *Array) SetBool(i int, v bool) {
	n := int64(0)
	if v {
		n = 1
	}
	a.SetInt(i, n)
}

func (a *Array) checkPointerElem(wantElem backend.TypeKind) bool {
	if !a.checkWritable() {
		return false
	}
	if a.elemType.Kind() != backend.KindPointer || a.elemType.Elem().Kind() != wantElem {
		a.fail("array: element type does not accept this pointer kind")
		return false
	}
	return true
}

func (a *Array) SetObject(i int, other *Object) {
	if !a.checkPointerElem(backend.KindStruct) {
		return
	}
	off, ok := a.offsetOf(i)
	if !ok {
		return
	}
	if other.IsNull() || !other.IsFrozen() {
		a.fail("array: set_object requires a frozen object")
		return
	}
	putPtrAt(a.buf, off, other.Ref())
	a.linked[i] = other
}

func (a *Array) SetArray(i int, other *Array) {
	if !a.checkPointerElem(backend.KindArray) {
		return
	}
	off, ok := a.offsetOf(i)
	if !ok {
		return
	}
	if other.IsNull() || !other.IsFrozen() {
		a.fail("array: set_array requires a frozen array")
		return
	}
	putPtrAt(a.buf, off, other.Ref())
	a.linked[i] = other
}

func (a *Array) SetFnPtr(i int, addr uintptr) {
	if !a.checkWritable() {
		return
	}
	off, ok := a.offsetOf(i)
	if !ok {
		return
	}
	if a.elemType.Kind() != backend.KindPointer {
		a.fail("array: element type is not a function-pointer type")
		return
	}
	putIntAt(a.buf, off, ptrSize, int64(addr))
	a.linked[i] = addr
}

// Freeze mirrors Object.Freeze: every slot of a pointer-typed array must
// be linked before the array can be used as a value.
func (a *Array) Freeze() {
	if a.IsNull() || a.frozen {
		return
	}
	if a.elemType.Kind() == backend.KindPointer {
		for i := 0; i < a.count; i++ {
			if _, ok := a.linked[i]; !ok {
				a.fail("array: freeze: element was never linked")
				return
			}
		}
	}
	a.frozen = true
}
