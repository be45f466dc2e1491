package llcore

import (
	"fmt"
	"io"
	"math"
	"unsafe"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
)

const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// Object is the runtime reflection handle for a heap-allocated struct
// instance (spec.md §4.K): a raw byte buffer laid out exactly as the
// backend's data layout computed for its StructMirror, plus a retained
// side table of every linked object/array/function-pointer field so
// those values outlive the write that planted their address.
type Object struct {
	mirror *StructMirror
	ec     *errstack.Context
	buf    []byte
	linked map[string]interface{}
	frozen bool
	errored bool
}

func newObject(mirror *StructMirror, ec *errstack.Context) *Object {
	return &Object{mirror: mirror, ec: ec, buf: make([]byte, mirror.SizeBytes()), linked: map[string]interface{}{}}
}

// NullObject is the error-state sentinel (spec.md §4.A handle protocol).
func NullObject() *Object { return &Object{errored: true} }

func (o *Object) IsNull() bool    { return o == nil || o.errored }
func (o *Object) HasError() bool { return o.IsNull() }
func (o *Object) IsFrozen() bool { return o != nil && o.frozen }

// Ref returns the object's address, the obj.ref() the spec hands to
// EventFn.on_event and to parent pointer fields.
func (o *Object) Ref() unsafe.Pointer {
	if o.IsNull() || len(o.buf) == 0 {
		return nil
	}
	return unsafe.Pointer(&o.buf[0])
}

func (o *Object) fail(msg string) {
	defer o.ec.Here()()
	o.ec.PushError(errstack.KindValueError, msg, errstack.SourceLoc{})
	o.errored = true
}

func (o *Object) resolveWritable(name string) (types.FieldEntry, bool) {
	if o.IsNull() {
		return types.FieldEntry{}, false
	}
	if o.frozen {
		o.fail("object: cannot write field " + name + " after freeze")
		return types.FieldEntry{}, false
	}
	f, ok := o.mirror.Field(name)
	if !ok {
		o.fail("object: no such field " + name)
		return types.FieldEntry{}, false
	}
	if f.ReadOnly {
		o.fail("object: field " + name + " is read-only")
		return types.FieldEntry{}, false
	}
	return f, true
}

// SetInt implements the integer flavor of spec.md §4.K's templated
// set<T>(field_name, value).
func (o *Object) SetInt(name string, v int64) {
	f, ok := o.resolveWritable(name)
	if !ok {
		return
	}
	if f.Type.Kind() != backend.KindInt && f.Type.Kind() != backend.KindBool {
		o.fail("object: field " + name + " is not an integer field")
		return
	}
	putIntAt(o.buf, f.Offset, f.Type.SizeBytes(), v)
}

// SetFloat implements the float flavor of set<T>.
func (o *Object) SetFloat(name string, v float64) {
	f, ok := o.resolveWritable(name)
	if !ok {
		return
	}
	if f.Type.Kind() != backend.KindFloat {
		o.fail("object: field " + name + " is not a float field")
		return
	}
	switch f.Type.SizeBytes() {
	case 4:
		bits := math.Float32bits(float32(v))
		putIntAt(o.buf, f.Offset, 4, int64(bits))
	default:
		bits := math.Float64bits(v)
		putIntAt(o.buf, f.Offset, 8, int64(bits))
	}
}

// SetBool implements the bool flavor of set<T>.
func (o *Object) SetBool(name string, v bool) {
	n := int64(0)
	if v {
		n = 1
	}
	o.SetInt(name, n)
}

func (o *Object) resolveReadable(name string) (types.FieldEntry, bool) {
	if o.IsNull() {
		return types.FieldEntry{}, false
	}
	f, ok := o.mirror.Field(name)
	if !ok {
		o.fail("object: no such field " + name)
		return types.FieldEntry{}, false
	}
	return f, true
}

// GetInt reads back an integer/bool field (the read-side counterpart of
// SetInt).
func (o *Object) GetInt(name string) (int64, bool) {
	f, ok := o.resolveReadable(name)
	if !ok {
		return 0, false
	}
	return getIntAt(o.buf, f.Offset, f.Type.SizeBytes()), true
}

// GetFloat reads back a float field.
func (o *Object) GetFloat(name string) (float64, bool) {
	f, ok := o.resolveReadable(name)
	if !ok {
		return 0, false
	}
	if f.Type.SizeBytes() == 4 {
		return float64(math.Float32frombits(uint32(getIntAt(o.buf, f.Offset, 4)))), true
	}
	return math.Float64frombits(uint64(getIntAt(o.buf, f.Offset, 8))), true
}

// GetObject returns the *Object previously linked via SetObject.
func (o *Object) GetObject(name string) (*Object, bool) {
	v, ok := o.linked[name]
	if !ok {
		return nil, false
	}
	other, ok := v.(*Object)
	return other, ok
}

// GetArray returns the *Array previously linked via SetArray.
func (o *Object) GetArray(name string) (*Array, bool) {
	v, ok := o.linked[name]
	if !ok {
		return nil, false
	}
	other, ok := v.(*Array)
	return other, ok
}

func (o *Object) checkPointerField(name string, wantElem backend.TypeKind) (types.FieldEntry, bool) {
	f, ok := o.resolveWritable(name)
	if !ok {
		return f, false
	}
	if f.Type.Kind() != backend.KindPointer || f.Type.Elem().Kind() != wantElem {
		o.fail("object: field " + name + " does not accept this pointer kind")
		return f, false
	}
	return f, true
}

// SetObject implements set_object(field_name, other): other must already
// be frozen (spec.md §4.K).
func (o *Object) SetObject(name string, other *Object) {
	f, ok := o.checkPointerField(name, backend.KindStruct)
	if !ok {
		return
	}
	if other.IsNull() || !other.IsFrozen() {
		o.fail("object: set_object requires a frozen object")
		return
	}
	putPtrAt(o.buf, f.Offset, other.Ref())
	o.linked[name] = other
}

// SetArray implements set_array(field_name, arr): arr must already be
// frozen.
func (o *Object) SetArray(name string, arr *Array) {
	f, ok := o.checkPointerField(name, backend.KindArray)
	if !ok {
		return
	}
	if arr.IsNull() || !arr.IsFrozen() {
		o.fail("object: set_array requires a frozen array")
		return
	}
	putPtrAt(o.buf, f.Offset, arr.Ref())
	o.linked[name] = arr
}

// SetFnPtr implements set_fn_ptr(field_name, addr): addr is a resolved
// JIT function address (e.g. from JIT.GetFn), stored as a raw pointer.
func (o *Object) SetFnPtr(name string, addr uintptr) {
	f, ok := o.resolveWritable(name)
	if !ok {
		return
	}
	if f.Type.Kind() != backend.KindPointer {
		o.fail("object: field " + name + " is not a function-pointer field")
		return
	}
	putIntAt(o.buf, f.Offset, ptrSize, int64(addr))
	o.linked[name] = addr
}

// Freeze implements freeze(): every pointer-typed field must have been
// linked via SetObject/SetArray/SetFnPtr first, or freeze fails: the
// object is then marked errored and later reads and writes on it fail.
func (o *Object) Freeze() {
	if o.IsNull() || o.frozen {
		return
	}
	for _, f := range o.mirror.Fields() {
		if f.Type.Kind() != backend.KindPointer {
			continue
		}
		if _, ok := o.linked[f.Name]; !ok {
			o.fail("object: freeze: pointer field " + f.Name + " was never linked")
			return
		}
	}
	o.frozen = true
}

// IsInstanceOf implements is_instance_of(Struct): a cheap identity check
// against the mirror an Object was allocated from, meant to be tested
// before set_object/get_object (SUPPLEMENTED FEATURES §4).
func (o *Object) IsInstanceOf(mirror *StructMirror) bool {
	if o.IsNull() || mirror.IsNull() {
		return false
	}
	return o.mirror == mirror
}

// DebugDump writes a human-readable field-by-field dump of the object's
// raw bytes, keyed off each field's RuntimeKind (SUPPLEMENTED FEATURES
// §2).
func (o *Object) DebugDump(w io.Writer) {
	if o.IsNull() {
		fmt.Fprintln(w, "<null object>")
		return
	}
	for _, f := range o.mirror.Fields() {
		fmt.Fprintf(w, "%s (%s) @%d = %s\n", f.Name, f.Type.RuntimeKind(), f.Offset, dumpFieldValue(f, o.buf))
	}
}

func dumpFieldValue(f types.FieldEntry, buf []byte) string {
	switch f.Type.RuntimeKind() {
	case types.RuntimeFloat32:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(getIntAt(buf, f.Offset, 4))))
	case types.RuntimeFloat64:
		return fmt.Sprintf("%g", math.Float64frombits(uint64(getIntAt(buf, f.Offset, 8))))
	case types.RuntimePointerStruct, types.RuntimePointerArray, types.RuntimePointerFn:
		return fmt.Sprintf("0x%x", uint64(getIntAt(buf, f.Offset, ptrSize)))
	default:
		return fmt.Sprintf("%d", getIntAt(buf, f.Offset, f.Type.SizeBytes()))
	}
}

func getIntAt(buf []byte, offset, size int) int64 {
	var u uint64
	for i := 0; i < size && offset+i < len(buf); i++ {
		u |= uint64(buf[offset+i]) << (8 * uint(i))
	}
	return int64(u)
}

func putIntAt(buf []byte, offset, size int, v int64) {
	u := uint64(v)
	for i := 0; i < size && offset+i < len(buf); i++ {
		buf[offset+i] = byte(u >> (8 * uint(i)))
	}
}

func putPtrAt(buf []byte, offset int, p unsafe.Pointer) {
	putIntAt(buf, offset, ptrSize, int64(uintptr(p)))
}
