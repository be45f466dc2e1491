// Package types implements spec.md §4.C: the interned type system
// (void/bool/int{8,16,32,64}/uint{8,16,32,64}/float{32,64}/pointer/
// array/vector/struct), its construction-time validity rules, and the
// cast/binary-op dispatch that picks signed/unsigned/float backend
// flavors.
package types

import (
	"fmt"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
)

// FieldEntry is spec.md §3's member_field_entry: (name, TypeInfo, offset,
// is_readonly).
type FieldEntry struct {
	Name     string
	Type     TypeInfo
	Offset   int
	ReadOnly bool
}

// TypeInfo is the public Handle for a backend-interned type. Equality is
// by backend identity: since Factory's underlying backend.Backend
// interns identical descriptors to the same pointer (spec.md §8
// "Interning"), two TypeInfo values compare equal exactly when they
// describe the same type.
type TypeInfo struct {
	bt      backend.Type
	errored bool
}

// Null is the sentinel TypeInfo returned on any construction failure.
func Null() TypeInfo { return TypeInfo{errored: true} }

func fromBackend(bt backend.Type) TypeInfo { return TypeInfo{bt: bt} }

func (t TypeInfo) IsNull() bool   { return t.bt == nil }
func (t TypeInfo) HasError() bool { return t.errored || t.bt == nil }

// Equal implements the Handle protocol's equality rule (spec.md §3):
// equal when both are error, or both point at the same implementation.
func (t TypeInfo) Equal(o TypeInfo) bool {
	if t.HasError() && o.HasError() {
		return true
	}
	return t.bt == o.bt
}

func (t TypeInfo) Backend() backend.Type { return t.bt }

func (t TypeInfo) Kind() backend.TypeKind {
	if t.bt == nil {
		return -1
	}
	return t.bt.Kind()
}

func (t TypeInfo) SizeBytes() int {
	if t.bt == nil {
		return 0
	}
	return t.bt.SizeBytes()
}

func (t TypeInfo) IsSigned() bool { return t.bt != nil && t.bt.IsSigned() }
func (t TypeInfo) Count() int {
	if t.bt == nil {
		return 0
	}
	return t.bt.Count()
}
func (t TypeInfo) Packed() bool { return t.bt != nil && t.bt.Packed() }
func (t TypeInfo) Name() string {
	if t.bt == nil {
		return ""
	}
	return t.bt.Name()
}

func (t TypeInfo) Elem() TypeInfo {
	if t.bt == nil || t.bt.Elem() == nil {
		return Null()
	}
	return fromBackend(t.bt.Elem())
}

func (t TypeInfo) Fields() []FieldEntry {
	if t.bt == nil {
		return nil
	}
	bf := t.bt.Fields()
	out := make([]FieldEntry, len(bf))
	for i, f := range bf {
		out[i] = FieldEntry{Name: f.Name, Type: fromBackend(f.Type), Offset: f.Offset, ReadOnly: f.ReadOnly}
	}
	return out
}

func (t TypeInfo) String() string {
	if t.bt == nil {
		return "<null-type>"
	}
	return t.bt.String()
}

// IsScalar reports whether t is bool/int/float (spec.md's recurring
// "scalar or pointer" test).
func (t TypeInfo) IsScalar() bool {
	switch t.Kind() {
	case backend.KindBool, backend.KindInt, backend.KindFloat:
		return true
	default:
		return false
	}
}

// IsScalarOrPointer reports whether t is a valid FnContext/binary-op
// operand type.
func (t TypeInfo) IsScalarOrPointer() bool {
	return t.IsScalar() || t.Kind() == backend.KindPointer
}

// isValidStructField implements spec.md §4.C: "Struct field must be
// scalar or pointer. Recursively: pointer base must be struct/array/
// vector (not scalar or void)."
func isValidStructField(t TypeInfo) bool {
	if t.IsScalar() {
		return true
	}
	if t.Kind() != backend.KindPointer {
		return false
	}
	switch t.Elem().Kind() {
	case backend.KindStruct, backend.KindArray, backend.KindVector:
		return true
	default:
		return false
	}
}

// isValidArrayElem implements "Array element must be scalar or pointer".
func isValidArrayElem(t TypeInfo) bool { return t.IsScalarOrPointer() }

// isValidVectorElem implements "Vector element must be scalar".
func isValidVectorElem(t TypeInfo) bool { return t.IsScalar() }

// Factory is the Cursor-owned type constructor set (spec.md §4.C, §4.I:
// "Type-factory methods interning: pointer cache indexed by base type;
// array/vector caches indexed by (count, base)" -- the actual interning
// tables live in the backend; Factory only adds the validity checks and
// error propagation the backend doesn't know about).
type Factory struct {
	be      backend.Backend
	ec      *errstack.Context
	isBound func() bool
}

// NewFactory returns a Factory bound to one Cursor's backend and error
// context. isBound reports whether the owning Cursor has already called
// bind() (struct creation is refused afterward, spec.md §4.C).
func NewFactory(be backend.Backend, ec *errstack.Context, isBound func() bool) *Factory {
	return &Factory{be: be, ec: ec, isBound: isBound}
}

func (f *Factory) fail(msg string) TypeInfo {
	f.ec.PushError(errstack.KindTypeError, msg, errstack.SourceLoc{})
	return Null()
}

func (f *Factory) Void() TypeInfo          { return fromBackend(f.be.Void()) }
func (f *Factory) Bool() TypeInfo          { return fromBackend(f.be.Bool()) }
func (f *Factory) Int8() TypeInfo          { return fromBackend(f.be.Int(8, true)) }
func (f *Factory) Int16() TypeInfo         { return fromBackend(f.be.Int(16, true)) }
func (f *Factory) Int32() TypeInfo         { return fromBackend(f.be.Int(32, true)) }
func (f *Factory) Int64() TypeInfo         { return fromBackend(f.be.Int(64, true)) }
func (f *Factory) Uint8() TypeInfo         { return fromBackend(f.be.Int(8, false)) }
func (f *Factory) Uint16() TypeInfo        { return fromBackend(f.be.Int(16, false)) }
func (f *Factory) Uint32() TypeInfo        { return fromBackend(f.be.Int(32, false)) }
func (f *Factory) Uint64() TypeInfo        { return fromBackend(f.be.Int(64, false)) }
func (f *Factory) Float32() TypeInfo       { return fromBackend(f.be.Float(32)) }
func (f *Factory) Float64() TypeInfo       { return fromBackend(f.be.Float(64)) }

// Pointer implements mk_pointer: the base type must itself be valid
// (non-null); general-purpose pointers (e.g. a FnContext pointer, or the
// result of MkPtr) are not restricted to struct/array/vector bases --
// only struct FIELD pointers are (see isValidStructField).
func (f *Factory) Pointer(base TypeInfo) TypeInfo {
	if base.HasError() {
		return f.fail("mk_pointer: base type is invalid")
	}
	return fromBackend(f.be.Pointer(base.bt))
}

func (f *Factory) Array(elem TypeInfo, n int) TypeInfo {
	if elem.HasError() {
		return f.fail("mk_array: element type is invalid")
	}
	if n <= 0 {
		return f.fail("mk_array: element count must be > 0")
	}
	if !isValidArrayElem(elem) {
		return f.fail("mk_array: element type must be scalar or pointer")
	}
	return fromBackend(f.be.Array(elem.bt, n))
}

func (f *Factory) Vector(elem TypeInfo, n int) TypeInfo {
	if elem.HasError() {
		return f.fail("mk_vector: element type is invalid")
	}
	if n <= 0 {
		return f.fail("mk_vector: element count must be > 0")
	}
	if !isValidVectorElem(elem) {
		return f.fail("mk_vector: element type must be scalar")
	}
	return fromBackend(f.be.Vector(elem.bt, n))
}

// Struct implements mk_struct, including the duplicate-field-name and
// post-bind rejection rules (spec.md §4.C, §8).
func (f *Factory) Struct(name string, fields []FieldEntry, packed bool) TypeInfo {
	if f.isBound != nil && f.isBound() {
		return f.fail(fmt.Sprintf("mk_struct(%s): cursor already bound", name))
	}
	if len(fields) == 0 {
		return f.fail(fmt.Sprintf("mk_struct(%s): struct must have at least one field", name))
	}
	seen := make(map[string]bool, len(fields))
	bfields := make([]backend.FieldLayout, len(fields))
	for i, fl := range fields {
		if seen[fl.Name] {
			return f.fail(fmt.Sprintf("mk_struct(%s): duplicate field name %q", name, fl.Name))
		}
		seen[fl.Name] = true
		if !isValidStructField(fl.Type) {
			return f.fail(fmt.Sprintf("mk_struct(%s): field %q has invalid type %s", name, fl.Name, fl.Type))
		}
		bfields[i] = backend.FieldLayout{Name: fl.Name, Type: fl.Type.bt, ReadOnly: fl.ReadOnly}
	}
	return fromBackend(f.be.Struct(name, bfields, packed))
}

// SyncChecked is the minimal contract check_sync(value) needs from a
// computed value: its own materialized TypeInfo. internal/values.ValueInfo
// satisfies this already (it has a Type() TypeInfo method), without this
// package importing values back (values already imports types).
type SyncChecked interface {
	Type() TypeInfo
}

// CheckSync implements spec.md §4.C's check_sync(value): verifies a
// computed value's backend type identity-matches t (size, signedness,
// struct field shape, vector/array count -- all folded into backend type
// identity, since Factory interns structurally-identical descriptors to
// the same pointer).
func (t TypeInfo) CheckSync(value SyncChecked) bool { return t.Equal(value.Type()) }

// CastRule implements spec.md §4.C's type.cast(src_value) rule table: t is
// the cast target, src the operand's current type. Returns the backend
// CastOp flavor to use, or ok=false for any combination outside
// int<->int, float<->float, int<->float, bool->int (spec.md: "Any other
// combination fails with TypeError").
func (t TypeInfo) CastRule(src TypeInfo) (op backend.CastOp, ok bool) {
	if t.HasError() || src.HasError() {
		return 0, false
	}
	switch {
	case t.Kind() == backend.KindInt && src.Kind() == backend.KindInt:
		return backend.CastIntToInt, true
	case t.Kind() == backend.KindInt && src.Kind() == backend.KindBool:
		return backend.CastBoolToInt, true
	case t.Kind() == backend.KindFloat && src.Kind() == backend.KindFloat:
		return backend.CastFloatToFloat, true
	case t.Kind() == backend.KindFloat && src.Kind() == backend.KindInt:
		return backend.CastIntToFloat, true
	case t.Kind() == backend.KindInt && src.Kind() == backend.KindFloat:
		return backend.CastFloatToInt, true
	default:
		return 0, false
	}
}

// CastSignedness picks the signed flag backend.IRBuilder.Cast needs for
// the CastOp CastRule returned: sign/zero-extend and int<->float
// conversions read signedness off whichever side is the integer type
// (the source for int->int/int->float, the target for float->int).
func CastSignedness(op backend.CastOp, target, src TypeInfo) bool {
	switch op {
	case backend.CastFloatToInt:
		return target.IsSigned()
	case backend.CastFloatToFloat:
		return false
	default:
		return src.IsSigned()
	}
}

// BinaryResultType implements the result-typing half of spec.md §4.C's
// binary-op dispatch: comparison ops (less_than/less_equal/greater_than/
// greater_equal/equal/not_equal) always yield bool; arithmetic ops
// (add/sub/mul/div/remainder) yield the (shared) operand type.
func BinaryResultType(op backend.ArithOp, operand, boolType TypeInfo) TypeInfo {
	if op >= backend.OpLessThan {
		return boolType
	}
	return operand
}

// RuntimeKind is the closed runtime-field type tag original_source's
// runtime::type_t enumerates, distinct from the compile-time TypeKind:
// it collapses every pointer flavor to what the pointee actually is, so
// runtime Object/Array field code can switch on "what native Go type do
// I read/write here" without re-deriving it from Elem() each time.
type RuntimeKind int

const (
	RuntimeUnknown RuntimeKind = iota
	RuntimeBool
	RuntimeInt8
	RuntimeInt16
	RuntimeInt32
	RuntimeInt64
	RuntimeUint8
	RuntimeUint16
	RuntimeUint32
	RuntimeUint64
	RuntimeFloat32
	RuntimeFloat64
	RuntimePointerStruct
	RuntimePointerArray
	RuntimePointerFn
)

func (k RuntimeKind) String() string {
	switch k {
	case RuntimeBool:
		return "bool"
	case RuntimeInt8:
		return "int8"
	case RuntimeInt16:
		return "int16"
	case RuntimeInt32:
		return "int32"
	case RuntimeInt64:
		return "int64"
	case RuntimeUint8:
		return "uint8"
	case RuntimeUint16:
		return "uint16"
	case RuntimeUint32:
		return "uint32"
	case RuntimeUint64:
		return "uint64"
	case RuntimeFloat32:
		return "float32"
	case RuntimeFloat64:
		return "float64"
	case RuntimePointerStruct:
		return "pointer_struct"
	case RuntimePointerArray:
		return "pointer_array"
	case RuntimePointerFn:
		return "pointer_fn"
	default:
		return "unknown"
	}
}

// RuntimeKind derives the runtime field tag from a TypeInfo's backend
// kind/size/signedness, and for pointers from what the pointee is.
func (t TypeInfo) RuntimeKind() RuntimeKind {
	if t.HasError() {
		return RuntimeUnknown
	}
	switch t.Kind() {
	case backend.KindBool:
		return RuntimeBool
	case backend.KindInt:
		switch t.SizeBytes() {
		case 1:
			if t.IsSigned() {
				return RuntimeInt8
			}
			return RuntimeUint8
		case 2:
			if t.IsSigned() {
				return RuntimeInt16
			}
			return RuntimeUint16
		case 4:
			if t.IsSigned() {
				return RuntimeInt32
			}
			return RuntimeUint32
		default:
			if t.IsSigned() {
				return RuntimeInt64
			}
			return RuntimeUint64
		}
	case backend.KindFloat:
		if t.SizeBytes() == 4 {
			return RuntimeFloat32
		}
		return RuntimeFloat64
	case backend.KindPointer:
		switch t.Elem().Kind() {
		case backend.KindStruct:
			return RuntimePointerStruct
		case backend.KindArray, backend.KindVector:
			return RuntimePointerArray
		default:
			return RuntimePointerFn
		}
	default:
		return RuntimeUnknown
	}
}
