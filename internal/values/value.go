// Package values implements spec.md §4.D: ValueInfo, the lazily
// materialized node in a per-CodeSection expression DAG. Building a
// ValueInfo only records intent (a node referencing its operand
// ValueInfos); nothing is emitted into the backend IRBuilder until
// Materialize walks the DAG and emits each node's instruction exactly
// once, caching the result on the node.
//
// This mirrors the teacher's wazevo/ssa builder recording
// opcode+operands before a separate lowering pass walks the graph
// (internal/engine/wazevo/ssa in the source tree this module started
// from), generalized here to a pull-based "materialize on first use"
// DAG instead of a linear instruction list.
package values

import (
	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
)

// NodeKind is the closed set of ValueInfo node shapes from spec.md §4.D.
type NodeKind int

const (
	KindConstant NodeKind = iota
	KindContext
	KindBinary
	KindConditional
	KindTypecast
	KindInnerEntry // GEP-style struct/array member access
	KindLoad
	KindStore
	KindMkPtr // alloca
	KindFnCall
	KindLoadVectorEntry
	KindStoreVectorEntry
)

// CallTarget is the subset of internal/function.Function that values
// needs to emit a call, kept as an interface here so this package never
// imports internal/function (which itself depends on values for return
// values and argument plumbing).
type CallTarget interface {
	BackendFunction() backend.Function
	ArgType() types.TypeInfo
	RetType() types.TypeInfo
}

// node is the shared representation behind every ValueInfo. Exactly one
// node backs each ValueInfo handle; two ValueInfo values are never
// structurally equal even if they happen to describe the same constant
// or the same operand chain (spec.md §4.D: "Equal() is never true
// between two distinct ValueInfo, even of identical shape" -- llcore's
// caller is expected to dedupe by holding onto the original handle, not
// by reconstructing an equivalent one).
type node struct {
	kind NodeKind
	typ  types.TypeInfo
	tag  string

	// Constant
	constSigned bool
	constInt    int64
	constFloat  float64
	constIsF    bool

	// Binary / Conditional / Typecast / Load / Store / MkPtr / InnerEntry /
	// LoadVectorEntry / StoreVectorEntry operands.
	a, b, c *ValueInfo

	arithOp backend.ArithOp
	castOp  backend.CastOp
	signed  bool

	gepBaseType types.TypeInfo
	gepIndices  []int

	call CallTarget

	materialized bool
	cached       backend.Value
	errored      bool
}

// ValueInfo is the public lazy-DAG handle (spec.md §3 TypeInfo's sibling
// for values).
type ValueInfo struct {
	n *node
}

// Null is the sentinel ValueInfo returned on any construction failure.
func Null() ValueInfo { return ValueInfo{n: &node{errored: true}} }

func wrap(n *node) ValueInfo { return ValueInfo{n: n} }

func (v ValueInfo) IsNull() bool   { return v.n == nil }
func (v ValueInfo) HasError() bool { return v.n == nil || v.n.errored }
func (v ValueInfo) Type() types.TypeInfo {
	if v.n == nil {
		return types.Null()
	}
	return v.n.typ
}

// Tag is the optional debug label (spec.md §4.D "tag propagation": binary
// and conditional nodes without an explicit tag inherit the first
// non-empty tag among their operands -- lhs then rhs for Binary, then
// and else for Conditional, never the condition -- so a long fold keeps
// the name of the value it started from).
func (v ValueInfo) Tag() string {
	if v.n == nil {
		return ""
	}
	return v.n.tag
}

func (v ValueInfo) WithTag(tag string) ValueInfo {
	if v.HasError() {
		return v
	}
	n2 := *v.n
	n2.tag = tag
	n2.materialized = false
	n2.cached = nil
	return wrap(&n2)
}

// Equal implements spec.md §4.D's "never structurally equal" rule:
// ValueInfo equality is pointer identity on the underlying node, full
// stop, regardless of shape.
func (v ValueInfo) Equal(o ValueInfo) bool {
	return v.n != nil && v.n == o.n
}

func inheritTag(candidates ...ValueInfo) string {
	for _, c := range candidates {
		if c.Tag() != "" {
			return c.Tag()
		}
	}
	return ""
}

// Constant builds a KindConstant node (spec.md §4.D: "Constants capture
// an immediate backend constant upon construction", reflected here by
// eagerly stashing the raw bits; the backend.Const itself is still only
// minted on first Materialize, matching refbackend's ConstInt/ConstFloat
// eager-population behavior one level down).
func Constant(t types.TypeInfo, signed bool, v int64) ValueInfo {
	return wrap(&node{kind: KindConstant, typ: t, constSigned: signed, constInt: v})
}

func ConstantFloat(t types.TypeInfo, v float64) ValueInfo {
	return wrap(&node{kind: KindConstant, typ: t, constFloat: v, constIsF: true})
}

// Context builds the KindContext node representing "the function's own
// FnContext argument", resolved against whatever backend.Function is
// active when Materialize runs (see the KindContext case of Materialize
// in dag.go).
func Context(t types.TypeInfo) ValueInfo {
	return wrap(&node{kind: KindContext, typ: t})
}

// Binary builds a KindBinary node. resultType is KindBool for comparison
// ops, lhs.Type() otherwise -- the caller computes it; TypedBinary below
// does so via types.BinaryResultType.
func Binary(op backend.ArithOp, signed bool, lhs, rhs ValueInfo, resultType types.TypeInfo) ValueInfo {
	if lhs.HasError() || rhs.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindBinary, typ: resultType, arithOp: op, signed: signed, a: &lhs, b: &rhs, tag: inheritTag(lhs, rhs)})
}

// Conditional builds a KindConditional (select) node, enforcing spec.md
// §4.D's Conditional contract: cond must be bool, then/else must share a
// type. The result type is then's type (then/else being equal, either
// would do); on a violation it pushes KindTypeError and returns Null()
// instead of trusting the caller's shapes.
func Conditional(ec *errstack.Context, cond, then, els ValueInfo) ValueInfo {
	if cond.HasError() || then.HasError() || els.HasError() {
		return Null()
	}
	if cond.Type().Kind() != backend.KindBool {
		ec.PushError(errstack.KindTypeError, "conditional: condition must be bool, got "+cond.Type().String(), errstack.SourceLoc{})
		return Null()
	}
	if !then.Type().Equal(els.Type()) {
		ec.PushError(errstack.KindTypeError, "conditional: then/else branches have mismatched types "+then.Type().String()+" vs "+els.Type().String(), errstack.SourceLoc{})
		return Null()
	}
	return wrap(&node{kind: KindConditional, typ: then.Type(), a: &cond, b: &then, c: &els, tag: inheritTag(then, els)})
}

// TypedBinary implements spec.md §4.C's type.add/sub/mul/div/remainder/
// less_than/.../equal(lhs, rhs) dispatch on top of the raw Binary node
// constructor: lhs and rhs must share an operand type (mismatches push
// KindTypeError and return Null(), spec.md §8's testable property),
// signedness is read off that shared type, and the result type is bool
// for comparison ops or the operand type for arithmetic ones
// (types.BinaryResultType). boolType is the Cursor's interned bool
// TypeInfo, passed in rather than conjured here -- nothing in this
// package holds a backend.Backend to mint one itself.
func TypedBinary(ec *errstack.Context, op backend.ArithOp, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	if lhs.HasError() || rhs.HasError() {
		return Null()
	}
	if !lhs.Type().Equal(rhs.Type()) {
		ec.PushError(errstack.KindTypeError, "binary op: mismatched operand types "+lhs.Type().String()+" vs "+rhs.Type().String(), errstack.SourceLoc{})
		return Null()
	}
	resultType := types.BinaryResultType(op, lhs.Type(), boolType)
	return Binary(op, lhs.Type().IsSigned(), lhs, rhs, resultType)
}

// Add/Sub/Mul/Div/Remainder/LessThan/LessEqual/GreaterThan/GreaterEqual/
// Equal/NotEqual are the named flavors spec.md §4.C lists
// (type.add/sub/mul/div/remainder/less_than/.../equal), each a thin
// TypedBinary call fixing the ArithOp.
func Add(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpAdd, lhs, rhs, boolType)
}

func Sub(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpSub, lhs, rhs, boolType)
}

func Mul(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpMul, lhs, rhs, boolType)
}

func Div(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpDiv, lhs, rhs, boolType)
}

func Remainder(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpRem, lhs, rhs, boolType)
}

func LessThan(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpLessThan, lhs, rhs, boolType)
}

func LessEqual(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpLessEqual, lhs, rhs, boolType)
}

func GreaterThan(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpGreaterThan, lhs, rhs, boolType)
}

func GreaterEqual(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpGreaterEqual, lhs, rhs, boolType)
}

func Equal(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpEqual, lhs, rhs, boolType)
}

func NotEqual(ec *errstack.Context, lhs, rhs ValueInfo, boolType types.TypeInfo) ValueInfo {
	return TypedBinary(ec, backend.OpNotEqual, lhs, rhs, boolType)
}

// TypedCast implements spec.md §4.C's type.cast(src_value): target is the
// destination type, src the operand. Uses TypeInfo.CastRule to resolve
// the backend CastOp and reject unsupported combinations with
// KindTypeError, rather than trusting a precomputed CastOp from the
// caller.
func TypedCast(ec *errstack.Context, target types.TypeInfo, src ValueInfo) ValueInfo {
	if src.HasError() || target.HasError() {
		return Null()
	}
	op, ok := target.CastRule(src.Type())
	if !ok {
		ec.PushError(errstack.KindTypeError, "cast: unsupported conversion "+src.Type().String()+" -> "+target.String(), errstack.SourceLoc{})
		return Null()
	}
	signed := types.CastSignedness(op, target, src.Type())
	return Typecast(op, signed, target, src)
}

func Typecast(op backend.CastOp, signed bool, target types.TypeInfo, src ValueInfo) ValueInfo {
	if src.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindTypecast, typ: target, castOp: op, signed: signed, a: &src, tag: src.Tag()})
}

// CalcStructSize implements spec.md §4.D's calc_struct_size(type): a
// compile-time-known constant, since struct layout is fixed once a
// Factory.Struct call returns.
func CalcStructSize(t types.TypeInfo, resultType types.TypeInfo) ValueInfo {
	if t.HasError() || resultType.HasError() {
		return Null()
	}
	return Constant(resultType, resultType.IsSigned(), int64(t.SizeBytes()))
}

// CalcStructFieldCount implements spec.md §4.D's
// calc_struct_field_count(type), likewise a compile-time constant.
func CalcStructFieldCount(t types.TypeInfo, resultType types.TypeInfo) ValueInfo {
	if t.HasError() || resultType.HasError() {
		return Null()
	}
	return Constant(resultType, resultType.IsSigned(), int64(len(t.Fields())))
}

// CalcStructFieldOffset implements spec.md §4.D's
// calc_struct_field_offset(type, index_value), documented there as "a
// cascade of equality cond-selects": index_value may be a runtime value
// rather than a compile-time constant, so the offset can't simply be
// looked up -- it has to be built as nested Conditional nodes, one
// per field, each comparing index_value against that field's constant
// index and selecting its offset or falling through to the next
// field's cascade. The innermost fallback is the last field's own
// offset, matching an out-of-range index to whatever the final branch
// resolves to (callers are expected to have already range-checked
// index_value against calc_struct_field_count).
func CalcStructFieldOffset(ec *errstack.Context, t types.TypeInfo, index ValueInfo, resultType, boolType types.TypeInfo) ValueInfo {
	if t.HasError() || index.HasError() || resultType.HasError() {
		return Null()
	}
	fields := t.Fields()
	if len(fields) == 0 {
		ec.PushError(errstack.KindTypeError, "calc_struct_field_offset: type has no fields", errstack.SourceLoc{})
		return Null()
	}
	cascade := Constant(resultType, resultType.IsSigned(), int64(fields[len(fields)-1].Offset))
	for i := len(fields) - 2; i >= 0; i-- {
		idxConst := Constant(index.Type(), index.Type().IsSigned(), int64(i))
		match := TypedBinary(ec, backend.OpEqual, index, idxConst, boolType)
		offset := Constant(resultType, resultType.IsSigned(), int64(fields[i].Offset))
		cascade = Conditional(ec, match, offset, cascade)
	}
	return cascade
}

// InnerEntry builds the GEP-style member/element access node. baseType is
// the pointee type the index path is resolved against (a struct or
// array), resultType the type of the addressed field/element's pointer.
func InnerEntry(base ValueInfo, baseType types.TypeInfo, indices []int, resultType types.TypeInfo) ValueInfo {
	if base.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindInnerEntry, typ: resultType, a: &base, gepBaseType: baseType, gepIndices: indices, tag: base.Tag()})
}

func Load(ptr ValueInfo, resultType types.TypeInfo) ValueInfo {
	if ptr.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindLoad, typ: resultType, a: &ptr})
}

// Store builds a KindStore node. Its "result" is conventionally the
// stored value, mirroring spec.md §4.D's description of store as an
// expression (not a bare statement) so it can be chained.
func Store(ptr, val ValueInfo) ValueInfo {
	if ptr.HasError() || val.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindStore, typ: val.Type(), a: &ptr, b: &val})
}

// MkPtr builds the alloca node: a freshly allocated, uninitialized
// pointer-typed local of type Pointer(t).
func MkPtr(t types.TypeInfo, ptrType types.TypeInfo) ValueInfo {
	return wrap(&node{kind: KindMkPtr, typ: ptrType, gepBaseType: t})
}

func FnCall(target CallTarget, arg ValueInfo) ValueInfo {
	if target == nil || arg.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindFnCall, typ: target.RetType(), call: target, a: &arg})
}

func LoadVectorEntry(vec, idx ValueInfo, elemType types.TypeInfo) ValueInfo {
	if vec.HasError() || idx.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindLoadVectorEntry, typ: elemType, a: &vec, b: &idx})
}

func StoreVectorEntry(vec, idx, val ValueInfo) ValueInfo {
	if vec.HasError() || idx.HasError() || val.HasError() {
		return Null()
	}
	return wrap(&node{kind: KindStoreVectorEntry, typ: vec.Type(), a: &vec, b: &idx, c: &val})
}

func (v ValueInfo) Kind() NodeKind { return v.n.kind }
