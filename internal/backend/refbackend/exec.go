package refbackend

import (
	"math"
	"unsafe"

	"github.com/irforge/llcore/internal/backend"
)

// frame is the per-call execution environment: a flat map from value id
// to its runtime payload. Control flow is just a label lookup (spec.md's
// CodeSections form a CFG via jump/cond-jump terminators; there is no
// SSA phi-resolution step here since llcore threads values through the
// explicit variable-context stack, not through block parameters).
type frame struct {
	vals map[int]runtimeVal
	b    *rBackend
}

func (f *frame) get(id int) runtimeVal {
	if v, ok := f.b.constants[id]; ok {
		return v
	}
	return f.vals[id]
}

func (f *frame) set(id int, v runtimeVal) { f.vals[id] = v }

// run executes fn starting at its entry block and returns the i32
// payload of whatever Ret was reached. argPtr is the raw address of the
// context struct passed to the function (spec.md §4.E FnContext).
func run(b *rBackend, fn *rFunction, argPtr unsafe.Pointer) int32 {
	fr := &frame{vals: map[int]runtimeVal{}, b: b}
	fr.set(fn.argValueID, runtimeVal{ptr: (*byte)(argPtr)})

	if len(fn.blocks) == 0 {
		return 0
	}
	blk := fn.blocks[0]
	for {
		for _, in := range blk.instrs {
			execOne(fr, in)
		}
		if blk.term == nil {
			return 0
		}
		switch blk.term.op {
		case opRet:
			if len(blk.term.args) == 0 {
				return 0
			}
			return int32(fr.get(blk.term.args[0]).i)
		case opBr:
			blk = blk.term.brTarget
		case opCondBr:
			cond := fr.get(blk.term.args[0]).i
			if cond != 0 {
				blk = blk.term.condThen
			} else {
				blk = blk.term.condElse
			}
		default:
			return 0
		}
	}
}

func execOne(fr *frame, in instr) {
	switch in.op {
	case opAlloca:
		size := in.typ.elem.size
		buf := make([]byte, size)
		var p *byte
		if size > 0 {
			p = &buf[0]
		}
		fr.set(in.out, runtimeVal{ptr: p})
	case opLoad:
		ptr := fr.get(in.args[0]).ptr
		fr.set(in.out, loadValue(in.typ, ptr))
	case opStore:
		// in.typ is the pointee type, stashed by builder.Store.
		ptr := fr.get(in.args[0]).ptr
		v := fr.get(in.args[1])
		storeValueTyped(in.typ, ptr, v)
	case opGEP:
		base := fr.get(in.args[0]).ptr
		offset := gepOffset(in.gepType, in.gepIdx)
		fr.set(in.out, runtimeVal{ptr: addBytePtr(base, offset)})
	case opExtractElement:
		vec := fr.get(in.args[0]).vec
		idx := fr.get(in.args[1]).i
		fr.set(in.out, vec[idx])
	case opInsertElement:
		vec := fr.get(in.args[0]).vec
		idx := fr.get(in.args[1]).i
		v := fr.get(in.args[2])
		cp := append([]runtimeVal(nil), vec...)
		cp[idx] = v
		fr.set(in.out, runtimeVal{vec: cp})
	case opSelect:
		cond := fr.get(in.args[0]).i
		if cond != 0 {
			fr.set(in.out, fr.get(in.args[1]))
		} else {
			fr.set(in.out, fr.get(in.args[2]))
		}
	case opArith:
		fr.set(in.out, execArith(in, fr))
	case opCast:
		fr.set(in.out, execCast(in, fr))
	case opCall:
		arg := fr.get(in.args[0])
		result := run(fr.b, in.callFn, unsafe.Pointer(arg.ptr))
		fr.set(in.out, runtimeVal{i: int64(result)})
	}
}

func addBytePtr(p *byte, offset int) *byte {
	if p == nil {
		return nil
	}
	return (*byte)(unsafe.Add(unsafe.Pointer(p), offset))
}

func gepOffset(base *rType, indices []int) int {
	idx := indices[len(indices)-1]
	switch base.kind {
	case backend.KindStruct:
		return base.fields[idx].Offset
	case backend.KindArray:
		return idx * base.elem.size
	default:
		return 0
	}
}

func loadValue(t *rType, ptr *byte) runtimeVal {
	if ptr == nil {
		return runtimeVal{}
	}
	switch t.kind {
	case backend.KindPointer:
		return runtimeVal{ptr: loadPointer(ptr)}
	case backend.KindFloat:
		if t.size == 4 {
			bits := *(*uint32)(unsafe.Pointer(ptr))
			return runtimeVal{f: float64(math.Float32frombits(bits))}
		}
		bits := *(*uint64)(unsafe.Pointer(ptr))
		return runtimeVal{f: math.Float64frombits(bits)}
	default: // Bool, Int
		return runtimeVal{i: loadInt(ptr, t.size, t.signed)}
	}
}

func storeValueTyped(t *rType, ptr *byte, v runtimeVal) {
	if ptr == nil {
		return
	}
	switch t.kind {
	case backend.KindPointer:
		storePointer(ptr, v.ptr)
	case backend.KindFloat:
		if t.size == 4 {
			*(*uint32)(unsafe.Pointer(ptr)) = math.Float32bits(float32(v.f))
		} else {
			*(*uint64)(unsafe.Pointer(ptr)) = math.Float64bits(v.f)
		}
	default:
		storeInt(ptr, t.size, v.i)
	}
}

func loadInt(ptr *byte, size int, signed bool) int64 {
	var u uint64
	base := unsafe.Pointer(ptr)
	switch size {
	case 1:
		u = uint64(*(*uint8)(base))
	case 2:
		u = uint64(*(*uint16)(base))
	case 4:
		u = uint64(*(*uint32)(base))
	case 8:
		u = *(*uint64)(base)
	}
	if !signed {
		return int64(u)
	}
	switch size {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	case 4:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

func storeInt(ptr *byte, size int, v int64) {
	base := unsafe.Pointer(ptr)
	switch size {
	case 1:
		*(*uint8)(base) = uint8(v)
	case 2:
		*(*uint16)(base) = uint16(v)
	case 4:
		*(*uint32)(base) = uint32(v)
	case 8:
		*(*uint64)(base) = uint64(v)
	}
}

// loadPointer/storePointer treat the target memory as a genuine
// unsafe.Pointer slot. This is safe for llcore's use because the
// referent (a Runtime Object/Array buffer, see object.go) is always kept
// alive independently via a Go-level owning reference in the parent's
// side table (spec.md §4.K, §9 "Pointer-field lifetime in Runtime
// Object") -- the raw address stashed here is never the only reference
// keeping the buffer alive.
func loadPointer(ptr *byte) *byte {
	p := *(*unsafe.Pointer)(unsafe.Pointer(ptr))
	return (*byte)(p)
}

func storePointer(ptr *byte, v *byte) {
	*(*unsafe.Pointer)(unsafe.Pointer(ptr)) = unsafe.Pointer(v)
}

func execArith(in instr, fr *frame) runtimeVal {
	lhs, rhs := fr.get(in.args[0]), fr.get(in.args[1])
	if in.typ.kind == backend.KindFloat || in.operandFloat {
		return floatArith(in.arithOp, lhs.f, rhs.f)
	}
	return intArith(in.arithOp, in.signed, lhs.i, rhs.i)
}

func floatArith(op backend.ArithOp, l, r float64) runtimeVal {
	switch op {
	case backend.OpAdd:
		return runtimeVal{f: l + r}
	case backend.OpSub:
		return runtimeVal{f: l - r}
	case backend.OpMul:
		return runtimeVal{f: l * r}
	case backend.OpDiv:
		return runtimeVal{f: l / r}
	case backend.OpRem:
		return runtimeVal{f: math.Mod(l, r)}
	case backend.OpLessThan:
		return boolVal(l < r)
	case backend.OpLessEqual:
		return boolVal(l <= r)
	case backend.OpGreaterThan:
		return boolVal(l > r)
	case backend.OpGreaterEqual:
		return boolVal(l >= r)
	case backend.OpEqual:
		return boolVal(l == r)
	case backend.OpNotEqual:
		return boolVal(l != r)
	default:
		return runtimeVal{}
	}
}

func intArith(op backend.ArithOp, signed bool, l, r int64) runtimeVal {
	switch op {
	case backend.OpAdd:
		return runtimeVal{i: l + r}
	case backend.OpSub:
		return runtimeVal{i: l - r}
	case backend.OpMul:
		return runtimeVal{i: l * r}
	case backend.OpDiv:
		if signed {
			return runtimeVal{i: l / r}
		}
		return runtimeVal{i: int64(uint64(l) / uint64(r))}
	case backend.OpRem:
		if signed {
			return runtimeVal{i: l % r}
		}
		return runtimeVal{i: int64(uint64(l) % uint64(r))}
	case backend.OpLessThan:
		if signed {
			return boolVal(l < r)
		}
		return boolVal(uint64(l) < uint64(r))
	case backend.OpLessEqual:
		if signed {
			return boolVal(l <= r)
		}
		return boolVal(uint64(l) <= uint64(r))
	case backend.OpGreaterThan:
		if signed {
			return boolVal(l > r)
		}
		return boolVal(uint64(l) > uint64(r))
	case backend.OpGreaterEqual:
		if signed {
			return boolVal(l >= r)
		}
		return boolVal(uint64(l) >= uint64(r))
	case backend.OpEqual:
		return boolVal(l == r)
	case backend.OpNotEqual:
		return boolVal(l != r)
	default:
		return runtimeVal{}
	}
}

func boolVal(b bool) runtimeVal {
	if b {
		return runtimeVal{i: 1}
	}
	return runtimeVal{i: 0}
}

func execCast(in instr, fr *frame) runtimeVal {
	src := fr.get(in.args[0])
	switch in.castOp {
	case backend.CastIntToInt, backend.CastBoolToInt:
		return truncOrExtend(src.i, in.typ.size, in.signed)
	case backend.CastFloatToFloat:
		if in.typ.size == 4 {
			return runtimeVal{f: float64(float32(src.f))}
		}
		return runtimeVal{f: src.f}
	case backend.CastIntToFloat:
		if in.signed {
			return runtimeVal{f: float64(src.i)}
		}
		return runtimeVal{f: float64(uint64(src.i))}
	case backend.CastFloatToInt:
		if in.signed {
			return runtimeVal{i: int64(src.f)}
		}
		return runtimeVal{i: int64(uint64(src.f))}
	default:
		return runtimeVal{}
	}
}

func truncOrExtend(v int64, size int, signed bool) runtimeVal {
	var mask int64
	switch size {
	case 1:
		mask = 0xff
	case 2:
		mask = 0xffff
	case 4:
		mask = 0xffffffff
	default:
		return runtimeVal{i: v}
	}
	v &= mask
	if signed {
		switch size {
		case 1:
			return runtimeVal{i: int64(int8(v))}
		case 2:
			return runtimeVal{i: int64(int16(v))}
		case 4:
			return runtimeVal{i: int64(int32(v))}
		}
	}
	return runtimeVal{i: v}
}
