package refbackend

import "github.com/irforge/llcore/internal/backend"

// rBuilder is the per-Cursor IR builder. Like the teacher's IRBuilder
// analogue, it tracks one "current insertion block" that every emit call
// appends to. It keeps no stack of its own: SaveInsertPoint returns the
// current block and CodeSection keeps the saved points it restores on
// exit (spec.md §4.F).
type rBuilder struct {
	b   *rBackend
	cur *rBasicBlock
}

func (r *rBuilder) SaveInsertPoint() backend.InsertPoint { return r.cur }

func (r *rBuilder) RestoreInsertPoint(p backend.InsertPoint) {
	if p == nil {
		r.cur = nil
		return
	}
	r.cur = p.(*rBasicBlock)
}

func (r *rBuilder) SetInsertBlock(b backend.BasicBlock) {
	if b == nil {
		r.cur = nil
		return
	}
	r.cur = b.(*rBasicBlock)
}

func (r *rBuilder) ConstInt(t backend.Type, signed bool, v int64) backend.Const {
	id := r.b.nextValueID()
	r.b.constants[id] = runtimeVal{i: v}
	return &rValue{id: id, typ: t.(*rType), isConst: true, constVal: runtimeVal{i: v}}
}

func (r *rBuilder) ConstFloat(t backend.Type, v float64) backend.Const {
	id := r.b.nextValueID()
	r.b.constants[id] = runtimeVal{f: v}
	return &rValue{id: id, typ: t.(*rType), isConst: true, constVal: runtimeVal{f: v}}
}

func (r *rBuilder) emit(i instr) *rValue {
	out := r.b.nextValueID()
	i.out = out
	r.cur.InsertInstruction(i)
	return &rValue{id: out, typ: i.typ}
}

func (r *rBuilder) Alloca(t backend.Type) backend.Value {
	rt := t.(*rType)
	return r.emit(instr{op: opAlloca, typ: &rType{kind: backend.KindPointer, size: pointerSize, elem: rt}})
}

func (r *rBuilder) Load(t backend.Type, ptr backend.Value) backend.Value {
	return r.emit(instr{op: opLoad, typ: t.(*rType), args: []int{ptr.(*rValue).id}})
}

func (r *rBuilder) Store(ptr backend.Value, v backend.Value) {
	pointee := ptr.(*rValue).typ.elem
	r.cur.InsertInstruction(instr{op: opStore, typ: pointee, args: []int{ptr.(*rValue).id, v.(*rValue).id}})
}

func (r *rBuilder) GEP(baseElemType backend.Type, base backend.Value, indices []int) backend.Value {
	bt := baseElemType.(*rType)
	resultElem := bt
	if bt.kind == backend.KindStruct {
		idx := indices[len(indices)-1]
		resultElem = bt.fields[idx].Type.(*rType)
	} else if bt.kind == backend.KindArray {
		resultElem = bt.elem
	}
	pt := &rType{kind: backend.KindPointer, size: pointerSize, elem: resultElem}
	return r.emit(instr{op: opGEP, typ: pt, args: []int{base.(*rValue).id}, gepType: bt, gepIdx: indices})
}

func (r *rBuilder) ExtractElement(vec backend.Value, idx backend.Value) backend.Value {
	vt := vec.(*rValue).typ
	return r.emit(instr{op: opExtractElement, typ: vt.elem, args: []int{vec.(*rValue).id, idx.(*rValue).id}})
}

func (r *rBuilder) InsertElement(vec backend.Value, idx backend.Value, v backend.Value) backend.Value {
	vt := vec.(*rValue).typ
	return r.emit(instr{op: opInsertElement, typ: vt, args: []int{vec.(*rValue).id, idx.(*rValue).id, v.(*rValue).id}})
}

func (r *rBuilder) Select(cond, then, els backend.Value) backend.Value {
	tt := then.(*rValue).typ
	return r.emit(instr{op: opSelect, typ: tt, args: []int{cond.(*rValue).id, then.(*rValue).id, els.(*rValue).id}})
}

func (r *rBuilder) Arith(op backend.ArithOp, signed bool, lhs, rhs backend.Value) backend.Value {
	lt := lhs.(*rValue).typ
	operandFloat := lt.kind == backend.KindFloat
	resT := lt
	if op >= backend.OpLessThan {
		resT = r.b.boolT
	}
	return r.emit(instr{op: opArith, typ: resT, args: []int{lhs.(*rValue).id, rhs.(*rValue).id}, arithOp: op, signed: signed, operandFloat: operandFloat})
}

func (r *rBuilder) Cast(op backend.CastOp, signed bool, target backend.Type, v backend.Value) backend.Value {
	return r.emit(instr{op: opCast, typ: target.(*rType), args: []int{v.(*rValue).id}, castOp: op, signed: signed})
}

func (r *rBuilder) Call(fn backend.Function, arg backend.Value) backend.Value {
	rf := fn.(*rFunction)
	return r.emit(instr{op: opCall, typ: rf.retType, args: []int{arg.(*rValue).id}, callFn: rf})
}

func (r *rBuilder) Ret(v backend.Value) {
	var args []int
	if v != nil {
		args = []int{v.(*rValue).id}
	}
	r.cur.InsertInstruction(instr{op: opRet, args: args})
}

func (r *rBuilder) Br(target backend.BasicBlock) {
	r.cur.InsertInstruction(instr{op: opBr, brTarget: target.(*rBasicBlock)})
}

func (r *rBuilder) CondBr(cond backend.Value, then, els backend.BasicBlock) {
	r.cur.InsertInstruction(instr{op: opCondBr, args: []int{cond.(*rValue).id}, condThen: then.(*rBasicBlock), condElse: els.(*rBasicBlock)})
}
