package refbackend

import "github.com/irforge/llcore/internal/backend"

// rBackend is the per-Cursor backend.Backend implementation. One
// rBackend is shared by every Module a Cursor creates, the same way one
// llvm::LLVMContext underlies every llvm::Module owned by one Cursor.
type rBackend struct {
	builder   *rBuilder
	funcs     map[string]*rFunction
	valueSeq  int
	constants map[int]runtimeVal

	voidT, boolT *rType
	ints         map[[2]int]*rType // [bits, signed(0/1)] -> type
	floats       map[int]*rType
	pointers     map[*rType]*rType
	arrays       map[[2]interface{}]*rType
	vectors      map[[2]interface{}]*rType
	structs      map[string]*rType
}

// New returns a fresh reference backend, suitable for exactly one
// Cursor's lifetime.
func New() backend.Backend {
	b := &rBackend{
		funcs:     map[string]*rFunction{},
		constants: map[int]runtimeVal{},
		ints:      map[[2]int]*rType{},
		floats:    map[int]*rType{},
		pointers:  map[*rType]*rType{},
		arrays:    map[[2]interface{}]*rType{},
		vectors:   map[[2]interface{}]*rType{},
		structs:   map[string]*rType{},
	}
	b.voidT = &rType{kind: backend.KindVoid}
	b.boolT = &rType{kind: backend.KindBool, size: 1}
	b.builder = &rBuilder{b: b}
	return b
}

func (b *rBackend) nextValueID() int {
	b.valueSeq++
	return b.valueSeq
}

func (b *rBackend) Builder() backend.IRBuilder { return b.builder }

func (b *rBackend) NewModule(name string) backend.Module {
	return &rModule{name: name, b: b, localFuncs: map[string]*rFunction{}}
}

func (b *rBackend) NewJIT() (backend.JIT, error) {
	return newJIT(b), nil
}

func (b *rBackend) Pipeline() backend.PassPipeline { return &rPipeline{} }

func (b *rBackend) Void() backend.Type { return b.voidT }
func (b *rBackend) Bool() backend.Type { return b.boolT }

func (b *rBackend) Int(bits int, signed bool) backend.Type {
	key := [2]int{bits, 0}
	if signed {
		key[1] = 1
	}
	if t, ok := b.ints[key]; ok {
		return t
	}
	t := &rType{kind: backend.KindInt, size: bits / 8, signed: signed}
	b.ints[key] = t
	return t
}

func (b *rBackend) Float(bits int) backend.Type {
	if t, ok := b.floats[bits]; ok {
		return t
	}
	t := &rType{kind: backend.KindFloat, size: bits / 8}
	b.floats[bits] = t
	return t
}

func (b *rBackend) Pointer(base backend.Type) backend.Type {
	rb := base.(*rType)
	if t, ok := b.pointers[rb]; ok {
		return t
	}
	t := &rType{kind: backend.KindPointer, size: pointerSize, elem: rb}
	b.pointers[rb] = t
	return t
}

func (b *rBackend) Array(elem backend.Type, n int) backend.Type {
	re := elem.(*rType)
	key := [2]interface{}{re, n}
	if t, ok := b.arrays[key]; ok {
		return t
	}
	t := &rType{kind: backend.KindArray, elem: re, count: n, size: re.size * n}
	b.arrays[key] = t
	return t
}

func (b *rBackend) Vector(elem backend.Type, n int) backend.Type {
	re := elem.(*rType)
	key := [2]interface{}{re, n}
	if t, ok := b.vectors[key]; ok {
		return t
	}
	t := &rType{kind: backend.KindVector, elem: re, count: n, size: re.size * n}
	b.vectors[key] = t
	return t
}

func (b *rBackend) Struct(name string, fields []backend.FieldLayout, packed bool) backend.Type {
	if t, ok := b.structs[name]; ok {
		return t
	}
	offset := 0
	laidOut := make([]backend.FieldLayout, len(fields))
	for i, f := range fields {
		ft := f.Type.(*rType)
		if !packed {
			offset = align(offset, alignmentOf(ft))
		}
		laidOut[i] = backend.FieldLayout{Name: f.Name, Offset: offset, Type: ft, ReadOnly: f.ReadOnly}
		offset += ft.size
	}
	total := offset
	if !packed {
		total = align(offset, alignmentOf(&rType{kind: backend.KindStruct, fields: laidOut}))
	}
	t := &rType{kind: backend.KindStruct, name: name, fields: laidOut, packed: packed, size: total}
	b.structs[name] = t
	return t
}

func (b *rBackend) HostDefaults(m backend.Module) {
	mm := m.(*rModule)
	if mm.dataLayout == "" {
		mm.dataLayout = "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128"
		mm.triple = "x86_64-unknown-linux-gnu-refbackend"
	}
}
