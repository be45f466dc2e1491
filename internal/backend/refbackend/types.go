// Package refbackend is the one concrete backend.Backend implementation
// shipped with llcore. It does not bind to LLVM (explicitly out of scope,
// spec.md §1) -- instead it is a small, self-contained interpreter: types
// know their own size/alignment, "instructions" are recorded into basic
// blocks, and a JIT.Lookup-resolved function pointer walks that recorded
// program against real host memory (so Runtime Objects built by llcore's
// reflection layer, see object.go, can genuinely be read and written).
//
// Grounded in the teacher's SSA instruction design (internal/engine/
// wazevo/ssa/instructions.go: one Instruction struct carrying an opcode
// plus generic operand/immediate fields) and its interpreter-style
// execution engine (internal/engine/interpreter), generalized here from
// WebAssembly opcodes to the LLVM-shaped opcodes spec.md §4.D lists.
package refbackend

import (
	"fmt"

	"github.com/irforge/llcore/internal/backend"
)

type rType struct {
	kind   backend.TypeKind
	size   int
	signed bool
	elem   *rType
	count  int
	name   string
	fields []backend.FieldLayout
	packed bool
}

func (t *rType) Kind() backend.TypeKind { return t.kind }
func (t *rType) SizeBytes() int         { return t.size }
func (t *rType) IsSigned() bool         { return t.signed }
func (t *rType) Count() int             { return t.count }
func (t *rType) Packed() bool           { return t.packed }
func (t *rType) Name() string           { return t.name }

func (t *rType) Elem() backend.Type {
	if t.elem == nil {
		return nil
	}
	return t.elem
}

func (t *rType) Fields() []backend.FieldLayout { return t.fields }

func (t *rType) String() string {
	switch t.kind {
	case backend.KindVoid:
		return "void"
	case backend.KindBool:
		return "bool"
	case backend.KindInt:
		sign := "i"
		if !t.signed {
			sign = "u"
		}
		return fmt.Sprintf("%s%d", sign, t.size*8)
	case backend.KindFloat:
		return fmt.Sprintf("f%d", t.size*8)
	case backend.KindPointer:
		return t.elem.String() + "*"
	case backend.KindArray:
		return fmt.Sprintf("[%d x %s]", t.count, t.elem.String())
	case backend.KindVector:
		return fmt.Sprintf("<%d x %s>", t.count, t.elem.String())
	case backend.KindStruct:
		return "%" + t.name
	default:
		return "?"
	}
}

// pointerSize is the only host-dependent constant this reference data
// layout needs; real data layouts vary per target (spec.md §6
// "Environment: ... derives target from data layout"), but a 64-bit host
// default is a reasonable stand-in for a test backend.
const pointerSize = 8

func align(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

func alignmentOf(t *rType) int {
	switch t.kind {
	case backend.KindStruct:
		max := 1
		for _, f := range t.fields {
			if a := alignmentOf(f.Type.(*rType)); a > max {
				max = a
			}
		}
		return max
	case backend.KindArray, backend.KindVector:
		return alignmentOf(t.elem)
	default:
		if t.size == 0 {
			return 1
		}
		return t.size
	}
}
