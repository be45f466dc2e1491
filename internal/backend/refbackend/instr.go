package refbackend

import "github.com/irforge/llcore/internal/backend"

// opcode is the tag of a recorded instruction, paired with generic
// operand/immediate fields -- the same shape as the teacher's
// ssa.Instruction (one struct, one opcode, operands resolved by the
// opcode), adapted from WebAssembly opcodes to the LLVM-shaped ones
// spec.md §4.D lists.
type opcode int

const (
	opAlloca opcode = iota
	opLoad
	opStore
	opGEP
	opExtractElement
	opInsertElement
	opSelect
	opArith
	opCast
	opCall
	opRet
	opBr
	opCondBr
)

type instr struct {
	op   opcode
	out  int // result value id; unused for store/ret/br/condbr
	typ  *rType
	args []int // operand value ids, meaning depends on op

	// immediates, populated per-opcode:
	arithOp      backend.ArithOp
	castOp       backend.CastOp
	signed       bool
	operandFloat bool
	gepType   *rType
	gepIdx    []int
	callFn    *rFunction
	brTarget  *rBasicBlock
	condThen  *rBasicBlock
	condElse  *rBasicBlock
}

type rBasicBlock struct {
	name   string
	instrs []instr
	term   *instr
}

func (b *rBasicBlock) Name() string { return b.name }

func (b *rBasicBlock) InsertInstruction(i instr) {
	if i.op == opRet || i.op == opBr || i.op == opCondBr {
		t := i
		b.term = &t
		return
	}
	b.instrs = append(b.instrs, i)
}
