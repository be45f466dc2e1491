package refbackend

import (
	"fmt"
	"io"

	"github.com/irforge/llcore/internal/backend"
)

type rFunction struct {
	name       string
	argType    *rType
	retType    *rType
	external   bool
	blocks     []*rBasicBlock
	attrs      map[string]bool
	argValueID int
	verified   bool
	erased     bool
	owner      *rBackend
}

func (f *rFunction) Name() string     { return f.name }
func (f *rFunction) ArgCount() int    { return 1 } // every llcore Function takes exactly one FnContext arg
func (f *rFunction) SetAttr(n string) { f.attrs[n] = true }

func (f *rFunction) ArgValue(i int) backend.Value {
	return &rValue{id: f.argValueID, typ: f.argType}
}

func (f *rFunction) SetArgName(i int, name string) {
	// Reference backend does not track human-readable arg names; this is
	// a debug-only facility in the real backend (spec.md §6 "argument
	// iteration and naming").
}

func (f *rFunction) AppendBasicBlock(name string) backend.BasicBlock {
	b := &rBasicBlock{name: name}
	f.blocks = append(f.blocks, b)
	return b
}

func (f *rFunction) Verify(w io.Writer) bool {
	if f.erased {
		fmt.Fprintf(w, "function %s: verify on erased function\n", f.name)
		return false
	}
	for _, b := range f.blocks {
		if b.term == nil {
			fmt.Fprintf(w, "function %s: basic block %s has no terminator\n", f.name, b.name)
			return false
		}
	}
	f.verified = true
	return true
}

func (f *rFunction) EraseFromParent() { f.erased = true }

func (f *rFunction) Print(w io.Writer) {
	fmt.Fprintf(w, "define %s @%s(%s %%ctx) {\n", f.retType, f.name, f.argType)
	for _, b := range f.blocks {
		fmt.Fprintf(w, "%s:\n", b.name)
		for _, in := range b.instrs {
			fmt.Fprintf(w, "\t%%v%d = %s\n", in.out, opcodeName(in.op))
		}
		if b.term != nil {
			fmt.Fprintf(w, "\t%s\n", opcodeName(b.term.op))
		}
	}
	fmt.Fprintln(w, "}")
}

func opcodeName(o opcode) string {
	switch o {
	case opAlloca:
		return "alloca"
	case opLoad:
		return "load"
	case opStore:
		return "store"
	case opGEP:
		return "getelementptr"
	case opExtractElement:
		return "extractelement"
	case opInsertElement:
		return "insertelement"
	case opSelect:
		return "select"
	case opArith:
		return "arith"
	case opCast:
		return "cast"
	case opCall:
		return "call"
	case opRet:
		return "ret"
	case opBr:
		return "br"
	case opCondBr:
		return "condbr"
	default:
		return "?"
	}
}
