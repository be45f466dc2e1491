// Package codesection implements spec.md §4.F: CodeSection's
// closed->open->sealed->committed state machine, the section stack
// invariant, and the IfElseCond control-flow helper.
package codesection

import (
	"fmt"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/values"
)

// state is CodeSection's lifecycle position.
type state int

const (
	stateClosed state = iota
	stateOpen
	stateSealed
	stateCommitted
)

// FunctionHandle is the subset of internal/function.Function a
// CodeSection needs, kept as an interface to avoid importing the
// function package (which never needs to import codesection back, but
// this keeps the dependency direction explicit and one-way).
type FunctionHandle interface {
	Name() string
	ReturnType() types.TypeInfo
	ContextValue() values.ValueInfo
	// ArgBackendValue returns the function's raw backend argument value
	// directly (bypassing the ValueInfo DAG's memoization), so Enter can
	// seed the materialization Env's CtxValue without first forcing a
	// premature, context-free materialization of ContextValue() itself.
	ArgBackendValue() backend.Value
}

// Stack is the section-stack + detached-list bookkeeping (spec.md §4.F,
// rendered per design note 9 as an explicit struct rather than a
// thread-local); each internal/function Function owns one.
type Stack struct {
	open     []*CodeSection
	detached []*CodeSection
}

func (s *Stack) top() *CodeSection {
	if len(s.open) == 0 {
		return nil
	}
	return s.open[len(s.open)-1]
}

func (s *Stack) push(sec *CodeSection) { s.open = append(s.open, sec) }

func (s *Stack) pop(sec *CodeSection) {
	for i := len(s.open) - 1; i >= 0; i-- {
		if s.open[i] == sec {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}

func (s *Stack) detach(sec *CodeSection) {
	s.pop(sec)
	s.detached = append(s.detached, sec)
}

// HasUnsealed reports whether any section still on the stack (not
// counting detached ones) hasn't reached stateSealed -- used by
// Function.Verify to implement "a function may not be left with an
// un-sealed section on the stack" (spec.md §4.F invariants).
func (s *Stack) HasUnsealed() bool {
	for _, sec := range s.open {
		if sec.st < stateSealed {
			return true
		}
	}
	return false
}

// CodeSection is one labeled straight-line block (spec.md §3, §4.F).
type CodeSection struct {
	name    string
	ec      *errstack.Context
	be      backend.Backend
	stack   *Stack
	fn      FunctionHandle
	block   backend.BasicBlock
	saved   backend.InsertPoint
	env     *values.Env
	varCtx  VarFrameSetter

	st          state
	errored     bool
	enteredOnce bool
}

// VarFrameSetter is the narrow hook into internal/varctx's active frame
// that enter() needs (setting "context" to the function's context
// value). Kept as an interface for the same reason as FunctionHandle.
type VarFrameSetter interface {
	SetContext(v values.ValueInfo)
}

// New mints a CodeSection (spec.md §4.E's mk_section); duplicate names
// are rejected by the caller (internal/function), which owns the
// per-function name registry. varCtx may be nil when no variable-context
// stack is in play for this section.
func New(name string, ec *errstack.Context, be backend.Backend, stack *Stack, fn FunctionHandle, block backend.BasicBlock, varCtx VarFrameSetter) *CodeSection {
	return &CodeSection{name: name, ec: ec, be: be, stack: stack, fn: fn, block: block, varCtx: varCtx}
}

func Null() *CodeSection { return &CodeSection{errored: true} }

func (c *CodeSection) IsNull() bool   { return c == nil || c.errored }
func (c *CodeSection) HasError() bool { return c.IsNull() }
func (c *CodeSection) Name() string   { return c.name }
func (c *CodeSection) IsSealed() bool { return c.st >= stateSealed }
func (c *CodeSection) IsOpen() bool   { return c.st == stateOpen }

// Env exposes the materialization environment so user code can build
// ValueInfo DAGs rooted at this section (values.Materialize needs the
// IRBuilder and the active FnContext value).
func (c *CodeSection) Env() *values.Env { return c.env }

func (c *CodeSection) fail(msg string) {
	defer c.ec.Here()()
	c.ec.PushError(errstack.KindCodeSection, fmt.Sprintf("section %q: %s", c.name, msg), errstack.SourceLoc{})
	c.errored = true
}

// Enter implements "open on enter()" (spec.md §4.F): saves the current
// insertion point, switches to this section's block, pushes onto the
// stack, and seeds the variable frame's "context" binding.
func (c *CodeSection) Enter() *CodeSection {
	if c.HasError() {
		return c
	}
	if c.enteredOnce {
		c.fail("section may be entered at most once")
		return c
	}
	if c.st != stateClosed {
		c.fail("double enter")
		return c
	}
	builder := c.be.Builder()
	c.saved = builder.SaveInsertPoint()
	builder.SetInsertBlock(c.block)
	c.env = &values.Env{Builder: builder, CtxValue: c.fn.ArgBackendValue()}
	c.stack.push(c)
	c.st = stateOpen
	c.enteredOnce = true
	if c.varCtx != nil {
		c.varCtx.SetContext(c.fn.ContextValue())
	}
	return c
}

// Exit implements "committed on exit()": restores the prior insertion
// point and pops from the stack.
func (c *CodeSection) Exit() {
	if c.HasError() || c.st != stateSealed && c.st != stateOpen {
		return
	}
	c.be.Builder().RestoreInsertPoint(c.saved)
	c.stack.pop(c)
	c.st = stateCommitted
}

func (c *CodeSection) seal() {
	c.st = stateSealed
	c.Exit()
}

// SetReturnValue implements set_return_value: checks the value's type
// against the function's declared return type, emits Ret, and auto-exits.
func (c *CodeSection) SetReturnValue(v values.ValueInfo) {
	if c.HasError() {
		return
	}
	if c.st != stateOpen {
		// Reentry / already-sealed: per spec.md §8 scenario 4, a subsequent
		// set_return_value after double-enter failure is a silent no-op.
		return
	}
	if !v.Type().Equal(c.fn.ReturnType()) {
		c.fail("return value type does not match function return type")
		return
	}
	bv, ok := v.Materialize(c.env)
	if !ok {
		c.fail("return value failed to materialize")
		return
	}
	c.be.Builder().Ret(bv)
	c.seal()
}

// JumpToSection implements jump_to_section: emits an unconditional
// branch and auto-exits.
func (c *CodeSection) JumpToSection(dst *CodeSection) {
	if c.HasError() || dst.HasError() || c.st != stateOpen {
		return
	}
	c.be.Builder().Br(dst.block)
	c.seal()
}

// ConditionalJump implements conditional_jump: emits a CondBr and
// auto-exits.
func (c *CodeSection) ConditionalJump(cond values.ValueInfo, thenDst, elseDst *CodeSection) {
	if c.HasError() || thenDst.HasError() || elseDst.HasError() || c.st != stateOpen {
		return
	}
	cv, ok := cond.Materialize(c.env)
	if !ok {
		c.fail("condition failed to materialize")
		return
	}
	c.be.Builder().CondBr(cv, thenDst.block, elseDst.block)
	c.seal()
}

// Detach implements detach(): moves the section from the normal stack
// into the persistent detached list (spec.md §4.F), used by IfElseCond
// to keep the post-branch section open after bind().
func (c *CodeSection) Detach() {
	if c.HasError() {
		return
	}
	c.stack.detach(c)
}

// Block exposes the raw backend.BasicBlock, needed by IfElseCond to
// build its three child sections and by Function when appending new
// sections.
func (c *CodeSection) Block() backend.BasicBlock { return c.block }
