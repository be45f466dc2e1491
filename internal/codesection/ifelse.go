package codesection

import (
	"fmt"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/values"
)

type branchState int

const (
	branchNone branchState = iota
	branchThen
	branchElse
)

// SectionFactory is the narrow hook IfElseCond needs into
// internal/function's mk_section, kept as an interface to avoid a direct
// dependency on the function package.
type SectionFactory interface {
	MkSection(name string) *CodeSection
}

// IfElseCond is spec.md §4.F's if-else control-flow composite.
type IfElseCond struct {
	name      string
	ec        *errstack.Context
	enclosing *CodeSection
	cond      values.ValueInfo

	thenSec, elseSec, postSec *CodeSection
	thenPopulated, elsePopulated bool
	inside    branchState
	bound     bool
	errored   bool
}

// New builds the three child sections ("{name}.then/else/post") and
// validates that cond is boolean-typed.
func New(name string, cond values.ValueInfo, enclosing *CodeSection, ec *errstack.Context, sections SectionFactory) *IfElseCond {
	if cond.HasError() {
		ec.PushError(errstack.KindBranchError, fmt.Sprintf("if_else(%s): condition is invalid", name), errstack.SourceLoc{})
		return &IfElseCond{errored: true}
	}
	if cond.Type().Kind() != backend.KindBool {
		ec.PushError(errstack.KindBranchError, fmt.Sprintf("if_else(%s): condition must be bool", name), errstack.SourceLoc{})
		return &IfElseCond{errored: true}
	}
	return &IfElseCond{
		name:      name,
		ec:        ec,
		enclosing: enclosing,
		cond:      cond,
		thenSec:   sections.MkSection(name + ".then"),
		elseSec:   sections.MkSection(name + ".else"),
		postSec:   sections.MkSection(name + ".post"),
	}
}

func (i *IfElseCond) HasError() bool { return i == nil || i.errored }

// ThenBranch runs fn with the then-section entered, then exits it.
func (i *IfElseCond) ThenBranch(fn func(sec *CodeSection)) *IfElseCond {
	if i.HasError() {
		return i
	}
	i.inside = branchThen
	i.thenSec.Enter()
	fn(i.thenSec)
	if i.thenSec.IsOpen() {
		i.thenSec.Exit()
	}
	i.inside = branchNone
	i.thenPopulated = true
	return i
}

func (i *IfElseCond) ElseBranch(fn func(sec *CodeSection)) *IfElseCond {
	if i.HasError() {
		return i
	}
	i.inside = branchElse
	i.elseSec.Enter()
	fn(i.elseSec)
	if i.elseSec.IsOpen() {
		i.elseSec.Exit()
	}
	i.inside = branchNone
	i.elsePopulated = true
	return i
}

// Bind emits the conditional jump from the enclosing section to
// whichever of then/else/post were populated, then enters and detaches
// post so subsequent code lands there (spec.md §4.F).
func (i *IfElseCond) Bind() *CodeSection {
	if i.HasError() {
		return Null()
	}
	thenTarget := i.postSec
	if i.thenPopulated {
		thenTarget = i.thenSec
	}
	elseTarget := i.postSec
	if i.elsePopulated {
		elseTarget = i.elseSec
	}
	i.enclosing.ConditionalJump(i.cond, thenTarget, elseTarget)
	i.postSec.Enter()
	i.postSec.Detach()
	i.bound = true
	return i.postSec
}

// CheckWellFormed implements the destructor check of spec.md §4.F:
// "either both branches were populated or bind was called; otherwise
// pushes BranchError." Nothing in this module calls it automatically:
// neither Function.Verify nor anything else runs this check when an
// IfElseCond is abandoned, so it happens only where a caller invokes it.
func (i *IfElseCond) CheckWellFormed() {
	if i.HasError() || i.bound {
		return
	}
	if i.thenPopulated && i.elsePopulated {
		return
	}
	i.ec.PushError(errstack.KindBranchError, fmt.Sprintf("if_else(%s): neither branch fully populated nor bind() called", i.name), errstack.SourceLoc{})
}
