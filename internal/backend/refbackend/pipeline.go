package refbackend

import "github.com/irforge/llcore/internal/backend"

// rPipeline stands in for the teacher's InstCombine -> Reassociate -> GVN
// pipeline (spec.md §4.J). The reference backend does not optimize; it
// only fires the pass-instrumentation callbacks so JIT.process_module_fn
// (jit.go ProcessModuleFn) and any attached Listener observe the same
// before/after/after-analysis sequence a real pipeline would produce.
type rPipeline struct{}

var passNames = []string{"InstCombine", "Reassociate", "GVN"}

func (p *rPipeline) Run(fn backend.Function, instr backend.PassInstrumentation) {
	if instr == nil {
		return
	}
	for _, name := range passNames {
		instr.BeforeNonSkipped(name)
		instr.After(name)
		instr.AfterAnalysis(name)
	}
}
