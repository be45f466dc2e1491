package refbackend

import (
	"unsafe"

	"github.com/irforge/llcore/internal/backend"
)

type rJIT struct {
	b          *rBackend
	modules    []*rThreadSafeModule
	symbols    map[string]*rFunction
	structSyms map[string]struct{}
	initDylibs map[string]bool
	closed     bool
}

func newJIT(b *rBackend) *rJIT {
	return &rJIT{b: b, symbols: map[string]*rFunction{}, structSyms: map[string]struct{}{}, initDylibs: map[string]bool{}}
}

func (j *rJIT) AddIRModule(m backend.ThreadSafeModule) error {
	tsm := m.(*rThreadSafeModule)
	j.modules = append(j.modules, tsm)
	for name, fn := range tsm.m.localFuncs {
		j.symbols[name] = fn
	}
	return nil
}

func (j *rJIT) Initialize(dylib string) error {
	j.initDylibs[dylib] = true
	return nil
}

func (j *rJIT) Deinitialize(dylib string) error {
	delete(j.initDylibs, dylib)
	return nil
}

func (j *rJIT) Lookup(symbol string) (uintptr, error) {
	fn, ok := j.symbols[symbol]
	if !ok {
		return 0, &backend.SymbolNotFoundError{Symbol: symbol}
	}
	// The "address" handed back to llcore is the address of the
	// *rFunction itself, reinterpreted as a uintptr; llcore never
	// dereferences it itself, only passes it back into EventFn invocation,
	// which goes through Invoke below. A real ORC JIT would return a
	// genuine native code address here.
	return uintptr(unsafe.Pointer(fn)), nil
}

// Invoke implements backend.JIT.Invoke: decode addr back into the
// *rFunction it was minted from (see Lookup) and interpret it against
// arg, the fixed int32(void*) event-function calling convention.
func (j *rJIT) Invoke(addr uintptr, arg unsafe.Pointer) int32 {
	fn := (*rFunction)(unsafe.Pointer(addr))
	return run(fn.owner, fn, arg)
}

func (j *rJIT) Close() error {
	j.closed = true
	return nil
}
