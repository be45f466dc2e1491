package refbackend

import "github.com/irforge/llcore/internal/backend"

// rValue is an opaque handle to either an eagerly-captured constant or a
// recorded instruction's (future) result. Constants carry their payload
// directly, matching spec.md §4.D's "Constants capture an immediate
// backend constant upon construction (so they can be emitted anywhere)".
type rValue struct {
	id       int // frame slot for non-constants; unused for constants
	typ      *rType
	isConst  bool
	constVal runtimeVal
}

func (v *rValue) Type() backend.Type { return v.typ }

// runtimeVal is the dynamic payload that flows through the interpreter's
// execution frame: int64 for Int/Bool, float64 for Float, unsafe
// byte-offset pointers for Pointer, and a slice for Array/Vector values
// passed by value (vectors only -- arrays in this core are always
// accessed through a pointer per spec.md §4.D InnerEntry).
type runtimeVal struct {
	i   int64
	f   float64
	ptr *byte
	vec []runtimeVal
}
