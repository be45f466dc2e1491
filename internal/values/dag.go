package values

import "github.com/irforge/llcore/internal/backend"

// Env is the materialization environment: the active CodeSection's
// IRBuilder, plus the current function's FnContext argument value (the
// thing a KindContext node resolves to).
type Env struct {
	Builder  backend.IRBuilder
	CtxValue backend.Value
}

func materializeOperand(p *ValueInfo, env *Env) backend.Value {
	if p == nil {
		return nil
	}
	v, _ := p.Materialize(env)
	return v
}

// Materialize walks the DAG rooted at v, emitting each unmaterialized
// node's instruction exactly once via env.Builder and caching the
// result, then returns it. Calling Materialize again on the same
// ValueInfo (or on any other ValueInfo sharing this node, since
// ValueInfo is a thin handle) is a no-op that returns the cached value --
// this is what makes the DAG a DAG and not a tree: a value referenced
// from two places is emitted once.
func (v ValueInfo) Materialize(env *Env) (backend.Value, bool) {
	if v.HasError() {
		return nil, false
	}
	n := v.n
	if n.materialized {
		return n.cached, true
	}

	switch n.kind {
	case KindConstant:
		if n.constIsF {
			n.cached = env.Builder.ConstFloat(n.typ.Backend(), n.constFloat)
		} else {
			n.cached = env.Builder.ConstInt(n.typ.Backend(), n.constSigned, n.constInt)
		}
	case KindContext:
		n.cached = env.CtxValue
	case KindBinary:
		lv := materializeOperand(n.a, env)
		rv := materializeOperand(n.b, env)
		n.cached = env.Builder.Arith(n.arithOp, n.signed, lv, rv)
	case KindConditional:
		cv := materializeOperand(n.a, env)
		tv := materializeOperand(n.b, env)
		ev := materializeOperand(n.c, env)
		n.cached = env.Builder.Select(cv, tv, ev)
	case KindTypecast:
		sv := materializeOperand(n.a, env)
		n.cached = env.Builder.Cast(n.castOp, n.signed, n.typ.Backend(), sv)
	case KindInnerEntry:
		bv := materializeOperand(n.a, env)
		n.cached = env.Builder.GEP(n.gepBaseType.Backend(), bv, n.gepIndices)
	case KindLoad:
		pv := materializeOperand(n.a, env)
		n.cached = env.Builder.Load(n.typ.Backend(), pv)
	case KindStore:
		pv := materializeOperand(n.a, env)
		vv := materializeOperand(n.b, env)
		env.Builder.Store(pv, vv)
		n.cached = vv
	case KindMkPtr:
		n.cached = env.Builder.Alloca(n.gepBaseType.Backend())
	case KindFnCall:
		av := materializeOperand(n.a, env)
		n.cached = env.Builder.Call(n.call.BackendFunction(), av)
	case KindLoadVectorEntry:
		vecv := materializeOperand(n.a, env)
		idxv := materializeOperand(n.b, env)
		n.cached = env.Builder.ExtractElement(vecv, idxv)
	case KindStoreVectorEntry:
		vecv := materializeOperand(n.a, env)
		idxv := materializeOperand(n.b, env)
		valv := materializeOperand(n.c, env)
		n.cached = env.Builder.InsertElement(vecv, idxv, valv)
	}

	n.materialized = true
	return n.cached, true
}
