// Package function implements spec.md §4.E: Function & FnContext, the
// fluent FunctionBuilder, and call_fn's cross-module auto-declare
// behavior.
package function

import (
	"fmt"

	"github.com/irforge/llcore/internal/backend"
	"github.com/irforge/llcore/internal/codesection"
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/linksym"
	"github.com/irforge/llcore/internal/types"
	"github.com/irforge/llcore/internal/values"
)

// ModuleHandle is the subset of internal/llcore's Module that function
// needs, kept as an interface so this package never imports the root
// llcore package (which imports function).
type ModuleHandle interface {
	Name() string
	BackendModule() backend.Module
	// RegisterFunctionSymbol registers sym into the module's public
	// symbol table (spec.md §4.H register_symbol), reporting false if its
	// full name already exists.
	RegisterFunctionSymbol(sym linksym.Symbol) bool
}

// CursorHandle is the subset of the root Cursor that function needs: a
// live backend, error context, and the function-name registry that
// enforces "duplicate names forbidden" and makes declare-on-demand
// idempotent across modules (spec.md §4.E).
type CursorHandle interface {
	Backend() backend.Backend
	Errors() *errstack.Context
	LookupFunction(name string) (*Function, bool)
	RegisterFunction(fn *Function)
	CurrentModule() ModuleHandle
}

// FnContext is the single-parameter convention every Function carries
// (spec.md §4.E): a type (scalar or pointer) and a ValueInfo for the
// argument, cached once per Function. The backend argument value itself
// is not stored here; Function.ArgBackendValue fetches it from the
// backend function.
type FnContext struct {
	typ   types.TypeInfo
	cache values.ValueInfo
}

func (c FnContext) Type() types.TypeInfo    { return c.typ }
func (c FnContext) Value() values.ValueInfo { return c.cache }

// Function is the public Handle wrapping one backend.Function plus its
// FnContext, link symbol and owning module (spec.md §3).
type Function struct {
	cursor CursorHandle

	name       string
	isExternal bool
	returnType types.TypeInfo
	context    FnContext
	backendFn  backend.Function
	linkSymbol string
	ownerMod   ModuleHandle

	verified bool
	errored  bool

	sections     map[string]*codesection.CodeSection
	sectionStack codesection.Stack
	varCtx       codesection.VarFrameSetter
}

// SetVarFrameSetter wires a variable-context frame (internal/varctx) so
// every section this function mints seeds its "context" binding on
// Enter (spec.md §4.F). Optional: nil is safe and simply skips that
// seeding, for callers (like this package's own tests) that don't need
// a variable-context stack.
func (f *Function) SetVarFrameSetter(v codesection.VarFrameSetter) { f.varCtx = v }

// MkSection implements spec.md §4.E's mk_section: duplicate section
// names inside one function are a CodeSection error.
func (f *Function) MkSection(name string) *codesection.CodeSection {
	if f.HasError() {
		return codesection.Null()
	}
	if _, exists := f.sections[name]; exists {
		f.cursor.Errors().PushError(errstack.KindCodeSection, fmt.Sprintf("mk_section(%s): duplicate section name in function %q", name, f.name), errstack.SourceLoc{})
		return codesection.Null()
	}
	block := f.backendFn.AppendBasicBlock(name)
	sec := codesection.New(name, f.cursor.Errors(), f.cursor.Backend(), &f.sectionStack, f, block, f.varCtx)
	f.sections[name] = sec
	return sec
}

// Null is the sentinel Function.
func Null() *Function { return &Function{errored: true} }

func (f *Function) IsNull() bool   { return f == nil || f.errored }
func (f *Function) HasError() bool { return f.IsNull() }
func (f *Function) Equal(o *Function) bool {
	if f.HasError() && o.HasError() {
		return true
	}
	return f == o
}

func (f *Function) Name() string               { return f.name }
func (f *Function) IsExternal() bool           { return f.isExternal }
func (f *Function) ReturnType() types.TypeInfo { return f.returnType }
func (f *Function) Context() FnContext         { return f.context }

// ContextValue satisfies internal/codesection.FunctionHandle: the cached
// ValueInfo for this function's single FnContext argument.
func (f *Function) ContextValue() values.ValueInfo { return f.context.cache }

// ArgBackendValue satisfies internal/codesection.FunctionHandle.
func (f *Function) ArgBackendValue() backend.Value { return f.backendFn.ArgValue(0) }
func (f *Function) LinkSymbol() string         { return f.linkSymbol }
func (f *Function) Module() ModuleHandle       { return f.ownerMod }

// BackendFunction, ArgType and RetType implement values.CallTarget, so a
// *Function can be passed directly to values.FnCall.
func (f *Function) BackendFunction() backend.Function { return f.backendFn }
func (f *Function) ArgType() types.TypeInfo            { return f.context.typ }
func (f *Function) RetType() types.TypeInfo            { return f.returnType }

// Verify delegates to the backend verifier (spec.md §4.E "verification"),
// additionally enforcing "a function may not be left with an un-sealed
// section on the stack" (spec.md §4.F invariants).
func (f *Function) Verify(msgs func(string)) bool {
	if f.HasError() {
		return false
	}
	defer f.cursor.Errors().Here()()
	if f.sectionStack.HasUnsealed() {
		f.cursor.Errors().PushError(errstack.KindCodeSection, fmt.Sprintf("function %q: unsealed section left on the stack", f.name), errstack.SourceLoc{})
		return false
	}
	var buf errWriter
	ok := f.backendFn.Verify(&buf)
	if !ok && msgs != nil {
		msgs(buf.String())
	}
	f.verified = ok
	return ok
}

type errWriter struct{ s string }

func (w *errWriter) Write(p []byte) (int, error) { w.s += string(p); return len(p), nil }
func (w *errWriter) String() string              { return w.s }

// CallFn implements spec.md §4.E's call_fn: verifies the argument type
// matches the context type, auto-declares the callee into callerModule
// if it isn't already declared there, and returns the KindFnCall
// ValueInfo.
func (f *Function) CallFn(callerModule ModuleHandle, arg values.ValueInfo) values.ValueInfo {
	if f.HasError() || arg.HasError() {
		return values.Null()
	}
	ec := f.cursor.Errors()
	defer ec.Here()()
	if !arg.Type().Equal(f.context.typ) {
		ec.PushError(errstack.KindValueError, fmt.Sprintf("call_fn(%s): argument type does not match context type", f.name), errstack.SourceLoc{})
		return values.Null()
	}
	if callerModule != nil && callerModule.Name() != f.ownerMod.Name() {
		// Idempotent cross-module declare: DeclareFunction on the reference
		// backend returns the same shared *rFunction if already registered
		// under this link symbol (see refbackend/module.go), so repeated
		// calls from the same caller module are free.
		callerModule.BackendModule().DeclareFunction(f.linkSymbol, f.context.typ.Backend(), f.returnType.Backend(), true)
	}
	return values.FnCall(f, arg)
}

// Builder is the fluent FunctionBuilder of spec.md §4.E.
type Builder struct {
	cursor     CursorHandle
	module     ModuleHandle
	name       string
	ctxType    types.TypeInfo
	retType    types.TypeInfo
	external   bool
	linkSymbol string
	namespace  string
}

func NewBuilder(cursor CursorHandle) *Builder {
	return &Builder{cursor: cursor}
}

func (b *Builder) Named(name string) *Builder            { b.name = name; return b }
func (b *Builder) In(m ModuleHandle) *Builder             { b.module = m; return b }
func (b *Builder) External() *Builder                     { b.external = true; return b }
func (b *Builder) WithContext(t types.TypeInfo) *Builder  { b.ctxType = t; return b }
func (b *Builder) WithReturnType(t types.TypeInfo) *Builder {
	b.retType = t
	return b
}
func (b *Builder) WithLinkSymbol(sym string) *Builder { b.linkSymbol = sym; return b }

// WithNamespace sets the LinkSymbolName namespace this function's symbol
// is published under (spec.md §3); omitted means global.
func (b *Builder) WithNamespace(ns string) *Builder { b.namespace = ns; return b }

// Compile freezes the Builder into a Function (spec.md §4.E: "Missing
// name, missing context, or cursor absent -> Function error").
func (b *Builder) Compile() *Function {
	if b.cursor == nil {
		return Null()
	}
	ec := b.cursor.Errors()
	defer ec.Here()()
	if b.name == "" {
		ec.PushError(errstack.KindFunction, "FunctionBuilder: missing name", errstack.SourceLoc{})
		return Null()
	}
	if b.ctxType.HasError() || !b.ctxType.IsScalarOrPointer() {
		ec.PushError(errstack.KindFunction, fmt.Sprintf("FunctionBuilder(%s): context type must be scalar or pointer", b.name), errstack.SourceLoc{})
		return Null()
	}
	if b.retType.HasError() {
		ec.PushError(errstack.KindFunction, fmt.Sprintf("FunctionBuilder(%s): missing return type", b.name), errstack.SourceLoc{})
		return Null()
	}
	if !b.external && b.module == nil {
		ec.PushError(errstack.KindFunction, fmt.Sprintf("FunctionBuilder(%s): non-external function requires a module", b.name), errstack.SourceLoc{})
		return Null()
	}
	if _, exists := b.cursor.LookupFunction(b.name); exists {
		ec.PushError(errstack.KindFunction, fmt.Sprintf("FunctionBuilder(%s): duplicate function name", b.name), errstack.SourceLoc{})
		return Null()
	}

	mod := b.module
	if mod == nil {
		mod = b.cursor.CurrentModule()
	}

	linkSym := b.linkSymbol
	if linkSym == "" {
		linkSym = b.name
	}
	symName := linksym.Global(linkSym)
	if b.namespace != "" {
		symName = linksym.Namespaced(b.namespace, linkSym)
	}
	sym := linksym.Symbol{Name: symName, Type: b.retType, Class: linksym.ClassFunction}
	if !mod.RegisterFunctionSymbol(sym) {
		ec.PushError(errstack.KindLinkSymbol, fmt.Sprintf("FunctionBuilder(%s): duplicate link symbol %s", b.name, sym.FullName()), errstack.SourceLoc{})
		return Null()
	}

	bfn := mod.BackendModule().DeclareFunction(sym.FullName(), b.ctxType.Backend(), b.retType.Backend(), b.external)

	fn := &Function{
		cursor:     b.cursor,
		name:       b.name,
		isExternal: b.external,
		returnType: b.retType,
		context:    FnContext{typ: b.ctxType, cache: values.Context(b.ctxType)},
		backendFn:  bfn,
		linkSymbol: sym.FullName(),
		ownerMod:   mod,
		sections:   map[string]*codesection.CodeSection{},
	}
	b.cursor.RegisterFunction(fn)
	return fn
}
