// Package linksym implements spec.md §3's LinkSymbolName/LinkSymbol: the
// public-name convention the JIT uses to resolve functions and custom
// structs, namespaced via "namespace_name" concatenation.
package linksym

import "github.com/irforge/llcore/internal/types"

// SymbolClass distinguishes a LinkSymbol's payload.
type SymbolClass int

const (
	ClassFunction SymbolClass = iota
	ClassCustomStruct
)

// Name is either global (name) or namespaced (namespace, name).
// FullName() is the canonical public_symbols key (spec.md §3,
// §8 "Public symbol naming"): the bare name when global, or
// "namespace_name" concatenation otherwise.
type Name struct {
	Namespace string
	Short     string
}

func Global(name string) Name { return Name{Short: name} }

func Namespaced(namespace, name string) Name { return Name{Namespace: namespace, Short: name} }

func (n Name) IsGlobal() bool { return n.Namespace == "" }

func (n Name) FullName() string {
	if n.IsGlobal() {
		return n.Short
	}
	return n.Namespace + "_" + n.Short
}

// Arg is one (TypeInfo, name) entry of a function symbol's arg_list
// (spec.md §3: "arg_list is a sequence of (TypeInfo, name) for function
// symbols only").
type Arg struct {
	Type types.TypeInfo
	Name string
}

// Symbol is one registered LinkSymbol (spec.md §3).
type Symbol struct {
	Name    Name
	Type    types.TypeInfo
	Class   SymbolClass
	ArgList []Arg
}

func (s Symbol) FullName() string { return s.Name.FullName() }

// Registry is a Module's public_symbols table: append-only, rejecting
// duplicate full names (spec.md §4.H register_symbol).
type Registry struct {
	byFullName map[string]Symbol
	order      []Symbol
}

func NewRegistry() *Registry {
	return &Registry{byFullName: map[string]Symbol{}}
}

// Register appends sym, returning false if its full name already
// exists.
func (r *Registry) Register(sym Symbol) bool {
	full := sym.FullName()
	if _, exists := r.byFullName[full]; exists {
		return false
	}
	r.byFullName[full] = sym
	r.order = append(r.order, sym)
	return true
}

func (r *Registry) Lookup(fullName string) (Symbol, bool) {
	s, ok := r.byFullName[fullName]
	return s, ok
}

// All returns every registered symbol, insertion order.
func (r *Registry) All() []Symbol { return r.order }
