package llcore

import (
	"github.com/irforge/llcore/internal/errstack"
	"github.com/irforge/llcore/internal/types"
)

// StructMirror is the post-JIT runtime reflection handle for a struct
// type (spec.md §4.K's "Struct"): just enough field metadata to
// heap-allocate matching Objects, independent of the backend or Cursor
// that originally declared the type.
type StructMirror struct {
	name    string
	typ     types.TypeInfo
	ec      *errstack.Context
	errored bool
}

func newStructMirror(name string, typ types.TypeInfo, ec *errstack.Context) *StructMirror {
	return &StructMirror{name: name, typ: typ, ec: ec}
}

// NullStruct is the sentinel StructMirror (spec.md §3 Handle, extended
// to runtime-reflection types per SPEC_FULL's supplemented null-object
// pattern).
func NullStruct() *StructMirror { return &StructMirror{errored: true} }

func (s *StructMirror) IsNull() bool   { return s == nil || s.errored }
func (s *StructMirror) HasError() bool { return s.IsNull() }

func (s *StructMirror) Name() string         { return s.name }
func (s *StructMirror) Type() types.TypeInfo { return s.typ }
func (s *StructMirror) SizeBytes() int       { return s.typ.SizeBytes() }

// Field looks up a member by name (spec.md §3 member_field_entry).
func (s *StructMirror) Field(name string) (types.FieldEntry, bool) {
	for _, f := range s.typ.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return types.FieldEntry{}, false
}

// Fields returns every member, declaration order.
func (s *StructMirror) Fields() []types.FieldEntry { return s.typ.Fields() }

// MkObject heap-allocates a zero-initialized object buffer sized to
// size_in_bytes and records its type (spec.md §4.K).
func (s *StructMirror) MkObject() *Object { return newObject(s, s.ec) }
