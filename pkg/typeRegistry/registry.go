// Package typeRegistry implements the scale-info portable type registry
// shared by ink! contract metadata and runtime metadata, and a dynamic
// decoder/encoder that walks it to turn SCALE bytes into Values and back.
package typeRegistry

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type DefKind int

const (
	DefComposite DefKind = iota
	DefVariant
	DefSequence
	DefArray
	DefTuple
	DefPrimitive
	DefCompact
	DefBitSequence
)

func (k DefKind) String() string {
	switch k {
	case DefComposite:
		return "composite"
	case DefVariant:
		return "variant"
	case DefSequence:
		return "sequence"
	case DefArray:
		return "array"
	case DefTuple:
		return "tuple"
	case DefPrimitive:
		return "primitive"
	case DefCompact:
		return "compact"
	case DefBitSequence:
		return "bitsequence"
	default:
		return fmt.Sprintf("DefKind(%d)", int(k))
	}
}

type Primitive int

const (
	PrimBool Primitive = iota
	PrimChar
	PrimStr
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimU128
	PrimU256
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimI128
	PrimI256
)

var primitiveNames = []string{
	"bool", "char", "str", "u8", "u16", "u32", "u64", "u128", "u256",
	"i8", "i16", "i32", "i64", "i128", "i256",
}

func (p Primitive) String() string {
	if int(p) >= 0 && int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return fmt.Sprintf("Primitive(%d)", int(p))
}

// ParsePrimitive maps the scale-info primitive name to a Primitive.
func ParsePrimitive(name string) (Primitive, error) {
	for i, n := range primitiveNames {
		if n == name {
			return Primitive(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidRegistry, "unknown primitive '%s'", name)
}

// ByteSize returns the encoded width of fixed size integer primitives.
func (p Primitive) ByteSize() int {
	switch p {
	case PrimU8, PrimI8:
		return 1
	case PrimU16, PrimI16:
		return 2
	case PrimU32, PrimI32, PrimChar:
		return 4
	case PrimU64, PrimI64:
		return 8
	case PrimU128, PrimI128:
		return 16
	case PrimU256, PrimI256:
		return 32
	default:
		return 0
	}
}

func (p Primitive) IsSigned() bool {
	return p >= PrimI8 && p <= PrimI256
}

func (p Primitive) IsUnsigned() bool {
	return p >= PrimU8 && p <= PrimU256
}

type Field struct {
	Name     string
	Type     uint32
	TypeName string
}

type Variant struct {
	Name   string
	Fields []Field
	Index  uint8
}

type TypeParam struct {
	Name string
	Type *uint32
}

type TypeDef struct {
	Kind      DefKind
	Fields    []Field
	Variants  []Variant
	Elem      uint32
	Len       uint32
	Tuple     []uint32
	Primitive Primitive
	BitStore  uint32
	BitOrder  uint32
}

type Type struct {
	ID     uint32
	Path   []string
	Params []TypeParam
	Def    TypeDef
}

// Name returns the last path segment, or an empty string for anonymous types.
func (t *Type) Name() string {
	if len(t.Path) == 0 {
		return ""
	}
	return t.Path[len(t.Path)-1]
}

func (t *Type) PathString() string {
	return strings.Join(t.Path, "::")
}

// VariantByName finds a variant of a variant type.
func (t *Type) VariantByName(name string) (*Variant, bool) {
	for i := range t.Def.Variants {
		if t.Def.Variants[i].Name == name {
			return &t.Def.Variants[i], true
		}
	}
	return nil, false
}

// VariantByIndex finds a variant by its encoded discriminant.
func (t *Type) VariantByIndex(index uint8) (*Variant, bool) {
	for i := range t.Def.Variants {
		if t.Def.Variants[i].Index == index {
			return &t.Def.Variants[i], true
		}
	}
	return nil, false
}

var (
	ErrInvalidRegistry = errors.New("invalid type registry")
	ErrTypeNotFound    = errors.New("type not found")
	ErrTypeMismatch    = errors.New("value does not match type")
)

// Registry is an immutable lookup table of types by id.
type Registry struct {
	types map[uint32]*Type
	order []uint32
}

func NewRegistry(types []*Type) (*Registry, error) {
	r := &Registry{
		types: make(map[uint32]*Type, len(types)),
		order: make([]uint32, 0, len(types)),
	}
	for _, t := range types {
		if _, ok := r.types[t.ID]; ok {
			return nil, errors.Wrapf(ErrInvalidRegistry, "duplicate type id %d", t.ID)
		}
		r.types[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r, nil
}

func (r *Registry) Len() int {
	return len(r.types)
}

func (r *Registry) Lookup(id uint32) (*Type, error) {
	t, ok := r.types[id]
	if !ok {
		return nil, errors.Wrapf(ErrTypeNotFound, "id %d", id)
	}
	return t, nil
}

// FindByPath returns the first type, in registry order, whose path matches.
func (r *Registry) FindByPath(path ...string) (*Type, bool) {
	want := strings.Join(path, "::")
	for _, id := range r.order {
		if r.types[id].PathString() == want {
			return r.types[id], true
		}
	}
	return nil, false
}

// resolveWrapper follows single field composites and returns the innermost
// type. Used to treat newtypes like AccountId32([u8; 32]) as their payload.
func (r *Registry) resolveWrapper(id uint32) (*Type, error) {
	seen := 0
	for {
		t, err := r.Lookup(id)
		if err != nil {
			return nil, err
		}
		if t.Def.Kind == DefComposite && len(t.Def.Fields) == 1 && seen < maxDepth {
			id = t.Def.Fields[0].Type
			seen++
			continue
		}
		if t.Def.Kind == DefTuple && len(t.Def.Tuple) == 1 && seen < maxDepth {
			id = t.Def.Tuple[0]
			seen++
			continue
		}
		return t, nil
	}
}

// IsByteType reports whether id resolves to u8.
func (r *Registry) IsByteType(id uint32) bool {
	t, err := r.Lookup(id)
	if err != nil {
		return false
	}
	return t.Def.Kind == DefPrimitive && t.Def.Primitive == PrimU8
}
