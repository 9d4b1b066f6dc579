package typeRegistry

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type jsonField struct {
	Name     *string `json:"name"`
	Type     uint32  `json:"type"`
	TypeName *string `json:"typeName"`
}

type jsonVariant struct {
	Name   string      `json:"name"`
	Fields []jsonField `json:"fields"`
	Index  uint8       `json:"index"`
}

type jsonParam struct {
	Name string  `json:"name"`
	Type *uint32 `json:"type"`
}

type jsonDef struct {
	Primitive *string `json:"primitive"`
	Composite *struct {
		Fields []jsonField `json:"fields"`
	} `json:"composite"`
	Variant *struct {
		Variants []jsonVariant `json:"variants"`
	} `json:"variant"`
	Sequence *struct {
		Type uint32 `json:"type"`
	} `json:"sequence"`
	Array *struct {
		Len  uint32 `json:"len"`
		Type uint32 `json:"type"`
	} `json:"array"`
	Tuple   *[]uint32 `json:"tuple"`
	Compact *struct {
		Type uint32 `json:"type"`
	} `json:"compact"`
	BitSequence *struct {
		BitStoreType uint32 `json:"bit_store_type"`
		BitOrderType uint32 `json:"bit_order_type"`
	} `json:"bitsequence"`
}

type jsonType struct {
	ID   uint32 `json:"id"`
	Type struct {
		Path   []string    `json:"path"`
		Params []jsonParam `json:"params"`
		Def    jsonDef     `json:"def"`
	} `json:"type"`
}

func convertFields(in []jsonField) []Field {
	out := make([]Field, 0, len(in))
	for _, f := range in {
		field := Field{Type: f.Type}
		if f.Name != nil {
			field.Name = *f.Name
		}
		if f.TypeName != nil {
			field.TypeName = *f.TypeName
		}
		out = append(out, field)
	}
	return out
}

func (d jsonDef) toTypeDef() (TypeDef, error) {
	switch {
	case d.Primitive != nil:
		p, err := ParsePrimitive(*d.Primitive)
		if err != nil {
			return TypeDef{}, err
		}
		return TypeDef{Kind: DefPrimitive, Primitive: p}, nil
	case d.Composite != nil:
		return TypeDef{Kind: DefComposite, Fields: convertFields(d.Composite.Fields)}, nil
	case d.Variant != nil:
		variants := make([]Variant, 0, len(d.Variant.Variants))
		for _, v := range d.Variant.Variants {
			variants = append(variants, Variant{Name: v.Name, Index: v.Index, Fields: convertFields(v.Fields)})
		}
		return TypeDef{Kind: DefVariant, Variants: variants}, nil
	case d.Sequence != nil:
		return TypeDef{Kind: DefSequence, Elem: d.Sequence.Type}, nil
	case d.Array != nil:
		return TypeDef{Kind: DefArray, Elem: d.Array.Type, Len: d.Array.Len}, nil
	case d.Tuple != nil:
		return TypeDef{Kind: DefTuple, Tuple: append([]uint32{}, *d.Tuple...)}, nil
	case d.Compact != nil:
		return TypeDef{Kind: DefCompact, Elem: d.Compact.Type}, nil
	case d.BitSequence != nil:
		return TypeDef{Kind: DefBitSequence, BitStore: d.BitSequence.BitStoreType, BitOrder: d.BitSequence.BitOrderType}, nil
	default:
		return TypeDef{}, errors.Wrap(ErrInvalidRegistry, "type definition has no known kind")
	}
}

// FromJSON builds a registry from the "types" array of ink! contract metadata.
func FromJSON(raw []byte) (*Registry, error) {
	var entries []jsonType
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(ErrInvalidRegistry, err.Error())
	}
	types := make([]*Type, 0, len(entries))
	for _, e := range entries {
		def, err := e.Type.Def.toTypeDef()
		if err != nil {
			return nil, errors.Wrapf(err, "type %d", e.ID)
		}
		params := make([]TypeParam, 0, len(e.Type.Params))
		for _, p := range e.Type.Params {
			params = append(params, TypeParam{Name: p.Name, Type: p.Type})
		}
		types = append(types, &Type{
			ID:     e.ID,
			Path:   e.Type.Path,
			Params: params,
			Def:    def,
		})
	}
	return NewRegistry(types)
}
