package typeRegistry

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/scale"
)

// DecodePortable reads a SCALE encoded PortableRegistry, as embedded at the
// start of runtime metadata V14.
func DecodePortable(d *scale.Decoder) (*Registry, error) {
	count, err := d.CompactLen()
	if err != nil {
		return nil, errors.Wrap(err, "registry length")
	}
	types := make([]*Type, 0, count)
	for i := 0; i < count; i++ {
		t, err := decodePortableType(d)
		if err != nil {
			return nil, errors.Wrapf(err, "type entry %d", i)
		}
		types = append(types, t)
	}
	return NewRegistry(types)
}

func decodePortableType(d *scale.Decoder) (*Type, error) {
	id, err := d.Compact()
	if err != nil {
		return nil, err
	}
	t := &Type{ID: uint32(id)}
	if t.Path, err = d.Strings(); err != nil {
		return nil, errors.Wrap(err, "path")
	}
	paramCount, err := d.CompactLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < paramCount; i++ {
		name, err := d.String()
		if err != nil {
			return nil, err
		}
		param := TypeParam{Name: name}
		some, err := d.OptionTag()
		if err != nil {
			return nil, err
		}
		if some {
			ty, err := d.Compact()
			if err != nil {
				return nil, err
			}
			v := uint32(ty)
			param.Type = &v
		}
		t.Params = append(t.Params, param)
	}
	if t.Def, err = decodePortableDef(d); err != nil {
		return nil, errors.Wrapf(err, "def of type %d", t.ID)
	}
	// docs
	if _, err = d.Strings(); err != nil {
		return nil, err
	}
	return t, nil
}

func decodePortableFields(d *scale.Decoder) ([]Field, error) {
	n, err := d.CompactLen()
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, n)
	for i := 0; i < n; i++ {
		var f Field
		some, err := d.OptionTag()
		if err != nil {
			return nil, err
		}
		if some {
			if f.Name, err = d.String(); err != nil {
				return nil, err
			}
		}
		ty, err := d.Compact()
		if err != nil {
			return nil, err
		}
		f.Type = uint32(ty)
		if some, err = d.OptionTag(); err != nil {
			return nil, err
		}
		if some {
			if f.TypeName, err = d.String(); err != nil {
				return nil, err
			}
		}
		if _, err = d.Strings(); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func decodePortableDef(d *scale.Decoder) (TypeDef, error) {
	tag, err := d.U8()
	if err != nil {
		return TypeDef{}, err
	}
	switch DefKind(tag) {
	case DefComposite:
		fields, err := decodePortableFields(d)
		if err != nil {
			return TypeDef{}, err
		}
		return TypeDef{Kind: DefComposite, Fields: fields}, nil
	case DefVariant:
		n, err := d.CompactLen()
		if err != nil {
			return TypeDef{}, err
		}
		variants := make([]Variant, 0, n)
		for i := 0; i < n; i++ {
			var v Variant
			if v.Name, err = d.String(); err != nil {
				return TypeDef{}, err
			}
			if v.Fields, err = decodePortableFields(d); err != nil {
				return TypeDef{}, err
			}
			if v.Index, err = d.U8(); err != nil {
				return TypeDef{}, err
			}
			if _, err = d.Strings(); err != nil {
				return TypeDef{}, err
			}
			variants = append(variants, v)
		}
		return TypeDef{Kind: DefVariant, Variants: variants}, nil
	case DefSequence, DefCompact:
		elem, err := d.Compact()
		if err != nil {
			return TypeDef{}, err
		}
		return TypeDef{Kind: DefKind(tag), Elem: uint32(elem)}, nil
	case DefArray:
		l, err := d.U32()
		if err != nil {
			return TypeDef{}, err
		}
		elem, err := d.Compact()
		if err != nil {
			return TypeDef{}, err
		}
		return TypeDef{Kind: DefArray, Len: l, Elem: uint32(elem)}, nil
	case DefTuple:
		n, err := d.CompactLen()
		if err != nil {
			return TypeDef{}, err
		}
		ids := make([]uint32, 0, n)
		for i := 0; i < n; i++ {
			id, err := d.Compact()
			if err != nil {
				return TypeDef{}, err
			}
			ids = append(ids, uint32(id))
		}
		return TypeDef{Kind: DefTuple, Tuple: ids}, nil
	case DefPrimitive:
		p, err := d.U8()
		if err != nil {
			return TypeDef{}, err
		}
		if int(p) >= len(primitiveNames) {
			return TypeDef{}, errors.Wrapf(ErrInvalidRegistry, "primitive tag %d", p)
		}
		return TypeDef{Kind: DefPrimitive, Primitive: Primitive(p)}, nil
	case DefBitSequence:
		store, err := d.Compact()
		if err != nil {
			return TypeDef{}, err
		}
		order, err := d.Compact()
		if err != nil {
			return TypeDef{}, err
		}
		return TypeDef{Kind: DefBitSequence, BitStore: uint32(store), BitOrder: uint32(order)}, nil
	default:
		return TypeDef{}, errors.Wrapf(ErrInvalidRegistry, "type def tag %d", tag)
	}
}

// EncodePortable writes the registry in PortableRegistry form, in the order
// types were added. Docs are written empty.
func (r *Registry) EncodePortable(e *scale.Encoder) {
	e.Compact(uint64(len(r.order)))
	for _, id := range r.order {
		t := r.types[id]
		e.Compact(uint64(t.ID))
		e.Compact(uint64(len(t.Path)))
		for _, seg := range t.Path {
			e.String(seg)
		}
		e.Compact(uint64(len(t.Params)))
		for _, p := range t.Params {
			e.String(p.Name)
			if p.Type == nil {
				e.OptionNone()
			} else {
				e.OptionSome().Compact(uint64(*p.Type))
			}
		}
		encodePortableDef(t.Def, e)
		e.Compact(0)
	}
}

func encodePortableFields(fields []Field, e *scale.Encoder) {
	e.Compact(uint64(len(fields)))
	for _, f := range fields {
		if f.Name == "" {
			e.OptionNone()
		} else {
			e.OptionSome().String(f.Name)
		}
		e.Compact(uint64(f.Type))
		if f.TypeName == "" {
			e.OptionNone()
		} else {
			e.OptionSome().String(f.TypeName)
		}
		e.Compact(0)
	}
}

func encodePortableDef(def TypeDef, e *scale.Encoder) {
	e.U8(uint8(def.Kind))
	switch def.Kind {
	case DefComposite:
		encodePortableFields(def.Fields, e)
	case DefVariant:
		e.Compact(uint64(len(def.Variants)))
		for _, v := range def.Variants {
			e.String(v.Name)
			encodePortableFields(v.Fields, e)
			e.U8(v.Index)
			e.Compact(0)
		}
	case DefSequence, DefCompact:
		e.Compact(uint64(def.Elem))
	case DefArray:
		e.U32(def.Len)
		e.Compact(uint64(def.Elem))
	case DefTuple:
		e.Compact(uint64(len(def.Tuple)))
		for _, id := range def.Tuple {
			e.Compact(uint64(id))
		}
	case DefPrimitive:
		e.U8(uint8(def.Primitive))
	case DefBitSequence:
		e.Compact(uint64(def.BitStore))
		e.Compact(uint64(def.BitOrder))
	}
}
