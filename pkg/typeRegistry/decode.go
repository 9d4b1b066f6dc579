package typeRegistry

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/scale"
)

const maxDepth = 64

// Decode reads one value of type id from d.
func (r *Registry) Decode(id uint32, d *scale.Decoder) (Value, error) {
	return r.decode(id, d, 0)
}

// DecodeBytes decodes data as a single value of type id and fails if any
// bytes are left over.
func (r *Registry) DecodeBytes(id uint32, data []byte) (Value, error) {
	d := scale.NewDecoder(data)
	v, err := r.decode(id, d, 0)
	if err != nil {
		return Value{}, err
	}
	if err := d.Finish(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (r *Registry) decode(id uint32, d *scale.Decoder, depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, errors.Wrapf(ErrTypeMismatch, "type %d nests deeper than %d", id, maxDepth)
	}
	t, err := r.Lookup(id)
	if err != nil {
		return Value{}, err
	}

	switch t.Def.Kind {
	case DefComposite:
		return r.decodeFields(t.Name(), t.Def.Fields, d, depth)
	case DefVariant:
		idx, err := d.U8()
		if err != nil {
			return Value{}, err
		}
		variant, ok := t.VariantByIndex(idx)
		if !ok {
			return Value{}, errors.Wrapf(ErrTypeMismatch, "variant index %d not in %s", idx, t.PathString())
		}
		v, err := r.decodeFields(variant.Name, variant.Fields, d, depth)
		if err != nil {
			return Value{}, errors.Wrapf(err, "%s::%s", t.Name(), variant.Name)
		}
		v.IsVariant = true
		v.VariantIndex = idx
		return v, nil
	case DefSequence:
		n, err := d.CompactLen()
		if err != nil {
			return Value{}, err
		}
		return r.decodeItems(t.Def.Elem, n, d, depth)
	case DefArray:
		return r.decodeItems(t.Def.Elem, int(t.Def.Len), d, depth)
	case DefTuple:
		items := make([]Value, 0, len(t.Def.Tuple))
		for _, elem := range t.Def.Tuple {
			item, err := r.decode(elem, d, depth+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{Kind: KindTuple, Items: items}, nil
	case DefPrimitive:
		return decodePrimitive(t.Def.Primitive, d)
	case DefCompact:
		inner, err := r.resolveWrapper(t.Def.Elem)
		if err != nil {
			return Value{}, err
		}
		if inner.Def.Kind == DefTuple && len(inner.Def.Tuple) == 0 {
			return Value{Kind: KindTuple}, nil
		}
		if inner.Def.Kind != DefPrimitive || !inner.Def.Primitive.IsUnsigned() {
			return Value{}, errors.Wrapf(ErrTypeMismatch, "compact of %s", inner.Def.Kind)
		}
		n, err := d.CompactBig()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindUInt, Int: n}, nil
	case DefBitSequence:
		store, err := r.Lookup(t.Def.BitStore)
		if err != nil {
			return Value{}, err
		}
		width := store.Def.Primitive.ByteSize()
		if store.Def.Kind != DefPrimitive || width == 0 {
			return Value{}, errors.Wrap(ErrTypeMismatch, "bit sequence store must be an integer")
		}
		bits, err := d.CompactLen()
		if err != nil {
			return Value{}, err
		}
		storeBits := width * 8
		words := (bits + storeBits - 1) / storeBits
		raw, err := d.Read(words * width)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBitSeq, Bytes: append([]byte{}, raw...)}, nil
	default:
		return Value{}, errors.Wrapf(ErrInvalidRegistry, "type %d has kind %s", id, t.Def.Kind)
	}
}

func (r *Registry) decodeFields(ident string, fields []Field, d *scale.Decoder, depth int) (Value, error) {
	if len(fields) == 0 {
		return Value{Kind: KindTuple, Ident: ident}, nil
	}
	if fields[0].Name != "" {
		out := make([]NamedValue, 0, len(fields))
		for _, f := range fields {
			v, err := r.decode(f.Type, d, depth+1)
			if err != nil {
				return Value{}, errors.Wrapf(err, "field %s", f.Name)
			}
			out = append(out, NamedValue{Name: f.Name, Value: v})
		}
		return Value{Kind: KindMap, Ident: ident, Fields: out}, nil
	}
	items := make([]Value, 0, len(fields))
	for i, f := range fields {
		v, err := r.decode(f.Type, d, depth+1)
		if err != nil {
			return Value{}, errors.Wrapf(err, "field %d", i)
		}
		items = append(items, v)
	}
	return Value{Kind: KindTuple, Ident: ident, Items: items}, nil
}

func (r *Registry) decodeItems(elem uint32, n int, d *scale.Decoder, depth int) (Value, error) {
	if r.IsByteType(elem) {
		raw, err := d.Read(n)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindBytes, Bytes: append([]byte{}, raw...)}, nil
	}
	capacity := n
	if capacity > d.Remaining() {
		capacity = d.Remaining()
	}
	items := make([]Value, 0, capacity)
	for i := 0; i < n; i++ {
		item, err := r.decode(elem, d, depth+1)
		if err != nil {
			return Value{}, errors.Wrapf(err, "item %d", i)
		}
		items = append(items, item)
	}
	return Value{Kind: KindSeq, Items: items}, nil
}

func decodePrimitive(p Primitive, d *scale.Decoder) (Value, error) {
	switch {
	case p == PrimBool:
		b, err := d.Bool()
		if err != nil {
			return Value{}, err
		}
		return NewBool(b), nil
	case p == PrimStr:
		s, err := d.String()
		if err != nil {
			return Value{}, err
		}
		return NewString(s), nil
	case p == PrimChar:
		c, err := d.UintN(4)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindChar, Int: c}, nil
	case p.IsUnsigned():
		n, err := d.UintN(p.ByteSize())
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindUInt, Int: n}, nil
	case p.IsSigned():
		n, err := d.IntN(p.ByteSize())
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: n}, nil
	default:
		return Value{}, errors.Wrapf(ErrInvalidRegistry, "primitive %s", p)
	}
}
