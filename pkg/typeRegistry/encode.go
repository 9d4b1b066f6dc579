package typeRegistry

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/scale"
)

// Encode writes v as type id.
func (r *Registry) Encode(id uint32, v Value, e *scale.Encoder) error {
	return r.encode(id, v, e, 0)
}

func (r *Registry) EncodeToBytes(id uint32, v Value) ([]byte, error) {
	e := scale.NewEncoder()
	if err := r.encode(id, v, e, 0); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

func (r *Registry) encode(id uint32, v Value, e *scale.Encoder, depth int) error {
	if depth > maxDepth {
		return errors.Wrapf(ErrTypeMismatch, "type %d nests deeper than %d", id, maxDepth)
	}
	t, err := r.Lookup(id)
	if err != nil {
		return err
	}

	switch t.Def.Kind {
	case DefComposite:
		values, err := fieldValues(t.Def.Fields, v)
		if err != nil {
			return errors.Wrap(err, t.PathString())
		}
		return r.encodeFields(t.Def.Fields, values, e, depth)
	case DefVariant:
		name := v.Ident
		if v.Kind == KindString {
			name = v.Str
			v = Value{Kind: KindTuple, Ident: name}
		}
		variant, ok := t.VariantByName(name)
		if !ok {
			return errors.Wrapf(ErrTypeMismatch, "no variant '%s' in %s", name, t.PathString())
		}
		values, err := fieldValues(variant.Fields, v)
		if err != nil {
			return errors.Wrapf(err, "%s::%s", t.Name(), variant.Name)
		}
		e.U8(variant.Index)
		return r.encodeFields(variant.Fields, values, e, depth)
	case DefSequence:
		if r.IsByteType(t.Def.Elem) && v.Kind == KindBytes {
			e.ByteSlice(v.Bytes)
			return nil
		}
		if v.Kind != KindSeq && v.Kind != KindTuple {
			return errors.Wrapf(ErrTypeMismatch, "sequence from %s", v.Kind)
		}
		e.Compact(uint64(len(v.Items)))
		for _, item := range v.Items {
			if err := r.encode(t.Def.Elem, item, e, depth+1); err != nil {
				return err
			}
		}
		return nil
	case DefArray:
		if r.IsByteType(t.Def.Elem) && v.Unwrap().Kind == KindBytes {
			b := v.Unwrap().Bytes
			if len(b) != int(t.Def.Len) {
				return errors.Wrapf(ErrTypeMismatch, "array needs %d bytes, got %d", t.Def.Len, len(b))
			}
			e.Raw(b)
			return nil
		}
		if (v.Kind != KindSeq && v.Kind != KindTuple) || len(v.Items) != int(t.Def.Len) {
			return errors.Wrapf(ErrTypeMismatch, "array of %d from %s with %d items", t.Def.Len, v.Kind, v.Len())
		}
		for _, item := range v.Items {
			if err := r.encode(t.Def.Elem, item, e, depth+1); err != nil {
				return err
			}
		}
		return nil
	case DefTuple:
		if len(t.Def.Tuple) == 1 && (v.Kind != KindTuple || len(v.Items) != 1) {
			return r.encode(t.Def.Tuple[0], v, e, depth+1)
		}
		if (v.Kind != KindTuple && v.Kind != KindSeq) || len(v.Items) != len(t.Def.Tuple) {
			return errors.Wrapf(ErrTypeMismatch, "tuple of %d from %s with %d items", len(t.Def.Tuple), v.Kind, v.Len())
		}
		for i, elem := range t.Def.Tuple {
			if err := r.encode(elem, v.Items[i], e, depth+1); err != nil {
				return err
			}
		}
		return nil
	case DefPrimitive:
		return encodePrimitive(t.Def.Primitive, v, e)
	case DefCompact:
		n, err := v.AsBigInt()
		if err != nil {
			return err
		}
		return e.CompactBig(n)
	default:
		return errors.Wrapf(ErrTypeMismatch, "encoding %s is not supported", t.Def.Kind)
	}
}

func (r *Registry) encodeFields(fields []Field, values []Value, e *scale.Encoder, depth int) error {
	for i, f := range fields {
		if err := r.encode(f.Type, values[i], e, depth+1); err != nil {
			if f.Name != "" {
				return errors.Wrapf(err, "field %s", f.Name)
			}
			return errors.Wrapf(err, "field %d", i)
		}
	}
	return nil
}

// fieldValues lines up the children of v with fields. A single field type
// accepts its payload directly.
func fieldValues(fields []Field, v Value) ([]Value, error) {
	if len(fields) == 0 {
		if v.Len() != 0 && v.Kind != KindString {
			return nil, errors.Wrapf(ErrTypeMismatch, "expected no fields, got %d", v.Len())
		}
		return nil, nil
	}
	switch v.Kind {
	case KindMap:
		if fields[0].Name != "" {
			out := make([]Value, 0, len(fields))
			for _, f := range fields {
				fv, ok := v.Field(f.Name)
				if !ok {
					return nil, errors.Wrapf(ErrTypeMismatch, "missing field '%s'", f.Name)
				}
				out = append(out, fv)
			}
			return out, nil
		}
		if len(v.Fields) == len(fields) {
			out := make([]Value, 0, len(fields))
			for _, f := range v.Fields {
				out = append(out, f.Value)
			}
			return out, nil
		}
	case KindTuple, KindSeq:
		if len(v.Items) == len(fields) {
			return v.Items, nil
		}
	}
	if len(fields) == 1 {
		return []Value{v}, nil
	}
	return nil, errors.Wrapf(ErrTypeMismatch, "expected %d fields, got %s with %d", len(fields), v.Kind, v.Len())
}

func encodePrimitive(p Primitive, v Value, e *scale.Encoder) error {
	v = v.Unwrap()
	switch {
	case p == PrimBool:
		if v.Kind != KindBool {
			return errors.Wrapf(ErrTypeMismatch, "bool from %s", v.Kind)
		}
		e.Bool(v.Bool)
		return nil
	case p == PrimStr:
		if v.Kind != KindString {
			return errors.Wrapf(ErrTypeMismatch, "str from %s", v.Kind)
		}
		e.String(v.Str)
		return nil
	case p == PrimChar:
		if v.Kind != KindChar {
			return errors.Wrapf(ErrTypeMismatch, "char from %s", v.Kind)
		}
		return e.UintN(v.Int, 4)
	case p.IsUnsigned():
		n, err := v.AsBigInt()
		if err != nil {
			return err
		}
		return e.UintN(n, p.ByteSize())
	case p.IsSigned():
		n, err := v.AsBigInt()
		if err != nil {
			return err
		}
		return e.IntN(n, p.ByteSize())
	default:
		return errors.Wrapf(ErrInvalidRegistry, "primitive %s", p)
	}
}
