package typeRegistry

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindBool Kind = iota
	KindChar
	KindString
	KindUInt
	KindInt
	KindBytes
	KindSeq
	KindTuple
	KindMap
	KindBitSeq
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindString:
		return "string"
	case KindUInt:
		return "uint"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	case KindSeq:
		return "seq"
	case KindTuple:
		return "tuple"
	case KindMap:
		return "map"
	case KindBitSeq:
		return "bitseq"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// NamedValue is one field of a Map value. Field order follows the type.
type NamedValue struct {
	Name  string
	Value Value
}

// Value is a dynamically typed decoded SCALE value.
//
// Composites and enum variants with unnamed fields decode to KindTuple with
// Ident set to the type or variant name, so Result::Ok(true) becomes
// Tuple{Ident: "Ok", Items: [Bool(true)]}. Named fields decode to KindMap.
type Value struct {
	Kind   Kind
	Ident  string
	Bool   bool
	Int    *big.Int
	Str    string
	Bytes  []byte
	Items  []Value
	Fields []NamedValue

	IsVariant    bool
	VariantIndex uint8
}

func NewBool(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

func NewString(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func NewUInt(v *big.Int) Value {
	return Value{Kind: KindUInt, Int: new(big.Int).Set(v)}
}

func NewUInt64(v uint64) Value {
	return Value{Kind: KindUInt, Int: new(big.Int).SetUint64(v)}
}

func NewInt(v *big.Int) Value {
	return Value{Kind: KindInt, Int: new(big.Int).Set(v)}
}

func NewBytes(b []byte) Value {
	return Value{Kind: KindBytes, Bytes: append([]byte{}, b...)}
}

func NewSeq(items ...Value) Value {
	return Value{Kind: KindSeq, Items: items}
}

func NewTuple(ident string, items ...Value) Value {
	return Value{Kind: KindTuple, Ident: ident, Items: items}
}

func NewMap(ident string, fields ...NamedValue) Value {
	return Value{Kind: KindMap, Ident: ident, Fields: fields}
}

// NewVariant builds an enum value with positional fields, selected by name
// when encoding.
func NewVariant(name string, items ...Value) Value {
	return Value{Kind: KindTuple, Ident: name, Items: items, IsVariant: true}
}

// Field returns a named field of a Map value.
func (v Value) Field(name string) (Value, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Len returns the number of children of a Tuple, Seq or Map.
func (v Value) Len() int {
	switch v.Kind {
	case KindMap:
		return len(v.Fields)
	case KindTuple, KindSeq:
		return len(v.Items)
	case KindBytes:
		return len(v.Bytes)
	default:
		return 0
	}
}

// Unwrap strips single element tuples, maps and variants, so a newtype
// wrapper such as AccountId32([u8; 32]) yields its inner bytes.
func (v Value) Unwrap() Value {
	for {
		switch {
		case v.Kind == KindTuple && len(v.Items) == 1:
			v = v.Items[0]
		case v.Kind == KindMap && len(v.Fields) == 1:
			v = v.Fields[0].Value
		default:
			return v
		}
	}
}

func (v Value) AsBool() (bool, error) {
	u := v.Unwrap()
	if u.Kind != KindBool {
		return false, errors.Wrapf(ErrTypeMismatch, "expected bool, got %s", u.Kind)
	}
	return u.Bool, nil
}

func (v Value) AsBigInt() (*big.Int, error) {
	u := v.Unwrap()
	if u.Kind != KindUInt && u.Kind != KindInt {
		return nil, errors.Wrapf(ErrTypeMismatch, "expected integer, got %s", u.Kind)
	}
	return new(big.Int).Set(u.Int), nil
}

func (v Value) AsUint64() (uint64, error) {
	i, err := v.AsBigInt()
	if err != nil {
		return 0, err
	}
	if i.Sign() < 0 || !i.IsUint64() {
		return 0, errors.Wrapf(ErrTypeMismatch, "%s does not fit in u64", i.String())
	}
	return i.Uint64(), nil
}

func (v Value) AsString() (string, error) {
	u := v.Unwrap()
	if u.Kind != KindString {
		return "", errors.Wrapf(ErrTypeMismatch, "expected string, got %s", u.Kind)
	}
	return u.Str, nil
}

func (v Value) AsBytes() ([]byte, error) {
	u := v.Unwrap()
	switch u.Kind {
	case KindBytes, KindBitSeq:
		return append([]byte{}, u.Bytes...), nil
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "expected bytes, got %s", u.Kind)
	}
}

// String renders the value in a Rust-like debug form, e.g. Ok(true) or
// Flipper { value: false }.
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.Kind {
	case KindBool:
		fmt.Fprintf(sb, "%t", v.Bool)
	case KindChar:
		fmt.Fprintf(sb, "%q", rune(v.Int.Int64()))
	case KindString:
		fmt.Fprintf(sb, "%q", v.Str)
	case KindUInt, KindInt:
		sb.WriteString(v.Int.String())
	case KindBytes, KindBitSeq:
		sb.WriteString("0x")
		sb.WriteString(hex.EncodeToString(v.Bytes))
	case KindSeq:
		sb.WriteString("[")
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteString("]")
	case KindTuple:
		sb.WriteString(v.Ident)
		if len(v.Items) == 0 && v.Ident != "" {
			return
		}
		sb.WriteString("(")
		for i, item := range v.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.write(sb)
		}
		sb.WriteString(")")
	case KindMap:
		if v.Ident != "" {
			sb.WriteString(v.Ident)
			sb.WriteString(" ")
		}
		sb.WriteString("{ ")
		for i, f := range v.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			f.Value.write(sb)
		}
		sb.WriteString(" }")
	}
}
