package contractCodec

import (
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
)

const maxArgDepth = 16

func parseInteger(raw string, signed bool) (*big.Int, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, errors.Wrapf(ErrDecodeMismatch, "'%s' is not an integer", raw)
	}
	if !signed && n.Sign() < 0 {
		return nil, errors.Wrapf(ErrDecodeMismatch, "'%s' is negative", raw)
	}
	return n, nil
}

func parsePrimitive(p tr.Primitive, raw string) (tr.Value, error) {
	switch {
	case p == tr.PrimBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "'%s' is not a bool", raw)
		}
		return tr.NewBool(b), nil
	case p == tr.PrimStr:
		if unquoted, err := strconv.Unquote(raw); err == nil {
			return tr.NewString(unquoted), nil
		}
		return tr.NewString(raw), nil
	case p == tr.PrimChar:
		s := strings.Trim(raw, "'")
		if utf8.RuneCountInString(s) != 1 {
			return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "'%s' is not a single character", raw)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return tr.Value{Kind: tr.KindChar, Str: s, Int: big.NewInt(int64(r))}, nil
	case p.IsUnsigned():
		n, err := parseInteger(raw, false)
		if err != nil {
			return tr.Value{}, err
		}
		return tr.NewUInt(n), nil
	case p.IsSigned():
		n, err := parseInteger(raw, true)
		if err != nil {
			return tr.Value{}, err
		}
		return tr.NewInt(n), nil
	default:
		return tr.Value{}, errors.Wrapf(ErrUnsupportedType, "primitive %s", p)
	}
}

func isAccountType(t *tr.Type) bool {
	name := t.Name()
	return name == "AccountId" || name == "AccountId32"
}

// optionPayload extracts x from "Some(x)".
func optionPayload(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "Some(") && strings.HasSuffix(s, ")") {
		return s[len("Some(") : len(s)-1], true
	}
	return "", false
}

// parseArg converts the textual form of a message argument into a value of
// type id. Accepted forms: bool literals, decimal or 0x integers, strings
// (optionally quoted), SS58 or hex account ids, hex byte strings, None or
// Some(x) options and field-less enum variants by name.
func parseArg(r *tr.Registry, id uint32, raw string) (tr.Value, error) {
	return parseArgDepth(r, id, raw, 0)
}

func parseArgDepth(r *tr.Registry, id uint32, raw string, depth int) (tr.Value, error) {
	if depth > maxArgDepth {
		return tr.Value{}, errors.Wrap(ErrUnsupportedType, "argument type nests too deep")
	}
	t, err := r.Lookup(id)
	if err != nil {
		return tr.Value{}, err
	}

	switch t.Def.Kind {
	case tr.DefPrimitive:
		return parsePrimitive(t.Def.Primitive, raw)
	case tr.DefCompact:
		n, err := parseInteger(raw, false)
		if err != nil {
			return tr.Value{}, err
		}
		return tr.NewUInt(n), nil
	case tr.DefSequence, tr.DefArray:
		if !r.IsByteType(t.Def.Elem) {
			return tr.Value{}, errors.Wrapf(ErrUnsupportedType, "%s of type %d", t.Def.Kind, t.Def.Elem)
		}
		b, err := hexutil.Decode(strings.TrimSpace(raw))
		if err != nil {
			return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "'%s' is not 0x prefixed hex", raw)
		}
		if t.Def.Kind == tr.DefArray && len(b) != int(t.Def.Len) {
			return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "need %d bytes, got %d", t.Def.Len, len(b))
		}
		return tr.NewBytes(b), nil
	case tr.DefComposite:
		if isAccountType(t) {
			account, err := ss58.ParseAccountID(raw)
			if err != nil {
				return tr.Value{}, errors.Wrap(ErrDecodeMismatch, err.Error())
			}
			return tr.NewBytes(account.Bytes()), nil
		}
		if len(t.Def.Fields) == 1 {
			return parseArgDepth(r, t.Def.Fields[0].Type, raw, depth+1)
		}
		return tr.Value{}, errors.Wrapf(ErrUnsupportedType, "composite %s", t.PathString())
	case tr.DefVariant:
		if t.Name() == "Option" {
			if strings.TrimSpace(raw) == "None" {
				return tr.NewVariant("None"), nil
			}
			some, ok := optionPayload(raw)
			if !ok {
				return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "'%s' is neither None nor Some(..)", raw)
			}
			variant, _ := t.VariantByName("Some")
			if variant == nil || len(variant.Fields) != 1 {
				return tr.Value{}, errors.Wrapf(ErrUnsupportedType, "option %s", t.PathString())
			}
			inner, err := parseArgDepth(r, variant.Fields[0].Type, some, depth+1)
			if err != nil {
				return tr.Value{}, err
			}
			return tr.NewVariant("Some", inner), nil
		}
		variant, ok := t.VariantByName(strings.TrimSpace(raw))
		if !ok {
			return tr.Value{}, errors.Wrapf(ErrDecodeMismatch, "'%s' is not a variant of %s", raw, t.PathString())
		}
		if len(variant.Fields) != 0 {
			return tr.Value{}, errors.Wrapf(ErrUnsupportedType, "variant %s carries fields", variant.Name)
		}
		return tr.NewVariant(variant.Name), nil
	default:
		return tr.Value{}, errors.Wrapf(ErrUnsupportedType, "%s", t.Def.Kind)
	}
}
