// Package runtimeMetadata decodes substrate runtime metadata (V14) and
// answers the lookups needed to build calls, read storage and decode events
// without compiled-in runtime types.
package runtimeMetadata

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/scale"
	"github.com/staex-io/did-provisioner/pkg/typeRegistry"
)

const (
	magicNumber      uint32 = 0x6174656d // "meta"
	SupportedVersion uint8  = 14
)

var (
	ErrUnsupportedMetadata = errors.New("unsupported runtime metadata")
	ErrPalletNotFound      = errors.New("pallet not found")
	ErrItemNotFound        = errors.New("metadata item not found")
)

type StorageModifier uint8

const (
	ModifierOptional StorageModifier = iota
	ModifierDefault
)

type StorageEntry struct {
	Pallet   string
	Name     string
	Modifier StorageModifier
	// Plain entries have no hashers and KeyType is nil.
	Hashers []Hasher
	KeyType *uint32
	Value   uint32
	Default []byte
}

type Constant struct {
	Name  string
	Type  uint32
	Value []byte
}

type Pallet struct {
	Name          string
	Index         uint8
	StoragePrefix string
	Storage       []StorageEntry
	CallType      *uint32
	EventType     *uint32
	ErrorType     *uint32
	Constants     []Constant
}

type SignedExtension struct {
	Identifier       string
	Type             uint32
	AdditionalSigned uint32
}

type Extrinsic struct {
	Type             uint32
	Version          uint8
	SignedExtensions []SignedExtension
}

// Metadata is a decoded V14 runtime metadata document.
type Metadata struct {
	Registry    *typeRegistry.Registry
	Pallets     []Pallet
	Extrinsic   Extrinsic
	RuntimeType uint32
}

// Decode parses the SCALE bytes returned by state_getMetadata.
func Decode(raw []byte) (*Metadata, error) {
	d := scale.NewDecoder(raw)
	magic, err := d.U32()
	if err != nil {
		return nil, errors.Wrap(err, "metadata magic")
	}
	if magic != magicNumber {
		return nil, errors.Wrapf(ErrUnsupportedMetadata, "bad magic 0x%08x", magic)
	}
	version, err := d.U8()
	if err != nil {
		return nil, err
	}
	if version != SupportedVersion {
		return nil, errors.Wrapf(ErrUnsupportedMetadata, "version %d", version)
	}

	m := &Metadata{}
	if m.Registry, err = typeRegistry.DecodePortable(d); err != nil {
		return nil, errors.Wrap(err, "type registry")
	}

	palletCount, err := d.CompactLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < palletCount; i++ {
		p, err := decodePallet(d)
		if err != nil {
			return nil, errors.Wrapf(err, "pallet %d", i)
		}
		m.Pallets = append(m.Pallets, *p)
	}

	if m.Extrinsic, err = decodeExtrinsic(d); err != nil {
		return nil, errors.Wrap(err, "extrinsic metadata")
	}
	runtimeType, err := d.Compact()
	if err != nil {
		return nil, err
	}
	m.RuntimeType = uint32(runtimeType)
	return m, nil
}

func decodeOptionalType(d *scale.Decoder) (*uint32, error) {
	some, err := d.OptionTag()
	if err != nil || !some {
		return nil, err
	}
	ty, err := d.Compact()
	if err != nil {
		return nil, err
	}
	v := uint32(ty)
	return &v, nil
}

func decodePallet(d *scale.Decoder) (*Pallet, error) {
	name, err := d.String()
	if err != nil {
		return nil, err
	}
	p := &Pallet{Name: name}

	hasStorage, err := d.OptionTag()
	if err != nil {
		return nil, err
	}
	if hasStorage {
		if p.StoragePrefix, err = d.String(); err != nil {
			return nil, err
		}
		n, err := d.CompactLen()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			entry, err := decodeStorageEntry(d)
			if err != nil {
				return nil, errors.Wrapf(err, "%s storage entry %d", name, i)
			}
			entry.Pallet = p.StoragePrefix
			p.Storage = append(p.Storage, *entry)
		}
	}
	if p.CallType, err = decodeOptionalType(d); err != nil {
		return nil, err
	}
	if p.EventType, err = decodeOptionalType(d); err != nil {
		return nil, err
	}

	n, err := d.CompactLen()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		var c Constant
		if c.Name, err = d.String(); err != nil {
			return nil, err
		}
		ty, err := d.Compact()
		if err != nil {
			return nil, err
		}
		c.Type = uint32(ty)
		if c.Value, err = d.ByteSlice(); err != nil {
			return nil, err
		}
		if _, err = d.Strings(); err != nil {
			return nil, err
		}
		p.Constants = append(p.Constants, c)
	}

	if p.ErrorType, err = decodeOptionalType(d); err != nil {
		return nil, err
	}
	if p.Index, err = d.U8(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeStorageEntry(d *scale.Decoder) (*StorageEntry, error) {
	var (
		e   StorageEntry
		err error
	)
	if e.Name, err = d.String(); err != nil {
		return nil, err
	}
	modifier, err := d.U8()
	if err != nil {
		return nil, err
	}
	if modifier > uint8(ModifierDefault) {
		return nil, errors.Wrapf(ErrUnsupportedMetadata, "storage modifier %d", modifier)
	}
	e.Modifier = StorageModifier(modifier)

	kind, err := d.U8()
	if err != nil {
		return nil, err
	}
	switch kind {
	case 0:
		ty, err := d.Compact()
		if err != nil {
			return nil, err
		}
		e.Value = uint32(ty)
	case 1:
		n, err := d.CompactLen()
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			h, err := d.U8()
			if err != nil {
				return nil, err
			}
			if h > uint8(Identity) {
				return nil, errors.Wrapf(ErrUnsupportedMetadata, "storage hasher %d", h)
			}
			e.Hashers = append(e.Hashers, Hasher(h))
		}
		key, err := d.Compact()
		if err != nil {
			return nil, err
		}
		k := uint32(key)
		e.KeyType = &k
		value, err := d.Compact()
		if err != nil {
			return nil, err
		}
		e.Value = uint32(value)
	default:
		return nil, errors.Wrapf(ErrUnsupportedMetadata, "storage entry type %d", kind)
	}

	if e.Default, err = d.ByteSlice(); err != nil {
		return nil, err
	}
	if _, err = d.Strings(); err != nil {
		return nil, err
	}
	return &e, nil
}

func decodeExtrinsic(d *scale.Decoder) (Extrinsic, error) {
	var x Extrinsic
	ty, err := d.Compact()
	if err != nil {
		return x, err
	}
	x.Type = uint32(ty)
	if x.Version, err = d.U8(); err != nil {
		return x, err
	}
	n, err := d.CompactLen()
	if err != nil {
		return x, err
	}
	for i := 0; i < n; i++ {
		var ext SignedExtension
		if ext.Identifier, err = d.String(); err != nil {
			return x, err
		}
		t, err := d.Compact()
		if err != nil {
			return x, err
		}
		ext.Type = uint32(t)
		a, err := d.Compact()
		if err != nil {
			return x, err
		}
		ext.AdditionalSigned = uint32(a)
		x.SignedExtensions = append(x.SignedExtensions, ext)
	}
	return x, nil
}

func (m *Metadata) Pallet(name string) (*Pallet, error) {
	for i := range m.Pallets {
		if m.Pallets[i].Name == name {
			return &m.Pallets[i], nil
		}
	}
	return nil, errors.Wrapf(ErrPalletNotFound, "'%s'", name)
}

func (m *Metadata) PalletByIndex(index uint8) (*Pallet, error) {
	for i := range m.Pallets {
		if m.Pallets[i].Index == index {
			return &m.Pallets[i], nil
		}
	}
	return nil, errors.Wrapf(ErrPalletNotFound, "index %d", index)
}

// CallIndex returns the two byte prefix of a dispatchable call.
func (m *Metadata) CallIndex(pallet, call string) ([2]byte, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return [2]byte{}, err
	}
	if p.CallType == nil {
		return [2]byte{}, errors.Wrapf(ErrItemNotFound, "%s has no calls", pallet)
	}
	t, err := m.Registry.Lookup(*p.CallType)
	if err != nil {
		return [2]byte{}, err
	}
	v, ok := t.VariantByName(call)
	if !ok {
		return [2]byte{}, errors.Wrapf(ErrItemNotFound, "call %s.%s", pallet, call)
	}
	return [2]byte{p.Index, v.Index}, nil
}

// CallFields returns the argument layout of a dispatchable call.
func (m *Metadata) CallFields(pallet, call string) ([]typeRegistry.Field, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	if p.CallType == nil {
		return nil, errors.Wrapf(ErrItemNotFound, "%s has no calls", pallet)
	}
	t, err := m.Registry.Lookup(*p.CallType)
	if err != nil {
		return nil, err
	}
	v, ok := t.VariantByName(call)
	if !ok {
		return nil, errors.Wrapf(ErrItemNotFound, "call %s.%s", pallet, call)
	}
	return v.Fields, nil
}

func (m *Metadata) StorageEntry(pallet, name string) (*StorageEntry, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	for i := range p.Storage {
		if p.Storage[i].Name == name {
			return &p.Storage[i], nil
		}
	}
	return nil, errors.Wrapf(ErrItemNotFound, "storage %s.%s", pallet, name)
}

func (m *Metadata) Constant(pallet, name string) (*Constant, error) {
	p, err := m.Pallet(pallet)
	if err != nil {
		return nil, err
	}
	for i := range p.Constants {
		if p.Constants[i].Name == name {
			return &p.Constants[i], nil
		}
	}
	return nil, errors.Wrapf(ErrItemNotFound, "constant %s.%s", pallet, name)
}

// ModuleErrorName resolves a DispatchError::Module to "Pallet.Error".
func (m *Metadata) ModuleErrorName(palletIndex uint8, errIndex uint8) (string, error) {
	p, err := m.PalletByIndex(palletIndex)
	if err != nil {
		return "", err
	}
	if p.ErrorType == nil {
		return "", errors.Wrapf(ErrItemNotFound, "%s has no errors", p.Name)
	}
	t, err := m.Registry.Lookup(*p.ErrorType)
	if err != nil {
		return "", err
	}
	v, ok := t.VariantByIndex(errIndex)
	if !ok {
		return "", errors.Wrapf(ErrItemNotFound, "%s error %d", p.Name, errIndex)
	}
	return p.Name + "." + v.Name, nil
}

// EventPallet resolves the outer RuntimeEvent variant index to its pallet.
func (m *Metadata) EventPallet(index uint8) (*Pallet, error) {
	p, err := m.PalletByIndex(index)
	if err != nil {
		return nil, err
	}
	if p.EventType == nil {
		return nil, errors.Wrapf(ErrItemNotFound, "%s has no events", p.Name)
	}
	return p, nil
}
