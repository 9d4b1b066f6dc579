package runtimeMetadata

import "github.com/staex-io/did-provisioner/pkg/scale"

// Encode writes m as prefixed V14 metadata, the inverse of Decode.
func (m *Metadata) Encode() []byte {
	e := scale.NewEncoder()
	e.U32(magicNumber).U8(SupportedVersion)
	m.Registry.EncodePortable(e)

	e.Compact(uint64(len(m.Pallets)))
	for _, p := range m.Pallets {
		e.String(p.Name)
		if p.StoragePrefix == "" && len(p.Storage) == 0 {
			e.OptionNone()
		} else {
			e.OptionSome().String(p.StoragePrefix)
			e.Compact(uint64(len(p.Storage)))
			for _, s := range p.Storage {
				encodeStorageEntry(s, e)
			}
		}
		encodeOptionalType(p.CallType, e)
		encodeOptionalType(p.EventType, e)
		e.Compact(uint64(len(p.Constants)))
		for _, c := range p.Constants {
			e.String(c.Name).Compact(uint64(c.Type)).ByteSlice(c.Value).Compact(0)
		}
		encodeOptionalType(p.ErrorType, e)
		e.U8(p.Index)
	}

	e.Compact(uint64(m.Extrinsic.Type)).U8(m.Extrinsic.Version)
	e.Compact(uint64(len(m.Extrinsic.SignedExtensions)))
	for _, ext := range m.Extrinsic.SignedExtensions {
		e.String(ext.Identifier).Compact(uint64(ext.Type)).Compact(uint64(ext.AdditionalSigned))
	}
	e.Compact(uint64(m.RuntimeType))
	return e.Bytes()
}

func encodeOptionalType(ty *uint32, e *scale.Encoder) {
	if ty == nil {
		e.OptionNone()
		return
	}
	e.OptionSome().Compact(uint64(*ty))
}

func encodeStorageEntry(s StorageEntry, e *scale.Encoder) {
	e.String(s.Name).U8(uint8(s.Modifier))
	if s.KeyType == nil {
		e.U8(0).Compact(uint64(s.Value))
	} else {
		e.U8(1).Compact(uint64(len(s.Hashers)))
		for _, h := range s.Hashers {
			e.U8(uint8(h))
		}
		e.Compact(uint64(*s.KeyType)).Compact(uint64(s.Value))
	}
	e.ByteSlice(s.Default).Compact(0)
}
