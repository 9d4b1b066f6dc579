package runtimeMetadata

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

type Hasher uint8

const (
	Blake2_128 Hasher = iota
	Blake2_256
	Blake2_128Concat
	Twox128
	Twox256
	Twox64Concat
	Identity
)

func (h Hasher) String() string {
	return [...]string{"Blake2_128", "Blake2_256", "Blake2_128Concat", "Twox128", "Twox256", "Twox64Concat", "Identity"}[h]
}

// Hash applies the storage hasher to an encoded key part.
func (h Hasher) Hash(data []byte) []byte {
	switch h {
	case Blake2_128:
		return blake2b128(data)
	case Blake2_256:
		sum := blake2b.Sum256(data)
		return sum[:]
	case Blake2_128Concat:
		return append(blake2b128(data), data...)
	case Twox128:
		return Twox(data, 16)
	case Twox256:
		return Twox(data, 32)
	case Twox64Concat:
		return append(Twox(data, 8), data...)
	default:
		return append([]byte{}, data...)
	}
}

func blake2b128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return h.Sum(nil)
}

// Twox concatenates little-endian xxhash64 digests seeded 0, 1, ... until
// size bytes are produced.
func Twox(data []byte, size int) []byte {
	out := make([]byte, 0, size)
	for seed := uint64(0); len(out) < size; seed++ {
		d := xxhash.NewWithSeed(seed)
		_, _ = d.Write(data)
		out = binary.LittleEndian.AppendUint64(out, d.Sum64())
	}
	return out
}

// StoragePrefix is twox128(pallet) ++ twox128(entry).
func StoragePrefix(pallet, entry string) []byte {
	return append(Twox([]byte(pallet), 16), Twox([]byte(entry), 16)...)
}

// Key builds the full storage key from SCALE encoded key parts, one per
// hasher. Plain entries take no parts.
func (e *StorageEntry) Key(parts ...[]byte) ([]byte, error) {
	if len(parts) != len(e.Hashers) {
		return nil, errors.Errorf("storage %s.%s needs %d key parts, got %d", e.Pallet, e.Name, len(e.Hashers), len(parts))
	}
	key := StoragePrefix(e.Pallet, e.Name)
	for i, part := range parts {
		key = append(key, e.Hashers[i].Hash(part)...)
	}
	return key, nil
}
