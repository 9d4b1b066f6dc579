// Package ss58 implements the account identifier used by the ledger and its
// SS58 textual encoding.
package ss58

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
	"github.com/vedhavyas/go-subkey/v2"
)

// AccountIDLen is the byte length of an sr25519 public key derived account.
const AccountIDLen = 32

// SubstrateNetwork is the generic Substrate address format.
const SubstrateNetwork uint16 = 42

var ErrInvalidAddress = errors.New("invalid ss58 address")

// AccountID is an opaque 32 byte account identifier. Equality is byte-wise.
type AccountID [AccountIDLen]byte

// NewAccountID copies b into an AccountID.
func NewAccountID(b []byte) (AccountID, error) {
	var a AccountID
	if len(b) != AccountIDLen {
		return a, errors.Wrapf(ErrInvalidAddress, "expected %d bytes, got %d", AccountIDLen, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// ParseAccountID accepts either an SS58 address or a 0x prefixed hex public key.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return AccountID{}, errors.Wrapf(ErrInvalidAddress, "'%s': %v", s, err)
		}
		return NewAccountID(b)
	}
	_, pub, err := Decode(s)
	if err != nil {
		return AccountID{}, err
	}
	return NewAccountID(pub)
}

func MustParseAccountID(s string) AccountID {
	a, err := ParseAccountID(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a AccountID) Bytes() []byte {
	out := make([]byte, AccountIDLen)
	copy(out, a[:])
	return out
}

func (a AccountID) Equal(b AccountID) bool {
	return bytes.Equal(a[:], b[:])
}

func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

func (a AccountID) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String returns the address in the generic Substrate format.
func (a AccountID) String() string {
	return Encode(a[:], SubstrateNetwork)
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Encode renders a public key for the given network.
func Encode(pub []byte, network uint16) string {
	return subkey.SS58Encode(pub, network)
}

// Decode parses an SS58 account address and returns the network and public
// key. Only one and two byte network prefixes around a 32 byte key are
// accepted.
func Decode(address string) (uint16, []byte, error) {
	raw := base58.Decode(address)
	if len(raw) == 0 || raw[0] >= 128 {
		return 0, nil, errors.Wrapf(ErrInvalidAddress, "'%s' is not an account address", address)
	}
	prefixLen := 1
	if raw[0] >= 64 {
		prefixLen = 2
	}
	if len(raw) != prefixLen+AccountIDLen+2 {
		return 0, nil, errors.Wrapf(ErrInvalidAddress, "'%s' has length %d", address, len(raw))
	}
	network, pub, err := subkey.SS58Decode(address)
	if err != nil {
		return 0, nil, errors.Wrapf(ErrInvalidAddress, "'%s': %v", address, err)
	}
	return network, pub, nil
}
