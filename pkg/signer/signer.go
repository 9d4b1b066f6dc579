// Package signer provides the sr25519 keys that authorize extrinsics.
package signer

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/tyler-smith/go-bip39"
	subkey "github.com/vedhavyas/go-subkey/v2"
	"github.com/vedhavyas/go-subkey/v2/sr25519"
)

// SignerProvider signs extrinsic payloads on behalf of one account.
type SignerProvider interface {
	Sign(payload []byte) ([]byte, error)
	GetAddress() string
	AccountID() ss58.AccountID
}

type SignerType string

const (
	SignerType_SecretUri SignerType = "SecretUri"
	SignerType_Phrase    SignerType = "Phrase"
)

var ErrInvalidSecret = errors.New("invalid signer secret")

// Keypair is an sr25519 key pair. It is read-only after construction.
type Keypair struct {
	kp      subkey.KeyPair
	account ss58.AccountID
}

func newKeypair(secret string) (*Keypair, error) {
	kp, err := subkey.DeriveKeyPair(sr25519.Scheme{}, secret)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidSecret, err.Error())
	}
	account, err := ss58.NewAccountID(kp.AccountID())
	if err != nil {
		return nil, err
	}
	return &Keypair{kp: kp, account: account}, nil
}

// FromSecretUri derives a key from a secret URI such as "//Alice" or
// "<phrase>//hard/soft".
func FromSecretUri(uri string) (*Keypair, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.Wrap(ErrInvalidSecret, "empty secret uri")
	}
	return newKeypair(uri)
}

// FromPhrase derives the root key of a BIP-39 mnemonic with no password.
func FromPhrase(phrase string) (*Keypair, error) {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if !bip39.IsMnemonicValid(phrase) {
		return nil, errors.Wrap(ErrInvalidSecret, "invalid mnemonic phrase")
	}
	return newKeypair(phrase)
}

// FromConfig builds a signer from the configured type and value.
func FromConfig(typ SignerType, val string) (*Keypair, error) {
	switch typ {
	case SignerType_SecretUri:
		return FromSecretUri(val)
	case SignerType_Phrase:
		return FromPhrase(val)
	default:
		return nil, errors.Errorf("unknown signer type '%s'", typ)
	}
}

// NewMnemonic generates a fresh 12 word phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate entropy")
	}
	return bip39.NewMnemonic(entropy)
}

func (k *Keypair) Sign(payload []byte) ([]byte, error) {
	sig, err := k.kp.Sign(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign payload")
	}
	if len(sig) != 64 {
		return nil, errors.Errorf("invalid signature length: expected 64 bytes, got %d", len(sig))
	}
	return sig, nil
}

func (k *Keypair) Verify(payload []byte, sig []byte) bool {
	return k.kp.Verify(payload, sig)
}

func (k *Keypair) GetAddress() string {
	return k.account.String()
}

func (k *Keypair) AccountID() ss58.AccountID {
	return k.account
}
