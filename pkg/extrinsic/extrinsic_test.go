package extrinsic

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/internal/tests"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/scale"
	"github.com/staex-io/did-provisioner/pkg/signer"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
	"github.com/stretchr/testify/assert"
)

var bob = ss58.MustParseAccountID("0x8eaf04151687736326c9fea17e25fc5287613693c912909cb226aa4794f26a48")

type fixedSigner struct {
	account ss58.AccountID
	signed  [][]byte
}

func (f *fixedSigner) Sign(payload []byte) ([]byte, error) {
	f.signed = append(f.signed, payload)
	return bytes.Repeat([]byte{0xab}, 64), nil
}

func (f *fixedSigner) GetAddress() string {
	return f.account.String()
}

func (f *fixedSigner) AccountID() ss58.AccountID {
	return f.account
}

func testParams() SigningParams {
	return SigningParams{
		Nonce:              5,
		SpecVersion:        100,
		TransactionVersion: 1,
		GenesisHash:        bytes.Repeat([]byte{0x11}, 32),
	}
}

func Test_Calls(t *testing.T) {
	m := tests.DevRuntimeMetadata()

	t.Run("Should encode Balances.transfer_allow_death", func(t *testing.T) {
		call, err := TransferAllowDeath(m, bob, big.NewInt(1_000_000_000_000))
		assert.Nil(t, err)

		want := []byte{tests.BalancesIndex, 0, 0x00}
		want = append(want, bob.Bytes()...)
		want = append(want, 0x07, 0x00, 0x10, 0xa5, 0xd4, 0xe8)
		assert.Equal(t, want, call.Bytes())
	})
	t.Run("Should encode Contracts.call with the dry-run gas", func(t *testing.T) {
		call, err := ContractsCall(m, bob, big.NewInt(0), 1000, 64, []byte{0x63, 0x3a, 0xa5, 0x51})
		assert.Nil(t, err)

		want := []byte{tests.ContractsIndex, 6, 0x00}
		want = append(want, bob.Bytes()...)
		// value 0, ref_time 1000, proof_size 64, no deposit limit
		want = append(want, 0x00)
		want = append(want, 0xa1, 0x0f, 0x01, 0x01)
		want = append(want, 0x00)
		want = append(want, 0x10, 0x63, 0x3a, 0xa5, 0x51)
		assert.Equal(t, want, call.Bytes())
	})
	t.Run("Should reject wrong argument counts and unknown calls", func(t *testing.T) {
		_, err := NewCall(m, "Balances", "transfer_allow_death", tr.NewUInt64(1))
		assert.NotNil(t, err)

		_, err = NewCall(m, "Balances", "burn")
		assert.True(t, errors.Is(err, runtimeMetadata.ErrItemNotFound))
	})
}

func Test_Sign(t *testing.T) {
	m := tests.DevRuntimeMetadata()
	call, err := TransferAllowDeath(m, bob, big.NewInt(10))
	assert.Nil(t, err)

	t.Run("Should lay out a signed V4 extrinsic", func(t *testing.T) {
		s := &fixedSigner{account: ss58.MustParseAccountID("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY")}
		ext, err := Sign(m, call, s, testParams())
		assert.Nil(t, err)

		d := scale.NewDecoder(ext)
		body, err := d.ByteSlice()
		assert.Nil(t, err)
		assert.Nil(t, d.Finish())

		assert.Equal(t, byte(0x84), body[0])
		assert.Equal(t, byte(0x00), body[1])
		assert.Equal(t, s.account.Bytes(), body[2:34])
		assert.Equal(t, byte(0x01), body[34])
		assert.Equal(t, bytes.Repeat([]byte{0xab}, 64), body[35:99])
		// immortal era, nonce 5, tip 0
		assert.Equal(t, []byte{0x00, 0x14, 0x00}, body[99:102])
		assert.Equal(t, call.Bytes(), body[102:])
	})
	t.Run("Should sign call, extra and additional data", func(t *testing.T) {
		s := &fixedSigner{}
		_, err := Sign(m, call, s, testParams())
		assert.Nil(t, err)

		want := call.Bytes()
		want = append(want, 0x00, 0x14, 0x00)
		want = append(want, 100, 0, 0, 0, 1, 0, 0, 0)
		want = append(want, bytes.Repeat([]byte{0x11}, 64)...)
		assert.Len(t, s.signed, 1)
		assert.Equal(t, want, s.signed[0])
	})
	t.Run("Should hash long payloads", func(t *testing.T) {
		long, err := ContractsCall(m, bob, big.NewInt(0), 1, 1, make([]byte, 300))
		assert.Nil(t, err)
		payload, err := SigningPayload(m, long, testParams())
		assert.Nil(t, err)
		assert.Len(t, payload, 32)
	})
	t.Run("Should produce a signature the key verifies", func(t *testing.T) {
		alice, err := signer.FromSecretUri("//Alice")
		assert.Nil(t, err)
		ext, err := Sign(m, call, alice, testParams())
		assert.Nil(t, err)

		body, _ := scale.NewDecoder(ext).ByteSlice()
		payload, _ := SigningPayload(m, call, testParams())
		assert.True(t, alice.Verify(payload, body[35:99]))
	})
	t.Run("Should reject unknown non-empty extensions", func(t *testing.T) {
		custom := tests.DevRuntimeMetadata()
		custom.Extrinsic.SignedExtensions = append(custom.Extrinsic.SignedExtensions, runtimeMetadata.SignedExtension{
			Identifier:       "CheckSomethingElse",
			Type:             custom.Extrinsic.SignedExtensions[5].Type,
			AdditionalSigned: custom.Extrinsic.SignedExtensions[0].AdditionalSigned,
		})
		_, err := Sign(custom, call, &fixedSigner{}, testParams())
		assert.True(t, errors.Is(err, ErrUnsupportedExtension))
	})
	t.Run("Should require a 32 byte genesis hash", func(t *testing.T) {
		p := testParams()
		p.GenesisHash = []byte{1}
		_, err := Sign(m, call, &fixedSigner{}, p)
		assert.NotNil(t, err)
	})
}
