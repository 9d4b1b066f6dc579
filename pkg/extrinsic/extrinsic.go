package extrinsic

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/scale"
	"github.com/staex-io/did-provisioner/pkg/signer"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
	"golang.org/x/crypto/blake2b"
)

const (
	extrinsicVersion      = 4
	signedBit             = 0x80
	multiAddressId        = 0x00
	multiSignatureSr25519 = 0x01
	maxUnhashedPayload    = 256
)

var ErrUnsupportedExtension = errors.New("unsupported signed extension")

// SigningParams carries the chain state mixed into the signed payload.
type SigningParams struct {
	Nonce              uint64
	Tip                *big.Int
	SpecVersion        uint32
	TransactionVersion uint32
	GenesisHash        []byte
}

func isEmptyType(r *tr.Registry, id uint32) bool {
	t, err := r.Lookup(id)
	if err != nil {
		return false
	}
	switch t.Def.Kind {
	case tr.DefComposite:
		return len(t.Def.Fields) == 0
	case tr.DefTuple:
		return len(t.Def.Tuple) == 0
	default:
		return false
	}
}

// signedExtensions encodes the "extra" and "additional signed" parts in
// metadata order. Transactions are immortal and carry no tip asset.
func signedExtensions(m *runtimeMetadata.Metadata, p SigningParams) ([]byte, []byte, error) {
	if len(p.GenesisHash) != 32 {
		return nil, nil, errors.Errorf("genesis hash must be 32 bytes, got %d", len(p.GenesisHash))
	}
	tip := p.Tip
	if tip == nil {
		tip = new(big.Int)
	}
	extra := scale.NewEncoder()
	additional := scale.NewEncoder()

	for _, ext := range m.Extrinsic.SignedExtensions {
		switch ext.Identifier {
		case "CheckSpecVersion":
			additional.U32(p.SpecVersion)
		case "CheckTxVersion":
			additional.U32(p.TransactionVersion)
		case "CheckGenesis":
			additional.Raw(p.GenesisHash)
		case "CheckMortality", "CheckEra":
			extra.U8(0x00)
			additional.Raw(p.GenesisHash)
		case "CheckNonce":
			extra.Compact(p.Nonce)
		case "ChargeTransactionPayment":
			if err := extra.CompactBig(tip); err != nil {
				return nil, nil, err
			}
		case "ChargeAssetTxPayment":
			if err := extra.CompactBig(tip); err != nil {
				return nil, nil, err
			}
			extra.OptionNone()
		case "CheckMetadataHash":
			extra.U8(0x00)
			additional.OptionNone()
		default:
			if !isEmptyType(m.Registry, ext.Type) || !isEmptyType(m.Registry, ext.AdditionalSigned) {
				return nil, nil, errors.Wrap(ErrUnsupportedExtension, ext.Identifier)
			}
		}
	}
	return extra.Bytes(), additional.Bytes(), nil
}

// SigningPayload returns the bytes the signer signs: call, extra and
// additional, hashed with blake2b-256 when longer than 256 bytes.
func SigningPayload(m *runtimeMetadata.Metadata, call Call, p SigningParams) ([]byte, error) {
	extra, additional, err := signedExtensions(m, p)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, len(call.data)+len(extra)+len(additional))
	payload = append(payload, call.data...)
	payload = append(payload, extra...)
	payload = append(payload, additional...)
	if len(payload) > maxUnhashedPayload {
		sum := blake2b.Sum256(payload)
		return sum[:], nil
	}
	return payload, nil
}

// Sign builds a length prefixed, signed V4 extrinsic.
func Sign(m *runtimeMetadata.Metadata, call Call, s signer.SignerProvider, p SigningParams) ([]byte, error) {
	if m.Extrinsic.Version != extrinsicVersion {
		return nil, errors.Errorf("unsupported extrinsic version %d", m.Extrinsic.Version)
	}
	payload, err := SigningPayload(m, call, p)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(payload)
	if err != nil {
		return nil, err
	}
	extra, _, err := signedExtensions(m, p)
	if err != nil {
		return nil, err
	}

	account := s.AccountID()
	body := scale.NewEncoder()
	body.U8(signedBit | extrinsicVersion)
	body.U8(multiAddressId).Raw(account.Bytes())
	body.U8(multiSignatureSr25519).Raw(sig)
	body.Raw(extra)
	body.Raw(call.data)

	out := scale.NewEncoder()
	out.ByteSlice(body.Bytes())
	return out.Bytes(), nil
}

// Hash is the extrinsic hash the node reports, blake2b-256 of the encoding.
func Hash(ext []byte) []byte {
	sum := blake2b.Sum256(ext)
	return sum[:]
}
