package contractCodec

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/chain"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
)

// DryRunResult is a decoded dry-run: the message return value plus the gas
// the real call must be given.
type DryRunResult struct {
	Data         tr.Value
	GasRequired  chain.GasEstimate
	DebugMessage []byte
	Reverted     bool
}

// GetMessageResult reads a boolean message result. The decoded value must be
// a one element tuple (Ok(b)) holding a bool; anything else is an error.
func (r *DryRunResult) GetMessageResult() (bool, error) {
	if r.Data.Kind != tr.KindTuple {
		return false, errors.Wrapf(ErrDecodeMismatch, "unexpected response: value is not tuple: %s", r.Data)
	}
	if len(r.Data.Items) != 1 {
		return false, errors.Wrapf(ErrDecodeMismatch, "unexpected values count: %d", len(r.Data.Items))
	}
	v := r.Data.Items[0]
	if v.Kind != tr.KindBool {
		return false, errors.Wrapf(ErrDecodeMismatch, "unexpected response: value in tuple is not bool: %s", v)
	}
	return v.Bool, nil
}

// NewDryRunResult decodes the return data of raw as the return type of message.
func (c *Codec) NewDryRunResult(message string, raw *chain.DryRunRaw) (*DryRunResult, error) {
	data, err := c.DecodeReturn(message, raw.Data)
	if err != nil {
		return nil, err
	}
	return &DryRunResult{
		Data:         data,
		GasRequired:  raw.GasRequired,
		DebugMessage: raw.DebugMessage,
		Reverted:     raw.Reverted(),
	}, nil
}
