package chain

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/scale"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/units"
)

const contractsCallApi = "ContractsApi_call"

// encodeDryRunArgs encodes the ContractsApi_call arguments: origin, dest,
// value, gas_limit, storage_deposit_limit and input. Limits are left to the
// runtime so the result reports the required gas.
func encodeDryRunArgs(caller, contract ss58.AccountID, input []byte) []byte {
	e := scale.NewEncoder()
	e.Raw(caller.Bytes())
	e.Raw(contract.Bytes())
	_ = e.U128(units.FromPlanckUint64(0).Value())
	e.OptionNone()
	e.OptionNone()
	e.ByteSlice(input)
	return e.Bytes()
}

func decodeWeight(d *scale.Decoder) (GasEstimate, error) {
	refTime, err := d.Compact()
	if err != nil {
		return GasEstimate{}, err
	}
	proofSize, err := d.Compact()
	if err != nil {
		return GasEstimate{}, err
	}
	return GasEstimate{RefTime: refTime, ProofSize: proofSize}, nil
}

// decodeDryRunResult decodes a ContractExecResult. The trailing events field
// is not needed and is left unread.
func decodeDryRunResult(m *runtimeMetadata.Metadata, raw []byte) (*DryRunRaw, error) {
	d := scale.NewDecoder(raw)
	res := &DryRunRaw{}
	var err error

	if res.GasConsumed, err = decodeWeight(d); err != nil {
		return nil, errors.Wrap(err, "gas_consumed")
	}
	if res.GasRequired, err = decodeWeight(d); err != nil {
		return nil, errors.Wrap(err, "gas_required")
	}

	depositKind, err := d.U8()
	if err != nil {
		return nil, errors.Wrap(err, "storage_deposit")
	}
	if depositKind > 1 {
		return nil, errors.Errorf("unknown storage deposit variant %d", depositKind)
	}
	deposit, err := d.U128()
	if err != nil {
		return nil, errors.Wrap(err, "storage_deposit")
	}
	res.StorageCharged = depositKind == 1
	res.StorageDeposit = units.FromPlanck(deposit)

	if res.DebugMessage, err = d.ByteSlice(); err != nil {
		return nil, errors.Wrap(err, "debug_message")
	}

	isErr, err := d.U8()
	if err != nil {
		return nil, errors.Wrap(err, "result")
	}
	switch isErr {
	case 0:
		if res.Flags, err = d.U32(); err != nil {
			return nil, errors.Wrap(err, "flags")
		}
		if res.Data, err = d.ByteSlice(); err != nil {
			return nil, errors.Wrap(err, "data")
		}
		return res, nil
	case 1:
		errType, ok := m.Registry.FindByPath("sp_runtime", "DispatchError")
		if !ok {
			return nil, errors.New("runtime has no sp_runtime::DispatchError type")
		}
		v, err := m.Registry.Decode(errType.ID, d)
		if err != nil {
			return nil, errors.Wrap(err, "dispatch error")
		}
		return nil, NewDispatchError(m, v)
	default:
		return nil, errors.Errorf("unknown result variant %d", isErr)
	}
}
