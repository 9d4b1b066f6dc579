// Package extrinsic builds runtime calls and signed V4 extrinsics from
// runtime metadata.
package extrinsic

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/scale"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
)

// Call is an encoded dispatchable: pallet index, call index, arguments.
type Call struct {
	Pallet string
	Name   string
	data   []byte
}

func (c Call) Bytes() []byte {
	return append([]byte{}, c.data...)
}

// NewCall encodes args positionally against the call's metadata layout.
func NewCall(m *runtimeMetadata.Metadata, pallet, name string, args ...tr.Value) (Call, error) {
	index, err := m.CallIndex(pallet, name)
	if err != nil {
		return Call{}, err
	}
	fields, err := m.CallFields(pallet, name)
	if err != nil {
		return Call{}, err
	}
	if len(fields) != len(args) {
		return Call{}, errors.Errorf("%s.%s takes %d arguments, got %d", pallet, name, len(fields), len(args))
	}

	e := scale.NewEncoder()
	e.Raw(index[:])
	for i, f := range fields {
		if err := m.Registry.Encode(f.Type, args[i], e); err != nil {
			return Call{}, errors.Wrapf(err, "%s.%s argument %s", pallet, name, f.Name)
		}
	}
	return Call{Pallet: pallet, Name: name, data: e.Bytes()}, nil
}

func multiAddressID(account ss58.AccountID) tr.Value {
	return tr.NewVariant("Id", tr.NewBytes(account.Bytes()))
}

// ContractsCall builds Contracts.call(dest, value, gas_limit, None, data).
func ContractsCall(m *runtimeMetadata.Metadata, dest ss58.AccountID, value *big.Int, refTime, proofSize uint64, data []byte) (Call, error) {
	return NewCall(m, "Contracts", "call",
		multiAddressID(dest),
		tr.NewUInt(value),
		tr.NewMap("Weight",
			tr.NamedValue{Name: "ref_time", Value: tr.NewUInt64(refTime)},
			tr.NamedValue{Name: "proof_size", Value: tr.NewUInt64(proofSize)},
		),
		tr.NewVariant("None"),
		tr.NewBytes(data),
	)
}

// TransferAllowDeath builds Balances.transfer_allow_death(Id(dest), amount).
func TransferAllowDeath(m *runtimeMetadata.Metadata, dest ss58.AccountID, planck *big.Int) (Call, error) {
	return NewCall(m, "Balances", "transfer_allow_death", multiAddressID(dest), tr.NewUInt(planck))
}
