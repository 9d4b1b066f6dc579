package chain

import (
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/typeRegistry"
	"github.com/staex-io/did-provisioner/pkg/units"
)

type PhaseKind int

const (
	PhaseApplyExtrinsic PhaseKind = iota
	PhaseFinalization
	PhaseInitialization
)

type Phase struct {
	Kind           PhaseKind
	ExtrinsicIndex uint32
}

// AppliesTo reports whether the event was emitted while applying the
// extrinsic at index.
func (p Phase) AppliesTo(index uint32) bool {
	return p.Kind == PhaseApplyExtrinsic && p.ExtrinsicIndex == index
}

// EventBody is one of ContractEmitted, BalanceTransfer, BalanceWithdraw,
// ExtrinsicFailed or OtherEvent.
type EventBody interface {
	isEventBody()
}

type ContractEmitted struct {
	Contract ss58.AccountID
	Data     []byte
}

type BalanceTransfer struct {
	From   ss58.AccountID
	To     ss58.AccountID
	Amount units.Amount
}

type BalanceWithdraw struct {
	Who    ss58.AccountID
	Amount units.Amount
}

type ExtrinsicFailed struct {
	Error *DispatchError
}

type OtherEvent struct {
	Fields typeRegistry.Value
}

func (ContractEmitted) isEventBody() {}
func (BalanceTransfer) isEventBody() {}
func (BalanceWithdraw) isEventBody() {}
func (ExtrinsicFailed) isEventBody() {}
func (OtherEvent) isEventBody()      {}

// LedgerEvent is a runtime event from a block's System.Events.
type LedgerEvent struct {
	Phase  Phase
	Pallet string
	Name   string
	Body   EventBody
}

func parsePhase(v typeRegistry.Value) (Phase, error) {
	switch v.Ident {
	case "ApplyExtrinsic":
		idx, err := v.AsUint64()
		if err != nil {
			return Phase{}, errors.Wrap(err, "phase extrinsic index")
		}
		return Phase{Kind: PhaseApplyExtrinsic, ExtrinsicIndex: uint32(idx)}, nil
	case "Finalization":
		return Phase{Kind: PhaseFinalization}, nil
	case "Initialization":
		return Phase{Kind: PhaseInitialization}, nil
	default:
		return Phase{}, errors.Errorf("unknown phase '%s'", v.Ident)
	}
}

func accountField(v typeRegistry.Value, name string) (ss58.AccountID, error) {
	f, ok := v.Field(name)
	if !ok {
		return ss58.AccountID{}, errors.Errorf("missing field '%s'", name)
	}
	b, err := f.AsBytes()
	if err != nil {
		return ss58.AccountID{}, errors.Wrapf(err, "field %s", name)
	}
	return ss58.NewAccountID(b)
}

func amountField(v typeRegistry.Value, name string) (units.Amount, error) {
	f, ok := v.Field(name)
	if !ok {
		return units.Amount{}, errors.Errorf("missing field '%s'", name)
	}
	n, err := f.AsBigInt()
	if err != nil {
		return units.Amount{}, errors.Wrapf(err, "field %s", name)
	}
	return units.FromPlanck(n), nil
}

// NewDispatchError converts a decoded sp_runtime::DispatchError, naming
// module errors from metadata.
func NewDispatchError(m *runtimeMetadata.Metadata, v typeRegistry.Value) *DispatchError {
	de := &DispatchError{Kind: v.Ident}
	if v.Ident == "Module" && len(v.Items) == 1 {
		module := v.Items[0]
		index, errIdx := module.Field("index")
		raw, errRaw := module.Field("error")
		if errIdx && errRaw {
			pallet, err1 := index.AsUint64()
			code, err2 := raw.AsBytes()
			if err1 == nil && err2 == nil && len(code) > 0 {
				if name, err := m.ModuleErrorName(uint8(pallet), code[0]); err == nil {
					de.Module = name
					return de
				}
			}
		}
	}
	if len(v.Items) > 0 || len(v.Fields) > 0 {
		inner := v
		inner.Ident = ""
		inner.IsVariant = false
		de.Details = inner.String()
	}
	return de
}

// toLedgerEvent converts one decoded frame_system::EventRecord.
func toLedgerEvent(m *runtimeMetadata.Metadata, record typeRegistry.Value) (LedgerEvent, error) {
	phaseValue, ok := record.Field("phase")
	if !ok {
		return LedgerEvent{}, errors.New("event record without phase")
	}
	phase, err := parsePhase(phaseValue)
	if err != nil {
		return LedgerEvent{}, err
	}
	outer, ok := record.Field("event")
	if !ok || len(outer.Items) != 1 {
		return LedgerEvent{}, errors.New("event record without event")
	}
	inner := outer.Items[0]
	ev := LedgerEvent{
		Phase:  phase,
		Pallet: outer.Ident,
		Name:   inner.Ident,
		Body:   OtherEvent{Fields: inner},
	}

	switch ev.Pallet + "." + ev.Name {
	case "Contracts.ContractEmitted":
		contract, err := accountField(inner, "contract")
		if err != nil {
			return ev, err
		}
		data, ok := inner.Field("data")
		if !ok {
			return ev, errors.New("ContractEmitted without data")
		}
		payload, err := data.AsBytes()
		if err != nil {
			return ev, err
		}
		ev.Body = ContractEmitted{Contract: contract, Data: payload}
	case "Balances.Transfer":
		from, err := accountField(inner, "from")
		if err != nil {
			return ev, err
		}
		to, err := accountField(inner, "to")
		if err != nil {
			return ev, err
		}
		amount, err := amountField(inner, "amount")
		if err != nil {
			return ev, err
		}
		ev.Body = BalanceTransfer{From: from, To: to, Amount: amount}
	case "Balances.Withdraw":
		who, err := accountField(inner, "who")
		if err != nil {
			return ev, err
		}
		amount, err := amountField(inner, "amount")
		if err != nil {
			return ev, err
		}
		ev.Body = BalanceWithdraw{Who: who, Amount: amount}
	case "System.ExtrinsicFailed":
		dispatchErr, ok := inner.Field("dispatch_error")
		if !ok {
			return ev, errors.New("ExtrinsicFailed without dispatch_error")
		}
		ev.Body = ExtrinsicFailed{Error: NewDispatchError(m, dispatchErr)}
	}
	return ev, nil
}

// DecodeEvents decodes the raw System.Events storage value.
func DecodeEvents(m *runtimeMetadata.Metadata, raw []byte) ([]LedgerEvent, error) {
	entry, err := m.StorageEntry("System", "Events")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []LedgerEvent{}, nil
	}
	records, err := m.Registry.DecodeBytes(entry.Value, raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode events")
	}
	events := make([]LedgerEvent, 0, len(records.Items))
	for i, record := range records.Items {
		ev, err := toLedgerEvent(m, record)
		if err != nil {
			return nil, errors.Wrapf(err, "event %d", i)
		}
		events = append(events, ev)
	}
	return events, nil
}
