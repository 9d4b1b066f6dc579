package tests

import (
	"math/big"

	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/scale"
	tr "github.com/staex-io/did-provisioner/pkg/typeRegistry"
)

// Pallet indices of the synthetic dev runtime.
const (
	SystemIndex             uint8 = 0
	BalancesIndex           uint8 = 4
	TransactionPaymentIndex uint8 = 5
	ContractsIndex          uint8 = 8
)

type registryBuilder struct {
	types []*tr.Type
}

func (b *registryBuilder) add(path []string, def tr.TypeDef) uint32 {
	id := uint32(len(b.types))
	b.types = append(b.types, &tr.Type{ID: id, Path: path, Def: def})
	return id
}

func (b *registryBuilder) prim(p tr.Primitive) uint32 {
	return b.add(nil, tr.TypeDef{Kind: tr.DefPrimitive, Primitive: p})
}

func (b *registryBuilder) composite(path []string, fields ...tr.Field) uint32 {
	return b.add(path, tr.TypeDef{Kind: tr.DefComposite, Fields: fields})
}

func (b *registryBuilder) variant(path []string, variants ...tr.Variant) uint32 {
	return b.add(path, tr.TypeDef{Kind: tr.DefVariant, Variants: variants})
}

func named(name string, ty uint32) tr.Field {
	return tr.Field{Name: name, Type: ty}
}

func unnamed(ty uint32) tr.Field {
	return tr.Field{Type: ty}
}

func ptr(v uint32) *uint32 {
	return &v
}

// DevRuntimeMetadata builds V14 metadata for a small contracts-enabled
// runtime with System, Balances, TransactionPayment and Contracts pallets.
func DevRuntimeMetadata() *runtimeMetadata.Metadata {
	b := &registryBuilder{}

	u8 := b.prim(tr.PrimU8)
	u16 := b.prim(tr.PrimU16)
	u32 := b.prim(tr.PrimU32)
	u64 := b.prim(tr.PrimU64)
	u128 := b.prim(tr.PrimU128)
	bytes32 := b.add(nil, tr.TypeDef{Kind: tr.DefArray, Len: 32, Elem: u8})
	bytes4 := b.add(nil, tr.TypeDef{Kind: tr.DefArray, Len: 4, Elem: u8})
	vecU8 := b.add(nil, tr.TypeDef{Kind: tr.DefSequence, Elem: u8})
	unit := b.add(nil, tr.TypeDef{Kind: tr.DefTuple})
	compactU32 := b.add(nil, tr.TypeDef{Kind: tr.DefCompact, Elem: u32})
	compactU64 := b.add(nil, tr.TypeDef{Kind: tr.DefCompact, Elem: u64})
	compactU128 := b.add(nil, tr.TypeDef{Kind: tr.DefCompact, Elem: u128})

	accountID := b.composite([]string{"sp_core", "crypto", "AccountId32"}, unnamed(bytes32))
	h256 := b.composite([]string{"primitive_types", "H256"}, unnamed(bytes32))
	vecH256 := b.add(nil, tr.TypeDef{Kind: tr.DefSequence, Elem: h256})
	weight := b.composite([]string{"sp_weights", "weight_v2", "Weight"},
		named("ref_time", compactU64), named("proof_size", compactU64))
	multiAddress := b.variant([]string{"sp_runtime", "multiaddress", "MultiAddress"},
		tr.Variant{Name: "Id", Index: 0, Fields: []tr.Field{unnamed(accountID)}},
		tr.Variant{Name: "Raw", Index: 2, Fields: []tr.Field{unnamed(vecU8)}},
		tr.Variant{Name: "Address32", Index: 3, Fields: []tr.Field{unnamed(bytes32)}},
	)
	optionCompactU128 := b.variant([]string{"Option"},
		tr.Variant{Name: "None", Index: 0},
		tr.Variant{Name: "Some", Index: 1, Fields: []tr.Field{unnamed(compactU128)}},
	)

	accountData := b.composite([]string{"pallet_balances", "types", "AccountData"},
		named("free", u128), named("reserved", u128), named("frozen", u128), named("flags", u128))
	accountInfo := b.composite([]string{"frame_system", "AccountInfo"},
		named("nonce", u32), named("consumers", u32), named("providers", u32),
		named("sufficients", u32), named("data", accountData))

	dispatchClass := b.variant([]string{"frame_support", "dispatch", "DispatchClass"},
		tr.Variant{Name: "Normal", Index: 0},
		tr.Variant{Name: "Operational", Index: 1},
		tr.Variant{Name: "Mandatory", Index: 2},
	)
	pays := b.variant([]string{"frame_support", "dispatch", "Pays"},
		tr.Variant{Name: "Yes", Index: 0},
		tr.Variant{Name: "No", Index: 1},
	)
	dispatchInfo := b.composite([]string{"frame_support", "dispatch", "DispatchInfo"},
		named("weight", weight), named("class", dispatchClass), named("pays_fee", pays))
	moduleError := b.composite([]string{"sp_runtime", "ModuleError"},
		named("index", u8), named("error", bytes4))
	dispatchError := b.variant([]string{"sp_runtime", "DispatchError"},
		tr.Variant{Name: "Other", Index: 0},
		tr.Variant{Name: "CannotLookup", Index: 1},
		tr.Variant{Name: "BadOrigin", Index: 2},
		tr.Variant{Name: "Module", Index: 3, Fields: []tr.Field{unnamed(moduleError)}},
		tr.Variant{Name: "ConsumerRemaining", Index: 4},
		tr.Variant{Name: "NoProviders", Index: 5},
	)

	systemEvent := b.variant([]string{"frame_system", "pallet", "Event"},
		tr.Variant{Name: "ExtrinsicSuccess", Index: 0, Fields: []tr.Field{named("dispatch_info", dispatchInfo)}},
		tr.Variant{Name: "ExtrinsicFailed", Index: 1, Fields: []tr.Field{named("dispatch_error", dispatchError), named("dispatch_info", dispatchInfo)}},
		tr.Variant{Name: "NewAccount", Index: 3, Fields: []tr.Field{named("account", accountID)}},
	)
	balancesEvent := b.variant([]string{"pallet_balances", "pallet", "Event"},
		tr.Variant{Name: "Endowed", Index: 0, Fields: []tr.Field{named("account", accountID), named("free_balance", u128)}},
		tr.Variant{Name: "Transfer", Index: 2, Fields: []tr.Field{named("from", accountID), named("to", accountID), named("amount", u128)}},
		tr.Variant{Name: "Deposit", Index: 7, Fields: []tr.Field{named("who", accountID), named("amount", u128)}},
		tr.Variant{Name: "Withdraw", Index: 8, Fields: []tr.Field{named("who", accountID), named("amount", u128)}},
	)
	paymentEvent := b.variant([]string{"pallet_transaction_payment", "pallet", "Event"},
		tr.Variant{Name: "TransactionFeePaid", Index: 0, Fields: []tr.Field{named("who", accountID), named("actual_fee", u128), named("tip", u128)}},
	)
	contractsEvent := b.variant([]string{"pallet_contracts", "pallet", "Event"},
		tr.Variant{Name: "Instantiated", Index: 0, Fields: []tr.Field{named("deployer", accountID), named("contract", accountID)}},
		tr.Variant{Name: "ContractEmitted", Index: 3, Fields: []tr.Field{named("contract", accountID), named("data", vecU8)}},
	)
	runtimeEvent := b.variant([]string{"contracts_node_runtime", "RuntimeEvent"},
		tr.Variant{Name: "System", Index: SystemIndex, Fields: []tr.Field{unnamed(systemEvent)}},
		tr.Variant{Name: "Balances", Index: BalancesIndex, Fields: []tr.Field{unnamed(balancesEvent)}},
		tr.Variant{Name: "TransactionPayment", Index: TransactionPaymentIndex, Fields: []tr.Field{unnamed(paymentEvent)}},
		tr.Variant{Name: "Contracts", Index: ContractsIndex, Fields: []tr.Field{unnamed(contractsEvent)}},
	)
	phase := b.variant([]string{"frame_system", "Phase"},
		tr.Variant{Name: "ApplyExtrinsic", Index: 0, Fields: []tr.Field{unnamed(u32)}},
		tr.Variant{Name: "Finalization", Index: 1},
		tr.Variant{Name: "Initialization", Index: 2},
	)
	eventRecord := b.composite([]string{"frame_system", "EventRecord"},
		named("phase", phase), named("event", runtimeEvent), named("topics", vecH256))
	eventRecords := b.add(nil, tr.TypeDef{Kind: tr.DefSequence, Elem: eventRecord})

	systemCall := b.variant([]string{"frame_system", "pallet", "Call"},
		tr.Variant{Name: "remark", Index: 0, Fields: []tr.Field{named("remark", vecU8)}},
	)
	balancesCall := b.variant([]string{"pallet_balances", "pallet", "Call"},
		tr.Variant{Name: "transfer_allow_death", Index: 0, Fields: []tr.Field{named("dest", multiAddress), named("value", compactU128)}},
		tr.Variant{Name: "transfer_keep_alive", Index: 3, Fields: []tr.Field{named("dest", multiAddress), named("value", compactU128)}},
	)
	contractsCall := b.variant([]string{"pallet_contracts", "pallet", "Call"},
		tr.Variant{Name: "call", Index: 6, Fields: []tr.Field{
			named("dest", multiAddress),
			named("value", compactU128),
			named("gas_limit", weight),
			named("storage_deposit_limit", optionCompactU128),
			named("data", vecU8),
		}},
	)
	b.variant([]string{"contracts_node_runtime", "RuntimeCall"},
		tr.Variant{Name: "System", Index: SystemIndex, Fields: []tr.Field{unnamed(systemCall)}},
		tr.Variant{Name: "Balances", Index: BalancesIndex, Fields: []tr.Field{unnamed(balancesCall)}},
		tr.Variant{Name: "Contracts", Index: ContractsIndex, Fields: []tr.Field{unnamed(contractsCall)}},
	)

	balancesError := b.variant([]string{"pallet_balances", "pallet", "Error"},
		tr.Variant{Name: "VestingBalance", Index: 0},
		tr.Variant{Name: "LiquidityRestrictions", Index: 1},
		tr.Variant{Name: "InsufficientBalance", Index: 2},
	)
	contractsError := b.variant([]string{"pallet_contracts", "pallet", "Error"},
		tr.Variant{Name: "OutOfGas", Index: 4},
		tr.Variant{Name: "ContractTrapped", Index: 11},
		tr.Variant{Name: "ContractReverted", Index: 12},
	)

	emptyExt := func(name string) uint32 {
		return b.composite([]string{"frame_system", "extensions", name})
	}
	mortality := b.composite([]string{"frame_system", "extensions", "check_mortality", "CheckMortality"}, unnamed(u8))
	nonce := b.composite([]string{"frame_system", "extensions", "check_nonce", "CheckNonce"}, unnamed(compactU32))
	payment := b.composite([]string{"pallet_transaction_payment", "ChargeTransactionPayment"}, unnamed(compactU128))
	signedExtensions := []runtimeMetadata.SignedExtension{
		{Identifier: "CheckNonZeroSender", Type: emptyExt("CheckNonZeroSender"), AdditionalSigned: unit},
		{Identifier: "CheckSpecVersion", Type: emptyExt("CheckSpecVersion"), AdditionalSigned: u32},
		{Identifier: "CheckTxVersion", Type: emptyExt("CheckTxVersion"), AdditionalSigned: u32},
		{Identifier: "CheckGenesis", Type: emptyExt("CheckGenesis"), AdditionalSigned: h256},
		{Identifier: "CheckMortality", Type: mortality, AdditionalSigned: h256},
		{Identifier: "CheckNonce", Type: nonce, AdditionalSigned: unit},
		{Identifier: "CheckWeight", Type: emptyExt("CheckWeight"), AdditionalSigned: unit},
		{Identifier: "ChargeTransactionPayment", Type: payment, AdditionalSigned: unit},
	}
	extrinsicType := b.composite([]string{"sp_runtime", "generic", "unchecked_extrinsic", "UncheckedExtrinsic"}, unnamed(vecU8))
	runtimeType := b.composite([]string{"contracts_node_runtime", "Runtime"})

	registry, err := tr.NewRegistry(b.types)
	if err != nil {
		panic(err)
	}

	ss58Prefix := scale.NewEncoder().U16(42).Bytes()
	existentialDeposit := scale.NewEncoder()
	_ = existentialDeposit.U128(big.NewInt(1_000_000_000))

	return &runtimeMetadata.Metadata{
		Registry: registry,
		Pallets: []runtimeMetadata.Pallet{
			{
				Name:          "System",
				Index:         SystemIndex,
				StoragePrefix: "System",
				Storage: []runtimeMetadata.StorageEntry{
					{
						Pallet:   "System",
						Name:     "Account",
						Modifier: runtimeMetadata.ModifierDefault,
						Hashers:  []runtimeMetadata.Hasher{runtimeMetadata.Blake2_128Concat},
						KeyType:  ptr(accountID),
						Value:    accountInfo,
						Default:  make([]byte, 80),
					},
					{
						Pallet:   "System",
						Name:     "Events",
						Modifier: runtimeMetadata.ModifierDefault,
						Value:    eventRecords,
						Default:  []byte{0x00},
					},
				},
				CallType:  ptr(systemCall),
				EventType: ptr(systemEvent),
				Constants: []runtimeMetadata.Constant{{Name: "SS58Prefix", Type: u16, Value: ss58Prefix}},
			},
			{
				Name:      "Balances",
				Index:     BalancesIndex,
				CallType:  ptr(balancesCall),
				EventType: ptr(balancesEvent),
				ErrorType: ptr(balancesError),
				Constants: []runtimeMetadata.Constant{{Name: "ExistentialDeposit", Type: u128, Value: existentialDeposit.Bytes()}},
			},
			{
				Name:      "TransactionPayment",
				Index:     TransactionPaymentIndex,
				EventType: ptr(paymentEvent),
			},
			{
				Name:      "Contracts",
				Index:     ContractsIndex,
				CallType:  ptr(contractsCall),
				EventType: ptr(contractsEvent),
				ErrorType: ptr(contractsError),
			},
		},
		Extrinsic: runtimeMetadata.Extrinsic{
			Type:             extrinsicType,
			Version:          4,
			SignedExtensions: signedExtensions,
		},
		RuntimeType: runtimeType,
	}
}

// Phase values for building event records.
func ApplyExtrinsic(index uint32) tr.Value {
	return tr.NewVariant("ApplyExtrinsic", tr.NewUInt64(uint64(index)))
}

func Finalization() tr.Value {
	return tr.NewVariant("Finalization")
}

// EventRecord builds a frame_system::EventRecord value for pallet.event with
// named fields.
func EventRecord(phase tr.Value, pallet, event string, fields ...tr.NamedValue) tr.Value {
	inner := tr.Value{Kind: tr.KindMap, Ident: event, Fields: fields, IsVariant: true}
	if len(fields) == 0 {
		inner = tr.NewVariant(event)
	}
	return tr.NewMap("EventRecord",
		tr.NamedValue{Name: "phase", Value: phase},
		tr.NamedValue{Name: "event", Value: tr.NewVariant(pallet, inner)},
		tr.NamedValue{Name: "topics", Value: tr.NewSeq()},
	)
}

// EncodeEvents encodes records as the System.Events storage value.
func EncodeEvents(m *runtimeMetadata.Metadata, records ...tr.Value) []byte {
	entry, err := m.StorageEntry("System", "Events")
	if err != nil {
		panic(err)
	}
	raw, err := m.Registry.EncodeToBytes(entry.Value, tr.NewSeq(records...))
	if err != nil {
		panic(err)
	}
	return raw
}

// DispatchInfo returns a default dispatch info value.
func DispatchInfo() tr.Value {
	return tr.NewMap("DispatchInfo",
		tr.NamedValue{Name: "weight", Value: tr.NewMap("Weight",
			tr.NamedValue{Name: "ref_time", Value: tr.NewUInt64(1000)},
			tr.NamedValue{Name: "proof_size", Value: tr.NewUInt64(10)},
		)},
		tr.NamedValue{Name: "class", Value: tr.NewVariant("Normal")},
		tr.NamedValue{Name: "pays_fee", Value: tr.NewVariant("Yes")},
	)
}

// ModuleDispatchError builds DispatchError::Module for a pallet error index.
func ModuleDispatchError(pallet, index uint8) tr.Value {
	return tr.NewVariant("Module", tr.NewMap("ModuleError",
		tr.NamedValue{Name: "index", Value: tr.NewUInt64(uint64(pallet))},
		tr.NamedValue{Name: "error", Value: tr.NewBytes([]byte{index, 0, 0, 0})},
	))
}
