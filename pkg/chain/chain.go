// Package chain is the only network gateway of the provisioner. It exposes
// the ChainClient operations the rest of the code needs and a node backed
// implementation speaking substrate JSON-RPC.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/units"
)

// BlockHash is a 0x prefixed hex block hash as returned by the node.
type BlockHash string

func (h BlockHash) Bytes() ([]byte, error) {
	return hexutil.Decode(string(h))
}

func (h BlockHash) String() string {
	return string(h)
}

// GasEstimate is the two dimensional weight reported by a dry-run and
// passed unchanged as the gas limit of the real call.
type GasEstimate struct {
	RefTime   uint64
	ProofSize uint64
}

// DryRunRaw is the decoded ContractsApi_call result with a successful
// dispatch. Dispatch failures are returned as *DispatchError instead.
type DryRunRaw struct {
	GasConsumed    GasEstimate
	GasRequired    GasEstimate
	StorageDeposit units.Amount
	// StorageCharged is false when the deposit is a refund.
	StorageCharged bool
	DebugMessage   []byte
	Flags          uint32
	Data           []byte
}

// Reverted reports whether the contract set the revert flag.
func (r *DryRunRaw) Reverted() bool {
	return r.Flags&1 == 1
}

// Runtime is the chain state needed to build and sign extrinsics.
type Runtime struct {
	Metadata           *runtimeMetadata.Metadata
	SpecVersion        uint32
	TransactionVersion uint32
	GenesisHash        BlockHash
}

type TxStatusStream interface {
	// Next returns the next status in node order; ok is false once the
	// subscription has ended.
	Next(ctx context.Context) (status TxStatus, ok bool, err error)
	Close() error
}

type ChainClient interface {
	// ResolveBlockHash returns the hash at height, or the best block when
	// height is nil. ErrBlockNotFound when the height is beyond the chain.
	ResolveBlockHash(ctx context.Context, height *uint64) (BlockHash, error)
	GetNonce(ctx context.Context, account ss58.AccountID, at BlockHash) (uint64, error)
	// GetFreeBalance returns zero for accounts with no storage entry.
	GetFreeBalance(ctx context.Context, account ss58.AccountID, at BlockHash) (units.Amount, error)
	DryRunContractCall(ctx context.Context, caller ss58.AccountID, contract ss58.AccountID, input []byte) (*DryRunRaw, error)
	SubmitAndWatch(ctx context.Context, ext []byte) (TxStatusStream, error)
	GetBlockEvents(ctx context.Context, at BlockHash) ([]LedgerEvent, error)
	GetBlockExtrinsics(ctx context.Context, at BlockHash) ([][]byte, error)
	Runtime(ctx context.Context) (*Runtime, error)
}
