// Package fakeChain is an in-memory chain.ChainClient for tests.
package fakeChain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/internal/tests"
	"github.com/staex-io/did-provisioner/pkg/chain"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/units"
)

// Block is one block of a Chain.
type Block struct {
	Hash       chain.BlockHash
	Events     []chain.LedgerEvent
	Extrinsics [][]byte
}

// Chain is an in-memory chain.ChainClient. Block 0 is created by
// New; the best block is always the last one.
type Chain struct {
	mu sync.Mutex

	Metadata *runtimeMetadata.Metadata
	Blocks   []*Block
	Balances map[ss58.AccountID]*big.Int
	Nonces   map[ss58.AccountID]uint64

	// DryRun answers DryRunContractCall.
	DryRun func(caller, contract ss58.AccountID, input []byte) (*chain.DryRunRaw, error)
	// OnSubmit returns the statuses reported for a submitted extrinsic. It runs
	// with the chain locked and may touch fields directly. A nil
	// OnSubmit makes the status stream block until its context is done.
	OnSubmit func(ext []byte) ([]chain.TxStatus, error)

	DryRunInputs [][]byte
	Submitted    [][]byte
	// EventsErr is returned by GetBlockEvents for the block with that hash.
	EventsErr map[chain.BlockHash]error
	// ResolveErr is returned by ResolveBlockHash for that height.
	ResolveErr map[uint64]error
}

var _ chain.ChainClient = (*Chain)(nil)

func BlockHash(height int) chain.BlockHash {
	return chain.BlockHash(fmt.Sprintf("0x%064x", height+1))
}

func New() *Chain {
	return &Chain{
		Metadata:   tests.DevRuntimeMetadata(),
		Blocks:     []*Block{{Hash: BlockHash(0)}},
		Balances:   make(map[ss58.AccountID]*big.Int),
		Nonces:     make(map[ss58.AccountID]uint64),
		EventsErr:  make(map[chain.BlockHash]error),
		ResolveErr: make(map[uint64]error),
	}
}

// AddBlock appends a block and returns its hash.
func (f *Chain) AddBlock(events []chain.LedgerEvent, extrinsics ...[]byte) chain.BlockHash {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addBlockLocked(events, extrinsics)
}

func (f *Chain) addBlockLocked(events []chain.LedgerEvent, extrinsics [][]byte) chain.BlockHash {
	hash := BlockHash(len(f.Blocks))
	f.Blocks = append(f.Blocks, &Block{Hash: hash, Events: events, Extrinsics: extrinsics})
	return hash
}

// IncludeAt returns an OnSubmit that puts the extrinsic at index 1 of a new
// block holding events and reports it with the given status kind.
func (f *Chain) IncludeAt(kind chain.TxStatusKind, events ...chain.LedgerEvent) func([]byte) ([]chain.TxStatus, error) {
	return func(ext []byte) ([]chain.TxStatus, error) {
		hash := f.addBlockLocked(events, [][]byte{{0x01}, ext})
		return []chain.TxStatus{
			{Kind: chain.StatusReady},
			{Kind: chain.StatusBroadcast},
			{Kind: kind, Block: hash},
		}, nil
	}
}

func (f *Chain) SetBalance(account ss58.AccountID, planck *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[account] = planck
}

func (f *Chain) blockByHash(at chain.BlockHash) (*Block, error) {
	for _, b := range f.Blocks {
		if b.Hash == at {
			return b, nil
		}
	}
	return nil, errors.Wrapf(chain.ErrBlockNotFound, "%s", at)
}

func (f *Chain) ResolveBlockHash(_ context.Context, height *uint64) (chain.BlockHash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if height == nil {
		return f.Blocks[len(f.Blocks)-1].Hash, nil
	}
	if err, ok := f.ResolveErr[*height]; ok {
		return "", err
	}
	if *height >= uint64(len(f.Blocks)) {
		return "", chain.ErrBlockNotFound
	}
	return f.Blocks[*height].Hash, nil
}

func (f *Chain) GetNonce(_ context.Context, account ss58.AccountID, _ chain.BlockHash) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Nonces[account], nil
}

func (f *Chain) GetFreeBalance(_ context.Context, account ss58.AccountID, _ chain.BlockHash) (units.Amount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return units.FromPlanck(f.Balances[account]), nil
}

func (f *Chain) DryRunContractCall(_ context.Context, caller, contract ss58.AccountID, input []byte) (*chain.DryRunRaw, error) {
	f.mu.Lock()
	f.DryRunInputs = append(f.DryRunInputs, input)
	dryRun := f.DryRun
	f.mu.Unlock()
	if dryRun == nil {
		return nil, errors.New("no dry-run configured")
	}
	return dryRun(caller, contract, input)
}

func (f *Chain) SubmitAndWatch(_ context.Context, ext []byte) (chain.TxStatusStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Submitted = append(f.Submitted, ext)
	if f.OnSubmit == nil {
		return &StatusStream{hang: true}, nil
	}
	statuses, err := f.OnSubmit(ext)
	if err != nil {
		return nil, err
	}
	return &StatusStream{statuses: statuses}, nil
}

func (f *Chain) GetBlockEvents(_ context.Context, at chain.BlockHash) ([]chain.LedgerEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.EventsErr[at]; ok {
		return nil, err
	}
	b, err := f.blockByHash(at)
	if err != nil {
		return nil, err
	}
	return b.Events, nil
}

func (f *Chain) GetBlockExtrinsics(_ context.Context, at chain.BlockHash) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := f.blockByHash(at)
	if err != nil {
		return nil, err
	}
	return b.Extrinsics, nil
}

func (f *Chain) Runtime(_ context.Context) (*chain.Runtime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &chain.Runtime{
		Metadata:           f.Metadata,
		SpecVersion:        100,
		TransactionVersion: 1,
		GenesisHash:        f.Blocks[0].Hash,
	}, nil
}

// StatusStream replays a fixed list of statuses, then ends.
type StatusStream struct {
	statuses []chain.TxStatus
	hang     bool
	Closed   bool
}

func (s *StatusStream) Next(ctx context.Context) (chain.TxStatus, bool, error) {
	if s.hang {
		<-ctx.Done()
		return chain.TxStatus{}, false, ctx.Err()
	}
	if len(s.statuses) == 0 {
		return chain.TxStatus{}, false, nil
	}
	next := s.statuses[0]
	s.statuses = s.statuses[1:]
	return next, true, nil
}

func (s *StatusStream) Close() error {
	s.Closed = true
	return nil
}
