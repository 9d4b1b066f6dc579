package chain

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/staex-io/did-provisioner/pkg/clients/substrate"
	"github.com/staex-io/did-provisioner/pkg/runtimeMetadata"
	"github.com/staex-io/did-provisioner/pkg/ss58"
	"github.com/staex-io/did-provisioner/pkg/typeRegistry"
	"github.com/staex-io/did-provisioner/pkg/units"
	"go.uber.org/zap"
)

// NodeClient implements ChainClient against a substrate node.
type NodeClient struct {
	rpc    *substrate.Client
	logger *zap.Logger

	mu      sync.Mutex
	runtime *Runtime
}

func NewNodeClient(rpc *substrate.Client, l *zap.Logger) *NodeClient {
	return &NodeClient{
		rpc:    rpc,
		logger: l,
	}
}

// Runtime loads metadata, runtime version and genesis hash in one batch and
// caches them for the life of the client.
func (c *NodeClient) Runtime(ctx context.Context) (*Runtime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runtime != nil {
		return c.runtime, nil
	}

	info, err := c.rpc.GetRuntimeInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch runtime")
	}
	metadata, err := runtimeMetadata.Decode(info.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode metadata")
	}
	version := info.Version
	if version == nil {
		return nil, errors.New("node returned no runtime version")
	}
	if info.GenesisHash == nil {
		return nil, errors.Wrap(ErrBlockNotFound, "genesis")
	}
	genesis := BlockHash(*info.GenesisHash)
	chainName := ""
	if info.ChainName != nil {
		chainName = *info.ChainName
	}

	c.runtime = &Runtime{
		Metadata:           metadata,
		SpecVersion:        version.SpecVersion,
		TransactionVersion: version.TransactionVersion,
		GenesisHash:        genesis,
	}
	c.logger.Sugar().Infow("Loaded runtime",
		zap.String("chain", chainName),
		zap.String("specName", version.SpecName),
		zap.Uint32("specVersion", version.SpecVersion),
		zap.Uint32("transactionVersion", version.TransactionVersion),
		zap.String("genesis", string(genesis)),
		zap.Int("pallets", len(metadata.Pallets)),
	)
	return c.runtime, nil
}

func (c *NodeClient) ResolveBlockHash(ctx context.Context, height *uint64) (BlockHash, error) {
	hash, err := c.rpc.GetBlockHash(ctx, height)
	if err != nil {
		return "", err
	}
	if hash == nil {
		if height == nil {
			return "", errors.Wrap(ErrBlockNotFound, "best block")
		}
		return "", errors.Wrapf(ErrBlockNotFound, "height %d", *height)
	}
	return BlockHash(*hash), nil
}

// accountInfo reads System.Account for account. ok is false when the
// account has no storage entry.
func (c *NodeClient) accountInfo(ctx context.Context, account ss58.AccountID, at BlockHash) (typeRegistry.Value, bool, error) {
	rt, err := c.Runtime(ctx)
	if err != nil {
		return typeRegistry.Value{}, false, err
	}
	entry, err := rt.Metadata.StorageEntry("System", "Account")
	if err != nil {
		return typeRegistry.Value{}, false, err
	}
	key, err := entry.Key(account.Bytes())
	if err != nil {
		return typeRegistry.Value{}, false, err
	}
	raw, err := c.rpc.GetStorage(ctx, key, string(at))
	if err != nil {
		return typeRegistry.Value{}, false, errors.Wrap(err, "failed to read account")
	}
	if raw == nil {
		return typeRegistry.Value{}, false, nil
	}
	info, err := rt.Metadata.Registry.DecodeBytes(entry.Value, raw)
	if err != nil {
		return typeRegistry.Value{}, false, errors.Wrap(err, "failed to decode account info")
	}
	return info, true, nil
}

func (c *NodeClient) GetNonce(ctx context.Context, account ss58.AccountID, at BlockHash) (uint64, error) {
	info, ok, err := c.accountInfo(ctx, account, at)
	if err != nil || !ok {
		return 0, err
	}
	nonce, ok := info.Field("nonce")
	if !ok {
		return 0, errors.New("account info has no nonce")
	}
	return nonce.AsUint64()
}

func (c *NodeClient) GetFreeBalance(ctx context.Context, account ss58.AccountID, at BlockHash) (units.Amount, error) {
	info, ok, err := c.accountInfo(ctx, account, at)
	if err != nil {
		return units.Amount{}, err
	}
	if !ok {
		c.logger.Sugar().Warnw("Account is not initialized", zap.String("account", account.String()))
		return units.FromPlanckUint64(0), nil
	}
	data, ok := info.Field("data")
	if !ok {
		return units.Amount{}, errors.New("account info has no data")
	}
	free, ok := data.Field("free")
	if !ok {
		return units.Amount{}, errors.New("account data has no free balance")
	}
	n, err := free.AsBigInt()
	if err != nil {
		return units.Amount{}, err
	}
	return units.FromPlanck(n), nil
}

func (c *NodeClient) DryRunContractCall(ctx context.Context, caller ss58.AccountID, contract ss58.AccountID, input []byte) (*DryRunRaw, error) {
	rt, err := c.Runtime(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.rpc.StateCall(ctx, contractsCallApi, encodeDryRunArgs(caller, contract, input), "")
	if err != nil {
		return nil, errors.Wrap(err, "dry-run failed")
	}
	return decodeDryRunResult(rt.Metadata, raw)
}

type nodeStatusStream struct {
	sub *substrate.Subscription
}

func (s *nodeStatusStream) Next(ctx context.Context) (TxStatus, bool, error) {
	update, ok, err := s.sub.Next(ctx)
	if err != nil || !ok {
		return TxStatus{}, false, err
	}
	if update.Error != nil {
		return TxStatus{Kind: StatusError, Message: update.Error.Message}, true, nil
	}
	status, err := ParseTxStatus(update.Result)
	if err != nil {
		return TxStatus{}, false, err
	}
	return status, true, nil
}

func (s *nodeStatusStream) Close() error {
	return s.sub.Close()
}

func (c *NodeClient) SubmitAndWatch(ctx context.Context, ext []byte) (TxStatusStream, error) {
	sub, err := c.rpc.Subscribe(ctx, "author_submitAndWatchExtrinsic", "author_unwatchExtrinsic", hexutil.Encode(ext))
	if err != nil {
		return nil, errors.Wrap(err, "failed to submit extrinsic")
	}
	return &nodeStatusStream{sub: sub}, nil
}

func (c *NodeClient) GetBlockEvents(ctx context.Context, at BlockHash) ([]LedgerEvent, error) {
	rt, err := c.Runtime(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.rpc.GetStorage(ctx, runtimeMetadata.StoragePrefix("System", "Events"), string(at))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read events at %s", at)
	}
	return DecodeEvents(rt.Metadata, raw)
}

func (c *NodeClient) GetBlockExtrinsics(ctx context.Context, at BlockHash) ([][]byte, error) {
	block, err := c.rpc.GetBlock(ctx, string(at))
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, errors.Wrapf(ErrBlockNotFound, "%s", at)
	}
	out := make([][]byte, 0, len(block.Block.Extrinsics))
	for _, ext := range block.Block.Extrinsics {
		out = append(out, ext)
	}
	return out, nil
}
