package substrate

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

type RPCMethod[T any] struct {
	Name           string
	ResponseParser func(res *json.RawMessage) (T, error)
}

func isNull(res *json.RawMessage) bool {
	return res == nil || string(*res) == "null"
}

func parseOptionalBytes(res *json.RawMessage) ([]byte, error) {
	if isNull(res) {
		return nil, nil
	}
	var b hexutil.Bytes
	if err := json.Unmarshal(*res, &b); err != nil {
		return nil, errors.Wrap(err, "invalid hex bytes")
	}
	return b, nil
}

func parseOptionalString(res *json.RawMessage) (*string, error) {
	if isNull(res) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(*res, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func parseJSON[T any](res *json.RawMessage) (*T, error) {
	if isNull(res) {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(*res, out); err != nil {
		return nil, err
	}
	return out, nil
}

type Header struct {
	ParentHash string `json:"parentHash"`
	Number     string `json:"number"`
	StateRoot  string `json:"stateRoot"`
}

type Block struct {
	Header     Header          `json:"header"`
	Extrinsics []hexutil.Bytes `json:"extrinsics"`
}

type SignedBlock struct {
	Block Block `json:"block"`
}

type RuntimeVersion struct {
	SpecName           string `json:"specName"`
	ImplName           string `json:"implName"`
	SpecVersion        uint32 `json:"specVersion"`
	TransactionVersion uint32 `json:"transactionVersion"`
}

var (
	// Returns nil when the height is beyond the chain head.
	RPCMethod_getBlockHash = &RPCMethod[*string]{
		Name:           "chain_getBlockHash",
		ResponseParser: parseOptionalString,
	}
	RPCMethod_getBlock = &RPCMethod[*SignedBlock]{
		Name:           "chain_getBlock",
		ResponseParser: parseJSON[SignedBlock],
	}
	// Returns nil for absent storage keys.
	RPCMethod_getStorage = &RPCMethod[[]byte]{
		Name:           "state_getStorage",
		ResponseParser: parseOptionalBytes,
	}
	RPCMethod_stateCall = &RPCMethod[[]byte]{
		Name:           "state_call",
		ResponseParser: parseOptionalBytes,
	}
	RPCMethod_getMetadata = &RPCMethod[[]byte]{
		Name:           "state_getMetadata",
		ResponseParser: parseOptionalBytes,
	}
	RPCMethod_getRuntimeVersion = &RPCMethod[*RuntimeVersion]{
		Name:           "state_getRuntimeVersion",
		ResponseParser: parseJSON[RuntimeVersion],
	}
	RPCMethod_systemChain = &RPCMethod[*string]{
		Name:           "system_chain",
		ResponseParser: parseOptionalString,
	}
)

// optionalAt appends a block hash parameter when one is given.
func optionalAt(params []interface{}, at string) []interface{} {
	if at != "" {
		return append(params, at)
	}
	return params
}

func call[T any](ctx context.Context, c *Client, method *RPCMethod[T], params ...interface{}) (T, error) {
	res, err := c.Call(ctx, c.newRequest(method.Name, params...))
	if err != nil {
		var zero T
		return zero, err
	}
	return parseResult(method, res)
}

func parseResult[T any](method *RPCMethod[T], res *RPCResponse) (T, error) {
	out, err := method.ResponseParser(res.Result)
	if err != nil {
		var zero T
		return zero, errors.Wrapf(err, "failed to parse %s result", method.Name)
	}
	return out, nil
}

// GetBlockHash returns nil when no block exists at height.
func (c *Client) GetBlockHash(ctx context.Context, height *uint64) (*string, error) {
	if height == nil {
		return call(ctx, c, RPCMethod_getBlockHash)
	}
	return call(ctx, c, RPCMethod_getBlockHash, *height)
}

func (c *Client) GetBlock(ctx context.Context, hash string) (*SignedBlock, error) {
	return call(ctx, c, RPCMethod_getBlock, optionalAt([]interface{}{}, hash)...)
}

// GetStorage returns nil when the key holds no value.
func (c *Client) GetStorage(ctx context.Context, key []byte, at string) ([]byte, error) {
	return call(ctx, c, RPCMethod_getStorage, optionalAt([]interface{}{hexutil.Encode(key)}, at)...)
}

// StateCall invokes a runtime API function against the state at the given
// block, or the best block when at is empty.
func (c *Client) StateCall(ctx context.Context, function string, data []byte, at string) ([]byte, error) {
	return call(ctx, c, RPCMethod_stateCall, optionalAt([]interface{}{function, hexutil.Encode(data)}, at)...)
}

// RuntimeInfo is what a client needs from the node before it can build
// extrinsics. GenesisHash and ChainName are nil when the node has none.
type RuntimeInfo struct {
	Metadata    []byte
	Version     *RuntimeVersion
	GenesisHash *string
	ChainName   *string
}

// GetRuntimeInfo fetches metadata, runtime version, genesis hash and chain
// name of the best block in a single batch.
func (c *Client) GetRuntimeInfo(ctx context.Context) (*RuntimeInfo, error) {
	responses, err := c.BatchCall(ctx, []*RPCRequest{
		c.newRequest(RPCMethod_getMetadata.Name),
		c.newRequest(RPCMethod_getRuntimeVersion.Name),
		c.newRequest(RPCMethod_getBlockHash.Name, uint64(0)),
		c.newRequest(RPCMethod_systemChain.Name),
	})
	if err != nil {
		return nil, err
	}

	info := &RuntimeInfo{}
	if info.Metadata, err = parseResult(RPCMethod_getMetadata, responses[0]); err != nil {
		return nil, err
	}
	if info.Version, err = parseResult(RPCMethod_getRuntimeVersion, responses[1]); err != nil {
		return nil, err
	}
	if info.GenesisHash, err = parseResult(RPCMethod_getBlockHash, responses[2]); err != nil {
		return nil, err
	}
	if info.ChainName, err = parseResult(RPCMethod_systemChain, responses[3]); err != nil {
		return nil, err
	}
	return info, nil
}
