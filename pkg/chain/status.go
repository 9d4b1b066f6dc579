package chain

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

type TxStatusKind int

const (
	StatusFuture TxStatusKind = iota
	StatusReady
	StatusBroadcast
	StatusInBestBlock
	StatusRetracted
	StatusFinalityTimeout
	StatusInFinalizedBlock
	StatusUsurped
	StatusDropped
	StatusInvalid
	StatusError
)

func (k TxStatusKind) String() string {
	switch k {
	case StatusFuture:
		return "future"
	case StatusReady:
		return "ready"
	case StatusBroadcast:
		return "broadcast"
	case StatusInBestBlock:
		return "in_best_block"
	case StatusRetracted:
		return "retracted"
	case StatusFinalityTimeout:
		return "finality_timeout"
	case StatusInFinalizedBlock:
		return "in_finalized_block"
	case StatusUsurped:
		return "usurped"
	case StatusDropped:
		return "dropped"
	case StatusInvalid:
		return "invalid"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("TxStatusKind(%d)", int(k))
	}
}

// IsTerminal reports whether no further status follows.
func (k TxStatusKind) IsTerminal() bool {
	switch k {
	case StatusInBestBlock, StatusInFinalizedBlock, StatusFinalityTimeout, StatusUsurped, StatusDropped, StatusInvalid, StatusError:
		return true
	default:
		return false
	}
}

// IsIncluded reports whether the extrinsic is in a block.
func (k TxStatusKind) IsIncluded() bool {
	return k == StatusInBestBlock || k == StatusInFinalizedBlock
}

type TxStatus struct {
	Kind    TxStatusKind
	Block   BlockHash
	Message string
}

// ParseTxStatus decodes an author_extrinsicUpdate payload. Simple states are
// bare strings, the rest are single key objects.
func ParseTxStatus(raw json.RawMessage) (TxStatus, error) {
	var simple string
	if err := json.Unmarshal(raw, &simple); err == nil {
		switch simple {
		case "future":
			return TxStatus{Kind: StatusFuture}, nil
		case "ready":
			return TxStatus{Kind: StatusReady}, nil
		case "dropped":
			return TxStatus{Kind: StatusDropped, Message: "transaction was dropped from the pool"}, nil
		case "invalid":
			return TxStatus{Kind: StatusInvalid, Message: "transaction is invalid"}, nil
		default:
			return TxStatus{}, errors.Errorf("unknown transaction status '%s'", simple)
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return TxStatus{}, errors.Wrap(err, "invalid transaction status")
	}
	if len(obj) != 1 {
		return TxStatus{}, errors.Errorf("invalid transaction status %s", string(raw))
	}
	var key string
	var value json.RawMessage
	for k, v := range obj {
		key, value = k, v
	}
	if key == "broadcast" {
		return TxStatus{Kind: StatusBroadcast}, nil
	}

	var hash string
	if err := json.Unmarshal(value, &hash); err != nil {
		return TxStatus{}, errors.Wrapf(err, "invalid %s hash", key)
	}
	switch key {
	case "inBlock":
		return TxStatus{Kind: StatusInBestBlock, Block: BlockHash(hash)}, nil
	case "retracted":
		return TxStatus{Kind: StatusRetracted, Block: BlockHash(hash)}, nil
	case "finalityTimeout":
		return TxStatus{Kind: StatusFinalityTimeout, Block: BlockHash(hash), Message: "finality timed out in block " + hash}, nil
	case "finalized":
		return TxStatus{Kind: StatusInFinalizedBlock, Block: BlockHash(hash)}, nil
	case "usurped":
		return TxStatus{Kind: StatusUsurped, Message: "transaction was replaced by " + hash}, nil
	default:
		return TxStatus{}, errors.Errorf("unknown transaction status '%s'", key)
	}
}
