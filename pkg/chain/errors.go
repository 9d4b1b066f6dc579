package chain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrBlockNotFound       = errors.New("block not found")
	ErrSubscriptionDropped = errors.New("subscription dropped before a terminal status")
)

// TransactionError is a terminal non-success status reported by the node.
type TransactionError struct {
	Kind    TxStatusKind
	Message string
}

func (e *TransactionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("transaction %s", e.Kind)
	}
	return fmt.Sprintf("transaction %s: %s", e.Kind, e.Message)
}

// DispatchError is a runtime dispatch failure, either from a dry-run or
// from an included extrinsic.
type DispatchError struct {
	// Kind is the DispatchError variant, e.g. Module or BadOrigin.
	Kind string
	// Module is "Pallet.Error" for module errors.
	Module  string
	Details string
}

func (e *DispatchError) Error() string {
	switch {
	case e.Module != "":
		return fmt.Sprintf("dispatch error: %s", e.Module)
	case e.Details != "":
		return fmt.Sprintf("dispatch error: %s: %s", e.Kind, e.Details)
	default:
		return fmt.Sprintf("dispatch error: %s", e.Kind)
	}
}
