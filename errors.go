package nearflow

import (
	"errors"
	"fmt"
)

// NodeOperationError reports a failure of a node on a specific item.
type NodeOperationError struct {
	Node      string `json:"node"`
	ItemIndex int    `json:"itemIndex"`
	Message   string `json:"message"`

	cause error
}

// NewNodeOperationError builds an operation error for the item at index.
func NewNodeOperationError(node string, index int, err error) *NodeOperationError {
	opErr := &NodeOperationError{
		Node:      node,
		ItemIndex: index,
		cause:     err,
	}
	if err != nil {
		opErr.Message = err.Error()
	}
	return opErr
}

func (e *NodeOperationError) Error() string {
	return fmt.Sprintf("node %s failed on item %d: %s", e.Node, e.ItemIndex, e.Message)
}

func (e *NodeOperationError) Unwrap() error {
	return e.cause
}

// WrapItemError attaches the item index to err. An error that already carries
// operation context only gets its index updated.
func WrapItemError(node string, index int, err error) error {
	if err == nil {
		return nil
	}
	var opErr *NodeOperationError
	if errors.As(err, &opErr) {
		opErr.ItemIndex = index
		return err
	}
	return NewNodeOperationError(node, index, err)
}
