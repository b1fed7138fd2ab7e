package near

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrUnknownNetwork  = errors.New("unknown network")
	ErrMethodNotFound  = errors.New("method not declared on contract")
	ErrInvalidArgument = errors.New("contract method calls expect named arguments wrapped in an object")
)

// RPCError is an error object returned by a NEAR JSON-RPC endpoint.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cause   *RPCErrorCause  `json:"cause,omitempty"`
}

// RPCErrorCause carries the structured error type of newer nodes.
type RPCErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *RPCError) Error() string {
	kind := e.Type()
	detail := e.Message
	if len(e.Data) > 0 {
		var data string
		if err := json.Unmarshal(e.Data, &data); err == nil {
			detail = data
		} else {
			detail = string(e.Data)
		}
	}
	if kind != "" {
		return fmt.Sprintf("rpc error %s (%d): %s", kind, e.Code, detail)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, detail)
}

// Type returns the most specific error name reported by the node.
func (e *RPCError) Type() string {
	if e.Cause != nil && e.Cause.Name != "" {
		return e.Cause.Name
	}
	return e.Name
}

// ExecutionError reports a transaction that was included but failed.
type ExecutionError struct {
	TransactionHash string
	Failure         json.RawMessage
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.TransactionHash, string(e.Failure))
}
