package near

import (
	"context"
	"fmt"
	"math/big"
	"reflect"
)

// ContractOptions declares the methods a Contract may call.
type ContractOptions struct {
	ViewMethods   []string
	ChangeMethods []string
}

// Contract calls declared methods of a deployed contract. Change methods
// need a contract built from an Account.
type Contract struct {
	ContractID string
	conn       *Connection
	account    *Account
	view       map[string]struct{}
	change     map[string]struct{}
}

func NewContract(conn *Connection, contractID string, opts ContractOptions) *Contract {
	return &Contract{
		ContractID: contractID,
		conn:       conn,
		view:       methodSet(opts.ViewMethods),
		change:     methodSet(opts.ChangeMethods),
	}
}

func NewAccountContract(account *Account, contractID string, opts ContractOptions) *Contract {
	c := NewContract(account.conn, contractID, opts)
	c.account = account
	return c
}

func methodSet(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}

func (c *Contract) View(ctx context.Context, method string, args any) (any, error) {
	if _, ok := c.view[method]; !ok {
		return nil, fmt.Errorf("view method %q: %w", method, ErrMethodNotFound)
	}
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	return c.conn.ViewFunction(ctx, c.ContractID, method, args)
}

// ChangeOptions carries gas and attached deposit for a change call.
type ChangeOptions struct {
	Gas     uint64
	Deposit *big.Int
}

// Change submits a transaction calling method and returns its decoded result.
func (c *Contract) Change(ctx context.Context, method string, args any, opts ChangeOptions) (any, error) {
	if _, ok := c.change[method]; !ok {
		return nil, fmt.Errorf("change method %q: %w", method, ErrMethodNotFound)
	}
	if c.account == nil {
		return nil, fmt.Errorf("change method %q requires a signing account", method)
	}
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	outcome, err := c.account.FunctionCall(ctx, FunctionCallOptions{
		ContractID: c.ContractID,
		MethodName: method,
		Args:       args,
		Gas:        opts.Gas,
		Deposit:    opts.Deposit,
	})
	if err != nil {
		return nil, err
	}
	return LastResult(outcome), nil
}

func validateArgs(args any) error {
	if args == nil {
		return nil
	}
	switch reflect.Indirect(reflect.ValueOf(args)).Kind() {
	case reflect.Map, reflect.Struct:
		return nil
	}
	return ErrInvalidArgument
}
