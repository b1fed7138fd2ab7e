package near

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const nonceRetries = 12

// Account performs operations on behalf of one account.
type Account struct {
	AccountID string
	conn      *Connection
}

func (a *Account) Connection() *Connection {
	return a.conn
}

func (a *Account) State(ctx context.Context) (*AccountView, error) {
	return a.conn.Provider.ViewAccount(ctx, a.AccountID, Optimistic())
}

// AccountBalance is expressed in yoctoNEAR.
type AccountBalance struct {
	Total       string `json:"total"`
	StateStaked string `json:"stateStaked"`
	Staked      string `json:"staked"`
	Available   string `json:"available"`
}

// GetAccountBalance splits the account balance into its staked and available
// parts; storage staking is derived from the protocol's cost per byte.
func (a *Account) GetAccountBalance(ctx context.Context) (*AccountBalance, error) {
	config, err := a.conn.Provider.ProtocolConfig(ctx, Final())
	if err != nil {
		return nil, fmt.Errorf("could not get protocol config: %w", err)
	}
	state, err := a.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not get account state: %w", err)
	}

	costPerByte, err := ParseYocto(config.RuntimeConfig.StorageAmountPerByte)
	if err != nil {
		return nil, fmt.Errorf("invalid storage cost: %w", err)
	}
	amount, err := ParseYocto(state.Amount)
	if err != nil {
		return nil, err
	}
	locked, err := ParseYocto(state.Locked)
	if err != nil {
		return nil, err
	}

	stateStaked := new(big.Int).Mul(new(big.Int).SetUint64(state.StorageUsage), costPerByte)
	total := new(big.Int).Add(amount, locked)
	reserved := locked
	if stateStaked.Cmp(locked) > 0 {
		reserved = stateStaked
	}
	available := new(big.Int).Sub(total, reserved)

	balance := AccountBalance{
		Total:       total.String(),
		StateStaked: stateStaked.String(),
		Staked:      locked.String(),
		Available:   available.String(),
	}
	return &balance, nil
}

// SignAndSendTransaction signs actions with the account key from the key
// store and waits for the outcome. A failed execution returns the outcome
// together with an *ExecutionError.
func (a *Account) SignAndSendTransaction(ctx context.Context, receiverID string, actions []Action) (*FinalExecutionOutcome, error) {
	kp, err := a.conn.KeyStore.GetKey(ctx, a.conn.NetworkID(), a.AccountID)
	if err != nil {
		return nil, fmt.Errorf("could not get signing key: %w", err)
	}

	var outcome *FinalExecutionOutcome
	for attempt := 1; ; attempt++ {
		outcome, err = a.signAndSend(ctx, kp, receiverID, actions)
		if err == nil {
			break
		}
		if !isInvalidNonce(err) || attempt >= nonceRetries {
			return nil, err
		}
		a.conn.log.Debug().
			Str("account", a.AccountID).
			Int("attempt", attempt).
			Msg("retrying transaction with new nonce")
	}

	if failure, failed := outcome.Failure(); failed {
		return outcome, &ExecutionError{TransactionHash: outcome.TransactionHash(), Failure: failure}
	}
	return outcome, nil
}

func (a *Account) signAndSend(ctx context.Context, kp *KeyPair, receiverID string, actions []Action) (*FinalExecutionOutcome, error) {
	accessKey, err := a.conn.Provider.ViewAccessKey(ctx, a.AccountID, kp.PublicKey(), Optimistic())
	if err != nil {
		return nil, fmt.Errorf("could not find access key %s for %s: %w", kp.PublicKey(), a.AccountID, err)
	}
	block, err := a.conn.Provider.Block(ctx, Final())
	if err != nil {
		return nil, fmt.Errorf("could not get latest block: %w", err)
	}

	tx, err := NewTransaction(a.AccountID, kp.PublicKey(), accessKey.Nonce+1, receiverID, block.Header.Hash, actions)
	if err != nil {
		return nil, err
	}
	signed, err := SignTransaction(tx, kp)
	if err != nil {
		return nil, err
	}
	return a.conn.Provider.SendTransaction(ctx, signed)
}

func isInvalidNonce(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	detail := rpcErr.Message + string(rpcErr.Data)
	if rpcErr.Cause != nil {
		detail += rpcErr.Cause.Name + string(rpcErr.Cause.Info)
	}
	return strings.Contains(detail, "InvalidNonce")
}

func (a *Account) SendMoney(ctx context.Context, receiverID string, amount *big.Int) (*FinalExecutionOutcome, error) {
	action, err := TransferAction(amount)
	if err != nil {
		return nil, err
	}
	return a.SignAndSendTransaction(ctx, receiverID, []Action{action})
}

// AddKey adds publicKey to the account. Without a contractID the key gets
// full access; otherwise it may only call methodNames (all methods when
// empty) on contractID, spending at most allowance on gas.
func (a *Account) AddKey(ctx context.Context, publicKey, contractID string, methodNames []string, allowance *big.Int) (*FinalExecutionOutcome, error) {
	pk, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	accessKey := FullAccessKey()
	if contractID != "" {
		accessKey, err = FunctionCallAccessKey(contractID, methodNames, allowance)
		if err != nil {
			return nil, err
		}
	}
	return a.SignAndSendTransaction(ctx, a.AccountID, []Action{AddKeyAction(pk, accessKey)})
}

func (a *Account) DeleteKey(ctx context.Context, publicKey string) (*FinalExecutionOutcome, error) {
	pk, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return a.SignAndSendTransaction(ctx, a.AccountID, []Action{DeleteKeyAction(pk)})
}

// FunctionCallOptions describes a mutating contract call. Zero gas means
// DefaultFunctionCallGas.
type FunctionCallOptions struct {
	ContractID string
	MethodName string
	Args       any
	Gas        uint64
	Deposit    *big.Int
}

func (a *Account) FunctionCall(ctx context.Context, opts FunctionCallOptions) (*FinalExecutionOutcome, error) {
	args, err := encodeArgs(opts.Args)
	if err != nil {
		return nil, err
	}
	action, err := FunctionCallAction(opts.MethodName, args, opts.Gas, opts.Deposit)
	if err != nil {
		return nil, err
	}
	return a.SignAndSendTransaction(ctx, opts.ContractID, []Action{action})
}

func (a *Account) ViewFunction(ctx context.Context, contractID, method string, args any) (any, error) {
	return a.conn.ViewFunction(ctx, contractID, method, args)
}

// LastResult decodes the return value of a successful transaction: JSON when
// it parses, the raw string otherwise, nil when there is none.
func LastResult(outcome *FinalExecutionOutcome) any {
	if outcome == nil {
		return nil
	}
	encoded, ok := outcome.SuccessValue()
	if !ok {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return decodeResult(raw)
}
