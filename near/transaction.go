package near

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/near/borsh-go"
)

// DefaultFunctionCallGas is attached to function calls when no gas is given.
const DefaultFunctionCallGas uint64 = 30_000_000_000_000

// Uint128 is a little-endian u128 as laid out by borsh.
type Uint128 [16]byte

// NewUint128 converts a non-negative big integer that fits in 128 bits.
func NewUint128(v *big.Int) (Uint128, error) {
	var out Uint128
	if v == nil {
		return out, nil
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return out, fmt.Errorf("amount %s does not fit in u128", v.String())
	}
	be := v.FillBytes(make([]byte, 16))
	for i := range be {
		out[i] = be[15-i]
	}
	return out, nil
}

func (u Uint128) Big() *big.Int {
	be := make([]byte, 16)
	for i := range u {
		be[15-i] = u[i]
	}
	return new(big.Int).SetBytes(be)
}

func (u Uint128) String() string {
	return u.Big().String()
}

// ParseYocto parses a decimal yoctoNEAR amount.
func ParseYocto(amount string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid yoctoNEAR amount %q", amount)
	}
	return v, nil
}

type CreateAccount struct{}

type DeployContract struct {
	Code []byte
}

type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    Uint128
}

type Transfer struct {
	Deposit Uint128
}

type Stake struct {
	Stake     Uint128
	PublicKey PublicKey
}

type AddKey struct {
	PublicKey PublicKey
	AccessKey AccessKey
}

type DeleteKey struct {
	PublicKey PublicKey
}

type DeleteAccount struct {
	BeneficiaryID string
}

// Action is the borsh enum of transaction actions. Only the field selected by
// Enum is serialized.
type Action struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  CreateAccount
	DeployContract DeployContract
	FunctionCall   FunctionCall
	Transfer       Transfer
	Stake          Stake
	AddKey         AddKey
	DeleteKey      DeleteKey
	DeleteAccount  DeleteAccount
}

const (
	actionCreateAccount borsh.Enum = iota
	actionDeployContract
	actionFunctionCall
	actionTransfer
	actionStake
	actionAddKey
	actionDeleteKey
	actionDeleteAccount
)

type FunctionCallPermission struct {
	Allowance   *Uint128
	ReceiverID  string
	MethodNames []string
}

type FullAccessPermission struct{}

type AccessKeyPermission struct {
	Enum         borsh.Enum `borsh_enum:"true"`
	FunctionCall FunctionCallPermission
	FullAccess   FullAccessPermission
}

type AccessKey struct {
	Nonce      uint64
	Permission AccessKeyPermission
}

// FullAccessKey grants every action on the account.
func FullAccessKey() AccessKey {
	return AccessKey{Permission: AccessKeyPermission{Enum: 1}}
}

// FunctionCallAccessKey limits the key to calls on receiverID. An empty
// methodNames allows every method; a nil allowance is unlimited.
func FunctionCallAccessKey(receiverID string, methodNames []string, allowance *big.Int) (AccessKey, error) {
	perm := FunctionCallPermission{
		ReceiverID:  receiverID,
		MethodNames: methodNames,
	}
	if perm.MethodNames == nil {
		perm.MethodNames = []string{}
	}
	if allowance != nil {
		value, err := NewUint128(allowance)
		if err != nil {
			return AccessKey{}, err
		}
		perm.Allowance = &value
	}
	return AccessKey{Permission: AccessKeyPermission{Enum: 0, FunctionCall: perm}}, nil
}

func TransferAction(amount *big.Int) (Action, error) {
	deposit, err := NewUint128(amount)
	if err != nil {
		return Action{}, err
	}
	return Action{Enum: actionTransfer, Transfer: Transfer{Deposit: deposit}}, nil
}

func FunctionCallAction(method string, args []byte, gas uint64, deposit *big.Int) (Action, error) {
	value, err := NewUint128(deposit)
	if err != nil {
		return Action{}, err
	}
	if gas == 0 {
		gas = DefaultFunctionCallGas
	}
	if args == nil {
		args = []byte{}
	}
	return Action{
		Enum: actionFunctionCall,
		FunctionCall: FunctionCall{
			MethodName: method,
			Args:       args,
			Gas:        gas,
			Deposit:    value,
		},
	}, nil
}

func AddKeyAction(publicKey PublicKey, accessKey AccessKey) Action {
	return Action{Enum: actionAddKey, AddKey: AddKey{PublicKey: publicKey, AccessKey: accessKey}}
}

func DeleteKeyAction(publicKey PublicKey) Action {
	return Action{Enum: actionDeleteKey, DeleteKey: DeleteKey{PublicKey: publicKey}}
}

// Transaction is the unsigned borsh transaction body.
type Transaction struct {
	SignerID   string
	PublicKey  PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

// NewTransaction builds a transaction referencing a base58 block hash.
func NewTransaction(signerID string, publicKey PublicKey, nonce uint64, receiverID, blockHash string, actions []Action) (*Transaction, error) {
	hash, err := base58.Decode(blockHash)
	if err != nil {
		return nil, fmt.Errorf("could not decode block hash: %w", err)
	}
	if len(hash) != 32 {
		return nil, fmt.Errorf("invalid block hash length %d", len(hash))
	}
	tx := Transaction{
		SignerID:   signerID,
		PublicKey:  publicKey,
		Nonce:      nonce,
		ReceiverID: receiverID,
		Actions:    actions,
	}
	copy(tx.BlockHash[:], hash)
	return &tx, nil
}

func (tx *Transaction) Serialize() ([]byte, error) {
	data, err := borsh.Serialize(*tx)
	if err != nil {
		return nil, fmt.Errorf("could not serialize transaction: %w", err)
	}
	return data, nil
}

// Hash returns the sha256 digest that gets signed and identifies the transaction.
func (tx *Transaction) Hash() ([32]byte, error) {
	data, err := tx.Serialize()
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// TransactionSignature is the borsh layout of a curve-tagged signature.
type TransactionSignature struct {
	KeyType KeyType
	Data    [64]byte
}

type SignedTransaction struct {
	Transaction Transaction
	Signature   TransactionSignature
}

// SignTransaction signs the sha256 hash of the serialized transaction.
func SignTransaction(tx *Transaction, kp *KeyPair) (*SignedTransaction, error) {
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := kp.Sign(hash[:])
	signed := SignedTransaction{
		Transaction: *tx,
		Signature:   TransactionSignature{KeyType: sig.PublicKey.KeyType},
	}
	copy(signed.Signature.Data[:], sig.Signature)
	return &signed, nil
}

func (s *SignedTransaction) Serialize() ([]byte, error) {
	data, err := borsh.Serialize(*s)
	if err != nil {
		return nil, fmt.Errorf("could not serialize signed transaction: %w", err)
	}
	return data, nil
}
