package nodes

import (
	"context"
	"fmt"
	"math/big"

	"nearflow/near"
	"nearflow/utils"
)

var addKeyDefinition = NodeDefinition{
	ID:          "near_add_key",
	DisplayName: "Add Access Key",
	Description: "Adds a full access or function call access key to the signer account.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		paramNetworkID,
		paramSignerKey,
		{Name: "signerId", DisplayName: "Signer Account ID", Type: ParameterString, Placeholder: "example.near", Required: true},
		{Name: "publicKey", DisplayName: "Public Key to Add", Type: ParameterString, Placeholder: "ed25519:deadbeef",
			Description: "A public key to be associated with the contract", Required: true},
		{Name: "contractId", DisplayName: "Contract Account ID", Type: ParameterString, Placeholder: "example.near",
			Description: "NEAR account where the contract is deployed"},
		{Name: "methodNames", DisplayName: "Method Names as JSON", Type: ParameterJSON, Placeholder: "[]",
			Description: "The method names on the contract that should be allowed to be called. Pass null for no method names and '' or [] for any method names."},
		{Name: "amount", DisplayName: "Attached NEAR Amount", Type: ParameterString, Placeholder: "1000000000000000000000000",
			Description: "Allowance in yoctoNEAR the key may spend on gas"},
	},
	Example: `node grant = near_add_key networkId=testnet privateKey={{.privateKey}} signerId=alice.testnet publicKey={{.publicKey}} contractId=app.testnet methodNames="[\"vote\"]"`,
}

type addKeyParams struct {
	NetworkID   string `param:"networkId" validate:"required,near_network"`
	PrivateKey  string `param:"privateKey"`
	SignerID    string `param:"signerId" validate:"required,near_account"`
	PublicKey   string `param:"publicKey" validate:"required"`
	ContractID  string `param:"contractId" validate:"omitempty,near_account"`
	MethodNames any    `param:"methodNames"`
	Amount      string `param:"amount" validate:"omitempty,numeric"`
}

func NewAddKeyNode(cfg NodeConfig) (Node, error) {
	connector := cfg.connector()
	return newNearNode(cfg, addKeyDefinition, func(ctx context.Context, p *addKeyParams) (map[string]any, error) {
		account, err := signerAccount(ctx, cfg, connector, p.NetworkID, p.SignerID, p.PrivateKey)
		if err != nil {
			return nil, err
		}
		methodNames, err := methodNameList(p.MethodNames)
		if err != nil {
			return nil, err
		}
		var allowance *big.Int
		if p.Amount != "" {
			if allowance, err = near.ParseYocto(p.Amount); err != nil {
				return nil, err
			}
		}
		outcome, err := account.AddKey(ctx, p.PublicKey, p.ContractID, methodNames, allowance)
		if err != nil {
			return nil, err
		}
		result, err := utils.ToJSONMap(outcome)
		if err != nil {
			return nil, err
		}
		return map[string]any{"result": result}, nil
	})
}

// methodNameList reads the decoded methodNames parameter. null, "" and []
// allow any method; a single name is a one-element list.
func methodNameList(v any) ([]string, error) {
	switch names := v.(type) {
	case nil:
		return nil, nil
	case string:
		if names == "" {
			return nil, nil
		}
		return []string{names}, nil
	case []any:
		out := make([]string, 0, len(names))
		for _, name := range names {
			s, ok := name.(string)
			if !ok {
				return nil, fmt.Errorf("method names must be strings, got %v", name)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("method names must be a JSON list or string, got %T", v)
}

func init() {
	def := addKeyDefinition
	def.Factory = NewAddKeyNode
	RegisterNode(def)
}
