package nodes

import (
	"context"

	"nearflow/utils"
)

var deleteKeyDefinition = NodeDefinition{
	ID:          "near_delete_key",
	DisplayName: "Delete Access Key",
	Description: "Removes an access key from the signer account.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		paramNetworkID,
		paramSignerKey,
		{Name: "signerId", DisplayName: "Signer Account ID", Type: ParameterString, Placeholder: "example.near", Required: true},
		{Name: "publicKey", DisplayName: "Public Key to Delete", Type: ParameterString, Placeholder: "ed25519:deadbeef", Required: true},
	},
	Example: `node revoke = near_delete_key networkId=testnet signerId=alice.testnet publicKey={{.publicKey}}`,
}

type deleteKeyParams struct {
	NetworkID  string `param:"networkId" validate:"required,near_network"`
	PrivateKey string `param:"privateKey"`
	SignerID   string `param:"signerId" validate:"required,near_account"`
	PublicKey  string `param:"publicKey" validate:"required"`
}

func NewDeleteKeyNode(cfg NodeConfig) (Node, error) {
	connector := cfg.connector()
	return newNearNode(cfg, deleteKeyDefinition, func(ctx context.Context, p *deleteKeyParams) (map[string]any, error) {
		account, err := signerAccount(ctx, cfg, connector, p.NetworkID, p.SignerID, p.PrivateKey)
		if err != nil {
			return nil, err
		}
		outcome, err := account.DeleteKey(ctx, p.PublicKey)
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

func init() {
	def := deleteKeyDefinition
	def.Factory = NewDeleteKeyNode
	RegisterNode(def)
}
