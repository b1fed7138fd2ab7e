package nodes

import (
	"context"
	"fmt"

	"nearflow/near"
)

var generateKeyPairDefinition = NodeDefinition{
	ID:          "near_generate_key_pair",
	DisplayName: "Generate Key Pair",
	Description: "Generates a random ed25519 key pair and adds publicKey and privateKey to every item.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		{Name: "networkId", DisplayName: "Network ID", Type: ParameterString, Default: "mainnet", Placeholder: "mainnet"},
		{Name: "accountId", DisplayName: "Store For Account", Type: ParameterString, Placeholder: "alice.near",
			Description: "Saves the key in the configured store so signing nodes can omit privateKey"},
	},
	Example: `node keys = near_generate_key_pair`,
}

type generateKeyPairParams struct {
	NetworkID string `param:"networkId" validate:"omitempty,near_network"`
	AccountID string `param:"accountId" validate:"omitempty,near_account"`
}

func NewGenerateKeyPairNode(cfg NodeConfig) (Node, error) {
	return newNearNode(cfg, generateKeyPairDefinition, func(ctx context.Context, p *generateKeyPairParams) (map[string]any, error) {
		if p.AccountID != "" && cfg.Store == nil {
			return nil, fmt.Errorf("accountId %s: no store is configured to keep the key", p.AccountID)
		}
		kp, err := near.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		if p.AccountID != "" {
			if err := near.NewKVKeyStore(cfg.Store).SetKey(ctx, p.NetworkID, p.AccountID, kp); err != nil {
				return nil, err
			}
		}
		return map[string]any{
			"publicKey":  kp.PublicKey().String(),
			"privateKey": kp.String(),
		}, nil
	})
}

func init() {
	def := generateKeyPairDefinition
	def.Factory = NewGenerateKeyPairNode
	RegisterNode(def)
}
