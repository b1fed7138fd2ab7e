package nodes

import (
	"context"

	"nearflow/near"
	"nearflow/utils"
)

var transferDefinition = NodeDefinition{
	ID:          "near_transfer",
	DisplayName: "Transfer",
	Description: "Sends yoctoNEAR from the sender account to a recipient.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		paramNetworkID,
		paramSignerKey,
		{Name: "senderId", DisplayName: "Sender Account ID", Type: ParameterString, Placeholder: "sender.near", Required: true},
		{Name: "recipientId", DisplayName: "Recipient Account ID", Type: ParameterString, Placeholder: "recipient.near", Required: true},
		{Name: "amount", DisplayName: "Amount", Type: ParameterString, Placeholder: "1000000000000000000000000",
			Description: "Amount in yoctoNEAR", Required: true},
	},
	Example: `node pay = near_transfer networkId=testnet privateKey={{.privateKey}} senderId=alice.testnet recipientId={{.to}} amount={{.amount}}`,
}

type transferParams struct {
	NetworkID   string `param:"networkId" validate:"required,near_network"`
	PrivateKey  string `param:"privateKey"`
	SenderID    string `param:"senderId" validate:"required,near_account"`
	RecipientID string `param:"recipientId" validate:"required,near_account"`
	Amount      string `param:"amount" validate:"required,numeric"`
}

func NewTransferNode(cfg NodeConfig) (Node, error) {
	connector := cfg.connector()
	return newNearNode(cfg, transferDefinition, func(ctx context.Context, p *transferParams) (map[string]any, error) {
		amount, err := near.ParseYocto(p.Amount)
		if err != nil {
			return nil, err
		}
		account, err := signerAccount(ctx, cfg, connector, p.NetworkID, p.SenderID, p.PrivateKey)
		if err != nil {
			return nil, err
		}
		outcome, err := account.SendMoney(ctx, p.RecipientID, amount)
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
	def := transferDefinition
	def.Factory = NewTransferNode
	RegisterNode(def)
}
