package nodes

import (
	"context"

	"nearflow/near"
)

var viewContractDefinition = NodeDefinition{
	ID:          "near_view_contract",
	DisplayName: "View Contract",
	Description: "Calls a read-only contract method.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		paramNetworkID,
		{Name: "accountId", DisplayName: "Contract Account ID", Type: ParameterString, Placeholder: "example.near",
			Description: "NEAR account where the contract is deployed"},
		{Name: "methodName", DisplayName: "Method Name", Type: ParameterString, Placeholder: "get_status"},
		paramMethodArgs,
	},
	Example: `node status = near_view_contract networkId=testnet accountId=app.testnet methodName=get_status methodArgs="{\"account_id\":\"{{.accountId}}\"}"`,
}

type viewContractParams struct {
	NetworkID  string `param:"networkId" validate:"required,near_network"`
	AccountID  string `param:"accountId" validate:"required,near_account"`
	MethodName string `param:"methodName" validate:"required"`
	MethodArgs any    `param:"methodArgs"`
}

func NewViewContractNode(cfg NodeConfig) (Node, error) {
	connector := cfg.connector()
	return newNearNode(cfg, viewContractDefinition, func(ctx context.Context, p *viewContractParams) (map[string]any, error) {
		conn, err := connector.Connect(p.NetworkID, nil)
		if err != nil {
			return nil, err
		}
		contract := near.NewContract(conn, p.AccountID, near.ContractOptions{
			ViewMethods: []string{p.MethodName},
		})
		result, err := contract.View(ctx, p.MethodName, p.MethodArgs)
		if err != nil {
			return nil, err
		}
		return map[string]any{"result": result}, nil
	})
}

func init() {
	def := viewContractDefinition
	def.Factory = NewViewContractNode
	RegisterNode(def)
}
