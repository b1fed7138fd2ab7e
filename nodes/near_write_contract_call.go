package nodes

import (
	"context"
	"math/big"

	"nearflow/near"
)

var writeContractCallDefinition = NodeDefinition{
	ID:          "near_write_contract_call",
	DisplayName: "Write Contract Call",
	Description: "Signs and sends a transaction calling a contract change method.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		paramNetworkID,
		paramSignerKey,
		{Name: "accountId", DisplayName: "Signer Account ID", Type: ParameterString, Placeholder: "example.near"},
		{Name: "contractId", DisplayName: "Contract Account ID", Type: ParameterString, Placeholder: "example.near",
			Description: "NEAR account where the contract is deployed"},
		{Name: "methodName", DisplayName: "Method Name", Type: ParameterString, Placeholder: "set_status"},
		paramMethodArgs,
		{Name: "gas", DisplayName: "Gas", Type: ParameterNumber, Placeholder: "30000000000000",
			Description: "Gas attached to the call, 30 TGas when empty"},
		{Name: "attachedDeposit", DisplayName: "Attached Deposit", Type: ParameterString, Placeholder: "0",
			Description: "Deposit in yoctoNEAR attached to the call"},
	},
	Example: `node vote = near_write_contract_call networkId=testnet privateKey={{.privateKey}} accountId=alice.testnet contractId=app.testnet methodName=vote methodArgs="{\"choice\":1}"`,
}

type writeContractCallParams struct {
	NetworkID       string `param:"networkId" validate:"required,near_network"`
	PrivateKey      string `param:"privateKey"`
	AccountID       string `param:"accountId" validate:"required,near_account"`
	ContractID      string `param:"contractId" validate:"required,near_account"`
	MethodName      string `param:"methodName" validate:"required"`
	MethodArgs      any    `param:"methodArgs"`
	Gas             uint64 `param:"gas"`
	AttachedDeposit string `param:"attachedDeposit" validate:"omitempty,numeric"`
}

func NewWriteContractCallNode(cfg NodeConfig) (Node, error) {
	connector := cfg.connector()
	return newNearNode(cfg, writeContractCallDefinition, func(ctx context.Context, p *writeContractCallParams) (map[string]any, error) {
		var deposit *big.Int
		if p.AttachedDeposit != "" {
			var err error
			if deposit, err = near.ParseYocto(p.AttachedDeposit); err != nil {
				return nil, err
			}
		}
		account, err := signerAccount(ctx, cfg, connector, p.NetworkID, p.AccountID, p.PrivateKey)
		if err != nil {
			return nil, err
		}
		contract := near.NewAccountContract(account, p.ContractID, near.ContractOptions{
			ChangeMethods: []string{p.MethodName},
		})
		result, err := contract.Change(ctx, p.MethodName, p.MethodArgs, near.ChangeOptions{
			Gas:     p.Gas,
			Deposit: deposit,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"result": result}, nil
	})
}

func init() {
	def := writeContractCallDefinition
	def.Factory = NewWriteContractCallNode
	RegisterNode(def)
}
