package nodes

import (
	"context"

	"nearflow/near"
	"nearflow/utils"
)

var getAccountBalanceDefinition = NodeDefinition{
	ID:          "near_get_account_balance",
	DisplayName: "Get Account Balance",
	Description: "Reads the balance of an account, raw in yoctoNEAR and formatted in NEAR.",
	Group:       groupNEAR,
	Parameters: []ParameterDefinition{
		paramNetworkID,
		{Name: "accountId", DisplayName: "Account ID", Type: ParameterString, Placeholder: "example.near"},
		{Name: "fracDigits", DisplayName: "Fraction Digits", Type: ParameterNumber, Default: "4",
			Description: "Number of decimals kept in the formatted balance"},
	},
	Example: `node balance = near_get_account_balance networkId=testnet accountId={{.accountId}} fracDigits=2`,
}

type getAccountBalanceParams struct {
	NetworkID  string `param:"networkId" validate:"required,near_network"`
	AccountID  string `param:"accountId" validate:"required,near_account"`
	FracDigits int    `param:"fracDigits" validate:"min=0,max=24"`
}

func NewGetAccountBalanceNode(cfg NodeConfig) (Node, error) {
	connector := cfg.connector()
	return newNearNode(cfg, getAccountBalanceDefinition, func(ctx context.Context, p *getAccountBalanceParams) (map[string]any, error) {
		conn, err := connector.Connect(p.NetworkID, nil)
		if err != nil {
			return nil, err
		}
		balance, err := conn.Account(p.AccountID).GetAccountBalance(ctx)
		if err != nil {
			return nil, err
		}

		formatted := make(map[string]any, 4)
		for key, amount := range map[string]string{
			"available":   balance.Available,
			"total":       balance.Total,
			"staked":      balance.Staked,
			"stateStaked": balance.StateStaked,
		} {
			value, err := near.FormatNearAmount(amount, p.FracDigits)
			if err != nil {
				return nil, err
			}
			formatted[key] = value
		}

		raw, err := utils.ToJSONMap(balance)
		if err != nil {
			return nil, err
		}
		return map[string]any{"balance": raw, "formatted": formatted}, nil
	})
}

func init() {
	def := getAccountBalanceDefinition
	def.Factory = NewGetAccountBalanceNode
	RegisterNode(def)
}
