package nodes

import (
	"context"
	"fmt"

	"nearflow/near"
)

const groupNEAR = "near"

var (
	paramNetworkID = ParameterDefinition{
		Name:        "networkId",
		DisplayName: "Network ID",
		Type:        ParameterString,
		Default:     "mainnet",
		Placeholder: "mainnet",
		Required:    true,
	}
	paramPrivateKey = ParameterDefinition{
		Name:        "privateKey",
		DisplayName: "Private Key to Sign",
		Type:        ParameterString,
		Placeholder: "ed25519:deadbeef",
		Required:    true,
	}
	// paramSignerKey is optional: without it the signer's key is loaded from
	// the configured store, where near_generate_key_pair keeps keys it
	// generated for an account.
	paramSignerKey = ParameterDefinition{
		Name:        "privateKey",
		DisplayName: "Private Key to Sign",
		Type:        ParameterString,
		Placeholder: "ed25519:deadbeef",
		Description: "Leave empty to use the key stored for the signer account",
	}
	paramMethodArgs = ParameterDefinition{
		Name:        "methodArgs",
		DisplayName: "Method Arguments as JSON",
		Type:        ParameterJSON,
		Default:     "{}",
		Placeholder: "{}",
		Description: "Named arguments passed to the contract method, wrapped in an object",
	}
)

// newNearNode builds an item node that binds P from the node parameters for
// every item and runs op with it.
func newNearNode[P any](cfg NodeConfig, def NodeDefinition, op func(ctx context.Context, p *P) (map[string]any, error)) (Node, error) {
	params, err := CompileParameters(cfg.ID, def, cfg.Params)
	if err != nil {
		return nil, err
	}
	run := func(ctx context.Context, _ int, item map[string]any) (map[string]any, error) {
		var p P
		if err := params.Bind(item, &p); err != nil {
			return nil, err
		}
		return op(ctx, &p)
	}
	return NewItemNode(cfg.ID, run, cfg.ContinueOnFail, cfg.Logger), nil
}

func (c NodeConfig) connector() *near.Connector {
	if c.Connector != nil {
		return c.Connector
	}
	conf := near.DefaultConnectorConfig()
	conf.Logger = c.Logger
	return near.NewConnector(conf)
}

// signerAccount connects to networkID as accountID. With a private key the
// key store holds only that key; without one the keys persisted in store are
// used.
func signerAccount(ctx context.Context, cfg NodeConfig, connector *near.Connector, networkID, accountID, privateKey string) (*near.Account, error) {
	var ks near.KeyStore
	if privateKey != "" {
		kp, err := near.ParseKeyPair(privateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		memory := near.NewInMemoryKeyStore()
		if err := memory.SetKey(ctx, networkID, accountID, kp); err != nil {
			return nil, err
		}
		ks = memory
	} else {
		if cfg.Store == nil {
			return nil, fmt.Errorf("parameter \"privateKey\" is required when no store is configured")
		}
		stored := near.NewKVKeyStore(cfg.Store)
		if _, err := stored.GetKey(ctx, networkID, accountID); err != nil {
			return nil, err
		}
		ks = stored
	}
	conn, err := connector.Connect(networkID, ks)
	if err != nil {
		return nil, err
	}
	return conn.Account(accountID), nil
}
