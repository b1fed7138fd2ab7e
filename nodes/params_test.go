package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefinition = NodeDefinition{
	ID: "test",
	Parameters: []ParameterDefinition{
		{Name: "accountId"},
		{Name: "networkId", Default: "mainnet"},
		{Name: "digits", Default: "4"},
		{Name: "args", Default: "{}"},
		{Name: "names"},
		{Name: "flag"},
	},
}

type testParams struct {
	AccountID string   `param:"accountId" validate:"required,near_account"`
	NetworkID string   `param:"networkId" validate:"required,near_network"`
	Digits    int      `param:"digits" validate:"min=0,max=24"`
	Args      any      `param:"args"`
	Names     []string `param:"names"`
	Flag      bool     `param:"flag"`
}

func TestParameters_BindDefaults(t *testing.T) {
	params, err := CompileParameters("n", testDefinition, map[string]string{"accountId": "alice.near"})
	require.NoError(t, err)

	var p testParams
	require.NoError(t, params.Bind(map[string]any{}, &p))
	assert.Equal(t, "alice.near", p.AccountID)
	assert.Equal(t, "mainnet", p.NetworkID)
	assert.Equal(t, 4, p.Digits)
	assert.Equal(t, map[string]any{}, p.Args)
	assert.Nil(t, p.Names)
	assert.False(t, p.Flag)
}

func TestParameters_Templates(t *testing.T) {
	params, err := CompileParameters("n", testDefinition, map[string]string{
		"accountId": "{{.account}}",
		"networkId": `{{default "testnet" (index . "network")}}`,
		"args":      `{"who":{{json .account}}}`,
		"names":     `["get","set"]`,
		"flag":      "true",
	})
	require.NoError(t, err)

	var p testParams
	require.NoError(t, params.Bind(map[string]any{"account": "bob.testnet"}, &p))
	assert.Equal(t, "bob.testnet", p.AccountID)
	assert.Equal(t, "testnet", p.NetworkID)
	assert.Equal(t, map[string]any{"who": "bob.testnet"}, p.Args)
	assert.Equal(t, []string{"get", "set"}, p.Names)
	assert.True(t, p.Flag)
}

func TestParameters_MissingField(t *testing.T) {
	params, err := CompileParameters("n", testDefinition, map[string]string{"accountId": "{{.account}}"})
	require.NoError(t, err)

	var p testParams
	err = params.Bind(map[string]any{}, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accountId")
}

func TestParameters_Validation(t *testing.T) {
	params, err := CompileParameters("n", testDefinition, map[string]string{"accountId": "Not An Account"})
	require.NoError(t, err)

	var p testParams
	err = params.Bind(map[string]any{}, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "accountId" is not a valid account ID`)

	params, err = CompileParameters("n", testDefinition, map[string]string{})
	require.NoError(t, err)
	err = params.Bind(map[string]any{}, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `parameter "accountId" is required`)
}

func TestParameters_Invalid(t *testing.T) {
	_, err := CompileParameters("n", testDefinition, map[string]string{"unknown": "x"})
	assert.Error(t, err)

	_, err = CompileParameters("n", testDefinition, map[string]string{"accountId": "{{.broken"})
	assert.Error(t, err)

	params, err := CompileParameters("n", testDefinition, map[string]string{"accountId": "a.near", "digits": "many"})
	require.NoError(t, err)
	var p testParams
	assert.Error(t, params.Bind(map[string]any{}, &p))
}

func TestParameters_ToYocto(t *testing.T) {
	params, err := CompileParameters("n", testDefinition, map[string]string{"accountId": "{{toYocto .amount}}"})
	require.NoError(t, err)

	for _, tt := range []struct {
		amount any
		want   string
	}{
		{"1.5", "1500000000000000000000000"},
		{float64(2), "2000000000000000000000000"},
		{"0.000000000000000000000001", "1"},
	} {
		value, err := params.Value("accountId", map[string]any{"amount": tt.amount})
		require.NoError(t, err)
		assert.Equal(t, tt.want, value)
	}

	_, err = params.Value("accountId", map[string]any{"amount": "-1"})
	assert.ErrorContains(t, err, "negative")
}
