package nodes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow"
)

func TestSwitchNode(t *testing.T) {
	node, err := NewSwitchNode("route", "{{if .staked}}staked{{else}}idle{{end}}")
	require.NoError(t, err)

	shared := map[string]any{nearflow.ItemsKey: []nearflow.Item{
		{JSON: map[string]any{"staked": true}, Error: nearflow.NewNodeOperationError("prev", 0, errors.New("x"))},
		nearflow.NewItem(map[string]any{"staked": false}),
	}}
	res, err := node.Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, "idle", nearflow.ActionFromResult(res))

	_, err = NewSwitchNode("bad", "{{.x")
	assert.ErrorContains(t, err, "node bad: invalid value")

	missing, err := NewSwitchNode("route", "{{.networkId}}")
	require.NoError(t, err)
	_, err = missing.Run(context.Background(), sharedWith(map[string]any{"a": 1}))
	assert.ErrorContains(t, err, "node route")
}

func TestSwitchNode_Factory(t *testing.T) {
	_, err := BuildNode("switch", NodeConfig{ID: "s", Params: map[string]string{}})
	assert.EqualError(t, err, `node s: parameter "value" is required`)

	_, err = BuildNode("switch", NodeConfig{ID: "s", Params: map[string]string{"value": "x", "other": "y"}})
	assert.EqualError(t, err, `node s: unknown parameter "other"`)
}

func TestLoopNode(t *testing.T) {
	node := NewLoopNode("again", 3)
	shared := map[string]any{}

	var actions []string
	for i := 0; i < 4; i++ {
		res, err := node.Run(context.Background(), shared)
		require.NoError(t, err)
		actions = append(actions, nearflow.ActionFromResult(res))
	}
	assert.Equal(t, []string{"continue", "continue", "next", "continue"}, actions)

	// Counters restored from a checkpoint come back as JSON numbers.
	shared["loop:again"] = float64(2)
	res, err := node.Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, nearflow.ActionNext, nearflow.ActionFromResult(res))

	_, err = BuildNode("loop", NodeConfig{ID: "l", Params: map[string]string{"times": "0"}})
	assert.EqualError(t, err, "node l: times must be a positive integer")
}

func TestParallelNode_MergesBranches(t *testing.T) {
	shared := sharedWith(map[string]any{"name": "a"}, map[string]any{"name": "b"})
	node := NewParallelNode("both", 0,
		NewSetNode("network", "networkId", "testnet"),
		NewItemNode("check", failOn("b"), true, zerolog.Nop()),
	)

	res, err := node.Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, 3, res["items"])

	items := itemsOf(t, shared)
	require.Len(t, items, 3)
	assert.Equal(t, map[string]any{"name": "a", "networkId": "testnet", "seen": true}, items[0].JSON)
	assert.Equal(t, map[string]any{"name": "b", "networkId": "testnet"}, items[1].JSON)
	require.True(t, items[2].Failed())
	assert.Equal(t, "check", items[2].Error.Node)
}

func TestParallelNode_KeepsUpdatesOfEarlierBranches(t *testing.T) {
	shared := sharedWith(map[string]any{"status": "pending", "tags": []any{"a"}})
	node := NewParallelNode("both", 0,
		NewSetNode("fund", "status", "funded"),
		NewSetNode("count", "extra", 1),
	)

	_, err := node.Run(context.Background(), shared)
	require.NoError(t, err)
	items := itemsOf(t, shared)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{"status": "funded", "extra": 1, "tags": []any{"a"}}, items[0].JSON)
}

func TestParallelNode_BranchError(t *testing.T) {
	shared := sharedWith(map[string]any{"name": "a"})
	node := NewParallelNode("both", 1,
		NewItemNode("check", failOn("a"), false, zerolog.Nop()),
		NewFunctionNode("plain", func(context.Context, map[string]any) (nearflow.NodeResult, error) {
			return nil, errors.New("plain failure")
		}),
	)

	_, err := node.Run(context.Background(), shared)
	var opErr *nearflow.NodeOperationError
	require.ErrorAs(t, err, &opErr)
	assert.Contains(t, []string{"check", "both"}, opErr.Node)
	assert.Len(t, node.Branches(), 2)
	assert.NotContains(t, itemsOf(t, shared)[0].JSON, "seen")
}

func TestLLMRouter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"I would Stake."}}]}`))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test")
	cfg.BaseURL = server.URL + "/v1"
	router := NewLLMRouter(openai.NewClientWithConfig(cfg), LLMRouterConfig{
		Name:    "decide",
		Actions: []string{"stake", "hold"},
	})

	res, err := router.Run(context.Background(), sharedWith(map[string]any{"input": "5 NEAR"}))
	require.NoError(t, err)
	assert.Equal(t, "stake", nearflow.ActionFromResult(res))

	offline := NewLLMRouter(nil, LLMRouterConfig{Actions: []string{"stake", "hold"}})
	res, err = offline.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "stake", nearflow.ActionFromResult(res))

	_, err = BuildNode("llm_router", NodeConfig{ID: "r", Params: map[string]string{"actions": " , "}})
	assert.EqualError(t, err, `node r: parameter "actions" is required`)
}
