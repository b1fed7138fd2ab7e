package nearflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemsFromDecodesGenericItems(t *testing.T) {
	shared := map[string]any{
		ItemsKey: []any{
			map[string]any{"json": map[string]any{"accountId": "alice.near"}},
			map[string]any{
				"json":       map[string]any{},
				"error":      map[string]any{"node": "transfer", "itemIndex": float64(1), "message": "boom"},
				"pairedItem": map[string]any{"item": float64(1)},
			},
		},
	}

	items, err := ItemsFrom(shared)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "alice.near", items[0].JSON["accountId"])
	assert.False(t, items[0].Failed())
	require.True(t, items[1].Failed())
	assert.Equal(t, "transfer", items[1].Error.Node)
	assert.Equal(t, 1, items[1].PairedItem.Item)
}

func TestEnsureItemsSeedsEmptyItem(t *testing.T) {
	shared := make(map[string]any)
	items, err := EnsureItems(shared)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.NotNil(t, items[0].JSON)

	stored, err := ItemsFrom(shared)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCloneJSONIsDeep(t *testing.T) {
	src := map[string]any{
		"nested": map[string]any{"value": "a"},
		"list":   []any{map[string]any{"value": "b"}},
	}
	dst := CloneJSON(src)
	dst["nested"].(map[string]any)["value"] = "changed"
	dst["list"].([]any)[0].(map[string]any)["value"] = "changed"

	assert.Equal(t, "a", src["nested"].(map[string]any)["value"])
	assert.Equal(t, "b", src["list"].([]any)[0].(map[string]any)["value"])
}

func TestWrapItemError(t *testing.T) {
	cause := errors.New("rpc unavailable")

	wrapped := WrapItemError("balance", 2, cause)
	var opErr *NodeOperationError
	require.ErrorAs(t, wrapped, &opErr)
	assert.Equal(t, 2, opErr.ItemIndex)
	assert.Equal(t, "balance", opErr.Node)
	assert.ErrorIs(t, wrapped, cause)

	rewrapped := WrapItemError("other", 5, wrapped)
	assert.Same(t, wrapped, rewrapped)
	assert.Equal(t, 5, opErr.ItemIndex)
	assert.Equal(t, "balance", opErr.Node)

	assert.NoError(t, WrapItemError("x", 0, nil))
}

func TestActionFromResult(t *testing.T) {
	assert.Equal(t, ActionNext, ActionFromResult(nil))
	assert.Equal(t, ActionEnd, ActionFromResult(ResultWithAction(ActionEnd)))
	count, ok := ResultWithItems(ActionNext, 3).Items()
	assert.True(t, ok)
	assert.Equal(t, 3, count)
	assert.Equal(t, []string{"a", "b"}, SignalsFromResult(NodeResult{"signals": []any{"a", "b", 1}}))
	assert.Equal(t, []string{"done"}, SignalsFromResult(NodeResult{"signal": "done"}))
}
