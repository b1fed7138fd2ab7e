package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMNode_Mock(t *testing.T) {
	cfg := DefaultLLMNodeConfig("Summarize")
	cfg.Name = "explain"
	cfg.InputKey = "formatted"
	cfg.OutputKey = "summary"
	node := NewLLMNode(nil, cfg)
	assert.Equal(t, "explain", node.Name())

	shared := sharedWith(
		map[string]any{"formatted": "4.99"},
		map[string]any{"formatted": map[string]any{"total": "5"}},
	)
	_, err := node.Run(context.Background(), shared)
	require.NoError(t, err)

	items := itemsOf(t, shared)
	assert.Equal(t, "mock response for 4.99", items[0].JSON["summary"])
	assert.Equal(t, `mock response for {"total":"5"}`, items[1].JSON["summary"])
}
