package nodes

import (
	"context"

	"nearflow"
)

// FunctionNode wraps a callback to satisfy the Node contract.
type FunctionNode struct {
	id string
	fn func(context.Context, map[string]any) (nearflow.NodeResult, error)
}

// NewFunctionNode accepts a callback that returns full NodeResult payloads.
func NewFunctionNode(id string, fn func(context.Context, map[string]any) (nearflow.NodeResult, error)) *FunctionNode {
	return &FunctionNode{id: id, fn: fn}
}

// NewSetNode sets field to value on the JSON of every item.
func NewSetNode(id, field string, value any) *FunctionNode {
	return NewFunctionNode(id, func(_ context.Context, shared map[string]any) (nearflow.NodeResult, error) {
		items, err := nearflow.EnsureItems(shared)
		if err != nil {
			return nil, err
		}
		for idx := range items {
			if items[idx].JSON == nil {
				items[idx].JSON = make(map[string]any)
			}
			items[idx].JSON[field] = value
		}
		nearflow.SetItems(shared, items)
		return nearflow.ResultWithItems(nearflow.ActionNext, len(items)), nil
	})
}

func (n *FunctionNode) Name() string {
	return n.id
}

func (n *FunctionNode) Run(ctx context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	if n.fn == nil {
		return nearflow.ResultWithAction(nearflow.ActionNext), nil
	}
	return n.fn(ctx, shared)
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "function",
		DisplayName: "Function",
		Description: "Wraps a Go callback so you can inline custom logic inside a flow.",
		Group:       "core",
		Example:     `nodes.NewFunctionNode("clean", func(ctx context.Context, shared map[string]any) (nearflow.NodeResult, error) { return nearflow.ResultWithAction(nearflow.ActionNext), nil })`,
	})
	RegisterNode(NodeDefinition{
		ID:          "set",
		DisplayName: "Set Field",
		Description: "Sets a field to a fixed value on every item.",
		Group:       "core",
		Parameters: []ParameterDefinition{
			{Name: "key", DisplayName: "Field", Type: ParameterString, Required: true},
			{Name: "value", DisplayName: "Value", Type: ParameterString, Required: true},
		},
		Example: `node target = set key=accountId value=alice.testnet`,
	})
}
