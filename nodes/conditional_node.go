package nodes

import (
	"context"
	"fmt"
	"strings"

	"nearflow"
)

// ConditionalNode picks the next action from the items in shared state. An
// empty action continues with next.
type ConditionalNode struct {
	id        string
	condition func(items []nearflow.Item) (string, error)
}

func NewConditionalNode(id string, condition func(items []nearflow.Item) (string, error)) *ConditionalNode {
	return &ConditionalNode{id: id, condition: condition}
}

// NewSwitchNode routes on a template rendered over the first item that has
// not failed, for example `{{if .balance}}funded{{else}}empty{{end}}`.
func NewSwitchNode(id, value string) (*ConditionalNode, error) {
	tmpl, err := compileTemplate(id, value)
	if err != nil {
		return nil, fmt.Errorf("node %s: invalid value: %w", id, err)
	}
	return NewConditionalNode(id, func(items []nearflow.Item) (string, error) {
		for _, item := range items {
			if item.Failed() {
				continue
			}
			action, err := render(tmpl, item.JSON)
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(action), nil
		}
		return "", nil
	}), nil
}

func (cn *ConditionalNode) Name() string {
	return cn.id
}

func (cn *ConditionalNode) Run(_ context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	items, err := nearflow.EnsureItems(shared)
	if err != nil {
		return nil, err
	}
	action, err := cn.condition(items)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", cn.id, err)
	}
	return nearflow.ResultWithAction(action), nil
}

var switchDefinition = NodeDefinition{
	ID:          "switch",
	DisplayName: "Switch",
	Description: "Routes the flow to the action named by a template over the first item.",
	Group:       "core",
	Parameters: []ParameterDefinition{
		{Name: "value", DisplayName: "Action Template", Type: ParameterString, Required: true,
			Placeholder: "{{.networkId}}"},
	},
	Example: `node route = switch value={{.networkId}}`,
}

func init() {
	def := switchDefinition
	def.Factory = func(cfg NodeConfig) (Node, error) {
		value, ok := cfg.Params["value"]
		if !ok || value == "" {
			return nil, fmt.Errorf("node %s: parameter \"value\" is required", cfg.ID)
		}
		for name := range cfg.Params {
			if name != "value" {
				return nil, fmt.Errorf("node %s: unknown parameter %q", cfg.ID, name)
			}
		}
		return NewSwitchNode(cfg.ID, value)
	}
	RegisterNode(def)
}
