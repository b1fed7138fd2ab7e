package nodes

import (
	"context"
	"fmt"
	"strconv"

	"nearflow"
)

// LoopNode answers continue until it has run maxIterations times in a run,
// then next. Connect its continue action back to the node to repeat, such as
// a view call polled behind a delay.
type LoopNode struct {
	name          string
	maxIterations int
}

func NewLoopNode(name string, maxIterations int) *LoopNode {
	return &LoopNode{name: name, maxIterations: maxIterations}
}

func (l *LoopNode) Name() string {
	return l.name
}

// The counter lives in shared state so it is reset per run and survives
// checkpoints.
func (l *LoopNode) counterKey() string {
	return "loop:" + l.name
}

func (l *LoopNode) Run(_ context.Context, shared map[string]any) (nearflow.NodeResult, error) {
	count := 0
	switch v := shared[l.counterKey()].(type) {
	case int:
		count = v
	case float64:
		count = int(v)
	}
	count++
	if count >= l.maxIterations {
		delete(shared, l.counterKey())
		return nearflow.ResultWithAction(nearflow.ActionNext), nil
	}
	shared[l.counterKey()] = count
	return nearflow.ResultWithAction(nearflow.ActionContinue), nil
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "loop",
		DisplayName: "Loop",
		Description: "Answers continue until it ran the given number of times, then next.",
		Group:       "core",
		Parameters: []ParameterDefinition{
			{Name: "times", DisplayName: "Iterations", Type: ParameterNumber, Required: true, Placeholder: "3"},
		},
		Example: `node again = loop times=3`,
		Factory: func(cfg NodeConfig) (Node, error) {
			times, err := strconv.Atoi(cfg.Params["times"])
			if err != nil || times < 1 {
				return nil, fmt.Errorf("node %s: times must be a positive integer", cfg.ID)
			}
			return NewLoopNode(cfg.ID, times), nil
		},
	})
}
