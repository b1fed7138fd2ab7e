package nodes

import (
	"context"
	"fmt"
	"time"

	"nearflow"
)

// DelayNode pauses the run, typically between RPC-heavy steps so public
// endpoints do not rate limit the flow.
type DelayNode struct {
	id       string
	Duration time.Duration
}

func NewDelayNode(id string, duration time.Duration) *DelayNode {
	return &DelayNode{id: id, Duration: duration}
}

func (dn *DelayNode) Name() string {
	return dn.id
}

func (dn *DelayNode) Run(ctx context.Context, _ map[string]any) (nearflow.NodeResult, error) {
	if dn.Duration <= 0 {
		return nearflow.ResultWithAction(nearflow.ActionNext), nil
	}
	timer := time.NewTimer(dn.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("delay %s interrupted: %w", dn.id, ctx.Err())
	case <-timer.C:
		return nearflow.ResultWithAction(nearflow.ActionNext), nil
	}
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "delay",
		DisplayName: "Delay",
		Description: "Pauses the run for a duration, for example between RPC calls.",
		Group:       "core",
		Parameters: []ParameterDefinition{
			{Name: "duration", DisplayName: "Duration", Type: ParameterString, Required: true, Placeholder: "500ms"},
		},
		Example: `node wait = delay 500ms`,
		Factory: func(cfg NodeConfig) (Node, error) {
			raw, ok := cfg.Params["duration"]
			if !ok {
				return nil, fmt.Errorf("delay node requires a duration argument")
			}
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, err
			}
			if d < 0 {
				return nil, fmt.Errorf("delay node %s: negative duration %s", cfg.ID, raw)
			}
			return NewDelayNode(cfg.ID, d), nil
		},
	})
}
