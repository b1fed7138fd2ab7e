package nearflow

import "context"

// Node is one step of a flow. It reads and updates the shared state of the
// run, most often the items stored under ItemsKey, and answers with the
// action that selects the next step.
type Node interface {
	Name() string
	Run(ctx context.Context, shared map[string]any) (NodeResult, error)
}

// Actions understood by the flow engine. Any other string is a route name
// that a flow maps with Connect.
const (
	ActionNext     = "next"
	ActionEnd      = "end"
	ActionContinue = "continue"
	ActionRetry    = "retry"
	ActionTimeout  = "timeout"
	ActionPause    = "pause_for_human"
)

// ItemsKey is the shared state key holding the items passed between nodes.
const ItemsKey = "items"
