package nearflow

// Keys of a NodeResult.
const (
	resultAction  = "action"
	resultSignals = "signals"
	resultSignal  = "signal"
	resultItems   = "items"
)

// NodeResult is what a node reports back to the flow. Only the action is
// required; signals fire listeners and items is the number of items the
// node left in shared state.
type NodeResult map[string]any

// ResultWithAction builds a NodeResult with an explicit action. An empty
// action means next.
func ResultWithAction(action string) NodeResult {
	if action == "" {
		action = ActionNext
	}
	return NodeResult{resultAction: action}
}

// ResultWithItems reports the action together with the number of items the
// node produced.
func ResultWithItems(action string, count int) NodeResult {
	res := ResultWithAction(action)
	res[resultItems] = count
	return res
}

// Action returns the route chosen by the node, next when none was set.
func (r NodeResult) Action() string {
	if action, ok := r[resultAction].(string); ok && action != "" {
		return action
	}
	return ActionNext
}

// Signals accepts a single "signal" string as well as a "signals" list in
// either typed or decoded JSON form.
func (r NodeResult) Signals() []string {
	switch v := r[resultSignals].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		signals := make([]string, 0, len(v))
		for _, raw := range v {
			if s, ok := raw.(string); ok {
				signals = append(signals, s)
			}
		}
		return signals
	}
	if signal, ok := r[resultSignal].(string); ok && signal != "" {
		return []string{signal}
	}
	return nil
}

// Items returns the reported item count and whether one was reported.
func (r NodeResult) Items() (int, bool) {
	count, ok := r[resultItems].(int)
	return count, ok
}

// ActionFromResult is NodeResult.Action for possibly nil results.
func ActionFromResult(res NodeResult) string {
	return res.Action()
}

func SignalsFromResult(res NodeResult) []string {
	return res.Signals()
}
