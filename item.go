package nearflow

import (
	"encoding/json"
	"fmt"
)

// PairedItem points an output item back at the input item it came from.
type PairedItem struct {
	Item int `json:"item"`
}

// Item is one unit of pass-through data. Nodes augment JSON in place; failed
// items carry the error that stopped them when the node continues on failure.
type Item struct {
	JSON       map[string]any      `json:"json"`
	Error      *NodeOperationError `json:"error,omitempty"`
	PairedItem *PairedItem         `json:"pairedItem,omitempty"`
}

// NewItem wraps a JSON payload. A nil payload becomes an empty object.
func NewItem(payload map[string]any) Item {
	if payload == nil {
		payload = make(map[string]any)
	}
	return Item{JSON: payload}
}

// Failed reports whether the item is an error item.
func (i Item) Failed() bool {
	return i.Error != nil
}

// Clone returns a deep copy of the item payload.
func (i Item) Clone() Item {
	out := Item{JSON: CloneJSON(i.JSON)}
	if i.Error != nil {
		errCopy := *i.Error
		out.Error = &errCopy
	}
	if i.PairedItem != nil {
		paired := *i.PairedItem
		out.PairedItem = &paired
	}
	return out
}

// ItemsFrom returns the items stored in shared state. Items restored from a
// checkpoint arrive in generic form and are decoded again.
func ItemsFrom(shared map[string]any) ([]Item, error) {
	raw, ok := shared[ItemsKey]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case []Item:
		return v, nil
	case []map[string]any:
		items := make([]Item, 0, len(v))
		for _, payload := range v {
			items = append(items, NewItem(payload))
		}
		return items, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("could not encode items: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("could not decode items: %w", err)
	}
	for idx := range items {
		if items[idx].JSON == nil {
			items[idx].JSON = make(map[string]any)
		}
	}
	return items, nil
}

// SetItems stores items in shared state.
func SetItems(shared map[string]any, items []Item) {
	shared[ItemsKey] = items
}

// EnsureItems seeds shared state with a single empty item when it holds none,
// the way a manual trigger starts a workflow.
func EnsureItems(shared map[string]any) ([]Item, error) {
	items, err := ItemsFrom(shared)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		items = []Item{NewItem(nil)}
	}
	SetItems(shared, items)
	return items, nil
}

// CloneJSON deep copies a JSON-like value tree. Values that are not maps or
// slices are shared.
func CloneJSON(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneJSON(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}
