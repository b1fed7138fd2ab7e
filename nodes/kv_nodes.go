package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"nearflow/kv"
)

// NewKVReadNode loads a JSON value from store into the outputKey field of
// every item. key is an item template such as `keys/{{.accountId}}`.
func NewKVReadNode(id string, store kv.KVStore, key, outputKey string, continueOnFail bool, log zerolog.Logger) (*ItemNode, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store not configured for node %s", id)
	}
	tmpl, err := compileTemplate(id, key)
	if err != nil {
		return nil, fmt.Errorf("node %s: invalid key: %w", id, err)
	}
	op := func(_ context.Context, _ int, item map[string]any) (map[string]any, error) {
		storeKey, err := render(tmpl, item)
		if err != nil {
			return nil, err
		}
		data, err := store.Get(storeKey)
		if err != nil {
			return nil, fmt.Errorf("could not read %q: %w", storeKey, err)
		}
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			value = string(data)
		}
		return map[string]any{outputKey: value}, nil
	}
	return NewItemNode(id, op, continueOnFail, log), nil
}

// NewKVWriteNode persists the inputKey field of every item as JSON. An empty
// inputKey stores the whole item.
func NewKVWriteNode(id string, store kv.KVStore, key, inputKey string, continueOnFail bool, log zerolog.Logger) (*ItemNode, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store not configured for node %s", id)
	}
	tmpl, err := compileTemplate(id, key)
	if err != nil {
		return nil, fmt.Errorf("node %s: invalid key: %w", id, err)
	}
	op := func(_ context.Context, _ int, item map[string]any) (map[string]any, error) {
		storeKey, err := render(tmpl, item)
		if err != nil {
			return nil, err
		}
		var value any = item
		if inputKey != "" {
			v, ok := item[inputKey]
			if !ok {
				return nil, fmt.Errorf("input key %s missing", inputKey)
			}
			value = v
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := store.Put(storeKey, data); err != nil {
			return nil, fmt.Errorf("could not write %q: %w", storeKey, err)
		}
		return nil, nil
	}
	return NewItemNode(id, op, continueOnFail, log), nil
}

func init() {
	RegisterNode(NodeDefinition{
		ID:          "kv_read",
		DisplayName: "KV Read",
		Description: "Loads a JSON value from the configured store into every item.",
		Group:       "storage",
		Example:     `node load = kv_read "keys/{{.accountId}}" stored`,
	})
	RegisterNode(NodeDefinition{
		ID:          "kv_write",
		DisplayName: "KV Write",
		Description: "Persists an item field as JSON under a per-item key.",
		Group:       "storage",
		Example:     `node persist = kv_write "keys/{{.publicKey}}" privateKey`,
	})
}
