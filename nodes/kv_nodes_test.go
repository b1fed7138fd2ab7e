package nodes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/kv"
)

func TestKVNodes_RoundTrip(t *testing.T) {
	store := kv.NewInMemoryKVStore()
	write, err := NewKVWriteNode("persist", store, "keys/{{.accountId}}", "privateKey", false, zerolog.Nop())
	require.NoError(t, err)
	read, err := NewKVReadNode("load", store, "keys/{{.accountId}}", "stored", false, zerolog.Nop())
	require.NoError(t, err)

	shared := sharedWith(
		map[string]any{"accountId": "alice.near", "privateKey": "ed25519:a"},
		map[string]any{"accountId": "bob.near", "privateKey": "ed25519:b"},
	)
	_, err = write.Run(context.Background(), shared)
	require.NoError(t, err)

	keys, err := store.List("keys/")
	require.NoError(t, err)
	assert.Equal(t, []string{"keys/alice.near", "keys/bob.near"}, keys)

	_, err = read.Run(context.Background(), shared)
	require.NoError(t, err)
	items := itemsOf(t, shared)
	assert.Equal(t, "ed25519:a", items[0].JSON["stored"])
	assert.Equal(t, "ed25519:b", items[1].JSON["stored"])
}

func TestKVWriteNode_WholeItem(t *testing.T) {
	store := kv.NewInMemoryKVStore()
	write, err := NewKVWriteNode("persist", store, "item", "", false, zerolog.Nop())
	require.NoError(t, err)

	_, err = write.Run(context.Background(), sharedWith(map[string]any{"a": "b"}))
	require.NoError(t, err)
	data, err := store.Get("item")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"b"}`, string(data))
}

func TestKVReadNode_Missing(t *testing.T) {
	store := kv.NewInMemoryKVStore()
	read, err := NewKVReadNode("load", store, "missing", "stored", true, zerolog.Nop())
	require.NoError(t, err)

	shared := sharedWith(map[string]any{})
	_, err = read.Run(context.Background(), shared)
	require.NoError(t, err)
	items := itemsOf(t, shared)
	require.Len(t, items, 2)
	require.NotNil(t, items[1].Error)
	assert.Contains(t, items[1].Error.Message, "not found")

	_, err = NewKVReadNode("load", nil, "k", "v", false, zerolog.Nop())
	assert.Error(t, err)
}
