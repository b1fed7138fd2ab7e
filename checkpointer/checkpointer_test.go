package checkpointer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/kv"
)

func testCheckpointer(t *testing.T, cp Checkpointer) {
	t.Helper()
	ctx := context.Background()

	_, err := cp.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNoCheckpoint)

	saved := &Checkpoint{
		ThreadID:    "run-1",
		CurrentNode: "transfer",
		StepCount:   2,
		Timestamp:   time.Now().UTC().Truncate(time.Millisecond),
		History:     []string{"keys", "transfer"},
		Shared: map[string]any{
			"items": []any{map[string]any{"json": map[string]any{"accountId": "alice.testnet"}}},
		},
	}
	require.NoError(t, cp.Save(ctx, saved))
	require.NoError(t, cp.Save(ctx, &Checkpoint{ThreadID: "run-0"}))

	loaded, err := cp.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "transfer", loaded.CurrentNode)
	assert.Equal(t, 2, loaded.StepCount)
	assert.Equal(t, []string{"keys", "transfer"}, loaded.History)
	assert.True(t, saved.Timestamp.Equal(loaded.Timestamp))

	items, ok := loaded.Shared["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	threads, err := cp.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-0", "run-1"}, threads)

	require.NoError(t, cp.Delete(ctx, "run-1"))
	_, err = cp.Load(ctx, "run-1")
	require.ErrorIs(t, err, ErrNoCheckpoint)
}

func TestMemoryCheckpointer(t *testing.T) {
	testCheckpointer(t, NewMemoryCheckpointer())
}

func TestKVCheckpointer(t *testing.T) {
	testCheckpointer(t, NewKVCheckpointer(kv.NewInMemoryKVStore()))
}
