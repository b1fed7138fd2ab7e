package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	sentinel := errors.New("boom")
	err = WithTimeout(context.Background(), 0, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestWithTimeout_WaitsForFn(t *testing.T) {
	finished := false
	err := WithTimeout(context.Background(), 5*time.Millisecond, func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		finished = true
		return ctx.Err()
	})
	assert.True(t, finished)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestToJSONMap(t *testing.T) {
	type outcome struct {
		Hash   string   `json:"hash"`
		Height uint64   `json:"height"`
		Logs   []string `json:"logs"`
	}
	m, err := ToJSONMap(outcome{Hash: "abc", Height: 7, Logs: []string{"ok"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"hash": "abc", "height": float64(7), "logs": []any{"ok"}}, m)

	_, err = ToJSONMap([]int{1})
	assert.Error(t, err)
}

func TestMergeMaps(t *testing.T) {
	merged := MergeMaps(map[string]any{"a": 1, "b": 1}, map[string]any{"b": 2})
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, merged)
}
