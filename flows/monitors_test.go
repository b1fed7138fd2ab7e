package flows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/nodes"
)

func retryingFlow(monitor FlowMonitor) *Flow {
	attempts := 0
	unstable := nodes.WrapNodeWithAttributes(next("unstable", func(map[string]any) error {
		attempts++
		if attempts == 1 {
			return errors.New("timeout")
		}
		return nil
	}), nodes.NodeAttributes{RetryAttempts: 1})

	return NewFlowBuilder(unstable).
		Then(nodes.NewSetNode("final", "done", true)).
		WithMonitor(monitor).
		Build()
}

func TestMetricsMonitor(t *testing.T) {
	reg := prometheus.NewRegistry()
	monitor := NewMetricsMonitor(reg)

	require.NoError(t, retryingFlow(monitor).Run(context.Background(), map[string]any{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.nodeRuns.WithLabelValues("unstable", "next")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.nodeRuns.WithLabelValues("final", "next")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.nodeRetries.WithLabelValues("unstable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.flowRuns.WithLabelValues("success")))
	assert.Equal(t, 2, testutil.CollectAndCount(monitor.nodeDuration))
	assert.Empty(t, monitor.starts)

	failing := NewFlowBuilder(next("broken", func(map[string]any) error {
		return errors.New("broken")
	})).WithMonitor(monitor).Build()
	require.Error(t, failing.Run(context.Background(), map[string]any{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.nodeErrors.WithLabelValues("broken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.flowRuns.WithLabelValues("error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "nearflow_node_runs_total")
	assert.Contains(t, names, "nearflow_node_duration_seconds")
}

func TestLogMonitor(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	require.NoError(t, retryingFlow(NewLogMonitor(log)).Run(context.Background(), map[string]any{}))

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 7)

	assert.Equal(t, "flow_start", lines[0]["event"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "flow_monitor", lines[0]["component"])

	assert.Equal(t, "node_retry", lines[2]["event"])
	assert.Equal(t, "warn", lines[2]["level"])
	assert.Equal(t, "timeout", lines[2]["error"])
	assert.Equal(t, float64(1), lines[2]["attempt"])

	assert.Equal(t, "node_end", lines[5]["event"])
	assert.Equal(t, "final", lines[5]["node"])
	assert.Equal(t, float64(1), lines[5]["items"])

	assert.Equal(t, "flow_complete", lines[6]["event"])
	assert.Equal(t, lines[0]["run"], lines[6]["run"])
}

func TestEventRecorder_Clear(t *testing.T) {
	recorder := NewEventRecorder()
	recorder.Notify(context.Background(), FlowEvent{Type: FlowEventTypeFlowStart})
	require.Len(t, recorder.Events(), 1)

	recorder.Clear()
	assert.Empty(t, recorder.Events())
}

func TestFlowEvent_JSON(t *testing.T) {
	recorder := NewEventRecorder()
	flow := NewFlowBuilder(next("broken", func(map[string]any) error {
		return errors.New("broken")
	})).WithMonitor(recorder).Build()
	require.Error(t, flow.Run(context.Background(), map[string]any{"secret": "x"}))

	data, err := json.Marshal(recorder.Events()[2])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "node_error", decoded["type"])
	assert.Equal(t, "broken", decoded["error"])
	assert.NotContains(t, decoded, "Shared")
	assert.NotContains(t, decoded, "shared")
}
