package flows

import (
	"context"
	"time"
)

type runIDKey struct{}

func withRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the id of the run a node executes in.
func RunIDFromContext(ctx context.Context) string {
	runID, _ := ctx.Value(runIDKey{}).(string)
	return runID
}

// emitEvent emits a flow event to all registered monitors
func (f *Flow) emitEvent(ctx context.Context, event FlowEvent) {
	f.monitorMux.RLock()
	monitors := append([]FlowMonitor(nil), f.monitors...)
	f.monitorMux.RUnlock()

	if len(monitors) == 0 {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = RunIDFromContext(ctx)
	}
	if event.Err != nil && event.Error == "" {
		event.Error = event.Err.Error()
	}

	for _, monitor := range monitors {
		monitor.Notify(ctx, event)
	}
}

// emitSignals starts the listeners of each signal. Listeners see a snapshot of
// shared state and the run waits for them before it completes.
func (f *Flow) emitSignals(ctx context.Context, node Node, signals []string, shared map[string]any) {
	if len(signals) == 0 {
		return
	}

	f.emitEvent(ctx, FlowEvent{
		Type:    FlowEventTypeSignalEmitted,
		Node:    node.Name(),
		Signals: signals,
		Shared:  snapshotShared(shared),
	})

	for _, signal := range signals {
		f.mutex.RLock()
		listeners := append([]Node(nil), f.signalListeners[signal]...)
		f.mutex.RUnlock()

		for _, listener := range listeners {
			f.listeners.Add(1)
			go f.runSignalListener(ctx, signal, listener, snapshotShared(shared))
		}
	}
}

// runSignalListener reports a failing listener as a node_error carrying the
// signal; the run itself is not failed.
func (f *Flow) runSignalListener(ctx context.Context, signal string, node Node, shared map[string]any) {
	defer f.listeners.Done()
	_, attempts, err := f.runNodeWithAttributes(ctx, node, shared)
	if err == nil {
		return
	}
	f.log.Warn().Err(err).Str("node", node.Name()).Str("signal", signal).Msg("signal listener failed")
	f.emitEvent(ctx, FlowEvent{
		Type:    FlowEventTypeNodeError,
		Node:    node.Name(),
		Err:     err,
		Attempt: attempts,
		Signals: []string{signal},
	})
}
