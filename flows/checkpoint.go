package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nearflow"
	"nearflow/checkpointer"
	"nearflow/utils"
)

// ThreadID returns the checkpoint thread of the flow, if any.
func (f *Flow) ThreadID() string {
	return f.threadID
}

// restoreFromCheckpoint resumes state from the saved checkpoint of the thread.
// Shared state from the checkpoint replaces the keys of the caller's map.
func (f *Flow) restoreFromCheckpoint(ctx context.Context, state *runState) error {
	if f.checkpointer == nil || f.threadID == "" {
		return nil
	}

	cp, err := f.checkpointer.Load(ctx, f.threadID)
	if errors.Is(err, checkpointer.ErrNoCheckpoint) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not load checkpoint: %w", err)
	}

	node := f.GetNodeByName(cp.CurrentNode)
	if node == nil {
		return fmt.Errorf("checkpoint of thread %s points at unknown node %q", f.threadID, cp.CurrentNode)
	}

	for k, v := range cp.Shared {
		state.shared[k] = v
	}
	items, err := nearflow.ItemsFrom(state.shared)
	if err != nil {
		return fmt.Errorf("could not restore items: %w", err)
	}
	if items != nil {
		nearflow.SetItems(state.shared, items)
	}

	state.current = node
	state.steps = cp.StepCount
	state.history = append([]string(nil), cp.History...)

	f.log.Info().
		Str("thread", f.threadID).
		Str("node", cp.CurrentNode).
		Int("steps", cp.StepCount).
		Msg("resuming flow from checkpoint")
	return nil
}

// saveCheckpoint records the node to run next together with the shared state.
func (f *Flow) saveCheckpoint(ctx context.Context, state *runState) {
	if f.checkpointer == nil || f.threadID == "" || state.current == nil {
		return
	}

	shared, err := utils.ToJSONMap(state.shared)
	if err != nil {
		f.log.Warn().Err(err).Str("thread", f.threadID).Msg("could not encode shared state for checkpoint")
		return
	}

	cp := &checkpointer.Checkpoint{
		ThreadID:    f.threadID,
		CurrentNode: state.current.Name(),
		Shared:      shared,
		StepCount:   state.steps,
		Timestamp:   time.Now().UTC(),
		History:     append([]string(nil), state.history...),
	}
	// A cancelled run still records where it stopped.
	if err := f.checkpointer.Save(context.WithoutCancel(ctx), cp); err != nil {
		f.log.Warn().Err(err).Str("thread", f.threadID).Msg("could not save checkpoint")
	}
}

func (f *Flow) clearCheckpoint(ctx context.Context) {
	if f.checkpointer == nil || f.threadID == "" {
		return
	}
	if err := f.checkpointer.Delete(ctx, f.threadID); err != nil {
		f.log.Warn().Err(err).Str("thread", f.threadID).Msg("could not delete checkpoint")
	}
}
