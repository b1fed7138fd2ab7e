package flows

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nearflow"
	"nearflow/checkpointer"
	"nearflow/nodes"
	"nearflow/utils"
)

// FlowEventType enumerates observable lifecycle hooks emitted by a flow.
type FlowEventType string

const (
	FlowEventTypeFlowStart     FlowEventType = "flow_start"
	FlowEventTypeNodeStart     FlowEventType = "node_start"
	FlowEventTypeNodeEnd       FlowEventType = "node_end"
	FlowEventTypeNodeError     FlowEventType = "node_error"
	FlowEventTypeNodeRetry     FlowEventType = "node_retry"
	FlowEventTypeSignalEmitted FlowEventType = "signal_emitted"
	FlowEventTypeFlowComplete  FlowEventType = "flow_complete"
)

// FlowEvent carries metadata that observability hooks can use.
type FlowEvent struct {
	Type      FlowEventType       `json:"type"`
	RunID     string              `json:"runId"`
	Timestamp time.Time           `json:"timestamp"`
	Node      string              `json:"node,omitempty"`
	Action    string              `json:"action,omitempty"`
	Result    nearflow.NodeResult `json:"result,omitempty"`
	Err       error               `json:"-"`
	Error     string              `json:"error,omitempty"`
	Attempt   int                 `json:"attempt,omitempty"`
	Signals   []string            `json:"signals,omitempty"`
	Shared    map[string]any      `json:"-"`
}

// FlowMonitor observes lifecycle events emitted by Flow.Run().
type FlowMonitor interface {
	Notify(ctx context.Context, event FlowEvent)
}

type Node = nearflow.Node

// FlowOption represents configuration options for a flow
type FlowOption struct {
	Checkpointer checkpointer.Checkpointer
	ThreadID     string
	MaxSteps     int
	Timeout      time.Duration
	Monitors     []FlowMonitor
	Logger       *zerolog.Logger
}

// Flow represents a workflow with nodes and transitions
type Flow struct {
	start           Node
	nodes           map[string]Node              // name -> Node
	transitions     map[string]map[string]string // fromNode -> action -> toNodeName
	maxSteps        int
	mutex           sync.RWMutex
	currentNode     Node // Track the current node for Then() method
	signalListeners map[string][]Node
	monitors        []FlowMonitor
	monitorMux      sync.RWMutex
	listeners       sync.WaitGroup

	checkpointer checkpointer.Checkpointer
	threadID     string
	timeout      time.Duration
	log          zerolog.Logger
}

// FlowBuilder provides a fluent interface for building flows
type FlowBuilder struct {
	flow *Flow
}

func NewFlowBuilder(start Node) *FlowBuilder {
	flow := &Flow{
		start:           start,
		nodes:           make(map[string]Node),
		transitions:     make(map[string]map[string]string),
		currentNode:     start,
		signalListeners: make(map[string][]Node),
		log:             zerolog.Nop(),
	}
	flow.nodes[start.Name()] = start

	return &FlowBuilder{
		flow: flow,
	}
}

func NewFlow(start Node) *Flow {
	return NewFlowBuilder(start).Build()
}

func NewFlowWithOptions(start Node, opts FlowOption) *Flow {
	return NewFlowBuilder(start).WithOptions(opts).Build()
}

// Then creates a sequential connection (shortcut for connecting with "next" action)
func (fb *FlowBuilder) Then(next Node) *FlowBuilder {
	fb.flow.Then(next)
	return fb
}

// Connect defines a transition from one node to another based on action
func (fb *FlowBuilder) Connect(from Node, action string, to Node) *FlowBuilder {
	fb.flow.Connect(from, action, to)
	return fb
}

// Listen registers an asynchronous listener that will run when the named signal is emitted.
func (fb *FlowBuilder) Listen(signal string, listener Node) *FlowBuilder {
	fb.flow.Listen(signal, listener)
	return fb
}

// WithMonitor registers an observability hook for the flow.
func (fb *FlowBuilder) WithMonitor(monitor FlowMonitor) *FlowBuilder {
	if monitor == nil {
		return fb
	}
	fb.flow.AddMonitor(monitor)
	return fb
}

// WithMonitors registers multiple observability hooks for the flow.
func (fb *FlowBuilder) WithMonitors(monitors ...FlowMonitor) *FlowBuilder {
	for _, monitor := range monitors {
		fb.WithMonitor(monitor)
	}
	return fb
}

// WithOptions applies flow options
func (fb *FlowBuilder) WithOptions(opts FlowOption) *FlowBuilder {
	if opts.Checkpointer != nil {
		fb.WithCheckpoint(opts.Checkpointer, opts.ThreadID)
	}
	if opts.MaxSteps > 0 {
		fb.WithMaxSteps(opts.MaxSteps)
	}
	if len(opts.Monitors) > 0 {
		fb.WithMonitors(opts.Monitors...)
	}
	if opts.Timeout > 0 {
		fb.WithTimeout(opts.Timeout)
	}
	if opts.Logger != nil {
		fb.WithLogger(*opts.Logger)
	}
	return fb
}

// WithCheckpoint saves progress under threadID after every step and resumes
// from it on the next run.
func (fb *FlowBuilder) WithCheckpoint(cp checkpointer.Checkpointer, threadID string) *FlowBuilder {
	fb.flow.WithCheckpoint(cp, threadID)
	return fb
}

// WithMaxSteps sets the maximum number of steps for the flow
func (fb *FlowBuilder) WithMaxSteps(max int) *FlowBuilder {
	fb.flow.maxSteps = max
	return fb
}

// WithTimeout bounds a whole run.
func (fb *FlowBuilder) WithTimeout(timeout time.Duration) *FlowBuilder {
	fb.flow.timeout = timeout
	return fb
}

// WithLogger sets the logger used for checkpoint failures.
func (fb *FlowBuilder) WithLogger(log zerolog.Logger) *FlowBuilder {
	fb.flow.log = log.With().Str("component", "flow").Logger()
	return fb
}

// Build returns the constructed flow
func (fb *FlowBuilder) Build() *Flow {
	return fb.flow
}

// Add attaches a node to the flow while preserving builder chaining.
func (fb *FlowBuilder) Add(node Node) *FlowBuilder {
	fb.flow.Add(node)
	return fb
}

// Add adds a node to the flow
func (f *Flow) Add(node Node) *Flow {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.nodes[node.Name()] = node
	return f
}

// AddMonitor registers a FlowMonitor for the flow.
func (f *Flow) AddMonitor(monitor FlowMonitor) *Flow {
	if monitor == nil {
		return f
	}
	f.monitorMux.Lock()
	f.monitors = append(f.monitors, monitor)
	f.monitorMux.Unlock()
	return f
}

// Listen registers a node that runs asynchronously when the given signal fires.
func (f *Flow) Listen(signal string, listener Node) *Flow {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.signalListeners[signal] = append(f.signalListeners[signal], listener)
	return f
}

// Connect defines a transition from one node to another based on action
func (f *Flow) Connect(from Node, action string, to Node) *Flow {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	fromName := from.Name()
	if _, ok := f.transitions[fromName]; !ok {
		f.transitions[fromName] = make(map[string]string)
	}

	if to != nil {
		f.transitions[fromName][action] = to.Name()
		f.nodes[to.Name()] = to
	} else {
		f.transitions[fromName][action] = ""
	}

	return f
}

// Then creates a sequential connection (shortcut for connecting with "next" action)
func (f *Flow) Then(next Node) *Flow {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	fromNodeName := f.currentNode.Name()
	if _, ok := f.transitions[fromNodeName]; !ok {
		f.transitions[fromNodeName] = make(map[string]string)
	}

	f.transitions[fromNodeName][nearflow.ActionNext] = next.Name()
	f.nodes[next.Name()] = next
	f.currentNode = next

	return f
}

// WithCheckpoint checkpoints runs of the flow under threadID.
func (f *Flow) WithCheckpoint(cp checkpointer.Checkpointer, threadID string) *Flow {
	f.checkpointer = cp
	f.threadID = threadID
	return f
}

// WithMaxSteps sets the maximum number of steps for the flow
func (f *Flow) WithMaxSteps(max int) *Flow {
	f.maxSteps = max
	return f
}

// RunItems runs the flow over items and returns the items it ends with.
func (f *Flow) RunItems(ctx context.Context, items []nearflow.Item) ([]nearflow.Item, error) {
	shared := make(map[string]any)
	if len(items) > 0 {
		nearflow.SetItems(shared, items)
	}
	runErr := f.Run(ctx, shared)
	out, err := nearflow.ItemsFrom(shared)
	if err != nil && runErr == nil {
		runErr = err
	}
	return out, runErr
}

// Run executes the flow. Shared state is seeded with one empty item when it
// holds none.
func (f *Flow) Run(ctx context.Context, shared map[string]any) (runErr error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	f.mutex.RLock()
	state := &runState{current: f.start, shared: shared}
	f.mutex.RUnlock()

	if err := f.restoreFromCheckpoint(ctx, state); err != nil {
		return err
	}
	if _, err := nearflow.EnsureItems(shared); err != nil {
		return err
	}

	ctx = withRunID(ctx, uuid.NewString())
	lastNodeName := state.current.Name()

	f.emitEvent(ctx, FlowEvent{
		Type:   FlowEventTypeFlowStart,
		Node:   lastNodeName,
		Shared: snapshotShared(shared),
	})

	defer func() {
		f.listeners.Wait()
		if runErr == nil {
			f.clearCheckpoint(ctx)
		}
		f.emitEvent(ctx, FlowEvent{
			Type:   FlowEventTypeFlowComplete,
			Node:   lastNodeName,
			Err:    runErr,
			Shared: snapshotShared(shared),
		})
	}()

	for state.current != nil {
		if f.maxSteps > 0 && state.steps >= f.maxSteps {
			return fmt.Errorf("max steps exceeded: %d", f.maxSteps)
		}

		lastNodeName = state.current.Name()
		next, err := f.executeStep(ctx, state)
		if err != nil {
			return err
		}
		state.current = next
	}

	return nil
}

// runState is the progress of one run.
type runState struct {
	current Node
	shared  map[string]any
	steps   int
	history []string
}

func (f *Flow) executeStep(ctx context.Context, state *runState) (Node, error) {
	current := state.current
	select {
	case <-ctx.Done():
		f.saveCheckpoint(ctx, state)
		return nil, ctx.Err()
	default:
	}

	f.emitEvent(ctx, FlowEvent{
		Type:   FlowEventTypeNodeStart,
		Node:   current.Name(),
		Shared: snapshotShared(state.shared),
	})

	result, attempts, err := f.runNodeWithAttributes(ctx, current, state.shared)
	if err != nil {
		f.saveCheckpoint(ctx, state)
		f.emitEvent(ctx, FlowEvent{
			Type:    FlowEventTypeNodeError,
			Node:    current.Name(),
			Err:     err,
			Attempt: attempts,
			Shared:  snapshotShared(state.shared),
		})
		return nil, err
	}

	action := nearflow.ActionFromResult(result)
	signals := nearflow.SignalsFromResult(result)

	f.emitEvent(ctx, FlowEvent{
		Type:    FlowEventTypeNodeEnd,
		Node:    current.Name(),
		Action:  action,
		Result:  result,
		Attempt: attempts,
		Signals: signals,
		Shared:  snapshotShared(state.shared),
	})

	f.emitSignals(ctx, current, signals, state.shared)

	state.steps++
	state.history = append(state.history, current.Name())

	if action == "" || action == nearflow.ActionEnd {
		return nil, nil
	}

	f.mutex.RLock()
	nextName, ok := f.transitions[current.Name()][action]
	nextNode := f.nodes[nextName]
	f.mutex.RUnlock()

	if !ok || nextName == "" || nextNode == nil {
		return nil, nil
	}

	// Completed steps are not run again on resume.
	state.current = nextNode
	f.saveCheckpoint(ctx, state)
	return nextNode, nil
}

func (f *Flow) runNodeWithAttributes(ctx context.Context, node Node, shared map[string]any) (nearflow.NodeResult, int, error) {
	attrs := nodes.NodeAttributes{}
	if aware, ok := node.(nodes.AttributeAwareNode); ok {
		attrs = aware.Attributes()
	}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = attrs.RetryDelay
	schedule.RandomizationFactor = 0
	schedule.MaxElapsedTime = 0
	schedule.Reset()

	retries := 0
	for {
		attempt := retries + 1
		var result nearflow.NodeResult
		err := utils.WithTimeout(ctx, attrs.Timeout, func(ctx context.Context) error {
			var runErr error
			result, runErr = node.Run(ctx, shared)
			return runErr
		})
		if err == nil {
			return result, attempt, nil
		}

		if retries >= attrs.RetryAttempts || ctx.Err() != nil {
			return nil, attempt, err
		}

		f.emitEvent(ctx, FlowEvent{
			Type:    FlowEventTypeNodeRetry,
			Node:    node.Name(),
			Err:     err,
			Attempt: attempt,
			Shared:  snapshotShared(shared),
		})

		retries++
		if attrs.RetryDelay > 0 {
			timer := time.NewTimer(schedule.NextBackOff())
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, attempt, ctx.Err()
			case <-timer.C:
			}
		}
	}
}

func snapshotShared(shared map[string]any) map[string]any {
	if shared == nil {
		return nil
	}

	copy := make(map[string]any, len(shared))
	for k, v := range shared {
		copy[k] = v
	}

	return copy
}

// GetStartNode returns the start node of the flow
func (f *Flow) GetStartNode() Node {
	return f.start
}

// GetNodeByName returns a node by its name
func (f *Flow) GetNodeByName(name string) Node {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	return f.nodes[name]
}

// GetTransition returns the next node name for a given node and action
func (f *Flow) GetTransition(nodeName, action string) (string, bool) {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	nextName, ok := f.transitions[nodeName][action]
	return nextName, ok
}
