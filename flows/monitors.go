package flows

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// LogMonitor writes flow events to a zerolog logger.
type LogMonitor struct {
	log zerolog.Logger
}

func NewLogMonitor(log zerolog.Logger) *LogMonitor {
	return &LogMonitor{log: log.With().Str("component", "flow_monitor").Logger()}
}

func (m *LogMonitor) Notify(_ context.Context, event FlowEvent) {
	var entry *zerolog.Event
	switch event.Type {
	case FlowEventTypeNodeError:
		entry = m.log.Error().Err(event.Err)
	case FlowEventTypeNodeRetry:
		entry = m.log.Warn().Err(event.Err)
	case FlowEventTypeFlowComplete:
		if event.Err != nil {
			entry = m.log.Error().Err(event.Err)
		} else {
			entry = m.log.Info()
		}
	case FlowEventTypeFlowStart:
		entry = m.log.Info()
	default:
		entry = m.log.Debug()
	}

	entry = entry.Str("run", event.RunID).Str("event", string(event.Type))
	if event.Node != "" {
		entry = entry.Str("node", event.Node)
	}
	if event.Action != "" {
		entry = entry.Str("action", event.Action)
	}
	if event.Attempt > 0 {
		entry = entry.Int("attempt", event.Attempt)
	}
	if len(event.Signals) > 0 {
		entry = entry.Strs("signals", event.Signals)
	}
	if count, ok := event.Result.Items(); ok {
		entry = entry.Int("items", count)
	}
	entry.Msg("flow event")
}

const metricsNamespace = "nearflow"

// MetricsMonitor exports node and flow counters to prometheus.
type MetricsMonitor struct {
	flowRuns     *prometheus.CounterVec
	nodeRuns     *prometheus.CounterVec
	nodeErrors   *prometheus.CounterVec
	nodeRetries  *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec

	mu     sync.Mutex
	starts map[string]time.Time
}

// NewMetricsMonitor registers the flow metrics with reg. A nil reg uses the
// default registerer.
func NewMetricsMonitor(reg prometheus.Registerer) *MetricsMonitor {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	flowRunsOpts := prometheus.CounterOpts{
		Name:      "flow_runs_total",
		Namespace: metricsNamespace,
		Help:      "number of completed flow runs by status",
	}
	nodeRunsOpts := prometheus.CounterOpts{
		Name:      "node_runs_total",
		Namespace: metricsNamespace,
		Help:      "number of successful node runs by action",
	}
	nodeErrorsOpts := prometheus.CounterOpts{
		Name:      "node_errors_total",
		Namespace: metricsNamespace,
		Help:      "number of failed node runs",
	}
	nodeRetriesOpts := prometheus.CounterOpts{
		Name:      "node_retries_total",
		Namespace: metricsNamespace,
		Help:      "number of node retries",
	}
	nodeDurationOpts := prometheus.HistogramOpts{
		Name:      "node_duration_seconds",
		Namespace: metricsNamespace,
		Help:      "duration of node runs including retries",
		Buckets:   prometheus.DefBuckets,
	}

	return &MetricsMonitor{
		flowRuns:     factory.NewCounterVec(flowRunsOpts, []string{"status"}),
		nodeRuns:     factory.NewCounterVec(nodeRunsOpts, []string{"node", "action"}),
		nodeErrors:   factory.NewCounterVec(nodeErrorsOpts, []string{"node"}),
		nodeRetries:  factory.NewCounterVec(nodeRetriesOpts, []string{"node"}),
		nodeDuration: factory.NewHistogramVec(nodeDurationOpts, []string{"node"}),
		starts:       make(map[string]time.Time),
	}
}

func (m *MetricsMonitor) Notify(_ context.Context, event FlowEvent) {
	key := event.RunID + "/" + event.Node
	switch event.Type {
	case FlowEventTypeNodeStart:
		m.mu.Lock()
		m.starts[key] = event.Timestamp
		m.mu.Unlock()
	case FlowEventTypeNodeEnd:
		m.nodeRuns.WithLabelValues(event.Node, event.Action).Inc()
		m.observe(key, event)
	case FlowEventTypeNodeError:
		m.nodeErrors.WithLabelValues(event.Node).Inc()
		m.observe(key, event)
	case FlowEventTypeNodeRetry:
		m.nodeRetries.WithLabelValues(event.Node).Inc()
	case FlowEventTypeFlowComplete:
		status := "success"
		if event.Err != nil {
			status = "error"
		}
		m.flowRuns.WithLabelValues(status).Inc()
	}
}

func (m *MetricsMonitor) observe(key string, event FlowEvent) {
	m.mu.Lock()
	start, ok := m.starts[key]
	delete(m.starts, key)
	m.mu.Unlock()
	if ok {
		m.nodeDuration.WithLabelValues(event.Node).Observe(event.Timestamp.Sub(start).Seconds())
	}
}

// EventRecorder keeps every event it is notified of.
type EventRecorder struct {
	mu     sync.Mutex
	events []FlowEvent
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Notify(_ context.Context, event FlowEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []FlowEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FlowEvent(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *EventRecorder) Types() []FlowEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]FlowEventType, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.Type)
	}
	return types
}

func (r *EventRecorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
