// Package api serves the node catalog and runs flows over HTTP.
package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"nearflow"
	"nearflow/checkpointer"
	"nearflow/flows"
	"nearflow/nodes"
)

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Script   string           `json:"script"`
	Items    []map[string]any `json:"items"`
	ThreadID string           `json:"threadId,omitempty"`
}

// RunResponse reports the items a run ended with.
type RunResponse struct {
	RunID string          `json:"runId"`
	Items []nearflow.Item `json:"items"`
	Error string          `json:"error,omitempty"`
}

type Controller struct {
	env         flows.DSLEnv
	checkpoints checkpointer.Checkpointer
	monitors    []flows.FlowMonitor
	recorder    *flows.EventRecorder
	log         zerolog.Logger

	mu    sync.Mutex
	graph *flows.Graph
}

// NewController runs flows with env. Runs that name a thread are checkpointed
// in checkpoints; monitors observe every run.
func NewController(env flows.DSLEnv, checkpoints checkpointer.Checkpointer, log zerolog.Logger, monitors ...flows.FlowMonitor) *Controller {
	c := &Controller{
		env:         env,
		checkpoints: checkpoints,
		recorder:    flows.NewEventRecorder(),
		log:         log.With().Str("component", "api").Logger(),
	}
	c.monitors = append([]flows.FlowMonitor{c.recorder}, monitors...)
	return c
}

// Register mounts the routes on svr. Metrics are gathered from gatherer.
func (c *Controller) Register(svr *echo.Echo, gatherer prometheus.Gatherer) {
	svr.GET("/api/nodes", c.ListNodes)
	svr.POST("/api/run", c.RunFlow)
	svr.GET("/api/graph", c.GetGraph)
	svr.GET("/api/events", c.GetEvents)
	if gatherer != nil {
		svr.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}

func (c *Controller) ListNodes(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, nodes.RegisteredNodes())
}

// RunFlow parses the script and runs it over the given items. Runs are
// serialized so that the events and graph endpoints describe the last run.
func (c *Controller) RunFlow(ctx echo.Context) error {
	var req RunRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	if req.Script == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("script is required"))
	}

	flow, err := flows.ParseFlowDSL(req.Script, c.env)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	for _, monitor := range c.monitors {
		flow.AddMonitor(monitor)
	}
	if req.ThreadID != "" && c.checkpoints != nil {
		flow.WithCheckpoint(c.checkpoints, req.ThreadID)
	}

	items := make([]nearflow.Item, 0, len(req.Items))
	for _, payload := range req.Items {
		items = append(items, nearflow.NewItem(payload))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.recorder.Clear()
	graph := flow.Graph()
	c.graph = &graph

	out, runErr := flow.RunItems(ctx.Request().Context(), items)
	res := RunResponse{Items: out}
	if events := c.recorder.Events(); len(events) > 0 {
		res.RunID = events[0].RunID
	}
	if runErr != nil {
		c.log.Warn().Err(runErr).Str("run", res.RunID).Msg("flow run failed")
		res.Error = runErr.Error()
		return ctx.JSON(http.StatusUnprocessableEntity, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (c *Controller) GetGraph(ctx echo.Context) error {
	c.mu.Lock()
	graph := c.graph
	c.mu.Unlock()
	if graph == nil {
		return echo.NewHTTPError(http.StatusNotFound, errors.New("no flow has run yet"))
	}
	return ctx.JSON(http.StatusOK, graph)
}

func (c *Controller) GetEvents(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.recorder.Events())
}
