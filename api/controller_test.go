package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/checkpointer"
	"nearflow/flows"
	"nearflow/near"
	"nearflow/near/neartest"
	"nearflow/nodes"
)

func newServer(t *testing.T, env flows.DSLEnv, cp checkpointer.Checkpointer) (*echo.Echo, *Controller) {
	t.Helper()
	reg := prometheus.NewRegistry()
	env.Logger = zerolog.Nop()
	ctrl := NewController(env, cp, zerolog.Nop(), flows.NewMetricsMonitor(reg))
	svr := echo.New()
	ctrl.Register(svr, reg)
	return svr, ctrl
}

func serve(svr *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	svr.ServeHTTP(rec, req)
	return rec
}

func TestController_ListNodes(t *testing.T) {
	svr, _ := newServer(t, flows.DSLEnv{}, nil)

	rec := serve(svr, http.MethodGet, "/api/nodes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var defs []nodes.NodeDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &defs))
	ids := make([]string, 0, len(defs))
	for _, def := range defs {
		ids = append(ids, def.ID)
	}
	assert.Contains(t, ids, "near_transfer")
	assert.Contains(t, ids, "near_get_account_balance")
	assert.Contains(t, ids, "logger")
}

func TestController_RunFlow(t *testing.T) {
	server := neartest.NewServer(t)
	server.SetAccount("alice.near", near.AccountView{Amount: "1000000000000000000000000", Locked: "0"})
	svr, _ := newServer(t, flows.DSLEnv{Connector: server.Connector()}, nil)

	body := `{
		"script": "node balance = near_get_account_balance networkId=sandbox accountId={{.accountId}}\nnode done = set checked yes\nconnect balance -> done",
		"items": [{"accountId": "alice.near"}]
	}`
	rec := serve(svr, http.MethodPost, "/api/run", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Empty(t, res.Error)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "yes", res.Items[0].JSON["checked"])
	assert.Equal(t, "1", res.Items[0].JSON["formatted"].(map[string]any)["total"])

	rec = serve(svr, http.MethodGet, "/api/graph", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var graph flows.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graph))
	assert.Equal(t, "balance", graph.Start)
	assert.Equal(t, []flows.GraphEdge{{From: "balance", Action: "next", To: "done"}}, graph.Edges)

	rec = serve(svr, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []flows.FlowEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.NotEmpty(t, events)
	assert.Equal(t, flows.FlowEventTypeFlowStart, events[0].Type)
	assert.Equal(t, flows.FlowEventTypeFlowComplete, events[len(events)-1].Type)
	assert.Equal(t, res.RunID, events[0].RunID)

	rec = serve(svr, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `nearflow_node_runs_total{action="next",node="balance"} 1`)
}

func TestController_RunFlowFailure(t *testing.T) {
	cp := checkpointer.NewMemoryCheckpointer()
	svr, _ := newServer(t, flows.DSLEnv{}, cp)

	body := `{"script": "node sign = near_sign_message privateKey=ed25519:abc message=hi", "threadId": "job-1"}`
	rec := serve(svr, http.MethodPost, "/api/run", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var res RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res.Error, "node sign failed on item 0")

	saved, err := cp.Load(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "sign", saved.CurrentNode)
}

func TestController_BadRequests(t *testing.T) {
	svr, _ := newServer(t, flows.DSLEnv{}, nil)

	tests := []struct {
		desc string
		body string
		msg  string
	}{
		{"missing script", `{"items": []}`, "script is required"},
		{"invalid script", `{"script": "node a = teleport"}`, `line 1: node "a": unsupported node type "teleport"`},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			rec := serve(svr, http.MethodPost, "/api/run", test.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var res map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
			assert.Equal(t, test.msg, res["message"])
		})
	}

	rec := serve(svr, http.MethodGet, "/api/graph", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
