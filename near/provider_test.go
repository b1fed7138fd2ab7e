package near_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/near"
	"nearflow/near/neartest"
)

func TestProvider_RetriesUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":{"chain_id":"sandbox"}}`))
	}))
	defer srv.Close()

	provider := near.NewProvider(srv.URL, near.WithRetry(5, time.Millisecond, 1.5))
	status, err := provider.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sandbox", status.ChainID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestProvider_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	provider := near.NewProvider(srv.URL, near.WithRetry(2, time.Millisecond, 1.5))
	_, err := provider.Status(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestProvider_RPCErrorIsPermanent(t *testing.T) {
	server := neartest.NewServer(t)
	provider := near.NewProvider(server.URL, near.WithRetry(5, time.Millisecond, 1.5))

	_, err := provider.ViewAccount(context.Background(), "missing.near", near.Final())
	var rpcErr *near.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "UNKNOWN_ACCOUNT", rpcErr.Type())
	assert.Len(t, server.Requests(), 1)
}

func TestProvider_QueryError(t *testing.T) {
	server := neartest.NewServer(t)
	server.HandleQuery("call_function", func(json.RawMessage) (any, *near.RPCError) {
		return map[string]any{"error": "wasm execution failed", "logs": []string{}}, nil
	})
	provider := near.NewProvider(server.URL)

	_, err := provider.CallFunction(context.Background(), "c.near", "get", []byte("{}"), near.Optimistic())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wasm execution failed")
}

func TestProvider_QueryParams(t *testing.T) {
	server := neartest.NewServer(t)
	server.SetAccount("alice.near", near.AccountView{Amount: "1", Locked: "0"})
	provider := near.NewProvider(server.URL)

	view, err := provider.ViewAccount(context.Background(), "alice.near", near.Final())
	require.NoError(t, err)
	assert.Equal(t, "1", view.Amount)

	requests := server.Requests()
	require.Len(t, requests, 1)
	var params map[string]any
	require.NoError(t, json.Unmarshal(requests[0].Params, &params))
	assert.Equal(t, "view_account", params["request_type"])
	assert.Equal(t, "final", params["finality"])
	assert.Equal(t, "alice.near", params["account_id"])
}

func TestConnector_UnknownNetwork(t *testing.T) {
	connector := near.NewConnector(near.DefaultConnectorConfig())
	_, err := connector.Connect("betanet", nil)
	assert.ErrorIs(t, err, near.ErrUnknownNetwork)

	conn, err := connector.Connect("testnet", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.testnet.near.org", conn.Provider.URL())
}
