// Package neartest runs an in-process NEAR JSON-RPC endpoint for tests.
package neartest

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mr-tron/base58"

	"nearflow/near"
)

// NetworkID is the network name the fake endpoint is registered under.
const NetworkID = "sandbox"

// Handler answers one RPC method. A non-nil error is sent as the JSON-RPC error object.
type Handler func(params json.RawMessage) (any, *near.RPCError)

// Request is a recorded call.
type Request struct {
	Method string
	Params json.RawMessage
}

// Server is a fake RPC node with canned answers for the methods the client uses.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	handlers   map[string]Handler
	queries    map[string]Handler
	accounts   map[string]near.AccountView
	nonces     map[string]uint64
	requests   []Request
	broadcasts [][]byte
}

// BlockHash is the hash returned for every block request.
var BlockHash = base58.Encode(make([]byte, 32))

// StorageAmountPerByte is the protocol storage price the server reports.
const StorageAmountPerByte = "10000000000000000000"

// TransactionHash is the hash of every broadcast outcome.
const TransactionHash = "9uCWtN2TiuFrtnFPjPsBzdtyrgQVbYodMbw5GM2VfG8K"

func NewServer(t testing.TB) *Server {
	s := &Server{
		handlers: make(map[string]Handler),
		queries:  make(map[string]Handler),
		accounts: make(map[string]near.AccountView),
		nonces:   make(map[string]uint64),
	}
	s.handlers["block"] = func(json.RawMessage) (any, *near.RPCError) {
		return map[string]any{
			"author": "node0",
			"header": map[string]any{"height": 100, "hash": BlockHash, "timestamp": 0},
		}, nil
	}
	s.handlers["status"] = func(json.RawMessage) (any, *near.RPCError) {
		return map[string]any{
			"chain_id":  NetworkID,
			"sync_info": map[string]any{"latest_block_hash": BlockHash, "latest_block_height": 100},
		}, nil
	}
	s.handlers["EXPERIMENTAL_protocol_config"] = func(json.RawMessage) (any, *near.RPCError) {
		return map[string]any{
			"protocol_version": 63,
			"runtime_config":   map[string]any{"storage_amount_per_byte": StorageAmountPerByte},
		}, nil
	}
	s.handlers["broadcast_tx_commit"] = func(json.RawMessage) (any, *near.RPCError) {
		return Outcome(map[string]any{"SuccessValue": ""}), nil
	}
	s.queries["view_account"] = s.viewAccount
	s.queries["view_access_key"] = s.viewAccessKey

	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Outcome builds a broadcast_tx_commit result with the given status.
func Outcome(status map[string]any) map[string]any {
	return map[string]any{
		"status":              status,
		"transaction":         map[string]any{"hash": TransactionHash},
		"transaction_outcome": map[string]any{"id": TransactionHash, "outcome": map[string]any{}},
		"receipts_outcome":    []any{},
	}
}

// SuccessOutcome returns an outcome whose SuccessValue is the JSON encoding of value.
func SuccessOutcome(value any) map[string]any {
	encoded, _ := json.Marshal(value)
	return Outcome(map[string]any{"SuccessValue": base64.StdEncoding.EncodeToString(encoded)})
}

// Handle replaces the handler of an RPC method.
func (s *Server) Handle(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// HandleQuery replaces the handler of a query request type such as call_function.
func (s *Server) HandleQuery(requestType string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[requestType] = h
}

func (s *Server) SetAccount(accountID string, view near.AccountView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[accountID] = view
}

// SetNonce sets the nonce reported for every access key of accountID.
func (s *Server) SetNonce(accountID string, nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[accountID] = nonce
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Methods lists the recorded method names in call order.
func (s *Server) Methods() []string {
	var methods []string
	for _, r := range s.Requests() {
		methods = append(methods, r.Method)
	}
	return methods
}

// Broadcasts returns the borsh bytes of every broadcast signed transaction.
func (s *Server) Broadcasts() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.broadcasts...)
}

func (s *Server) Network() near.Network {
	return near.Network{NetworkID: NetworkID, NodeURL: s.URL}
}

// Connector returns a connector that knows the fake network and does not retry.
func (s *Server) Connector() *near.Connector {
	cfg := near.DefaultConnectorConfig()
	cfg.Networks = near.NewNetworkRegistry(s.Network())
	cfg.HTTPClient = s.Client()
	cfg.Retries = 0
	return near.NewConnector(cfg)
}

type request struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: req.Method, Params: req.Params})
	if req.Method == "broadcast_tx_commit" {
		var params []string
		if json.Unmarshal(req.Params, &params) == nil && len(params) == 1 {
			if raw, err := base64.StdEncoding.DecodeString(params[0]); err == nil {
				s.broadcasts = append(s.broadcasts, raw)
			}
		}
	}
	handler := s.handlers[req.Method]
	if req.Method == "query" {
		var q struct {
			RequestType string `json:"request_type"`
		}
		_ = json.Unmarshal(req.Params, &q)
		handler = s.queries[q.RequestType]
	}
	s.mu.Unlock()

	response := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if handler == nil {
		response["error"] = near.RPCError{Code: -32601, Message: "Method not found", Name: "REQUEST_VALIDATION_ERROR"}
	} else {
		result, rpcErr := handler(req.Params)
		if rpcErr != nil {
			response["error"] = rpcErr
		} else {
			response["result"] = result
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) viewAccount(params json.RawMessage) (any, *near.RPCError) {
	var q struct {
		AccountID string `json:"account_id"`
	}
	_ = json.Unmarshal(params, &q)
	s.mu.Lock()
	view, ok := s.accounts[q.AccountID]
	s.mu.Unlock()
	if !ok {
		return nil, unknownAccount(q.AccountID)
	}
	view.BlockHash = BlockHash
	return view, nil
}

func (s *Server) viewAccessKey(params json.RawMessage) (any, *near.RPCError) {
	var q struct {
		AccountID string `json:"account_id"`
	}
	_ = json.Unmarshal(params, &q)
	s.mu.Lock()
	nonce := s.nonces[q.AccountID]
	s.mu.Unlock()
	return map[string]any{
		"nonce":        nonce,
		"permission":   "FullAccess",
		"block_height": 100,
		"block_hash":   BlockHash,
	}, nil
}

func unknownAccount(accountID string) *near.RPCError {
	info, _ := json.Marshal(map[string]string{"requested_account_id": accountID})
	return &near.RPCError{
		Code:    -32000,
		Message: "Server error",
		Name:    "HANDLER_ERROR",
		Cause:   &near.RPCErrorCause{Name: "UNKNOWN_ACCOUNT", Info: info},
	}
}
