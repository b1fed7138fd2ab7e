package near

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultRetries         = 12
	DefaultRetryWait       = 500 * time.Millisecond
	DefaultRetryMultiplier = 1.5
)

// errRetryable marks failures worth another attempt.
var errRetryable = errors.New("retryable rpc failure")

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithRetry sets the retry budget and the exponential backoff schedule.
func WithRetry(retries uint64, wait time.Duration, multiplier float64) ProviderOption {
	return func(p *Provider) {
		p.retries = retries
		p.wait = wait
		p.multiplier = multiplier
	}
}

func WithLogger(log zerolog.Logger) ProviderOption {
	return func(p *Provider) {
		p.log = log
	}
}

// Provider talks JSON-RPC 2.0 to a NEAR node.
type Provider struct {
	url        string
	client     *http.Client
	log        zerolog.Logger
	retries    uint64
	wait       time.Duration
	multiplier float64
	nextID     atomic.Uint64
}

func NewProvider(url string, opts ...ProviderOption) *Provider {
	p := &Provider{
		url:        url,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
		retries:    DefaultRetries,
		wait:       DefaultRetryWait,
		multiplier: DefaultRetryMultiplier,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) URL() string {
	return p.url
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Call sends one JSON-RPC request and decodes its result into result.
func (p *Provider) Call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      strconv.FormatUint(p.nextID.Add(1), 10),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("could not encode %s request: %w", method, err)
	}

	var raw json.RawMessage
	operation := func() error {
		raw, err = p.send(ctx, method, body)
		if err != nil && !errors.Is(err, errRetryable) {
			return backoff.Permanent(err)
		}
		return err
	}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = p.wait
	schedule.Multiplier = p.multiplier
	schedule.RandomizationFactor = 0
	schedule.MaxInterval = time.Minute
	schedule.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(schedule, p.retries), ctx)

	notify := func(err error, wait time.Duration) {
		p.log.Debug().Str("method", method).Dur("wait", wait).Err(err).Msg("retrying rpc request")
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("could not decode %s result: %w", method, err)
	}
	return nil
}

func (p *Provider) send(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return nil, fmt.Errorf("%s: %v: %w", method, err, errRetryable)
		}
		return nil, fmt.Errorf("could not send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read %s response: %w", method, err)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, fmt.Errorf("%s: service unavailable: %w", method, errRetryable)
	}

	var envelope rpcResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: http %d: %s", method, resp.StatusCode, bytes.TrimSpace(payload))
		}
		return nil, fmt.Errorf("could not decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		if envelope.Error.Type() == "TIMEOUT_ERROR" {
			return nil, fmt.Errorf("%w: %w", envelope.Error, errRetryable)
		}
		return nil, envelope.Error
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: http %d", method, resp.StatusCode)
	}

	var queryErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(envelope.Result, &queryErr) == nil && queryErr.Error != "" {
		return nil, fmt.Errorf("querying failed: %s", queryErr.Error)
	}
	return envelope.Result, nil
}

func (p *Provider) query(ctx context.Context, requestType string, ref BlockReference, fields map[string]any, result any) error {
	params := ref.params()
	params["request_type"] = requestType
	for k, v := range fields {
		params[k] = v
	}
	return p.Call(ctx, "query", params, result)
}

func (p *Provider) Status(ctx context.Context) (*NodeStatus, error) {
	var status NodeStatus
	if err := p.Call(ctx, "status", []any{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (p *Provider) Block(ctx context.Context, ref BlockReference) (*BlockView, error) {
	var block BlockView
	if err := p.Call(ctx, "block", ref.params(), &block); err != nil {
		return nil, err
	}
	return &block, nil
}

func (p *Provider) ViewAccount(ctx context.Context, accountID string, ref BlockReference) (*AccountView, error) {
	var view AccountView
	err := p.query(ctx, "view_account", ref, map[string]any{"account_id": accountID}, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (p *Provider) ViewAccessKey(ctx context.Context, accountID string, publicKey PublicKey, ref BlockReference) (*AccessKeyView, error) {
	var view AccessKeyView
	fields := map[string]any{
		"account_id": accountID,
		"public_key": publicKey.String(),
	}
	if err := p.query(ctx, "view_access_key", ref, fields, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (p *Provider) CallFunction(ctx context.Context, contractID, method string, args []byte, ref BlockReference) (*CallResult, error) {
	var result CallResult
	fields := map[string]any{
		"account_id":  contractID,
		"method_name": method,
		"args_base64": base64.StdEncoding.EncodeToString(args),
	}
	if err := p.query(ctx, "call_function", ref, fields, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (p *Provider) ProtocolConfig(ctx context.Context, ref BlockReference) (*ProtocolConfigView, error) {
	var config ProtocolConfigView
	if err := p.Call(ctx, "EXPERIMENTAL_protocol_config", ref.params(), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// SendTransaction broadcasts a signed transaction and waits for its outcome.
func (p *Provider) SendTransaction(ctx context.Context, signed *SignedTransaction) (*FinalExecutionOutcome, error) {
	encoded, err := signed.Serialize()
	if err != nil {
		return nil, err
	}
	var outcome FinalExecutionOutcome
	params := []string{base64.StdEncoding.EncodeToString(encoded)}
	if err := p.Call(ctx, "broadcast_tx_commit", params, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}
