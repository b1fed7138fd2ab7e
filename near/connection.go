package near

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ConnectorConfig holds what every connection built by a Connector shares.
type ConnectorConfig struct {
	Networks        *NetworkRegistry
	HTTPClient      *http.Client
	Retries         uint64
	RetryWait       time.Duration
	RetryMultiplier float64
	Logger          zerolog.Logger
}

// DefaultConnectorConfig connects to the built-in networks with the default
// retry schedule.
func DefaultConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		Networks:        NewNetworkRegistry(),
		HTTPClient:      &http.Client{Timeout: 30 * time.Second},
		Retries:         DefaultRetries,
		RetryWait:       DefaultRetryWait,
		RetryMultiplier: DefaultRetryMultiplier,
		Logger:          zerolog.Nop(),
	}
}

// Connector builds short-lived connections to NEAR networks.
type Connector struct {
	cfg ConnectorConfig
}

func NewConnector(cfg ConnectorConfig) *Connector {
	defaults := DefaultConnectorConfig()
	if cfg.Networks == nil {
		cfg.Networks = defaults.Networks
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaults.HTTPClient
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaults.RetryWait
	}
	if cfg.RetryMultiplier < 1 {
		cfg.RetryMultiplier = defaults.RetryMultiplier
	}
	return &Connector{cfg: cfg}
}

func (c *Connector) Networks() *NetworkRegistry {
	return c.cfg.Networks
}

// Connect opens a connection to networkID. keyStore may be nil for read-only use.
func (c *Connector) Connect(networkID string, keyStore KeyStore) (*Connection, error) {
	network, err := c.cfg.Networks.Lookup(networkID)
	if err != nil {
		return nil, err
	}
	log := c.cfg.Logger.With().Str("network", network.NetworkID).Logger()
	provider := NewProvider(network.NodeURL,
		WithHTTPClient(c.cfg.HTTPClient),
		WithRetry(c.cfg.Retries, c.cfg.RetryWait, c.cfg.RetryMultiplier),
		WithLogger(log),
	)
	if keyStore == nil {
		keyStore = NewInMemoryKeyStore()
	}
	conn := Connection{
		Network:  network,
		Provider: provider,
		KeyStore: keyStore,
		log:      log,
	}
	return &conn, nil
}

// Connection binds a provider and a key store to one network.
type Connection struct {
	Network  Network
	Provider *Provider
	KeyStore KeyStore
	log      zerolog.Logger
}

func (c *Connection) NetworkID() string {
	return c.Network.NetworkID
}

func (c *Connection) Account(accountID string) *Account {
	return &Account{AccountID: accountID, conn: c}
}

// ViewFunction calls a read-only contract method and decodes its JSON result.
func (c *Connection) ViewFunction(ctx context.Context, contractID, method string, args any) (any, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}
	result, err := c.Provider.CallFunction(ctx, contractID, method, encoded, Optimistic())
	if err != nil {
		return nil, err
	}
	for _, line := range result.Logs {
		c.log.Debug().Str("contract", contractID).Str("method", method).Msg(line)
	}
	// A method that returns nothing reads as false.
	if len(result.Result) == 0 {
		return false, nil
	}
	return decodeResult(result.Result), nil
}

func encodeArgs(args any) ([]byte, error) {
	switch v := args.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("could not encode arguments: %w", err)
	}
	return encoded, nil
}

// decodeResult parses JSON and falls back to the raw string.
func decodeResult(raw []byte) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil || dec.More() {
		return string(raw)
	}
	return value
}
