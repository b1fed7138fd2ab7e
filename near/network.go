package near

import (
	"fmt"
	"sort"
	"sync"
)

// Network describes the endpoints of a NEAR network.
type Network struct {
	NetworkID string `json:"networkId" yaml:"network_id" validate:"required"`
	NodeURL   string `json:"nodeUrl" yaml:"node_url" validate:"required,url"`
	WalletURL string `json:"walletUrl,omitempty" yaml:"wallet_url" validate:"omitempty,url"`
	HelperURL string `json:"helperUrl,omitempty" yaml:"helper_url" validate:"omitempty,url"`
}

var (
	Testnet = Network{
		NetworkID: "testnet",
		NodeURL:   "https://rpc.testnet.near.org",
		WalletURL: "https://wallet.testnet.near.org",
		HelperURL: "https://helper.testnet.near.org",
	}
	Mainnet = Network{
		NetworkID: "mainnet",
		NodeURL:   "https://rpc.mainnet.near.org",
		WalletURL: "https://wallet.mainnet.near.org",
		HelperURL: "https://helper.mainnet.near.org",
	}
)

// NetworkRegistry resolves network IDs to endpoints.
type NetworkRegistry struct {
	mu       sync.RWMutex
	networks map[string]Network
}

// NewNetworkRegistry returns a registry holding testnet, mainnet and extra.
// Extra networks replace built-ins with the same ID.
func NewNetworkRegistry(extra ...Network) *NetworkRegistry {
	r := &NetworkRegistry{networks: make(map[string]Network)}
	r.Register(Testnet)
	r.Register(Mainnet)
	for _, network := range extra {
		r.Register(network)
	}
	return r
}

func (r *NetworkRegistry) Register(network Network) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[network.NetworkID] = network
}

func (r *NetworkRegistry) Lookup(networkID string) (Network, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	network, ok := r.networks[networkID]
	if !ok {
		return Network{}, fmt.Errorf("%q: %w", networkID, ErrUnknownNetwork)
	}
	return network, nil
}

// IDs returns the registered network IDs sorted.
func (r *NetworkRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.networks))
	for id := range r.networks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
