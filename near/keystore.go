package near

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"nearflow/kv"
)

// KeyStore holds signing keys per network and account.
type KeyStore interface {
	SetKey(ctx context.Context, networkID, accountID string, kp *KeyPair) error
	GetKey(ctx context.Context, networkID, accountID string) (*KeyPair, error)
	RemoveKey(ctx context.Context, networkID, accountID string) error
	Clear(ctx context.Context) error
	Networks(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context, networkID string) ([]string, error)
}

// InMemoryKeyStore keeps encoded keys in a map keyed by account and network.
type InMemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewInMemoryKeyStore() *InMemoryKeyStore {
	return &InMemoryKeyStore{keys: make(map[string]string)}
}

func (s *InMemoryKeyStore) SetKey(_ context.Context, networkID, accountID string, kp *KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[memoryKey(networkID, accountID)] = kp.String()
	return nil
}

func (s *InMemoryKeyStore) GetKey(_ context.Context, networkID, accountID string) (*KeyPair, error) {
	s.mu.RLock()
	encoded, ok := s.keys[memoryKey(networkID, accountID)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("account %s on %s: %w", accountID, networkID, ErrKeyNotFound)
	}
	return ParseKeyPair(encoded)
}

func (s *InMemoryKeyStore) RemoveKey(_ context.Context, networkID, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, memoryKey(networkID, accountID))
	return nil
}

func (s *InMemoryKeyStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]string)
	return nil
}

func (s *InMemoryKeyStore) Networks(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range s.keys {
		_, network, _ := strings.Cut(key, ":")
		seen[network] = struct{}{}
	}
	return sortedSet(seen), nil
}

func (s *InMemoryKeyStore) Accounts(_ context.Context, networkID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range s.keys {
		account, network, _ := strings.Cut(key, ":")
		if network == networkID {
			seen[account] = struct{}{}
		}
	}
	return sortedSet(seen), nil
}

func memoryKey(networkID, accountID string) string {
	return accountID + ":" + networkID
}

const kvKeyPrefix = "near-keys/"

// KVKeyStore persists keys in a kv.KVStore under near-keys/<network>/<account>.
type KVKeyStore struct {
	store kv.KVStore
}

func NewKVKeyStore(store kv.KVStore) *KVKeyStore {
	return &KVKeyStore{store: store}
}

func (s *KVKeyStore) SetKey(_ context.Context, networkID, accountID string, kp *KeyPair) error {
	if err := s.store.Put(kvKey(networkID, accountID), []byte(kp.String())); err != nil {
		return fmt.Errorf("could not store key: %w", err)
	}
	return nil
}

func (s *KVKeyStore) GetKey(_ context.Context, networkID, accountID string) (*KeyPair, error) {
	value, err := s.store.Get(kvKey(networkID, accountID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("account %s on %s: %w", accountID, networkID, ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not load key: %w", err)
	}
	return ParseKeyPair(string(value))
}

func (s *KVKeyStore) RemoveKey(_ context.Context, networkID, accountID string) error {
	return s.store.Delete(kvKey(networkID, accountID))
}

func (s *KVKeyStore) Clear(_ context.Context) error {
	keys, err := s.store.List(kvKeyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *KVKeyStore) Networks(_ context.Context) ([]string, error) {
	keys, err := s.store.List(kvKeyPrefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, key := range keys {
		network, _, ok := strings.Cut(strings.TrimPrefix(key, kvKeyPrefix), "/")
		if ok {
			seen[network] = struct{}{}
		}
	}
	return sortedSet(seen), nil
}

func (s *KVKeyStore) Accounts(_ context.Context, networkID string) ([]string, error) {
	prefix := kvKeyPrefix + networkID + "/"
	keys, err := s.store.List(prefix)
	if err != nil {
		return nil, err
	}
	accounts := make([]string, 0, len(keys))
	for _, key := range keys {
		accounts = append(accounts, strings.TrimPrefix(key, prefix))
	}
	return accounts, nil
}

func kvKey(networkID, accountID string) string {
	return kvKeyPrefix + networkID + "/" + accountID
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
