package kv

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned when a key does not exist in a store.
var ErrNotFound = errors.New("key not found")

// KVStore defines the interface for a key-value store
type KVStore interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	// List returns the keys starting with prefix in lexical order.
	List(prefix string) ([]string, error)
	Close() error
}

// InMemoryKVStore is an in-memory key-value store
type InMemoryKVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInMemoryKVStore() *InMemoryKVStore {
	return &InMemoryKVStore{data: make(map[string][]byte)}
}

func (s *InMemoryKVStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *InMemoryKVStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *InMemoryKVStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *InMemoryKVStore) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matchingKeys(s.data, prefix), nil
}

func (s *InMemoryKVStore) Close() error {
	return nil
}

func matchingKeys(data map[string][]byte, prefix string) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
