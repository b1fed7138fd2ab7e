package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileBasedKVStore keeps all entries in memory and mirrors them to a JSON file
// on every write.
type FileBasedKVStore struct {
	filePath string
	mu       sync.RWMutex
	data     map[string][]byte
}

// NewFileBasedKVStore opens the store at filePath, loading existing entries.
// A missing file is created on the first write.
func NewFileBasedKVStore(filePath string) (*FileBasedKVStore, error) {
	store := &FileBasedKVStore{
		filePath: filePath,
		data:     make(map[string][]byte),
	}

	raw, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read kv file: %w", err)
	}
	if len(raw) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(raw, &store.data); err != nil {
		return nil, fmt.Errorf("could not decode kv file: %w", err)
	}
	return store, nil
}

func (s *FileBasedKVStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (s *FileBasedKVStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return s.flushLocked()
}

func (s *FileBasedKVStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flushLocked()
}

func (s *FileBasedKVStore) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return matchingKeys(s.data, prefix), nil
}

func (s *FileBasedKVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// flushLocked writes through a temporary file so a crash never leaves a
// truncated store behind. Callers must hold the write lock.
func (s *FileBasedKVStore) flushLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode kv data: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), filepath.Base(s.filePath)+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary kv file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write kv file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not close kv file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("could not replace kv file: %w", err)
	}
	return nil
}
