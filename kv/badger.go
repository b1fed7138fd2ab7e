package kv

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"
)

// BadgerKVStore persists entries in a Badger database.
type BadgerKVStore struct {
	db *badger.DB
}

// NewBadgerKVStore opens (or creates) a Badger database in dir. An empty dir
// opens an in-memory database.
func NewBadgerKVStore(dir string) (*BadgerKVStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open badger database: %w", err)
	}
	return &BadgerKVStore{db: db}, nil
}

func (s *BadgerKVStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read key %q: %w", key, err)
	}
	return value, nil
}

func (s *BadgerKVStore) Put(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("could not write key %q: %w", key, err)
	}
	return nil
}

func (s *BadgerKVStore) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("could not delete key %q: %w", key, err)
	}
	return nil
}

func (s *BadgerKVStore) List(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not list prefix %q: %w", prefix, err)
	}
	return keys, nil
}

func (s *BadgerKVStore) Close() error {
	return s.db.Close()
}
