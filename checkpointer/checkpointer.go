package checkpointer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"nearflow/codec"
	"nearflow/kv"
)

// ErrNoCheckpoint is returned when a thread has no saved checkpoint.
var ErrNoCheckpoint = errors.New("checkpoint not found")

// Checkpoint stores the execution state of a flow
type Checkpoint struct {
	ThreadID    string         `json:"thread_id"`
	CurrentNode string         `json:"current_node"`
	Shared      map[string]any `json:"shared"`
	StepCount   int            `json:"step_count"`
	Timestamp   time.Time      `json:"timestamp"`
	History     []string       `json:"history,omitempty"`
}

// Checkpointer interface defines methods for saving and loading checkpoints
type Checkpointer interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, threadID string) (*Checkpoint, error)
	Delete(ctx context.Context, threadID string) error
	ListThreads(ctx context.Context) ([]string, error)
}

// MemoryCheckpointer implements checkpointing in memory
type MemoryCheckpointer struct {
	mu    sync.RWMutex
	store map[string]*Checkpoint
}

func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{store: make(map[string]*Checkpoint)}
}

func (m *MemoryCheckpointer) Save(_ context.Context, cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *cp
	saved.History = append([]string(nil), cp.History...)
	m.store[cp.ThreadID] = &saved
	return nil
}

func (m *MemoryCheckpointer) Load(_ context.Context, threadID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp, ok := m.store[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNoCheckpoint)
	}
	loaded := *cp
	return &loaded, nil
}

func (m *MemoryCheckpointer) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, threadID)
	return nil
}

func (m *MemoryCheckpointer) ListThreads(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	threads := make([]string, 0, len(m.store))
	for threadID := range m.store {
		threads = append(threads, threadID)
	}
	sort.Strings(threads)
	return threads, nil
}

const keyPrefix = "checkpoint:"

// KVCheckpointer stores compressed CBOR checkpoints in a key-value store.
type KVCheckpointer struct {
	store kv.KVStore
	codec *codec.Codec
}

func NewKVCheckpointer(store kv.KVStore) *KVCheckpointer {
	return &KVCheckpointer{
		store: store,
		codec: codec.NewCodec(),
	}
}

func (k *KVCheckpointer) Save(_ context.Context, cp *Checkpoint) error {
	data, err := k.codec.Marshal(cp)
	if err != nil {
		return fmt.Errorf("could not encode checkpoint: %w", err)
	}
	if err := k.store.Put(keyPrefix+cp.ThreadID, data); err != nil {
		return fmt.Errorf("could not store checkpoint: %w", err)
	}
	return nil
}

func (k *KVCheckpointer) Load(_ context.Context, threadID string) (*Checkpoint, error) {
	data, err := k.store.Get(keyPrefix + threadID)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNoCheckpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := k.codec.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("could not decode checkpoint: %w", err)
	}
	return &cp, nil
}

func (k *KVCheckpointer) Delete(_ context.Context, threadID string) error {
	return k.store.Delete(keyPrefix + threadID)
}

func (k *KVCheckpointer) ListThreads(_ context.Context) ([]string, error) {
	keys, err := k.store.List(keyPrefix)
	if err != nil {
		return nil, err
	}
	threads := make([]string, 0, len(keys))
	for _, key := range keys {
		threads = append(threads, strings.TrimPrefix(key, keyPrefix))
	}
	return threads, nil
}
