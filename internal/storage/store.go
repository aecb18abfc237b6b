package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Namespace selects a storage area.
type Namespace string

const (
	Local Namespace = "local"
	Sync  Namespace = "sync"
)

// Change describes a single mutation, delivered to watchers.
type Change struct {
	Namespace Namespace `json:"namespace"`
	Key       string    `json:"key"`
}

// Store is a file-backed key-value store with change notification.
// A Store with an empty directory keeps everything in memory, which is
// what tests use.
type Store struct {
	mu       sync.RWMutex
	dir      string
	data     map[Namespace]map[string]json.RawMessage
	watchers []chan Change
	logger   *zap.Logger
}

// Open loads (or initializes) a store rooted at dir. An empty dir
// yields a memory-only store.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		dir:    dir,
		data:   make(map[Namespace]map[string]json.RawMessage),
		logger: logger,
	}
	for _, ns := range []Namespace{Local, Sync} {
		s.data[ns] = make(map[string]json.RawMessage)
		if dir == "" {
			continue
		}
		if err := s.load(ns); err != nil {
			return nil, fmt.Errorf("failed to load namespace %s: %w", ns, err)
		}
	}
	return s, nil
}

// Get unmarshals the value stored under key into out. The second
// return is false when the key is absent; absence is not an error.
func (s *Store) Get(ctx context.Context, ns Namespace, key string, out interface{}) (bool, error) {
	s.mu.RLock()
	raw, ok := s.data[ns][key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", ns, key, err)
	}
	return true, nil
}

// Set stores v under key and flushes the namespace to disk.
func (s *Store) Set(ctx context.Context, ns Namespace, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", ns, key, err)
	}

	s.mu.Lock()
	s.data[ns][key] = raw
	err = s.flush(ns)
	watchers := append([]chan Change(nil), s.watchers...)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify(watchers, Change{Namespace: ns, Key: key})
	return nil
}

// Delete removes key and flushes. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, ns Namespace, key string) error {
	s.mu.Lock()
	_, ok := s.data[ns][key]
	if ok {
		delete(s.data[ns], key)
	}
	err := s.flush(ns)
	watchers := append([]chan Change(nil), s.watchers...)
	s.mu.Unlock()
	if err != nil || !ok {
		return err
	}

	s.notify(watchers, Change{Namespace: ns, Key: key})
	return nil
}

// Keys lists the keys present in a namespace.
func (s *Store) Keys(ns Namespace) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data[ns]))
	for k := range s.data[ns] {
		keys = append(keys, k)
	}
	return keys
}

// Watch returns a channel receiving every subsequent change. Slow
// consumers drop notifications rather than block writers.
func (s *Store) Watch() <-chan Change {
	ch := make(chan Change, 16)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify(watchers []chan Change, c Change) {
	for _, ch := range watchers {
		select {
		case ch <- c:
		default:
			s.logger.Warn("storage watcher lagging, dropping change",
				zap.String("namespace", string(c.Namespace)),
				zap.String("key", c.Key))
		}
	}
}

// load reads one namespace document. A missing file is an empty
// namespace, not an error.
func (s *Store) load(ns Namespace) error {
	raw, err := os.ReadFile(s.path(ns))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	m := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("failed to decode namespace %s: %w", ns, err)
	}
	s.data[ns] = m
	return nil
}

// flush rewrites one namespace document atomically. Caller holds mu.
func (s *Store) flush(ns Namespace) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage dir: %w", err)
	}

	raw, err := json.MarshalIndent(s.data[ns], "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode namespace %s: %w", ns, err)
	}

	tmp := s.path(ns) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write namespace %s: %w", ns, err)
	}
	return os.Rename(tmp, s.path(ns))
}

func (s *Store) path(ns Namespace) string {
	return filepath.Join(s.dir, string(ns)+".json")
}
