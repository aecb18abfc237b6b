// Package titles stores user-assigned tab name overrides, keyed by
// URL. Overrides live in the roaming storage namespace so renames
// follow the user across machines.
package titles

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/storage"
)

// StorageKey is the durable record holding the override map.
const StorageKey = "tab_names"

// Store is the durable surface overrides persist to.
type Store interface {
	Get(ctx context.Context, ns storage.Namespace, key string, out interface{}) (bool, error)
	Set(ctx context.Context, ns storage.Namespace, key string, v interface{}) error
}

// Manager holds the URL-keyed override map.
type Manager struct {
	mu        sync.RWMutex
	overrides map[string]string
	store     Store
	logger    *zap.Logger
}

// NewManager creates an override manager.
func NewManager(store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		overrides: make(map[string]string),
		store:     store,
		logger:    logger,
	}
}

// Load reads persisted overrides. An absent record is an empty map.
func (m *Manager) Load(ctx context.Context) error {
	var overrides map[string]string
	ok, err := m.store.Get(ctx, storage.Sync, StorageKey, &overrides)
	if err != nil {
		return err
	}
	if ok {
		m.mu.Lock()
		m.overrides = overrides
		m.mu.Unlock()
	}
	return nil
}

// Set records an override and persists.
func (m *Manager) Set(ctx context.Context, url, name string) error {
	m.mu.Lock()
	m.overrides[url] = name
	err := m.store.Set(ctx, storage.Sync, StorageKey, m.overrides)
	m.mu.Unlock()
	return err
}

// Remove drops an override. Removing an absent URL is a no-op.
func (m *Manager) Remove(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.overrides[url]; !ok {
		return nil
	}
	delete(m.overrides, url)
	return m.store.Set(ctx, storage.Sync, StorageKey, m.overrides)
}

// Lookup returns the override for a URL.
func (m *Manager) Lookup(url string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.overrides[url]
	return name, ok
}

// DisplayTitle resolves the name shown for a tab: the override when
// one exists, else the tab's own title.
func (m *Manager) DisplayTitle(url, tabTitle string) string {
	if name, ok := m.Lookup(url); ok {
		return name
	}
	return tabTitle
}
