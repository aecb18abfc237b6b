// Package activity records per-tab last-active timestamps and drives
// idle-based archiving of temporary tabs.
package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/shared/types"
	"github.com/arcify/spaces/internal/storage"
)

// StorageKey is the durable record holding activity timestamps.
const StorageKey = "tab_activity"

// Store is the durable surface timestamps persist to.
type Store interface {
	Get(ctx context.Context, ns storage.Namespace, key string, out interface{}) (bool, error)
	Set(ctx context.Context, ns storage.Namespace, key string, v interface{}) error
}

// Tracker records when each tab was last active.
type Tracker struct {
	mu     sync.RWMutex
	last   map[types.TabID]time.Time
	store  Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewTracker creates a tracker.
func NewTracker(store Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		last:   make(map[types.TabID]time.Time),
		store:  store,
		clock:  time.Now,
		logger: logger,
	}
}

// WithClock overrides the time source. Tests use this.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// Load reads persisted timestamps.
func (t *Tracker) Load(ctx context.Context) error {
	var last map[types.TabID]time.Time
	ok, err := t.store.Get(ctx, storage.Local, StorageKey, &last)
	if err != nil {
		return err
	}
	if ok {
		t.mu.Lock()
		t.last = last
		t.mu.Unlock()
	}
	return nil
}

// Touch stamps a tab as active now.
func (t *Tracker) Touch(ctx context.Context, tab types.TabID) {
	t.mu.Lock()
	t.last[tab] = t.clock()
	err := t.store.Set(ctx, storage.Local, StorageKey, t.last)
	t.mu.Unlock()
	if err != nil {
		t.logger.Warn("failed to persist activity", zap.Error(err))
	}
}

// Forget drops a closed tab's timestamp.
func (t *Tracker) Forget(ctx context.Context, tab types.TabID) {
	t.mu.Lock()
	delete(t.last, tab)
	err := t.store.Set(ctx, storage.Local, StorageKey, t.last)
	t.mu.Unlock()
	if err != nil {
		t.logger.Warn("failed to persist activity", zap.Error(err))
	}
}

// LastActive returns the recorded timestamp for a tab.
func (t *Tracker) LastActive(tab types.TabID) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.last[tab]
	return ts, ok
}

// IdleSince lists tabs whose last activity is older than cutoff.
// Tabs never touched are not reported; a tab with no timestamp has
// never been observed active, not been idle forever.
func (t *Tracker) IdleSince(cutoff time.Time) []types.TabID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var idle []types.TabID
	for tab, ts := range t.last {
		if ts.Before(cutoff) {
			idle = append(idle, tab)
		}
	}
	return idle
}
