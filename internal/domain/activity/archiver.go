package activity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/shared/types"
)

// Registry is the slice of the space registry the archiver consults.
type Registry interface {
	SpaceForTab(tab types.TabID) (*types.Space, bool)
}

// TabCloser closes a live tab.
type TabCloser interface {
	Remove(ctx context.Context, id types.TabID) error
}

// Archiver closes temporary tabs that have sat idle past a threshold.
// Pinned tabs are never archived; their durability is the point of
// pinning.
type Archiver struct {
	tracker  *Tracker
	registry Registry
	tabs     TabCloser
	maxIdle  time.Duration
	logger   *zap.Logger
}

// NewArchiver creates an archiver.
func NewArchiver(tracker *Tracker, registry Registry, tabs TabCloser, maxIdle time.Duration, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		tracker:  tracker,
		registry: registry,
		tabs:     tabs,
		maxIdle:  maxIdle,
		logger:   logger,
	}
}

// Sweep closes every idle temporary tab and returns how many were
// closed. A tab that is a space's last active tab is spared.
func (a *Archiver) Sweep(ctx context.Context) int {
	cutoff := a.tracker.clock().Add(-a.maxIdle)
	closed := 0
	for _, tab := range a.tracker.IdleSince(cutoff) {
		sp, ok := a.registry.SpaceForTab(tab)
		if !ok || sp.Pinned(tab) {
			continue
		}
		if sp.LastTab != nil && *sp.LastTab == tab {
			continue
		}
		if err := a.tabs.Remove(ctx, tab); err != nil {
			a.logger.Debug("archive close failed", zap.Int("tab", int(tab)), zap.Error(err))
			continue
		}
		a.tracker.Forget(ctx, tab)
		closed++
	}
	if closed > 0 {
		a.logger.Info("archived idle tabs", zap.Int("count", closed))
	}
	return closed
}

// Run sweeps on an interval until the context is canceled.
func (a *Archiver) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}
