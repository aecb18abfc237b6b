// Package groups provides thin operations over the host's tab-group
// mechanism: create a tab, create or update a group, list a group's
// tabs.
package groups

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/shared/types"
)

// Adapter wraps the tab and tab-group capabilities.
type Adapter struct {
	tabs   browser.Tabs
	groups browser.TabGroups
	logger *zap.Logger
}

// NewAdapter creates a group adapter.
func NewAdapter(tabs browser.Tabs, groups browser.TabGroups, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{tabs: tabs, groups: groups, logger: logger}
}

// CreateTab opens a blank, active tab.
func (a *Adapter) CreateTab(ctx context.Context) (*types.Tab, error) {
	return a.tabs.Create(ctx, browser.CreateTabOptions{Active: true})
}

// CreateGroup groups the given tabs into a fresh group and applies
// title and color. The returned handle is required before the caller's
// space record can exist, so creation blocks on it.
func (a *Adapter) CreateGroup(ctx context.Context, tabIDs []types.TabID, title string, color types.Color) (types.GroupID, error) {
	gid, err := a.tabs.Group(ctx, tabIDs, nil)
	if err != nil {
		return types.NoGroup, fmt.Errorf("failed to create group: %w", err)
	}
	if _, err := a.groups.Update(ctx, gid, browser.GroupUpdate{Title: &title, Color: &color}); err != nil {
		// The group exists; a failed title write is repaired by the
		// next reconciliation pass.
		a.logger.Warn("failed to style new group",
			zap.Int("group", int(gid)), zap.Error(err))
	}
	return gid, nil
}

// UpdateGroup applies the non-nil fields to a live group.
func (a *Adapter) UpdateGroup(ctx context.Context, id types.GroupID, u browser.GroupUpdate) error {
	_, err := a.groups.Update(ctx, id, u)
	return err
}

// TabsInGroup lists the live tabs of a group, in index order.
func (a *Adapter) TabsInGroup(ctx context.Context, id types.GroupID) ([]*types.Tab, error) {
	gid := id
	return a.tabs.Query(ctx, browser.TabQuery{GroupID: &gid})
}

// Restyle rewrites a group's title and color together.
func (a *Adapter) Restyle(ctx context.Context, id types.GroupID, title string, color types.Color) error {
	_, err := a.groups.Update(ctx, id, browser.GroupUpdate{Title: &title, Color: &color})
	return err
}

// SetCollapsed collapses or expands a group.
func (a *Adapter) SetCollapsed(ctx context.Context, id types.GroupID, collapsed bool) error {
	_, err := a.groups.Update(ctx, id, browser.GroupUpdate{Collapsed: &collapsed})
	return err
}

// FindGroup returns the live group with the given handle, or nil when
// the host no longer knows it. Absence is routine here, so a failed
// lookup is reported as not-found rather than an error.
func (a *Adapter) FindGroup(ctx context.Context, id types.GroupID) *types.Group {
	g, err := a.groups.Get(ctx, id)
	if err != nil {
		return nil
	}
	return g
}

// ListGroups lists every live group, optionally scoped to a window.
func (a *Adapter) ListGroups(ctx context.Context, windowID *types.WindowID) ([]*types.Group, error) {
	return a.groups.Query(ctx, browser.GroupQuery{WindowID: windowID})
}

// AddToGroup re-parents tabs into an existing group.
func (a *Adapter) AddToGroup(ctx context.Context, tabIDs []types.TabID, id types.GroupID) error {
	gid := id
	_, err := a.tabs.Group(ctx, tabIDs, &gid)
	return err
}
