package browser

import (
	"context"

	"github.com/arcify/spaces/internal/shared/types"
)

// Well-known bookmark container IDs, matching the host's fixed tree
// roots. TreeRootID is the invisible root; its children are the
// toolbar and "other bookmarks" containers.
const (
	TreeRootID       = "0"
	ToolbarRootID    = "1"
	OtherItemsRootID = "2"
)

// CreateTabOptions configures Tabs.Create. A zero value opens a blank,
// active tab in the current window.
type CreateTabOptions struct {
	URL      string
	WindowID types.WindowID
	Active   bool
	OpenerID *types.TabID
}

// UpdateTabOptions carries the mutable tab properties. Nil fields are
// left untouched.
type UpdateTabOptions struct {
	URL    *string
	Active *bool
	Pinned *bool
}

// TabQuery filters Tabs.Query. Nil fields match everything.
type TabQuery struct {
	WindowID *types.WindowID
	GroupID  *types.GroupID
	Pinned   *bool
	Active   *bool
}

// GroupQuery filters TabGroups.Query.
type GroupQuery struct {
	WindowID *types.WindowID
	Title    *string
}

// GroupUpdate carries the mutable group properties. Nil fields are
// left untouched.
type GroupUpdate struct {
	Title     *string
	Color     *types.Color
	Collapsed *bool
}

// Tabs is the tab capability surface.
type Tabs interface {
	Create(ctx context.Context, opts CreateTabOptions) (*types.Tab, error)
	Get(ctx context.Context, id types.TabID) (*types.Tab, error)
	Update(ctx context.Context, id types.TabID, opts UpdateTabOptions) (*types.Tab, error)
	Remove(ctx context.Context, id types.TabID) error
	Query(ctx context.Context, q TabQuery) ([]*types.Tab, error)

	// Group re-parents tabs into a group. With a nil groupID the host
	// creates a fresh group and returns its handle.
	Group(ctx context.Context, ids []types.TabID, groupID *types.GroupID) (types.GroupID, error)
	Ungroup(ctx context.Context, ids []types.TabID) error
}

// TabGroups is the tab-group capability surface.
type TabGroups interface {
	Get(ctx context.Context, id types.GroupID) (*types.Group, error)
	Query(ctx context.Context, q GroupQuery) ([]*types.Group, error)
	Update(ctx context.Context, id types.GroupID, u GroupUpdate) (*types.Group, error)
}

// Bookmarks is the bookmark-tree capability surface. Folders are
// created by passing an empty url to Create.
type Bookmarks interface {
	SearchByTitle(ctx context.Context, title string) ([]*types.BookmarkNode, error)
	GetChildren(ctx context.Context, folderID string) ([]*types.BookmarkNode, error)
	Create(ctx context.Context, parentID, title, url string) (*types.BookmarkNode, error)
	Update(ctx context.Context, id string, title, url *string) error
	Move(ctx context.Context, id, newParentID string) error
	Remove(ctx context.Context, id string) error
	RemoveTree(ctx context.Context, id string) error
}

// Host bundles the full capability surface plus the event feed.
// Events delivers normalized tab events in host order; the channel is
// closed when the host goes away.
type Host interface {
	Tabs() Tabs
	TabGroups() TabGroups
	Bookmarks() Bookmarks
	Events() <-chan types.Event
}
