// Package memhost implements the browser capability surface in memory.
//
// It reproduces the host behaviors the reconcilers depend on: tab ids
// are never reused, host-pinning a tab ejects it from its group, and a
// group whose last tab closes is deleted. Tests drive the engine
// against this host; the daemon's demo mode uses it as well.
package memhost

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/shared/types"
)

// Host is an in-memory browser host.
type Host struct {
	mu           sync.Mutex
	nextTab      types.TabID
	nextGroup    types.GroupID
	nextBookmark int
	tabs         map[types.TabID]*types.Tab
	groups       map[types.GroupID]*types.Group
	nodes        map[string]*types.BookmarkNode
	active       map[types.WindowID]types.TabID
	events       chan types.Event
}

// New creates an empty host with the fixed bookmark containers.
func New() *Host {
	h := &Host{
		nextTab:      1,
		nextGroup:    1,
		nextBookmark: 10,
		tabs:         make(map[types.TabID]*types.Tab),
		groups:       make(map[types.GroupID]*types.Group),
		nodes:        make(map[string]*types.BookmarkNode),
		active:       make(map[types.WindowID]types.TabID),
		events:       make(chan types.Event, 256),
	}
	h.nodes[browser.TreeRootID] = &types.BookmarkNode{ID: browser.TreeRootID, Title: "root"}
	h.addNode(browser.TreeRootID, &types.BookmarkNode{ID: browser.ToolbarRootID, Title: "Bookmarks Bar"})
	h.addNode(browser.TreeRootID, &types.BookmarkNode{ID: browser.OtherItemsRootID, Title: "Other Bookmarks"})
	return h
}

func (h *Host) Tabs() browser.Tabs           { return tabAPI{h} }
func (h *Host) TabGroups() browser.TabGroups { return groupAPI{h} }
func (h *Host) Bookmarks() browser.Bookmarks { return bookmarkAPI{h} }
func (h *Host) Events() <-chan types.Event   { return h.events }

func (h *Host) emit(ev types.Event) {
	select {
	case h.events <- ev:
	default:
	}
}

func (h *Host) addNode(parentID string, n *types.BookmarkNode) {
	n.ParentID = parentID
	h.nodes[n.ID] = n
	p := h.nodes[parentID]
	p.Children = append(p.Children, n)
}

func snapshot(t *types.Tab) *types.Tab {
	c := *t
	return &c
}

// ---------------------------------------------------------------------------
// Tabs

type tabAPI struct{ h *Host }

func (a tabAPI) Create(ctx context.Context, opts browser.CreateTabOptions) (*types.Tab, error) {
	h := a.h
	h.mu.Lock()
	t := &types.Tab{
		ID:       h.nextTab,
		WindowID: opts.WindowID,
		GroupID:  types.NoGroup,
		OpenerID: opts.OpenerID,
		URL:      opts.URL,
		Title:    opts.URL,
		Active:   opts.Active,
		Index:    len(h.tabs),
	}
	h.nextTab++
	h.tabs[t.ID] = t
	if opts.Active {
		h.setActiveLocked(t)
	}
	created := snapshot(t)
	h.mu.Unlock()

	h.emit(types.Event{Kind: types.EventTabCreated, TabID: created.ID, Tab: created})
	if created.Active {
		h.emit(types.Event{Kind: types.EventTabActivated, TabID: created.ID, Tab: created})
	}
	return created, nil
}

func (a tabAPI) Get(ctx context.Context, id types.TabID) (*types.Tab, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	t, ok := h.tabs[id]
	if !ok {
		return nil, fmt.Errorf("no tab with id %d", id)
	}
	return snapshot(t), nil
}

func (a tabAPI) Update(ctx context.Context, id types.TabID, opts browser.UpdateTabOptions) (*types.Tab, error) {
	h := a.h
	h.mu.Lock()
	t, ok := h.tabs[id]
	if !ok {
		h.mu.Unlock()
		return nil, fmt.Errorf("no tab with id %d", id)
	}

	change := &types.TabChange{}
	if opts.URL != nil && *opts.URL != t.URL {
		t.URL = *opts.URL
		t.Title = *opts.URL
		change.URL = opts.URL
		change.Title = &t.Title
	}
	if opts.Pinned != nil && *opts.Pinned != t.Pinned {
		t.Pinned = *opts.Pinned
		change.Pinned = opts.Pinned
		if t.Pinned && t.GroupID != types.NoGroup {
			// Host-pinned tabs cannot stay grouped.
			h.leaveGroupLocked(t)
			g := t.GroupID
			change.GroupID = &g
		}
	}
	activated := false
	if opts.Active != nil && *opts.Active && !t.Active {
		h.setActiveLocked(t)
		activated = true
	}
	updated := snapshot(t)
	h.mu.Unlock()

	if change.URL != nil || change.Pinned != nil {
		h.emit(types.Event{Kind: types.EventTabUpdated, TabID: id, Tab: updated, Change: change})
	}
	if activated {
		h.emit(types.Event{Kind: types.EventTabActivated, TabID: id, Tab: updated})
	}
	return updated, nil
}

func (a tabAPI) Remove(ctx context.Context, id types.TabID) error {
	h := a.h
	h.mu.Lock()
	t, ok := h.tabs[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("no tab with id %d", id)
	}
	h.leaveGroupLocked(t)
	delete(h.tabs, id)
	if h.active[t.WindowID] == id {
		delete(h.active, t.WindowID)
	}
	h.mu.Unlock()

	h.emit(types.Event{Kind: types.EventTabRemoved, TabID: id})
	return nil
}

func (a tabAPI) Query(ctx context.Context, q browser.TabQuery) ([]*types.Tab, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []*types.Tab
	for _, t := range h.tabs {
		if q.WindowID != nil && t.WindowID != *q.WindowID {
			continue
		}
		if q.GroupID != nil && t.GroupID != *q.GroupID {
			continue
		}
		if q.Pinned != nil && t.Pinned != *q.Pinned {
			continue
		}
		if q.Active != nil && t.Active != *q.Active {
			continue
		}
		out = append(out, snapshot(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a tabAPI) Group(ctx context.Context, ids []types.TabID, groupID *types.GroupID) (types.GroupID, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(ids) == 0 {
		return types.NoGroup, fmt.Errorf("no tabs to group")
	}
	for _, id := range ids {
		if _, ok := h.tabs[id]; !ok {
			return types.NoGroup, fmt.Errorf("no tab with id %d", id)
		}
	}

	var gid types.GroupID
	if groupID != nil {
		if _, ok := h.groups[*groupID]; !ok {
			return types.NoGroup, fmt.Errorf("no group with id %d", *groupID)
		}
		gid = *groupID
	} else {
		gid = h.nextGroup
		h.nextGroup++
		h.groups[gid] = &types.Group{
			ID:       gid,
			WindowID: h.tabs[ids[0]].WindowID,
			Color:    types.ColorGrey,
		}
	}
	for _, id := range ids {
		t := h.tabs[id]
		if t.GroupID == gid {
			continue
		}
		h.leaveGroupLocked(t)
		t.GroupID = gid
	}
	return gid, nil
}

func (a tabAPI) Ungroup(ctx context.Context, ids []types.TabID) error {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range ids {
		if t, ok := h.tabs[id]; ok {
			h.leaveGroupLocked(t)
		}
	}
	return nil
}

// leaveGroupLocked detaches a tab from its group, deleting the group
// if the tab was its last member. Caller holds mu.
func (h *Host) leaveGroupLocked(t *types.Tab) {
	gid := t.GroupID
	if gid == types.NoGroup {
		return
	}
	t.GroupID = types.NoGroup
	for _, other := range h.tabs {
		if other.GroupID == gid {
			return
		}
	}
	delete(h.groups, gid)
}

func (h *Host) setActiveLocked(t *types.Tab) {
	if prev, ok := h.active[t.WindowID]; ok {
		if p, exists := h.tabs[prev]; exists {
			p.Active = false
		}
	}
	t.Active = true
	h.active[t.WindowID] = t.ID
}

// ---------------------------------------------------------------------------
// Tab groups

type groupAPI struct{ h *Host }

func (a groupAPI) Get(ctx context.Context, id types.GroupID) (*types.Group, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	g, ok := h.groups[id]
	if !ok {
		return nil, fmt.Errorf("no group with id %d", id)
	}
	c := *g
	return &c, nil
}

func (a groupAPI) Query(ctx context.Context, q browser.GroupQuery) ([]*types.Group, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []*types.Group
	for _, g := range h.groups {
		if q.WindowID != nil && g.WindowID != *q.WindowID {
			continue
		}
		if q.Title != nil && g.Title != *q.Title {
			continue
		}
		c := *g
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a groupAPI) Update(ctx context.Context, id types.GroupID, u browser.GroupUpdate) (*types.Group, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	g, ok := h.groups[id]
	if !ok {
		return nil, fmt.Errorf("no group with id %d", id)
	}
	if u.Title != nil {
		g.Title = *u.Title
	}
	if u.Color != nil {
		g.Color = *u.Color
	}
	if u.Collapsed != nil {
		g.Collapsed = *u.Collapsed
	}
	c := *g
	return &c, nil
}

// ---------------------------------------------------------------------------
// Bookmarks

type bookmarkAPI struct{ h *Host }

func (a bookmarkAPI) SearchByTitle(ctx context.Context, title string) ([]*types.BookmarkNode, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []*types.BookmarkNode
	for _, n := range h.nodes {
		if n.Title == title && n.ID != browser.TreeRootID {
			out = append(out, cloneNode(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a bookmarkAPI) GetChildren(ctx context.Context, folderID string) ([]*types.BookmarkNode, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.nodes[folderID]
	if !ok {
		return nil, fmt.Errorf("no bookmark node %s", folderID)
	}
	out := make([]*types.BookmarkNode, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, cloneNode(c))
	}
	return out, nil
}

func (a bookmarkAPI) Create(ctx context.Context, parentID, title, url string) (*types.BookmarkNode, error) {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	parent, ok := h.nodes[parentID]
	if !ok || !parent.IsFolder() {
		return nil, fmt.Errorf("no bookmark folder %s", parentID)
	}
	n := &types.BookmarkNode{
		ID:    strconv.Itoa(h.nextBookmark),
		Title: title,
		URL:   url,
	}
	h.nextBookmark++
	h.addNode(parentID, n)
	return cloneNode(n), nil
}

func (a bookmarkAPI) Update(ctx context.Context, id string, title, url *string) error {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("no bookmark node %s", id)
	}
	if title != nil {
		n.Title = *title
	}
	if url != nil && !n.IsFolder() {
		n.URL = *url
	}
	return nil
}

func (a bookmarkAPI) Move(ctx context.Context, id, newParentID string) error {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("no bookmark node %s", id)
	}
	parent, ok := h.nodes[newParentID]
	if !ok || !parent.IsFolder() {
		return fmt.Errorf("no bookmark folder %s", newParentID)
	}
	h.detachLocked(n)
	n.ParentID = newParentID
	parent.Children = append(parent.Children, n)
	return nil
}

func (a bookmarkAPI) Remove(ctx context.Context, id string) error {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("no bookmark node %s", id)
	}
	if len(n.Children) > 0 {
		return fmt.Errorf("folder %s is not empty", id)
	}
	h.detachLocked(n)
	delete(h.nodes, id)
	return nil
}

func (a bookmarkAPI) RemoveTree(ctx context.Context, id string) error {
	h := a.h
	h.mu.Lock()
	defer h.mu.Unlock()

	n, ok := h.nodes[id]
	if !ok {
		return fmt.Errorf("no bookmark node %s", id)
	}
	h.detachLocked(n)
	h.dropLocked(n)
	return nil
}

func (h *Host) detachLocked(n *types.BookmarkNode) {
	parent, ok := h.nodes[n.ParentID]
	if !ok {
		return
	}
	for i, c := range parent.Children {
		if c.ID == n.ID {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

func (h *Host) dropLocked(n *types.BookmarkNode) {
	for _, c := range n.Children {
		h.dropLocked(c)
	}
	delete(h.nodes, n.ID)
}

func cloneNode(n *types.BookmarkNode) *types.BookmarkNode {
	c := *n
	c.Children = nil
	for _, child := range n.Children {
		c.Children = append(c.Children, cloneNode(child))
	}
	return &c
}
