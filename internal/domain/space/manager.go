package space

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/domain/bookmarks"
	"github.com/arcify/spaces/internal/domain/groups"
	"github.com/arcify/spaces/internal/infrastructure/monitoring"
	"github.com/arcify/spaces/internal/shared/id"
	"github.com/arcify/spaces/internal/shared/types"
	"github.com/arcify/spaces/internal/storage"
)

// StorageKey is the durable record holding the full space array.
const StorageKey = "spaces"

// ErrDuplicateName is returned when a space name is already taken.
// This is the one user-facing failure of the registry.
var ErrDuplicateName = errors.New("a space with that name already exists")

// Store is the durable key-value surface the registry persists to.
type Store interface {
	Get(ctx context.Context, ns storage.Namespace, key string, out interface{}) (bool, error)
	Set(ctx context.Context, ns storage.Namespace, key string, v interface{}) error
}

// Tabs is the slice of the tab capability the registry needs for
// re-parenting and closing.
type Tabs interface {
	Group(ctx context.Context, ids []types.TabID, groupID *types.GroupID) (types.GroupID, error)
	Remove(ctx context.Context, id types.TabID) error
}

// Manager owns the space registry.
type Manager struct {
	mu      sync.Mutex
	spaces  []*types.Space
	active  string // uuid of the active space, "" before init
	prevURL map[types.TabID]string

	tabs    Tabs
	groups  *groups.Adapter
	folders *bookmarks.Accessor
	store   Store
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewManager creates a registry manager.
func NewManager(tabs Tabs, adapter *groups.Adapter, folders *bookmarks.Accessor, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		prevURL: make(map[types.TabID]string),
		tabs:    tabs,
		groups:  adapter,
		folders: folders,
		store:   store,
		logger:  logger,
	}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Load reads the persisted registry. An absent record is an empty
// registry, not an error.
func (m *Manager) Load(ctx context.Context) error {
	var spaces []*types.Space
	ok, err := m.store.Get(ctx, storage.Local, StorageKey, &spaces)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	m.mu.Lock()
	if ok {
		m.spaces = spaces
	}
	m.mu.Unlock()
	return nil
}

// Reset replaces the registry wholesale and persists. The
// initialization reconciler uses this after deriving a consistent
// registry from the live groups and the bookmark tree.
func (m *Manager) Reset(ctx context.Context, spaces []*types.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spaces = spaces
	return m.persistLocked(ctx)
}

// List returns copies of every space, in registry order.
func (m *Manager) List() []*types.Space {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*types.Space, 0, len(m.spaces))
	for _, sp := range m.spaces {
		out = append(out, copySpace(sp))
	}
	return out
}

// Get retrieves a space by its stable UUID.
func (m *Manager) Get(uuid string) (*types.Space, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp := m.byUUIDLocked(uuid)
	if sp == nil {
		return nil, false
	}
	return copySpace(sp), true
}

// ByGroup retrieves the space currently bound to a live group handle.
// Group handles are volatile, so callers must tolerate a miss.
func (m *Manager) ByGroup(gid types.GroupID) (*types.Space, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sp := range m.spaces {
		if sp.ID == gid {
			return copySpace(sp), true
		}
	}
	return nil, false
}

// ByName retrieves a space by name.
func (m *Manager) ByName(name string) (*types.Space, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sp := range m.spaces {
		if sp.Name == name {
			return copySpace(sp), true
		}
	}
	return nil, false
}

// SpaceForTab finds the space holding a tab handle in either list.
func (m *Manager) SpaceForTab(tab types.TabID) (*types.Space, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sp := range m.spaces {
		if sp.Contains(tab) {
			return copySpace(sp), true
		}
	}
	return nil, false
}

// Active returns the UUID of the active space, or "".
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// SetActive records the active space.
func (m *Manager) SetActive(uuid string) {
	m.mu.Lock()
	m.active = uuid
	m.mu.Unlock()
}

// Create builds a new space: a blank tab, a fresh group carrying the
// space's name and color, and a bookmark folder. Group creation blocks
// the rest, since its handle seeds the record.
func (m *Manager) Create(ctx context.Context, name string, color types.Color) (*types.Space, error) {
	if !color.IsValid() {
		color = types.ColorGrey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sp := range m.spaces {
		if sp.Name == name {
			return nil, ErrDuplicateName
		}
	}

	tab, err := m.groups.CreateTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open tab for space: %w", err)
	}
	gid, err := m.groups.CreateGroup(ctx, []types.TabID{tab.ID}, name, color)
	if err != nil {
		return nil, err
	}

	root, err := m.folders.GetOrCreateRoot(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := m.folders.GetOrCreateChildFolder(ctx, root.ID, name); err != nil {
		return nil, err
	}

	sp := &types.Space{
		ID:             gid,
		UUID:           id.NewSpaceUUID(),
		Name:           name,
		Color:          color,
		SpaceBookmarks: []types.TabID{},
		TemporaryTabs:  []types.TabID{tab.ID},
		LastTab:        &tab.ID,
	}
	m.spaces = append(m.spaces, sp)
	m.persistOrWarnLocked(ctx)

	m.logger.Info("space created",
		zap.String("uuid", sp.UUID),
		zap.String("name", name),
		zap.Int("group", int(gid)))
	return copySpace(sp), nil
}

// Adopt inserts an externally derived space record and persists.
func (m *Manager) Adopt(ctx context.Context, sp *types.Space) {
	m.mu.Lock()
	m.spaces = append(m.spaces, sp)
	m.persistOrWarnLocked(ctx)
	m.mu.Unlock()
}

// Delete destroys a space: closes its member tabs, removes its
// bookmark folder tree, and drops the registry entry.
func (m *Manager) Delete(ctx context.Context, uuid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, sp := range m.spaces {
		if sp.UUID == uuid {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("no space with uuid %s", uuid)
	}
	sp := m.spaces[idx]

	tabs, err := m.groups.TabsInGroup(ctx, sp.ID)
	if err == nil {
		for _, t := range tabs {
			if err := m.tabs.Remove(ctx, t.ID); err != nil {
				m.logger.Warn("failed to close tab during space delete",
					zap.Int("tab", int(t.ID)), zap.Error(err))
			}
		}
	}

	if _, err := m.folders.RemoveTreeByTitle(ctx, sp.Name); err != nil {
		m.logger.Warn("failed to remove space folder",
			zap.String("name", sp.Name), zap.Error(err))
	}

	m.spaces = append(m.spaces[:idx], m.spaces[idx+1:]...)
	if m.active == uuid {
		m.active = ""
	}
	m.persistOrWarnLocked(ctx)

	m.logger.Info("space deleted", zap.String("uuid", uuid), zap.String("name", sp.Name))
	return nil
}

// Update renames and/or recolors a space, mirroring the change into
// the bookmark folder title and the live group.
func (m *Manager) Update(ctx context.Context, uuid string, name *string, color *types.Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp := m.byUUIDLocked(uuid)
	if sp == nil {
		return fmt.Errorf("no space with uuid %s", uuid)
	}

	if name != nil && *name != sp.Name {
		for _, other := range m.spaces {
			if other.UUID != uuid && other.Name == *name {
				return ErrDuplicateName
			}
		}
		if _, err := m.folders.RenameChildFolder(ctx, sp.Name, *name); err != nil {
			return err
		}
		sp.Name = *name
	}
	if color != nil && color.IsValid() {
		sp.Color = *color
	}

	if err := m.groups.Restyle(ctx, sp.ID, sp.Name, sp.Color); err != nil {
		// Group may be dormant; the folder rename already committed and
		// reactivation will restyle.
		m.logger.Debug("group restyle skipped", zap.String("uuid", uuid), zap.Error(err))
	}
	m.persistOrWarnLocked(ctx)
	return nil
}

// MoveTabToSpace re-parents a tab into the target space's group, then
// rewrites the bookkeeping: the handle is removed from both lists of
// every space before it is inserted into exactly one list of the
// target. Host re-parenting comes first so a failure leaves the
// registry untouched.
func (m *Manager) MoveTabToSpace(ctx context.Context, tab *types.Tab, targetUUID string, pinned bool, afterTab *types.TabID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.byUUIDLocked(targetUUID)
	if target == nil {
		return fmt.Errorf("no space with uuid %s", targetUUID)
	}

	gid := target.ID
	if _, err := m.tabs.Group(ctx, []types.TabID{tab.ID}, &gid); err != nil {
		return fmt.Errorf("failed to re-parent tab %d: %w", tab.ID, err)
	}

	for _, sp := range m.spaces {
		sp.SpaceBookmarks = removeTab(sp.SpaceBookmarks, tab.ID)
		sp.TemporaryTabs = removeTab(sp.TemporaryTabs, tab.ID)
	}
	if pinned {
		target.SpaceBookmarks = insertAfter(target.SpaceBookmarks, tab.ID, afterTab)
	} else {
		target.TemporaryTabs = insertAfter(target.TemporaryTabs, tab.ID, afterTab)
	}
	return m.persistLocked(ctx)
}

// MoveTabToPinned promotes a tab into the bookmark-backed list and
// ensures a backing bookmark exists. Deduplication is by URL: an
// existing bookmark with the tab's URL is left alone, while a stale
// bookmark recorded under the tab's previous URL is replaced.
func (m *Manager) MoveTabToPinned(ctx context.Context, uuid string, tab *types.Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp := m.byUUIDLocked(uuid)
	if sp == nil {
		return fmt.Errorf("no space with uuid %s", uuid)
	}

	sp.TemporaryTabs = removeTab(sp.TemporaryTabs, tab.ID)
	if !sp.Pinned(tab.ID) {
		sp.SpaceBookmarks = append(sp.SpaceBookmarks, tab.ID)
	}

	root, err := m.folders.GetOrCreateRoot(ctx)
	if err != nil {
		return err
	}
	folder, err := m.folders.GetOrCreateChildFolder(ctx, root.ID, sp.Name)
	if err != nil {
		return err
	}
	existing, err := m.folders.FindByURL(ctx, folder.ID, tab.URL)
	if err != nil {
		return err
	}
	if existing == nil {
		if prev, ok := m.prevURL[tab.ID]; ok && prev != tab.URL {
			if _, err := m.folders.RemoveByURL(ctx, folder.ID, prev); err != nil {
				m.logger.Warn("failed to drop stale bookmark",
					zap.String("url", prev), zap.Error(err))
			}
		}
		if _, err := m.folders.CreateBookmark(ctx, folder.ID, tab.Title, tab.URL); err != nil {
			return fmt.Errorf("failed to create bookmark: %w", err)
		}
	}
	m.prevURL[tab.ID] = tab.URL
	return m.persistLocked(ctx)
}

// MoveTabToTemp demotes a tab to the temporary list, removing any
// bookmark matching its URL under the space's folder.
func (m *Manager) MoveTabToTemp(ctx context.Context, uuid string, tab *types.Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp := m.byUUIDLocked(uuid)
	if sp == nil {
		return fmt.Errorf("no space with uuid %s", uuid)
	}

	root, err := m.folders.FindRoot(ctx)
	if err != nil {
		return err
	}
	if root != nil {
		folder, err := m.folders.FindChildFolder(ctx, root.ID, sp.Name)
		if err != nil {
			return err
		}
		if folder != nil {
			if _, err := m.folders.RemoveByURL(ctx, folder.ID, tab.URL); err != nil {
				return err
			}
		}
	}

	sp.SpaceBookmarks = removeTab(sp.SpaceBookmarks, tab.ID)
	if !sp.Contains(tab.ID) {
		sp.TemporaryTabs = append(sp.TemporaryTabs, tab.ID)
	}
	return m.persistLocked(ctx)
}

// InsertTemporary slots a freshly created tab into a space's temporary
// list: immediately after its opener when the opener is present, else
// at the front.
func (m *Manager) InsertTemporary(ctx context.Context, uuid string, tab types.TabID, opener *types.TabID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp := m.byUUIDLocked(uuid)
	if sp == nil || sp.Contains(tab) {
		return
	}
	if opener != nil && containsTab(sp.TemporaryTabs, *opener) {
		sp.TemporaryTabs = insertAfter(sp.TemporaryTabs, tab, opener)
	} else {
		sp.TemporaryTabs = append([]types.TabID{tab}, sp.TemporaryTabs...)
	}
	m.persistOrWarnLocked(ctx)
}

// RemoveTabEverywhere purges a tab handle from both lists of every
// space. A handle found in neither list is a no-op, not an error.
func (m *Manager) RemoveTabEverywhere(ctx context.Context, tab types.TabID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	changed := false
	for _, sp := range m.spaces {
		before := len(sp.SpaceBookmarks) + len(sp.TemporaryTabs)
		sp.SpaceBookmarks = removeTab(sp.SpaceBookmarks, tab)
		sp.TemporaryTabs = removeTab(sp.TemporaryTabs, tab)
		if sp.LastTab != nil && *sp.LastTab == tab {
			sp.LastTab = nil
		}
		if len(sp.SpaceBookmarks)+len(sp.TemporaryTabs) != before {
			changed = true
		}
	}
	delete(m.prevURL, tab)
	if changed {
		m.persistOrWarnLocked(ctx)
	}
}

// SetLastTab records the most recently active tab of a space.
func (m *Manager) SetLastTab(ctx context.Context, uuid string, tab types.TabID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp := m.byUUIDLocked(uuid)
	if sp == nil {
		return
	}
	if sp.LastTab != nil && *sp.LastTab == tab {
		return
	}
	sp.LastTab = &tab
	m.persistOrWarnLocked(ctx)
}

// NoteURL records a tab's current URL so a later pin can retire the
// bookmark written under a previous one.
func (m *Manager) NoteURL(tab types.TabID, url string) {
	m.mu.Lock()
	m.prevURL[tab] = url
	m.mu.Unlock()
}

// PrevURL returns the last URL recorded for a tab.
func (m *Manager) PrevURL(tab types.TabID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.prevURL[tab]
	return u, ok
}

// EnsureLiveGroup reactivates a dormant space: when its group handle
// no longer resolves, one blank tab and one fresh group are created
// and the space's ID is replaced in place. UUID and registry position
// are untouched. Reports whether a reactivation happened.
func (m *Manager) EnsureLiveGroup(ctx context.Context, uuid string) (*types.Space, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sp := m.byUUIDLocked(uuid)
	if sp == nil {
		return nil, false, fmt.Errorf("no space with uuid %s", uuid)
	}
	if g := m.groups.FindGroup(ctx, sp.ID); g != nil {
		return copySpace(sp), false, nil
	}

	tab, err := m.groups.CreateTab(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open tab for dormant space: %w", err)
	}
	gid, err := m.groups.CreateGroup(ctx, []types.TabID{tab.ID}, sp.Name, sp.Color)
	if err != nil {
		return nil, false, err
	}

	sp.ID = gid
	sp.SpaceBookmarks = []types.TabID{}
	sp.TemporaryTabs = []types.TabID{tab.ID}
	sp.LastTab = &tab.ID
	m.persistOrWarnLocked(ctx)

	m.logger.Info("dormant space reactivated",
		zap.String("uuid", uuid), zap.Int("group", int(gid)))
	return copySpace(sp), true, nil
}

// Stats summarizes registry state.
func (m *Manager) Stats() types.SpaceStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := types.SpaceStats{TotalSpaces: len(m.spaces)}
	for _, sp := range m.spaces {
		s.PinnedTabs += len(sp.SpaceBookmarks)
		s.TemporaryTabs += len(sp.TemporaryTabs)
	}
	if m.active != "" {
		active := m.active
		s.ActiveUUID = &active
	}
	return s
}

// byUUIDLocked returns the live record. Caller holds mu.
func (m *Manager) byUUIDLocked(uuid string) *types.Space {
	for _, sp := range m.spaces {
		if sp.UUID == uuid {
			return sp
		}
	}
	return nil
}

// persistLocked serializes the full array write-through. Caller holds
// mu. Last writer wins; all mutators funnel through this mutex.
func (m *Manager) persistLocked(ctx context.Context) error {
	if err := m.store.Set(ctx, storage.Local, StorageKey, m.spaces); err != nil {
		return fmt.Errorf("failed to persist registry: %w", err)
	}
	if m.metrics != nil {
		pinned, temp := 0, 0
		for _, sp := range m.spaces {
			pinned += len(sp.SpaceBookmarks)
			temp += len(sp.TemporaryTabs)
		}
		m.metrics.UpdateRegistry(len(m.spaces), pinned, temp)
		m.metrics.Persists.Inc()
	}
	return nil
}

func (m *Manager) persistOrWarnLocked(ctx context.Context) {
	if err := m.persistLocked(ctx); err != nil {
		m.logger.Warn("registry persist failed", zap.Error(err))
	}
}

func copySpace(sp *types.Space) *types.Space {
	c := *sp
	c.SpaceBookmarks = append([]types.TabID{}, sp.SpaceBookmarks...)
	c.TemporaryTabs = append([]types.TabID{}, sp.TemporaryTabs...)
	if sp.LastTab != nil {
		lt := *sp.LastTab
		c.LastTab = &lt
	}
	return &c
}

func removeTab(list []types.TabID, tab types.TabID) []types.TabID {
	for i, t := range list {
		if t == tab {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func containsTab(list []types.TabID, tab types.TabID) bool {
	for _, t := range list {
		if t == tab {
			return true
		}
	}
	return false
}

func insertAfter(list []types.TabID, tab types.TabID, after *types.TabID) []types.TabID {
	if after != nil {
		for i, t := range list {
			if t == *after {
				out := make([]types.TabID, 0, len(list)+1)
				out = append(out, list[:i+1]...)
				out = append(out, tab)
				return append(out, list[i+1:]...)
			}
		}
	}
	return append(list, tab)
}
