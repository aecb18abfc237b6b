package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/domain/bookmarks"
	"github.com/arcify/spaces/internal/shared/types"
)

// CreateSpace builds a new space and makes it active. The guard keeps
// the blank tab the registry opens from being double-processed by the
// created handler.
func (r *Reconciler) CreateSpace(ctx context.Context, name string, color types.Color) (*types.Space, error) {
	release := r.acquire(GuardCreatingSpace)
	defer release()

	sp, err := r.registry.Create(ctx, name, color)
	if err != nil {
		return nil, err
	}
	r.registry.SetActive(sp.UUID)
	r.expandOnly(ctx, sp)
	return sp, nil
}

// DeleteSpace destroys a space, its tabs, and its folder tree.
func (r *Reconciler) DeleteSpace(ctx context.Context, uuid string) error {
	release := r.acquire(GuardCreatingSpace)
	defer release()
	return r.registry.Delete(ctx, uuid)
}

// UpdateSpace renames and/or recolors a space.
func (r *Reconciler) UpdateSpace(ctx context.Context, uuid string, name *string, color *types.Color) error {
	return r.registry.Update(ctx, uuid, name, color)
}

// SwitchSpace activates a space: a dormant one is reactivated first
// (one fresh tab and group, ID replaced in place), other groups are
// collapsed, and focus lands on the space's last active tab.
func (r *Reconciler) SwitchSpace(ctx context.Context, uuid string) error {
	release := r.acquire(GuardCreatingSpace)
	defer release()

	sp, created, err := r.registry.EnsureLiveGroup(ctx, uuid)
	if err != nil {
		return err
	}
	r.registry.SetActive(uuid)
	r.expandOnly(ctx, sp)
	if created {
		// Reactivation already opened and focused a fresh tab.
		return nil
	}

	focus := sp.LastTab
	if focus == nil {
		tabs, err := r.adapter.TabsInGroup(ctx, sp.ID)
		if err != nil || len(tabs) == 0 {
			return nil
		}
		focus = &tabs[0].ID
	}
	active := true
	if _, err := r.tabs.Update(ctx, *focus, browser.UpdateTabOptions{Active: &active}); err != nil {
		r.logger.Debug("could not focus last tab",
			zap.Int("tab", int(*focus)), zap.Error(err))
	}
	return nil
}

// OpenBookmark opens (or refocuses) a pinned bookmark inside a space.
// An already-open tab with the bookmark's URL is activated; otherwise
// a tab is created in the space's group and bookkept as pinned.
func (r *Reconciler) OpenBookmark(ctx context.Context, uuid, url string) (*types.Tab, error) {
	release := r.acquire(GuardOpeningBookmark)
	defer release()

	sp, _, err := r.registry.EnsureLiveGroup(ctx, uuid)
	if err != nil {
		return nil, err
	}

	open, err := r.adapter.TabsInGroup(ctx, sp.ID)
	if err != nil {
		return nil, err
	}
	active := true
	for _, t := range open {
		if t.URL == url {
			return r.tabs.Update(ctx, t.ID, browser.UpdateTabOptions{Active: &active})
		}
	}

	tab, err := r.tabs.Create(ctx, browser.CreateTabOptions{URL: url, Active: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open bookmark tab: %w", err)
	}
	if err := r.adapter.AddToGroup(ctx, []types.TabID{tab.ID}, sp.ID); err != nil {
		return nil, err
	}
	r.registry.NoteURL(tab.ID, url)
	if err := r.registry.MoveTabToPinned(ctx, uuid, tab); err != nil {
		return nil, err
	}
	r.tracker.Touch(ctx, tab.ID)
	return tab, nil
}

// Drop mirrors a drag-and-drop: the tab moves into the target space
// and lands in the pinned or temporary section. When a sub-folder name
// is given, its bookmark is re-parented into that sub-folder, created
// on demand.
func (r *Reconciler) Drop(ctx context.Context, tabID types.TabID, targetUUID string, pinned bool, afterTab *types.TabID, subfolder string) error {
	release := r.acquire(GuardDraggingTab)
	defer release()

	tab, err := r.tabs.Get(ctx, tabID)
	if err != nil {
		return fmt.Errorf("dropped tab is gone: %w", err)
	}

	if err := r.registry.MoveTabToSpace(ctx, tab, targetUUID, pinned, afterTab); err != nil {
		return err
	}
	if !pinned {
		return r.registry.MoveTabToTemp(ctx, targetUUID, tab)
	}
	if err := r.registry.MoveTabToPinned(ctx, targetUUID, tab); err != nil {
		return err
	}
	if subfolder == "" {
		return nil
	}
	return r.fileIntoSubfolder(ctx, targetUUID, tab.URL, subfolder)
}

// fileIntoSubfolder re-parents a space bookmark into a named
// sub-folder of the space's folder.
func (r *Reconciler) fileIntoSubfolder(ctx context.Context, uuid, url, subfolder string) error {
	sp, ok := r.registry.Get(uuid)
	if !ok {
		return fmt.Errorf("no space with uuid %s", uuid)
	}
	root, err := r.folders.GetOrCreateRoot(ctx)
	if err != nil {
		return err
	}
	folder, err := r.folders.GetOrCreateChildFolder(ctx, root.ID, sp.Name)
	if err != nil {
		return err
	}
	node, err := r.folders.FindByURL(ctx, folder.ID, url)
	if err != nil || node == nil {
		return err
	}
	sub, err := r.folders.GetOrCreateChildFolder(ctx, folder.ID, subfolder)
	if err != nil {
		return err
	}
	return r.folders.MoveNode(ctx, node.ID, sub.ID)
}

// ListSpaceBookmarks flattens a space's folder, matching entries to
// open tabs in its group. Dormant spaces list from the folder alone.
func (r *Reconciler) ListSpaceBookmarks(ctx context.Context, uuid string) ([]types.BookmarkEntry, error) {
	sp, ok := r.registry.Get(uuid)
	if !ok {
		return nil, fmt.Errorf("no space with uuid %s", uuid)
	}
	root, err := r.folders.FindRoot(ctx)
	if err != nil || root == nil {
		return nil, err
	}
	folder, err := r.folders.FindChildFolder(ctx, root.ID, sp.Name)
	if err != nil || folder == nil {
		return nil, err
	}
	opts := bookmarks.ListOptions{}
	if g := r.adapter.FindGroup(ctx, sp.ID); g != nil {
		opts = bookmarks.ListOptions{MatchToOpenTabs: true, GroupID: sp.ID}
	}
	return r.folders.ListRecursive(ctx, folder.ID, opts)
}

// CloseTab closes a tab on the user's behalf. If the tab is the last
// member of its group a replacement blank tab is created first so the
// host does not auto-close the group. A pinned tab's bookmark
// survives; only the live tab goes away.
func (r *Reconciler) CloseTab(ctx context.Context, tabID types.TabID) error {
	tab, err := r.tabs.Get(ctx, tabID)
	if err != nil {
		// Already closed; removal bookkeeping happens via the event.
		return nil
	}

	if tab.GroupID != types.NoGroup {
		members, err := r.adapter.TabsInGroup(ctx, tab.GroupID)
		if err == nil && len(members) == 1 && members[0].ID == tabID {
			r.replaceLastTab(ctx, tab.GroupID)
		}
	}
	return r.tabs.Remove(ctx, tabID)
}

// replaceLastTab opens a blank tab into a group about to lose its last
// member, and bookkeeps it as temporary in the owning space.
func (r *Reconciler) replaceLastTab(ctx context.Context, gid types.GroupID) {
	release := r.acquire(GuardCreatingSpace)
	defer release()

	blank, err := r.tabs.Create(ctx, browser.CreateTabOptions{Active: true})
	if err != nil {
		r.logger.Warn("failed to open replacement tab", zap.Error(err))
		r.countError("close_tab")
		return
	}
	if err := r.adapter.AddToGroup(ctx, []types.TabID{blank.ID}, gid); err != nil {
		r.logger.Warn("failed to group replacement tab", zap.Error(err))
		r.countError("close_tab")
		return
	}
	if sp, ok := r.registry.ByGroup(gid); ok {
		r.registry.InsertTemporary(ctx, sp.UUID, blank.ID, nil)
	}
}

// RenameTab records a user tab-name override and pushes it into the
// backing bookmark when the tab is pinned.
func (r *Reconciler) RenameTab(ctx context.Context, tabID types.TabID, name string) error {
	tab, err := r.tabs.Get(ctx, tabID)
	if err != nil {
		return err
	}
	if err := r.titles.Set(ctx, tab.URL, name); err != nil {
		return err
	}
	if sp, ok := r.registry.SpaceForTab(tabID); ok && sp.Pinned(tabID) {
		if _, err := r.folders.UpdateTitleByURL(ctx, sp.Name, tab.URL, name); err != nil {
			r.countError("rename_tab")
		}
	}
	return nil
}
