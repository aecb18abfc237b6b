package bookmarks

import (
	"context"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/shared/types"
)

// Accessor performs tree operations over the bookmark hierarchy
// anchored at the root folder (by default "Arcify").
type Accessor struct {
	bookmarks browser.Bookmarks
	tabs      browser.Tabs
	rootTitle string
	logger    *zap.Logger
}

// NewAccessor creates an accessor for the folder named rootTitle.
func NewAccessor(bm browser.Bookmarks, tabs browser.Tabs, rootTitle string, logger *zap.Logger) *Accessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accessor{bookmarks: bm, tabs: tabs, rootTitle: rootTitle, logger: logger}
}

// RootTitle returns the configured root folder title.
func (a *Accessor) RootTitle() string { return a.rootTitle }

// FindRoot locates the root folder. Host search indices can be stale
// or locale-dependent, so three strategies run in order: a direct
// title search, a scan of the top-level containers' children, and a
// scan of the "other items" container. Returns nil when all three
// miss.
func (a *Accessor) FindRoot(ctx context.Context) (*types.BookmarkNode, error) {
	// Strategy 1: title search.
	hits, err := a.bookmarks.SearchByTitle(ctx, a.rootTitle)
	if err != nil {
		return nil, err
	}
	for _, n := range hits {
		if n.IsFolder() {
			return n, nil
		}
	}

	// Strategy 2: walk the children of every top-level container.
	containers, err := a.bookmarks.GetChildren(ctx, browser.TreeRootID)
	if err != nil {
		return nil, err
	}
	for _, c := range containers {
		if !c.IsFolder() {
			continue
		}
		children, err := a.bookmarks.GetChildren(ctx, c.ID)
		if err != nil {
			continue
		}
		for _, n := range children {
			if n.IsFolder() && n.Title == a.rootTitle {
				return n, nil
			}
		}
	}

	// Strategy 3: the "other items" container directly.
	others, err := a.bookmarks.GetChildren(ctx, browser.OtherItemsRootID)
	if err != nil {
		return nil, nil
	}
	for _, n := range others {
		if n.IsFolder() && n.Title == a.rootTitle {
			return n, nil
		}
	}
	return nil, nil
}

// GetOrCreateRoot returns the root folder, creating it under the
// "other items" container when absent. Repeated calls return the same
// folder once it exists.
func (a *Accessor) GetOrCreateRoot(ctx context.Context) (*types.BookmarkNode, error) {
	root, err := a.FindRoot(ctx)
	if err != nil {
		return nil, err
	}
	if root != nil {
		return root, nil
	}
	a.logger.Info("creating root bookmark folder", zap.String("title", a.rootTitle))
	return a.bookmarks.Create(ctx, browser.OtherItemsRootID, a.rootTitle, "")
}

// GetOrCreateChildFolder finds a direct child folder of parent by
// title or creates it.
func (a *Accessor) GetOrCreateChildFolder(ctx context.Context, parentID, title string) (*types.BookmarkNode, error) {
	children, err := a.bookmarks.GetChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for _, n := range children {
		if n.IsFolder() && n.Title == title {
			return n, nil
		}
	}
	return a.bookmarks.Create(ctx, parentID, title, "")
}

// FindChildFolder finds a direct child folder by title. Nil when
// absent.
func (a *Accessor) FindChildFolder(ctx context.Context, parentID, title string) (*types.BookmarkNode, error) {
	children, err := a.bookmarks.GetChildren(ctx, parentID)
	if err != nil {
		return nil, err
	}
	for _, n := range children {
		if n.IsFolder() && n.Title == title {
			return n, nil
		}
	}
	return nil, nil
}

// ListOptions configures ListRecursive.
type ListOptions struct {
	// MatchToOpenTabs attaches the id of any open tab in GroupID whose
	// URL equals the bookmark's URL.
	MatchToOpenTabs bool
	GroupID         types.GroupID
}

// ListRecursive collects every leaf bookmark under folderID,
// depth-first. A missing folder yields an empty list.
func (a *Accessor) ListRecursive(ctx context.Context, folderID string, opts ListOptions) ([]types.BookmarkEntry, error) {
	entries, err := a.collect(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !opts.MatchToOpenTabs {
		return entries, nil
	}

	gid := opts.GroupID
	open, err := a.tabs.Query(ctx, browser.TabQuery{GroupID: &gid})
	if err != nil {
		return nil, err
	}
	byURL := make(map[string]types.TabID, len(open))
	for _, t := range open {
		if _, taken := byURL[t.URL]; !taken {
			byURL[t.URL] = t.ID
		}
	}
	for i := range entries {
		if tid, ok := byURL[entries[i].URL]; ok {
			id := tid
			entries[i].TabID = &id
		}
	}
	return entries, nil
}

// collect returns the leaves under folderID as an immutable list,
// merging child results rather than sharing an accumulator.
func (a *Accessor) collect(ctx context.Context, folderID string) ([]types.BookmarkEntry, error) {
	children, err := a.bookmarks.GetChildren(ctx, folderID)
	if err != nil {
		return nil, nil
	}
	var out []types.BookmarkEntry
	for _, n := range children {
		if n.IsFolder() {
			sub, err := a.collect(ctx, n.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, types.BookmarkEntry{ID: n.ID, Title: n.Title, URL: n.URL})
	}
	return out, nil
}

// RemoveByURL removes the first leaf under folderID whose URL matches,
// depth-first. Reports whether a leaf was removed.
func (a *Accessor) RemoveByURL(ctx context.Context, folderID, url string) (bool, error) {
	node, err := a.findByURL(ctx, folderID, url)
	if err != nil || node == nil {
		return false, err
	}
	if err := a.bookmarks.Remove(ctx, node.ID); err != nil {
		return false, err
	}
	return true, nil
}

// FindByURL returns the first leaf under folderID with the given URL,
// or nil.
func (a *Accessor) FindByURL(ctx context.Context, folderID, url string) (*types.BookmarkNode, error) {
	return a.findByURL(ctx, folderID, url)
}

func (a *Accessor) findByURL(ctx context.Context, folderID, url string) (*types.BookmarkNode, error) {
	children, err := a.bookmarks.GetChildren(ctx, folderID)
	if err != nil {
		return nil, nil
	}
	for _, n := range children {
		if !n.IsFolder() {
			if n.URL == url {
				return n, nil
			}
			continue
		}
		hit, err := a.findByURL(ctx, n.ID, url)
		if err != nil {
			return nil, err
		}
		if hit != nil {
			return hit, nil
		}
	}
	return nil, nil
}

// UpdateTitleByURL locates the space folder named folderTitle under
// the root, finds the leaf with the given URL, and renames it when the
// title actually differs. Reports whether a rename happened.
func (a *Accessor) UpdateTitleByURL(ctx context.Context, folderTitle, url, newTitle string) (bool, error) {
	root, err := a.FindRoot(ctx)
	if err != nil || root == nil {
		return false, err
	}
	folder, err := a.FindChildFolder(ctx, root.ID, folderTitle)
	if err != nil || folder == nil {
		return false, err
	}
	node, err := a.findByURL(ctx, folder.ID, url)
	if err != nil || node == nil {
		return false, err
	}
	if node.Title == newTitle {
		return false, nil
	}
	if err := a.bookmarks.Update(ctx, node.ID, &newTitle, nil); err != nil {
		return false, err
	}
	return true, nil
}

// CreateBookmark creates a leaf bookmark under folderID.
func (a *Accessor) CreateBookmark(ctx context.Context, folderID, title, url string) (*types.BookmarkNode, error) {
	return a.bookmarks.Create(ctx, folderID, title, url)
}

// MoveNode re-parents a bookmark node into another folder.
func (a *Accessor) MoveNode(ctx context.Context, id, newParentID string) error {
	return a.bookmarks.Move(ctx, id, newParentID)
}

// RemoveTreeByTitle removes a space folder and everything under it.
// Reports whether the folder existed.
func (a *Accessor) RemoveTreeByTitle(ctx context.Context, title string) (bool, error) {
	root, err := a.FindRoot(ctx)
	if err != nil || root == nil {
		return false, err
	}
	folder, err := a.FindChildFolder(ctx, root.ID, title)
	if err != nil || folder == nil {
		return false, err
	}
	if err := a.bookmarks.RemoveTree(ctx, folder.ID); err != nil {
		return false, err
	}
	return true, nil
}

// RenameChildFolder renames a space folder under the root. Reports
// whether the folder existed.
func (a *Accessor) RenameChildFolder(ctx context.Context, oldTitle, newTitle string) (bool, error) {
	root, err := a.FindRoot(ctx)
	if err != nil || root == nil {
		return false, err
	}
	folder, err := a.FindChildFolder(ctx, root.ID, oldTitle)
	if err != nil || folder == nil {
		return false, err
	}
	if err := a.bookmarks.Update(ctx, folder.ID, &newTitle, nil); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateURL rewrites the URL of the leaf under folderID currently
// recorded as oldURL. Reports whether a leaf was rewritten.
func (a *Accessor) UpdateURL(ctx context.Context, folderID, oldURL, newURL string) (bool, error) {
	node, err := a.findByURL(ctx, folderID, oldURL)
	if err != nil || node == nil {
		return false, err
	}
	if err := a.bookmarks.Update(ctx, node.ID, nil, &newURL); err != nil {
		return false, err
	}
	return true, nil
}

// MergeDuplicateFolders folds duplicate-named space folders under the
// root into the first occurrence, moving their children and removing
// the empty duplicates. Idempotent; run before initialization derives
// the registry.
func (a *Accessor) MergeDuplicateFolders(ctx context.Context) error {
	root, err := a.FindRoot(ctx)
	if err != nil || root == nil {
		return err
	}
	children, err := a.bookmarks.GetChildren(ctx, root.ID)
	if err != nil {
		return err
	}

	first := make(map[string]string)
	for _, n := range children {
		if !n.IsFolder() {
			continue
		}
		keepID, seen := first[n.Title]
		if !seen {
			first[n.Title] = n.ID
			continue
		}
		grand, err := a.bookmarks.GetChildren(ctx, n.ID)
		if err != nil {
			continue
		}
		for _, g := range grand {
			if err := a.bookmarks.Move(ctx, g.ID, keepID); err != nil {
				a.logger.Warn("failed to move bookmark during merge",
					zap.String("id", g.ID), zap.Error(err))
			}
		}
		if err := a.bookmarks.Remove(ctx, n.ID); err != nil {
			a.logger.Warn("failed to remove duplicate folder",
				zap.String("id", n.ID), zap.Error(err))
		}
	}
	return nil
}
