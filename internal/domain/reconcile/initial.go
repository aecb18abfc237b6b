package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/domain/bookmarks"
	"github.com/arcify/spaces/internal/shared/id"
	"github.com/arcify/spaces/internal/shared/types"
)

// Init runs the once-per-session initialization pass: it inspects the
// live tab groups and the bookmark tree and derives a consistent
// registry, creating missing groups and folders as needed. The guard
// is held throughout so tabs opened here bypass the created handler.
func (r *Reconciler) Init(ctx context.Context) error {
	release := r.acquire(GuardCreatingSpace)
	defer release()

	// Duplicate-named space folders must be folded before matching.
	if err := r.folders.MergeDuplicateFolders(ctx); err != nil {
		r.logger.Warn("duplicate folder merge failed", zap.Error(err))
	}

	// Prior session records carry stable UUIDs and dormant spaces.
	if err := r.registry.Load(ctx); err != nil {
		r.logger.Warn("could not load persisted registry", zap.Error(err))
	}
	prior := make(map[string]*types.Space)
	for _, sp := range r.registry.List() {
		prior[sp.Name] = sp
	}

	liveGroups, err := r.adapter.ListGroups(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to query tab groups: %w", err)
	}

	if len(liveGroups) == 0 {
		if err := r.bootstrapDefaultGroup(ctx); err != nil {
			return err
		}
	} else {
		r.foldUngroupedTabs(ctx, liveGroups)
	}

	// Re-query: bootstrapping and folding may have created groups.
	liveGroups, err = r.adapter.ListGroups(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to query tab groups: %w", err)
	}

	root, err := r.folders.GetOrCreateRoot(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure root folder: %w", err)
	}

	var derived []*types.Space
	matched := make(map[string]bool)
	for _, g := range liveGroups {
		sp, err := r.deriveSpace(ctx, root.ID, g, prior, matched)
		if err != nil {
			r.logger.Warn("failed to derive space for group",
				zap.Int("group", int(g.ID)), zap.Error(err))
			continue
		}
		derived = append(derived, sp)
		matched[sp.Name] = true
	}

	// Spaces whose folder survives but whose group is gone stay in the
	// registry as dormant; the folder is authoritative until the space
	// is reactivated.
	for _, sp := range r.registry.List() {
		if matched[sp.Name] {
			continue
		}
		folder, err := r.folders.FindChildFolder(ctx, root.ID, sp.Name)
		if err != nil || folder == nil {
			continue
		}
		dormant := sp
		dormant.SpaceBookmarks = []types.TabID{}
		dormant.TemporaryTabs = []types.TabID{}
		dormant.LastTab = nil
		derived = append(derived, dormant)
	}

	if err := r.registry.Reset(ctx, derived); err != nil {
		return err
	}

	r.activateInitialSpace(ctx, derived)
	r.logger.Info("initialization reconciled",
		zap.Int("spaces", len(derived)),
		zap.Int("groups", len(liveGroups)))
	return nil
}

// bootstrapDefaultGroup handles the no-groups branch: every ungrouped,
// non-pinned tab (or one fresh blank tab) becomes the default space's
// group.
func (r *Reconciler) bootstrapDefaultGroup(ctx context.Context) error {
	loose, err := r.ungroupedTabs(ctx)
	if err != nil {
		return err
	}
	if len(loose) == 0 {
		blank, err := r.tabs.Create(ctx, browser.CreateTabOptions{Active: true})
		if err != nil {
			return fmt.Errorf("failed to open bootstrap tab: %w", err)
		}
		loose = []*types.Tab{blank}
	}
	ids := make([]types.TabID, len(loose))
	for i, t := range loose {
		ids[i] = t.ID
	}
	if _, err := r.adapter.CreateGroup(ctx, ids, r.defaultName, types.ColorGrey); err != nil {
		return err
	}
	return nil
}

// foldUngroupedTabs sweeps loose tabs into a default group per window.
// A group carrying the default name in a different window is never
// merged into; the current window gets a name suffixed with its window
// id instead.
func (r *Reconciler) foldUngroupedTabs(ctx context.Context, liveGroups []*types.Group) {
	loose, err := r.ungroupedTabs(ctx)
	if err != nil || len(loose) == 0 {
		return
	}

	byWindow := make(map[types.WindowID][]types.TabID)
	for _, t := range loose {
		byWindow[t.WindowID] = append(byWindow[t.WindowID], t.ID)
	}

	for win, ids := range byWindow {
		var sameWindow, otherWindow *types.Group
		for _, g := range liveGroups {
			if g.Title != r.defaultName {
				continue
			}
			if g.WindowID == win {
				sameWindow = g
			} else {
				otherWindow = g
			}
		}

		switch {
		case sameWindow != nil:
			if err := r.adapter.AddToGroup(ctx, ids, sameWindow.ID); err != nil {
				r.logger.Warn("failed to fold tabs into default group",
					zap.Int("window", int(win)), zap.Error(err))
			}
		case otherWindow != nil:
			name := fmt.Sprintf("%s %d", r.defaultName, win)
			if _, err := r.adapter.CreateGroup(ctx, ids, name, types.ColorGrey); err != nil {
				r.logger.Warn("failed to create suffixed default group",
					zap.Int("window", int(win)), zap.Error(err))
			}
		default:
			if _, err := r.adapter.CreateGroup(ctx, ids, r.defaultName, types.ColorGrey); err != nil {
				r.logger.Warn("failed to create default group",
					zap.Int("window", int(win)), zap.Error(err))
			}
		}
	}
}

// deriveSpace builds one space record for a live group: its folder is
// located or created by title, folder bookmarks are matched against
// the group's open tabs by URL, and unmatched open tabs become
// temporary. Names already taken this pass (a second window carrying
// an identically titled group) get the window-id suffix, keeping the
// name-to-folder join unambiguous.
func (r *Reconciler) deriveSpace(ctx context.Context, rootID string, g *types.Group, prior map[string]*types.Space, taken map[string]bool) (*types.Space, error) {
	name := g.Title
	if name == "" {
		name = fmt.Sprintf("Space %d", g.ID)
		if err := r.adapter.Restyle(ctx, g.ID, name, g.Color); err != nil {
			r.logger.Debug("failed to title anonymous group", zap.Error(err))
		}
	}
	if taken[name] {
		base := name
		name = fmt.Sprintf("%s %d", base, g.WindowID)
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s %d (%d)", base, g.WindowID, n)
		}
		if err := r.adapter.Restyle(ctx, g.ID, name, g.Color); err != nil {
			r.logger.Debug("failed to retitle colliding group", zap.Error(err))
		}
	}

	folder, err := r.folders.GetOrCreateChildFolder(ctx, rootID, name)
	if err != nil {
		return nil, err
	}

	entries, err := r.folders.ListRecursive(ctx, folder.ID, bookmarks.ListOptions{
		MatchToOpenTabs: true,
		GroupID:         g.ID,
	})
	if err != nil {
		return nil, err
	}

	open, err := r.adapter.TabsInGroup(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[types.TabID]*types.Tab, len(open))
	for _, t := range open {
		byID[t.ID] = t
	}

	var pinned []types.TabID
	seen := make(map[types.TabID]bool)
	for _, e := range entries {
		if e.TabID == nil {
			continue
		}
		tab := byID[*e.TabID]
		if tab == nil || seen[*e.TabID] {
			continue
		}
		pinned = append(pinned, *e.TabID)
		seen[*e.TabID] = true
		r.registry.NoteURL(*e.TabID, tab.URL)

		// A bookmark title differing from its tab's title is a stored
		// rename; record it as an override.
		if e.Title != tab.Title {
			if err := r.titles.Set(ctx, e.URL, e.Title); err != nil {
				r.logger.Debug("failed to record title override", zap.Error(err))
			}
		}
	}

	var temp []types.TabID
	var lastTab *types.TabID
	for _, t := range open {
		if !seen[t.ID] {
			temp = append(temp, t.ID)
		}
		if t.Active {
			tid := t.ID
			lastTab = &tid
		}
	}

	sp := &types.Space{
		ID:             g.ID,
		Name:           name,
		Color:          g.Color,
		SpaceBookmarks: pinned,
		TemporaryTabs:  temp,
		LastTab:        lastTab,
	}
	if sp.Color == "" {
		sp.Color = types.ColorGrey
	}
	if prev, ok := prior[name]; ok {
		sp.UUID = prev.UUID
	} else {
		sp.UUID = id.NewSpaceUUID()
	}
	if pinned == nil {
		sp.SpaceBookmarks = []types.TabID{}
	}
	if temp == nil {
		sp.TemporaryTabs = []types.TabID{}
	}
	return sp, nil
}

// activateInitialSpace picks the space holding the currently active
// tab, or the first space, without forcing a tab switch.
func (r *Reconciler) activateInitialSpace(ctx context.Context, derived []*types.Space) {
	if len(derived) == 0 {
		return
	}
	active := true
	current, err := r.tabs.Query(ctx, browser.TabQuery{Active: &active})
	if err == nil {
		for _, t := range current {
			for _, sp := range derived {
				if sp.ID == t.GroupID {
					r.registry.SetActive(sp.UUID)
					r.registry.SetLastTab(ctx, sp.UUID, t.ID)
					return
				}
			}
		}
	}
	r.registry.SetActive(derived[0].UUID)
}

// ungroupedTabs lists tabs outside any group, excluding host-pinned
// tabs (the host keeps those out of groups anyway).
func (r *Reconciler) ungroupedTabs(ctx context.Context) ([]*types.Tab, error) {
	none := types.NoGroup
	unpinned := false
	return r.tabs.Query(ctx, browser.TabQuery{GroupID: &none, Pinned: &unpinned})
}
