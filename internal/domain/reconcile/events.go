package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/arcify/spaces/internal/shared/types"
)

// Dispatch routes one normalized host event through the state machine.
// Handlers are terminal catch points: failures are logged and the
// operation abandoned, never propagated.
func (r *Reconciler) Dispatch(ctx context.Context, ev types.Event) {
	if r.metrics != nil {
		r.metrics.EventsDispatched.WithLabelValues(string(ev.Kind)).Inc()
	}
	switch ev.Kind {
	case types.EventTabCreated:
		if ev.Tab != nil {
			r.onTabCreated(ctx, ev.Tab)
		}
	case types.EventTabUpdated:
		if ev.Change != nil {
			r.onTabUpdated(ctx, ev.TabID, ev.Change, ev.Tab)
		}
	case types.EventTabRemoved:
		r.onTabRemoved(ctx, ev.TabID)
	case types.EventTabActivated:
		if ev.Tab != nil {
			r.onTabActivated(ctx, ev.Tab)
		}
	default:
		r.logger.Debug("ignoring unknown event", zap.String("kind", string(ev.Kind)))
	}
}

// onTabCreated folds a user-opened tab into the active space as a
// temporary tab, positioned after its opener when one exists, else at
// the front. Tabs the engine opens itself arrive while a guard is held
// and are skipped here.
func (r *Reconciler) onTabCreated(ctx context.Context, tab *types.Tab) {
	if r.guarded() || tab.Pinned {
		return
	}
	active := r.registry.Active()
	if active == "" {
		return
	}
	sp, ok := r.registry.Get(active)
	if !ok {
		return
	}

	// A tab born inside some other space's group stays there; only
	// ungrouped tabs are adopted into the active space.
	if tab.GroupID != types.NoGroup && tab.GroupID != sp.ID {
		return
	}
	if tab.GroupID != sp.ID {
		if err := r.adapter.AddToGroup(ctx, []types.TabID{tab.ID}, sp.ID); err != nil {
			// Tab may have been closed or grouped elsewhere already.
			r.logger.Debug("could not adopt created tab",
				zap.Int("tab", int(tab.ID)), zap.Error(err))
			r.countError("tab_created")
			return
		}
	}
	r.registry.InsertTemporary(ctx, sp.UUID, tab.ID, tab.OpenerID)
	r.registry.NoteURL(tab.ID, tab.URL)
	r.tracker.Touch(ctx, tab.ID)
}

// onTabUpdated reacts to pin toggles and URL/title changes.
func (r *Reconciler) onTabUpdated(ctx context.Context, id types.TabID, change *types.TabChange, tab *types.Tab) {
	if change.Pinned != nil {
		r.onPinToggled(ctx, id, *change.Pinned, tab)
		return
	}
	if change.URL != nil {
		r.onURLChanged(ctx, id, *change.URL, tab)
	}
	if change.Title != nil && tab != nil {
		r.onTitleChanged(ctx, id, tab)
	}
}

// onPinToggled handles the host-level pin flag. Host-pinned tabs are
// excluded from grouping, so pinning evicts the handle from every
// space; unpinning re-enters it as temporary in the active space.
func (r *Reconciler) onPinToggled(ctx context.Context, id types.TabID, pinned bool, tab *types.Tab) {
	if pinned {
		r.registry.RemoveTabEverywhere(ctx, id)
		return
	}
	active := r.registry.Active()
	if active == "" {
		return
	}
	sp, ok := r.registry.Get(active)
	if !ok {
		return
	}
	if tab != nil && tab.GroupID != sp.ID {
		if err := r.adapter.AddToGroup(ctx, []types.TabID{id}, sp.ID); err != nil {
			r.countError("pin_toggled")
			return
		}
	}
	r.registry.InsertTemporary(ctx, active, id, nil)
}

// onURLChanged propagates a navigation into the tab's backing
// bookmark when the tab is pinned, correlated by the previous URL.
func (r *Reconciler) onURLChanged(ctx context.Context, id types.TabID, newURL string, tab *types.Tab) {
	prev, hadPrev := r.registry.PrevURL(id)
	defer r.registry.NoteURL(id, newURL)

	sp, ok := r.registry.SpaceForTab(id)
	if !ok || !sp.Pinned(id) {
		return
	}
	if !hadPrev || prev == newURL {
		return
	}

	root, err := r.folders.FindRoot(ctx)
	if err != nil || root == nil {
		return
	}
	folder, err := r.folders.FindChildFolder(ctx, root.ID, sp.Name)
	if err != nil || folder == nil {
		return
	}
	if _, err := r.folders.UpdateURL(ctx, folder.ID, prev, newURL); err != nil {
		r.logger.Warn("failed to propagate url into bookmark",
			zap.Int("tab", int(id)), zap.Error(err))
		r.countError("url_changed")
	}
}

// onTitleChanged writes the tab's title back to its bookmark unless a
// user override names the tab.
func (r *Reconciler) onTitleChanged(ctx context.Context, id types.TabID, tab *types.Tab) {
	if _, overridden := r.titles.Lookup(tab.URL); overridden {
		return
	}
	sp, ok := r.registry.SpaceForTab(id)
	if !ok || !sp.Pinned(id) {
		return
	}
	if _, err := r.folders.UpdateTitleByURL(ctx, sp.Name, tab.URL, tab.Title); err != nil {
		r.countError("title_changed")
	}
}

// onTabRemoved purges the handle from every space. A pinned tab's
// bookmark is deliberately left intact; only an explicit user action
// removes bookmarks.
func (r *Reconciler) onTabRemoved(ctx context.Context, id types.TabID) {
	r.registry.RemoveTabEverywhere(ctx, id)
	r.tracker.Forget(ctx, id)
}

// onTabActivated stamps activity, updates the owning space's lastTab,
// and switches the active space without stealing focus from the tab.
func (r *Reconciler) onTabActivated(ctx context.Context, tab *types.Tab) {
	r.tracker.Touch(ctx, tab.ID)

	sp, ok := r.registry.SpaceForTab(tab.ID)
	if !ok {
		return
	}
	r.registry.SetLastTab(ctx, sp.UUID, tab.ID)
	if r.registry.Active() != sp.UUID {
		r.registry.SetActive(sp.UUID)
		r.expandOnly(ctx, sp)
	}
}

// expandOnly uncollapses the given space's group and collapses every
// other live space group.
func (r *Reconciler) expandOnly(ctx context.Context, target *types.Space) {
	for _, sp := range r.registry.List() {
		collapsed := sp.UUID != target.UUID
		if g := r.adapter.FindGroup(ctx, sp.ID); g == nil {
			continue
		}
		if err := r.adapter.SetCollapsed(ctx, sp.ID, collapsed); err != nil {
			r.logger.Debug("collapse update failed",
				zap.Int("group", int(sp.ID)), zap.Error(err))
		}
	}
}
