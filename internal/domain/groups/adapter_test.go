package groups

import (
	"context"
	"testing"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/browser/memhost"
	"github.com/arcify/spaces/internal/shared/types"
)

func newAdapter() (*Adapter, *memhost.Host) {
	h := memhost.New()
	return NewAdapter(h.Tabs(), h.TabGroups(), nil), h
}

func TestCreateGroupAppliesStyle(t *testing.T) {
	a, h := newAdapter()
	ctx := context.Background()

	tab, _ := a.CreateTab(ctx)
	gid, err := a.CreateGroup(ctx, []types.TabID{tab.ID}, "Work", types.ColorBlue)
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	g, err := h.TabGroups().Get(ctx, gid)
	if err != nil {
		t.Fatalf("Group not created: %v", err)
	}
	if g.Title != "Work" || g.Color != types.ColorBlue {
		t.Errorf("Group = %+v", g)
	}
}

func TestFindGroupMissIsNil(t *testing.T) {
	a, _ := newAdapter()

	if g := a.FindGroup(context.Background(), types.GroupID(999)); g != nil {
		t.Errorf("FindGroup on absent handle = %+v, want nil", g)
	}
}

func TestAddToGroupAndTabsInGroup(t *testing.T) {
	a, _ := newAdapter()
	ctx := context.Background()

	first, _ := a.CreateTab(ctx)
	gid, _ := a.CreateGroup(ctx, []types.TabID{first.ID}, "Home", types.ColorGrey)

	second, _ := a.CreateTab(ctx)
	if err := a.AddToGroup(ctx, []types.TabID{second.ID}, gid); err != nil {
		t.Fatalf("AddToGroup failed: %v", err)
	}

	members, err := a.TabsInGroup(ctx, gid)
	if err != nil || len(members) != 2 {
		t.Fatalf("TabsInGroup = %d members, err=%v", len(members), err)
	}
}

func TestSetCollapsed(t *testing.T) {
	a, h := newAdapter()
	ctx := context.Background()

	tab, _ := a.CreateTab(ctx)
	gid, _ := a.CreateGroup(ctx, []types.TabID{tab.ID}, "Home", types.ColorGrey)

	if err := a.SetCollapsed(ctx, gid, true); err != nil {
		t.Fatalf("SetCollapsed failed: %v", err)
	}
	g, _ := h.TabGroups().Get(ctx, gid)
	if !g.Collapsed {
		t.Error("Group not collapsed")
	}
}

func TestListGroupsScopedToWindow(t *testing.T) {
	a, h := newAdapter()
	ctx := context.Background()

	t1, _ := h.Tabs().Create(ctx, browser.CreateTabOptions{WindowID: 1})
	t2, _ := h.Tabs().Create(ctx, browser.CreateTabOptions{WindowID: 2})
	a.CreateGroup(ctx, []types.TabID{t1.ID}, "One", types.ColorGrey)
	a.CreateGroup(ctx, []types.TabID{t2.ID}, "Two", types.ColorGrey)

	win := types.WindowID(2)
	scoped, err := a.ListGroups(ctx, &win)
	if err != nil || len(scoped) != 1 || scoped[0].Title != "Two" {
		t.Errorf("ListGroups(win=2) = %v, err=%v", scoped, err)
	}
}
