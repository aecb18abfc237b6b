package bookmarks

import (
	"context"
	"testing"

	"github.com/arcify/spaces/internal/browser"
	"github.com/arcify/spaces/internal/browser/memhost"
	"github.com/arcify/spaces/internal/shared/types"
)

func newAccessor(t *testing.T) (*Accessor, *memhost.Host) {
	t.Helper()
	h := memhost.New()
	return NewAccessor(h.Bookmarks(), h.Tabs(), "Arcify", nil), h
}

func TestGetOrCreateRootIsIdempotent(t *testing.T) {
	a, _ := newAccessor(t)
	ctx := context.Background()

	first, err := a.GetOrCreateRoot(ctx)
	if err != nil {
		t.Fatalf("GetOrCreateRoot failed: %v", err)
	}
	second, err := a.GetOrCreateRoot(ctx)
	if err != nil {
		t.Fatalf("Second GetOrCreateRoot failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Root created twice: %s vs %s", first.ID, second.ID)
	}
}

func TestFindRootMissesCleanly(t *testing.T) {
	a, _ := newAccessor(t)

	root, err := a.FindRoot(context.Background())
	if err != nil {
		t.Fatalf("FindRoot errored on absence: %v", err)
	}
	if root != nil {
		t.Errorf("FindRoot found %+v in an empty tree", root)
	}
}

func TestListRecursiveFlattensSubfolders(t *testing.T) {
	a, _ := newAccessor(t)
	ctx := context.Background()

	root, _ := a.GetOrCreateRoot(ctx)
	folder, _ := a.GetOrCreateChildFolder(ctx, root.ID, "Home")
	a.CreateBookmark(ctx, folder.ID, "Top", "https://top")
	sub, _ := a.GetOrCreateChildFolder(ctx, folder.ID, "Reading")
	a.CreateBookmark(ctx, sub.ID, "Deep", "https://deep")

	entries, err := a.ListRecursive(ctx, folder.ID, ListOptions{})
	if err != nil {
		t.Fatalf("ListRecursive failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Got %d entries, want 2", len(entries))
	}
	urls := map[string]bool{}
	for _, e := range entries {
		urls[e.URL] = true
	}
	if !urls["https://top"] || !urls["https://deep"] {
		t.Errorf("Entries = %v", entries)
	}
}

func TestListRecursiveMatchesOpenTabs(t *testing.T) {
	a, h := newAccessor(t)
	ctx := context.Background()

	tab, _ := h.Tabs().Create(ctx, browser.CreateTabOptions{URL: "https://match"})
	gid, _ := h.Tabs().Group(ctx, []types.TabID{tab.ID}, nil)

	root, _ := a.GetOrCreateRoot(ctx)
	folder, _ := a.GetOrCreateChildFolder(ctx, root.ID, "Home")
	a.CreateBookmark(ctx, folder.ID, "Match", "https://match")
	a.CreateBookmark(ctx, folder.ID, "Closed", "https://closed")

	entries, err := a.ListRecursive(ctx, folder.ID, ListOptions{MatchToOpenTabs: true, GroupID: gid})
	if err != nil {
		t.Fatalf("ListRecursive failed: %v", err)
	}

	for _, e := range entries {
		switch e.URL {
		case "https://match":
			if e.TabID == nil || *e.TabID != tab.ID {
				t.Errorf("Open bookmark not matched: %+v", e)
			}
		case "https://closed":
			if e.TabID != nil {
				t.Errorf("Closed bookmark matched to tab %d", *e.TabID)
			}
		}
	}
}

func TestRemoveAndUpdateByURL(t *testing.T) {
	a, _ := newAccessor(t)
	ctx := context.Background()

	root, _ := a.GetOrCreateRoot(ctx)
	folder, _ := a.GetOrCreateChildFolder(ctx, root.ID, "Home")
	a.CreateBookmark(ctx, folder.ID, "Old", "https://old")

	ok, err := a.UpdateURL(ctx, folder.ID, "https://old", "https://new")
	if err != nil || !ok {
		t.Fatalf("UpdateURL failed: ok=%v err=%v", ok, err)
	}
	if n, _ := a.FindByURL(ctx, folder.ID, "https://old"); n != nil {
		t.Error("Old URL still present after update")
	}

	ok, err = a.RemoveByURL(ctx, folder.ID, "https://new")
	if err != nil || !ok {
		t.Fatalf("RemoveByURL failed: ok=%v err=%v", ok, err)
	}
	ok, err = a.RemoveByURL(ctx, folder.ID, "https://new")
	if err != nil || ok {
		t.Errorf("Removing an absent URL should be a clean miss: ok=%v err=%v", ok, err)
	}
}

func TestUpdateTitleSkipsEqualTitle(t *testing.T) {
	a, _ := newAccessor(t)
	ctx := context.Background()

	root, _ := a.GetOrCreateRoot(ctx)
	folder, _ := a.GetOrCreateChildFolder(ctx, root.ID, "Home")
	a.CreateBookmark(ctx, folder.ID, "Same", "https://x")

	changed, err := a.UpdateTitleByURL(ctx, "Home", "https://x", "Same")
	if err != nil {
		t.Fatalf("UpdateTitleByURL failed: %v", err)
	}
	if changed {
		t.Error("Equal title should be a no-op")
	}

	changed, _ = a.UpdateTitleByURL(ctx, "Home", "https://x", "Renamed")
	if !changed {
		t.Error("Different title should rename")
	}
}

func TestMergeDuplicateFolders(t *testing.T) {
	a, h := newAccessor(t)
	ctx := context.Background()

	root, _ := a.GetOrCreateRoot(ctx)
	// Create two folders with the same title directly through the host,
	// bypassing the get-or-create dedup.
	first, _ := h.Bookmarks().Create(ctx, root.ID, "Home", "")
	dup, _ := h.Bookmarks().Create(ctx, root.ID, "Home", "")
	h.Bookmarks().Create(ctx, first.ID, "A", "https://a")
	h.Bookmarks().Create(ctx, dup.ID, "B", "https://b")

	if err := a.MergeDuplicateFolders(ctx); err != nil {
		t.Fatalf("MergeDuplicateFolders failed: %v", err)
	}

	children, _ := h.Bookmarks().GetChildren(ctx, root.ID)
	folders := 0
	for _, n := range children {
		if n.IsFolder() && n.Title == "Home" {
			folders++
		}
	}
	if folders != 1 {
		t.Fatalf("Got %d Home folders after merge, want 1", folders)
	}
	entries, _ := a.ListRecursive(ctx, first.ID, ListOptions{})
	if len(entries) != 2 {
		t.Errorf("Merged folder holds %d bookmarks, want 2", len(entries))
	}
}
