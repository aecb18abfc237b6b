package activity

import (
	"context"
	"testing"
	"time"

	"github.com/arcify/spaces/internal/shared/types"
	"github.com/arcify/spaces/internal/storage"
)

func TestTouchAndIdleSince(t *testing.T) {
	store, _ := storage.Open("", nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(store, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	tr.Touch(ctx, 1)
	now = now.Add(2 * time.Hour)
	tr.Touch(ctx, 2)

	cutoff := now.Add(-time.Hour)
	idle := tr.IdleSince(cutoff)
	if len(idle) != 1 || idle[0] != types.TabID(1) {
		t.Errorf("IdleSince = %v, want [1]", idle)
	}

	// Tabs never touched are not reported as idle.
	tr.Forget(ctx, 1)
	if idle := tr.IdleSince(cutoff); len(idle) != 0 {
		t.Errorf("IdleSince after forget = %v", idle)
	}
}

func TestTrackerLoadRoundTrip(t *testing.T) {
	store, _ := storage.Open("", nil)
	ctx := context.Background()

	first := NewTracker(store, nil)
	first.Touch(ctx, 7)

	second := NewTracker(store, nil)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := second.LastActive(7); !ok {
		t.Error("Timestamp lost across load")
	}
}

type fakeRegistry struct {
	spaces map[types.TabID]*types.Space
}

func (f *fakeRegistry) SpaceForTab(tab types.TabID) (*types.Space, bool) {
	sp, ok := f.spaces[tab]
	return sp, ok
}

type fakeCloser struct {
	closed []types.TabID
}

func (f *fakeCloser) Remove(ctx context.Context, id types.TabID) error {
	f.closed = append(f.closed, id)
	return nil
}

func TestSweepSparesPinnedAndLastTab(t *testing.T) {
	store, _ := storage.Open("", nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(store, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	// All three tabs go idle together.
	tr.Touch(ctx, 1)
	tr.Touch(ctx, 2)
	tr.Touch(ctx, 3)
	now = now.Add(24 * time.Hour)

	last := types.TabID(3)
	sp := &types.Space{
		UUID:           "u",
		Name:           "Home",
		SpaceBookmarks: []types.TabID{1},
		TemporaryTabs:  []types.TabID{2, 3},
		LastTab:        &last,
	}
	reg := &fakeRegistry{spaces: map[types.TabID]*types.Space{1: sp, 2: sp, 3: sp}}
	closer := &fakeCloser{}

	a := NewArchiver(tr, reg, closer, 12*time.Hour, nil)
	closed := a.Sweep(ctx)

	if closed != 1 {
		t.Fatalf("Sweep closed %d tabs, want 1", closed)
	}
	if len(closer.closed) != 1 || closer.closed[0] != types.TabID(2) {
		t.Errorf("Closed = %v, want [2]", closer.closed)
	}
	if _, ok := tr.LastActive(2); ok {
		t.Error("Archived tab still tracked")
	}
}

func TestSweepIgnoresFreshTabs(t *testing.T) {
	store, _ := storage.Open("", nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(store, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	tr.Touch(ctx, 1)

	sp := &types.Space{UUID: "u", TemporaryTabs: []types.TabID{1}}
	reg := &fakeRegistry{spaces: map[types.TabID]*types.Space{1: sp}}
	closer := &fakeCloser{}

	a := NewArchiver(tr, reg, closer, 12*time.Hour, nil)
	if closed := a.Sweep(ctx); closed != 0 {
		t.Errorf("Sweep closed %d fresh tabs", closed)
	}
}
