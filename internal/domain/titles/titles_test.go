package titles

import (
	"context"
	"testing"

	"github.com/arcify/spaces/internal/storage"
)

func TestSetLookupRemove(t *testing.T) {
	store, _ := storage.Open("", nil)
	m := NewManager(store, nil)
	ctx := context.Background()

	if err := m.Set(ctx, "https://a", "My Notes"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	name, ok := m.Lookup("https://a")
	if !ok || name != "My Notes" {
		t.Errorf("Lookup = %q, %v", name, ok)
	}

	if err := m.Remove(ctx, "https://a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := m.Lookup("https://a"); ok {
		t.Error("Override survived removal")
	}
	if err := m.Remove(ctx, "https://a"); err != nil {
		t.Errorf("Removing an absent override should be a no-op: %v", err)
	}
}

func TestDisplayTitle(t *testing.T) {
	store, _ := storage.Open("", nil)
	m := NewManager(store, nil)
	ctx := context.Background()

	if got := m.DisplayTitle("https://a", "Page Title"); got != "Page Title" {
		t.Errorf("DisplayTitle without override = %q", got)
	}

	m.Set(ctx, "https://a", "Renamed")
	if got := m.DisplayTitle("https://a", "Page Title"); got != "Renamed" {
		t.Errorf("DisplayTitle with override = %q", got)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	store, _ := storage.Open("", nil)
	ctx := context.Background()

	first := NewManager(store, nil)
	first.Set(ctx, "https://a", "A")
	first.Set(ctx, "https://b", "B")

	second := NewManager(store, nil)
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if name, ok := second.Lookup("https://b"); !ok || name != "B" {
		t.Errorf("Lookup after load = %q, %v", name, ok)
	}
}
