package storage

import (
	"context"
	"testing"
)

func TestSetGetRoundTrip(t *testing.T) {
	s, err := Open("", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()

	in := map[string]int{"a": 1, "b": 2}
	if err := s.Set(ctx, Local, "counts", in); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out map[string]int
	ok, err := s.Get(ctx, Local, "counts", &out)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if out["a"] != 1 || out["b"] != 2 {
		t.Errorf("Got %v, want %v", out, in)
	}
}

func TestGetAbsentKey(t *testing.T) {
	s, _ := Open("", nil)

	var out string
	ok, err := s.Get(context.Background(), Local, "missing", &out)
	if err != nil {
		t.Fatalf("Absent key should not error: %v", err)
	}
	if ok {
		t.Error("Absent key reported present")
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s, _ := Open("", nil)
	ctx := context.Background()

	if err := s.Set(ctx, Local, "k", "local-value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out string
	ok, _ := s.Get(ctx, Sync, "k", &out)
	if ok {
		t.Error("Key written to local leaked into sync")
	}
}

func TestDeleteAndKeys(t *testing.T) {
	s, _ := Open("", nil)
	ctx := context.Background()

	s.Set(ctx, Local, "one", 1)
	s.Set(ctx, Local, "two", 2)

	if err := s.Delete(ctx, Local, "one"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, Local, "one"); err != nil {
		t.Fatalf("Deleting absent key should be a no-op: %v", err)
	}

	keys := s.Keys(Local)
	if len(keys) != 1 || keys[0] != "two" {
		t.Errorf("Keys = %v, want [two]", keys)
	}
}

func TestPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Set(ctx, Local, "spaces", []string{"Home", "Work"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, Sync, "tab_names", map[string]string{"https://a": "A"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}

	var spaces []string
	ok, err := reopened.Get(ctx, Local, "spaces", &spaces)
	if err != nil || !ok {
		t.Fatalf("Get after reopen failed: ok=%v err=%v", ok, err)
	}
	if len(spaces) != 2 || spaces[0] != "Home" {
		t.Errorf("Got %v after reopen", spaces)
	}

	var names map[string]string
	ok, _ = reopened.Get(ctx, Sync, "tab_names", &names)
	if !ok || names["https://a"] != "A" {
		t.Errorf("Sync namespace lost across reopen: %v", names)
	}
}

func TestWatchDeliversChanges(t *testing.T) {
	s, _ := Open("", nil)
	ctx := context.Background()

	ch := s.Watch()
	if err := s.Set(ctx, Local, "spaces", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case c := <-ch:
		if c.Namespace != Local || c.Key != "spaces" {
			t.Errorf("Change = %+v", c)
		}
	default:
		t.Fatal("No change delivered")
	}
}
