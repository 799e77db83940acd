package cursor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := NewStore("client-abc", "alerts")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestStore(t *testing.T) {
	t.Run("GetUnusedCheckpoint", func(t *testing.T) {
		store := newTestStore(t)

		ts, ok, err := store.Get("nightly")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Errorf("Expected no checkpoint, got timestamp %v", ts)
		}

		ids, err := store.SeenIDs("nightly")
		if err != nil {
			t.Fatalf("SeenIDs failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("Expected no seen ids, got %v", ids)
		}
	})

	t.Run("AdvanceAndGet", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.Advance("nightly", 150.5, []string{"a", "b"}); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}

		ts, ok, err := store.Get("nightly")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected checkpoint to exist")
		}
		if ts != 150.5 {
			t.Errorf("Expected timestamp 150.5, got %v", ts)
		}

		ids, err := store.SeenIDs("nightly")
		if err != nil {
			t.Fatalf("SeenIDs failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
			t.Errorf("Expected [a b], got %v", ids)
		}
	})

	t.Run("AdvanceReplacesSeenIDs", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.Advance("nightly", 100, []string{"a", "b", "c"}); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		// Full replace, not a union: the old ids belong to an older
		// timestamp and must not survive.
		if err := store.Advance("nightly", 200, []string{"d"}); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}

		ids, err := store.SeenIDs("nightly")
		if err != nil {
			t.Fatalf("SeenIDs failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != "d" {
			t.Errorf("Expected [d], got %v", ids)
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.Delete("never-used"); err != nil {
			t.Errorf("Deleting absent checkpoint should be a no-op, got: %v", err)
		}

		if err := store.Advance("nightly", 100, []string{"a"}); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if err := store.Delete("nightly"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if store.Exists("nightly") {
			t.Error("Expected checkpoint to be gone after delete")
		}
		if err := store.Delete("nightly"); err != nil {
			t.Errorf("Second delete should be a no-op, got: %v", err)
		}
	})

	t.Run("CheckpointsAreIndependent", func(t *testing.T) {
		store := newTestStore(t)

		if err := store.Advance("one", 100, []string{"a"}); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if err := store.Advance("two", 200, []string{"b"}); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}

		ts, _, err := store.Get("one")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ts != 100 {
			t.Errorf("Expected 100, got %v", ts)
		}
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		store, err := NewStore("client-abc", "alerts")
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if err := store.Advance("nightly", 300, []string{"x"}); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}

		reopened, err := NewStore("client-abc", "alerts")
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		ts, ok, err := reopened.Get("nightly")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok || ts != 300 {
			t.Errorf("Expected persisted timestamp 300, got %v (ok=%v)", ts, ok)
		}
	})

	t.Run("ScopedByClientAndDomain", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", t.TempDir())

		alerts, err := NewStore("client-abc", "alerts")
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		events, err := NewStore("client-abc", "file_events")
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		if err := alerts.Advance("nightly", 100, nil); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if _, ok, _ := events.Get("nightly"); ok {
			t.Error("Checkpoint leaked across domains")
		}
	})

	t.Run("CorruptStateFailsLoudly", func(t *testing.T) {
		dataHome := t.TempDir()
		t.Setenv("XDG_DATA_HOME", dataHome)

		store, err := NewStore("client-abc", "alerts")
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		path := filepath.Join(dataHome, "dlpctl", "checkpoints", "client-abc", "alerts", "nightly.json")
		if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
			t.Fatalf("Failed to plant corrupt state: %v", err)
		}

		_, _, err = store.Get("nightly")
		var corrupt *CorruptError
		if !errors.As(err, &corrupt) {
			t.Fatalf("Expected CorruptError, got: %v", err)
		}
	})

	t.Run("RejectsUnsafeNames", func(t *testing.T) {
		store := newTestStore(t)

		for _, name := range []string{"", "../escape", "a/b", `a\b`} {
			if err := store.Advance(name, 1, nil); !errors.Is(err, ErrInvalidName) {
				t.Errorf("Expected ErrInvalidName for %q, got: %v", name, err)
			}
		}
	})
}
