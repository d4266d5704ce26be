package versioning

import (
	"sort"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	store := NewRebaseSessionStore()

	if store.Active("branch-1") {
		t.Error("fresh store should have no active session")
	}
	if _, active := store.Unresolved("branch-1"); active {
		t.Error("Unresolved should report no session")
	}

	store.Begin("branch-1", []string{"item-a", "item-b"})
	if !store.Active("branch-1") {
		t.Fatal("session should be active after Begin")
	}

	unresolved, active := store.Unresolved("branch-1")
	if !active || len(unresolved) != 2 {
		t.Fatalf("unresolved = %v (active=%v), want 2 items", unresolved, active)
	}

	if !store.MarkResolved("branch-1", "item-a") {
		t.Error("MarkResolved should succeed for a tracked item")
	}
	if store.MarkResolved("branch-1", "item-unknown") {
		t.Error("MarkResolved should fail for an untracked item")
	}
	if store.MarkResolved("branch-2", "item-a") {
		t.Error("MarkResolved should fail when no session is open")
	}

	unresolved, _ = store.Unresolved("branch-1")
	if len(unresolved) != 1 || unresolved[0] != "item-b" {
		t.Errorf("unresolved = %v, want [item-b]", unresolved)
	}

	store.MarkResolved("branch-1", "item-b")
	unresolved, active = store.Unresolved("branch-1")
	if !active || len(unresolved) != 0 {
		t.Errorf("unresolved = %v (active=%v), want empty but active", unresolved, active)
	}

	tracked := store.Tracked("branch-1")
	sort.Strings(tracked)
	if len(tracked) != 2 || tracked[0] != "item-a" || tracked[1] != "item-b" {
		t.Errorf("tracked = %v, want both items regardless of resolution", tracked)
	}

	store.End("branch-1")
	if store.Active("branch-1") {
		t.Error("session should be gone after End")
	}
}

func TestSessionBeginReplaces(t *testing.T) {
	store := NewRebaseSessionStore()

	store.Begin("branch-1", []string{"item-a"})
	store.MarkResolved("branch-1", "item-a")

	// A new rebase attempt restarts the conflict bookkeeping
	store.Begin("branch-1", []string{"item-a", "item-c"})
	unresolved, _ := store.Unresolved("branch-1")
	if len(unresolved) != 2 {
		t.Errorf("unresolved after re-Begin = %v, want both items fresh", unresolved)
	}
}

func TestLockBranchSerializes(t *testing.T) {
	store := NewRebaseSessionStore()

	unlock := store.LockBranch("branch-1")

	acquired := make(chan struct{})
	go func() {
		inner := store.LockBranch("branch-1")
		inner()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second LockBranch should block while the first holds the lock")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-acquired
}
