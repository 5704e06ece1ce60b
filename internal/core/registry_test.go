package core

import "testing"

func TestRegistrySupersedes(t *testing.T) {
	r := NewRegistry()

	first := NewClient("a")
	second := NewClient("b")

	if old := r.Register(7, first); old != nil {
		t.Fatalf("expected no superseded client, got %v", old.ID)
	}
	if !r.IsLive(7) {
		t.Fatal("user 7 should be live after register")
	}

	old := r.Register(7, second)
	if old != first {
		t.Fatalf("expected first connection to be superseded, got %v", old)
	}

	live, ok := r.Resolve(7)
	if !ok || live != second {
		t.Fatalf("expected second connection to hold the slot, got %v", live)
	}
}

func TestRegistryUnregisterIdentityGuard(t *testing.T) {
	r := NewRegistry()

	first := NewClient("a")
	second := NewClient("b")

	r.Register(7, first)
	r.Register(7, second)

	// The superseded connection's teardown must not evict its replacement.
	if r.Unregister(7, first) {
		t.Fatal("unregister of superseded connection should be a no-op")
	}
	if !r.IsLive(7) {
		t.Fatal("replacement connection should still be registered")
	}

	if !r.Unregister(7, second) {
		t.Fatal("unregister of current connection should succeed")
	}
	if r.IsLive(7) {
		t.Fatal("user 7 should be offline after unregister")
	}
}

func TestRegistryReregisterSameClient(t *testing.T) {
	r := NewRegistry()

	client := NewClient("a")
	r.Register(7, client)

	if old := r.Register(7, client); old != nil {
		t.Fatalf("re-registering the same connection should supersede nothing, got %v", old.ID)
	}
}
