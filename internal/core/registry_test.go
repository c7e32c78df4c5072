package core

import (
	"testing"

	"github.com/vovakirdan/authgate/internal/pipeline"
	"github.com/vovakirdan/authgate/internal/protocol"
)

func mustVersion(t *testing.T, id int) protocol.Version {
	t.Helper()
	v, err := protocol.Lookup(id)
	if err != nil {
		t.Fatalf("lookup %d: %v", id, err)
	}
	return v
}

func TestAdvanceNeverRegresses(t *testing.T) {
	c := NewConnection(newFakeChannel(pipeline.NewDispatcher(), "127.0.0.1"), "Alice", mustVersion(t, 766))

	c.Advance(StateEncrypted)
	c.Advance(StateLogin)
	if c.State() != StateEncrypted {
		t.Fatalf("state regressed to %s", c.State())
	}

	c.Advance(StateSuccess)
	if c.State() != StateSuccess {
		t.Fatalf("expected success, got %s", c.State())
	}
}

func TestRegistryRebindResetsChannelState(t *testing.T) {
	disp := pipeline.NewDispatcher()
	r := NewRegistry(false)

	ch1 := newFakeChannel(disp, "127.0.0.1")
	c := NewConnection(ch1, "Alice", mustVersion(t, 766))
	r.Add(c)

	c.SetPending(true)
	c.SetChallenge([]byte{1, 2, 3})

	ch2 := newFakeChannel(disp, "127.0.0.1")
	r.Rebind(c, ch2)

	if _, ok := r.Get(ch1); ok {
		t.Fatalf("old channel must be unbound")
	}
	if got, ok := r.Get(ch2); !ok || got != c {
		t.Fatalf("new channel must resolve the same attempt")
	}
	if c.Pending() || c.Challenge() != nil {
		t.Fatalf("rebind must reset channel-scoped state")
	}
}

func TestRegistryNameLookupIgnoresCaseByDefault(t *testing.T) {
	disp := pipeline.NewDispatcher()
	r := NewRegistry(false)

	c := NewConnection(newFakeChannel(disp, "127.0.0.1"), "Alice", mustVersion(t, 766))
	r.Add(c)

	if _, ok := r.GetByName("alice"); !ok {
		t.Fatalf("case-insensitive registry must match alice")
	}

	strict := NewRegistry(true)
	strict.Add(c)
	if _, ok := strict.GetByName("alice"); ok {
		t.Fatalf("case-sensitive registry must not match alice")
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	disp := pipeline.NewDispatcher()
	r := NewRegistry(false)

	c := NewConnection(newFakeChannel(disp, "127.0.0.1"), "Alice", mustVersion(t, 766))
	r.Add(c)

	r.Remove(c)
	r.Remove(c)
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}

	// Removing a stale attempt must not evict the current holder of the name.
	fresh := NewConnection(newFakeChannel(disp, "127.0.0.1"), "Alice", mustVersion(t, 766))
	r.Add(fresh)
	r.Remove(c)
	if _, ok := r.GetByName("Alice"); !ok {
		t.Fatalf("stale removal evicted the live attempt")
	}
}
