package stream

import "testing"

type nopCloser struct{ closed *bool }

func (c nopCloser) Close() error {
	if c.closed != nil {
		*c.closed = true
	}
	return nil
}

func TestSourceSlotPreemption(t *testing.T) {
	var slot SourceSlot
	var firstClosed bool

	tok1 := slot.Acquire(nopCloser{&firstClosed})
	if !slot.Occupied() {
		t.Fatal("slot should be occupied after Acquire")
	}

	var secondClosed bool
	tok2 := slot.Acquire(nopCloser{&secondClosed})
	if !firstClosed {
		t.Error("preempting a source must close the previous occupant")
	}
	if tok1 == tok2 {
		t.Error("preemption must mint a new token")
	}

	// stale release from the preempted source must not clear the new occupant
	slot.Release(tok1)
	if !slot.Occupied() {
		t.Error("stale Release must not clear a newer occupant")
	}

	slot.Release(tok2)
	if slot.Occupied() {
		t.Error("slot should be empty after the current occupant releases")
	}
}

func TestMetadataGetSet(t *testing.T) {
	var md Metadata
	title, artist := md.Get()
	if title != "" || artist != "" {
		t.Fatalf("zero-value Metadata.Get() = (%q,%q), want empty", title, artist)
	}

	md.Set("Song Y", "Artist X")
	title, artist = md.Get()
	if title != "Song Y" || artist != "Artist X" {
		t.Errorf("Get() = (%q,%q), want (%q,%q)", title, artist, "Song Y", "Artist X")
	}
}

func TestMountMaxListenersEnforced(t *testing.T) {
	m := NewMount("/stream", 1024, 10, 1)

	l1, ok := m.AddListener("1.1.1.1")
	if !ok || l1 == nil {
		t.Fatal("first listener should be admitted")
	}

	_, ok = m.AddListener("2.2.2.2")
	if ok {
		t.Error("second listener should be refused once max_listeners is reached")
	}

	m.RemoveListener(l1.ID)
	_, ok = m.AddListener("2.2.2.2")
	if !ok {
		t.Error("listener should be admitted once a slot frees up")
	}
}

func TestMountRemoveListenerIdempotent(t *testing.T) {
	m := NewMount("/stream", 1024, 10, 0)
	l, _ := m.AddListener("1.2.3.4")
	m.RemoveListener(l.ID)
	m.RemoveListener(l.ID) // must not panic on double removal
	if m.IsListenerActive(l.ID) {
		t.Error("listener should not be active after removal")
	}
}
