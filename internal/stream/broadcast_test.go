// Package stream tests for the fan-out broadcaster.
package stream

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestMount(bufCap, queueCap int) *Mount {
	return NewMount("/stream", bufCap, queueCap, 0)
}

func TestBroadcasterFanOutOrder(t *testing.T) {
	m := newTestMount(1<<20, 500)
	b := NewBroadcaster(m, 4, zerolog.Nop())
	l, ok := m.AddListener("127.0.0.1")
	if !ok {
		t.Fatal("AddListener failed")
	}

	b.Start()
	defer b.Stop()

	chunks := []string{"aaaa", "bbbb", "cccc"}
	for _, c := range chunks {
		m.Buffer.Write([]byte(c))
	}

	for _, want := range chunks {
		got, ok := l.Dequeue(2 * time.Second)
		if !ok {
			t.Fatalf("dequeue timed out waiting for %q", want)
		}
		if string(got) != want {
			t.Errorf("dequeue() = %q, want %q (fan-out order violated)", got, want)
		}
	}
}

func TestListenerDropOldestFreshness(t *testing.T) {
	l := newListener(1, "127.0.0.1", 2)

	l.enqueue([]byte("c1"))
	l.enqueue([]byte("c2"))
	dropped := l.enqueue([]byte("c3"))
	if !dropped {
		t.Fatal("enqueue should report a drop when queue is full")
	}

	first, ok := l.Dequeue(time.Second)
	if !ok {
		t.Fatal("dequeue timed out")
	}
	if string(first) == "c1" {
		t.Errorf("listener observed dropped chunk c1, want it discarded")
	}
	if string(first) != "c2" {
		t.Errorf("dequeue() = %q, want %q", first, "c2")
	}

	second, ok := l.Dequeue(time.Second)
	if !ok || string(second) != "c3" {
		t.Errorf("dequeue() = %q, ok=%v, want %q", second, ok, "c3")
	}
}

func TestBroadcasterSlowListenerIsolation(t *testing.T) {
	m := newTestMount(1<<20, 4)
	b := NewBroadcaster(m, 8, zerolog.Nop())
	slow, _ := m.AddListener("10.0.0.1")
	fast, _ := m.AddListener("10.0.0.2")

	b.Start()
	defer b.Stop()

	for i := 0; i < 50; i++ {
		m.Buffer.Write([]byte("01234567"))
		// drain the fast listener immediately; never drain the slow one
		fast.Dequeue(50 * time.Millisecond)
	}

	if slow.IsActive() == false {
		t.Error("slow listener should remain registered (broadcaster never auto-removes)")
	}
	if b.DroppedChunks() == 0 {
		t.Error("expected drop-oldest to have triggered for the slow listener")
	}
}

func TestBroadcasterStartStopIdempotent(t *testing.T) {
	m := newTestMount(1024, 10)
	b := NewBroadcaster(m, 16, zerolog.Nop())

	b.Start()
	b.Start() // second Start is a no-op
	b.Stop()
	b.Stop() // second Stop is a no-op
}
