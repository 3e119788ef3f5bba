package progress

import (
	"testing"

	"github.com/arencloud/strata/internal/models"
)

func TestEvent(t *testing.T) {
	cases := []struct {
		done, total int64
		pct         float64
	}{
		{0, 200, 0},
		{50, 200, 25},
		{200, 200, 100},
		{0, 0, 100},
	}
	for _, c := range cases {
		p := Event("f", c.done, c.total)
		if p.Percent != c.pct || p.BytesDone != c.done || p.BytesTotal != c.total {
			t.Fatalf("Event(%d,%d)=%+v", c.done, c.total, p)
		}
	}
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelB()

	h.Emit(Event("x.bin", 0, 10))
	for _, ch := range []<-chan models.Progress{a, b} {
		select {
		case p := <-ch:
			if p.Name != "x.bin" {
				t.Fatalf("event=%+v", p)
			}
		default:
			t.Fatal("subscriber missed event")
		}
	}

	cancelA()
	cancelA()
	if h.Subscribers() != 1 {
		t.Fatalf("subscribers=%d", h.Subscribers())
	}
	if _, ok := <-a; ok {
		t.Fatal("cancelled channel still open")
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()
	for i := 0; i < 200; i++ {
		h.Emit(Event("f", int64(i), 200))
	}
	if n := len(ch); n != cap(ch) {
		t.Fatalf("buffered=%d cap=%d", n, cap(ch))
	}
	Discard.Emit(Event("f", 1, 1))
}
