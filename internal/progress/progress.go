// Package progress carries best-effort transfer notifications from storage
// calls to whoever is watching.
package progress

import (
	"sync"

	"github.com/arencloud/strata/internal/models"
)

// Sink receives progress events. Emit must not block.
type Sink interface {
	Emit(p models.Progress)
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(models.Progress) {}

// Event builds a progress value; percent is 100 for empty transfers once done.
func Event(name string, done, total int64) models.Progress {
	pct := 0.0
	switch {
	case total > 0:
		pct = float64(done) / float64(total) * 100
	case done >= total:
		pct = 100
	}
	return models.Progress{Name: name, BytesDone: done, BytesTotal: total, Percent: pct}
}

// Hub fans events out to subscribers. Slow subscribers miss events.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan models.Progress]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan models.Progress]struct{}{}}
}

func (h *Hub) Emit(p models.Progress) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// Subscribe returns a channel of events and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan models.Progress, func()) {
	ch := make(chan models.Progress, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
