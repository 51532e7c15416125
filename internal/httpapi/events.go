package httpapi

import (
	"sync"

	"github.com/agentworkforce/notedrop/internal/notedrop"
)

// SyncEventHub fans orchestrator sync events out to dashboard websocket
// subscribers. Publish never blocks: a subscriber whose buffer is full
// misses the event.
type SyncEventHub struct {
	mu   sync.Mutex
	subs map[chan notedrop.SyncEvent]struct{}
}

func NewSyncEventHub() *SyncEventHub {
	return &SyncEventHub{subs: map[chan notedrop.SyncEvent]struct{}{}}
}

func (h *SyncEventHub) Publish(event notedrop.SyncEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (h *SyncEventHub) Subscribe() (<-chan notedrop.SyncEvent, func()) {
	ch := make(chan notedrop.SyncEvent, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
