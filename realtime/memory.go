package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("notifier closed")

// MemoryHub delivers events within a single process.
type MemoryHub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[chan Event]struct{}
	closed bool
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{subs: make(map[uuid.UUID]map[chan Event]struct{})}
}

func (h *MemoryHub) Publish(ctx context.Context, e Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}
	for ch := range h.subs[e.HouseID] {
		select {
		case ch <- e:
		default:
			// subscriber is behind; it will catch up on the next event
		}
	}
	return nil
}

func (h *MemoryHub) Subscribe(ctx context.Context, houseID uuid.UUID) (<-chan Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	ch := make(chan Event, subscriberBuffer)
	if h.subs[houseID] == nil {
		h.subs[houseID] = make(map[chan Event]struct{})
	}
	h.subs[houseID][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		h.remove(houseID, ch)
	}()
	return ch, nil
}

func (h *MemoryHub) remove(houseID uuid.UUID, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[houseID][ch]; !ok {
		return
	}
	delete(h.subs[houseID], ch)
	if len(h.subs[houseID]) == 0 {
		delete(h.subs, houseID)
	}
	close(ch)
}

func (h *MemoryHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for houseID, set := range h.subs {
		for ch := range set {
			close(ch)
		}
		delete(h.subs, houseID)
	}
	return nil
}
