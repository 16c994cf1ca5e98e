package engine

import "sync"

// EventType classifies state-change events delivered to subscribers.
type EventType string

const (
	// EventRelationChanged fires when the derived state for a pair moved,
	// optimistically or by revert.
	EventRelationChanged EventType = "relation_changed"
	// EventSnapshotApplied fires after every successful reconciliation;
	// subscribers re-read whatever they render.
	EventSnapshotApplied EventType = "snapshot_applied"
	// EventStateUnknown fires when an optimistic mutation was dropped
	// unresolved and the true state needs a manual refresh to settle.
	EventStateUnknown EventType = "state_unknown"
	// EventSessionExpired fires once when authorization is lost; all
	// cached state has been cleared by the time it is delivered.
	EventSessionExpired EventType = "session_expired"
)

type Event struct {
	Type   EventType
	UserID int64
	TeamID int64
	State  string
}

// Hub fans events out to subscribers. Delivery is best-effort: a subscriber
// that stops draining loses events rather than blocking the engine.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away; it closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Close ends every subscription. Publishing after Close is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
