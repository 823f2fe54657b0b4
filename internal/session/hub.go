package session

import "sync"

const subscriberBuffer = 16

// Hub fans engine events out to the subscribers of one attempt. A slow
// subscriber loses ticks rather than block the engine; any other event
// evicts the oldest queued one so that outcomes always arrive.
type Hub struct {
	mu   sync.RWMutex
	subs map[AttemptKey]map[chan Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[AttemptKey]map[chan Event]struct{})}
}

// Subscribe returns a channel of events for key and a cancel func that
// unregisters and closes it.
func (h *Hub) Subscribe(key AttemptKey) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan Event]struct{})
	}
	h.subs[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], ch)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to the subscribers of key.
func (h *Hub) Publish(key AttemptKey, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[key] {
		deliver(ch, ev)
	}
}

func deliver(ch chan Event, ev Event) {
	select {
	case ch <- ev:
		return
	default:
	}
	if ev.Kind == EventTick {
		return
	}
	for {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
			return
		default:
		}
	}
}
