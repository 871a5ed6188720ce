// Package progress publishes transfer progress as an event stream.
//
// Producers publish monotonic fractions with a status string; consumers
// subscribe via channels and must tolerate redundant or no-op events.
package progress

import (
	"sync"
)

// Event is one progress update. Fraction is in [0, 1] and never decreases
// within a published stream.
type Event struct {
	Fraction float64
	Status   string
}

// Hub fans progress events out to subscribers. Publishing never blocks: slow
// subscribers drop intermediate events and only ever miss superseded values.
type Hub struct {
	mu       sync.Mutex
	last     Event
	started  bool
	channels map[int]chan Event
	nextID   int
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{channels: make(map[int]chan Event)}
}

// Publish delivers an event to all subscribers. Fractions are clamped to
// [0, 1] and regressions are raised to the last published fraction so the
// stream stays monotonic even when producers overlap windows.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	if evt.Fraction < 0 {
		evt.Fraction = 0
	}
	if evt.Fraction > 1 {
		evt.Fraction = 1
	}
	if h.started && evt.Fraction < h.last.Fraction {
		evt.Fraction = h.last.Fraction
	}
	h.last = evt
	h.started = true
	// Sends stay under the lock so an unsubscribe cannot close a channel
	// mid-send. Every send is non-blocking.
	defer h.mu.Unlock()

	for _, ch := range h.channels {
		select {
		case ch <- evt:
		default:
			// Replace the stale buffered event with the newest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
		}
	}
}

// Subscribe registers a consumer. The returned cancel function must be called
// to release the subscription.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	if h == nil {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan Event, 1)
	h.channels[id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if existing, ok := h.channels[id]; ok {
			delete(h.channels, id)
			close(existing)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Last returns the most recently published event.
func (h *Hub) Last() (Event, bool) {
	if h == nil {
		return Event{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.started
}

// Reset clears the monotonic floor, typically between batches.
func (h *Hub) Reset() {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.last = Event{}
	h.started = false
	h.mu.Unlock()
}

// ScanFraction maps a cumulative scanned-entry count into the fraction span
// reserved for the device scan. The ~100-item assumption is a cosmetic
// heuristic; the result is capped, not calibrated.
func ScanFraction(count int) float64 {
	if count < 0 {
		count = 0
	}
	ratio := float64(count) / 100.0
	if ratio > 1 {
		ratio = 1
	}
	return 0.1 + ratio*0.6
}

// Window maps sub-progress of one work unit into a slice of the global span.
type Window struct {
	Start float64
	End   float64
}

// Fraction converts a unit-local fraction into the global one.
func (w Window) Fraction(sub float64) float64 {
	if sub < 0 {
		sub = 0
	}
	if sub > 1 {
		sub = 1
	}
	return w.Start + sub*(w.End-w.Start)
}
