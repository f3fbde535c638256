package session

import (
	"context"
	"sync"
	"time"
)

// EventKind identifies what an Event reports.
type EventKind string

const (
	EventState   EventKind = "state"
	EventResult  EventKind = "result"
	EventCleared EventKind = "cleared"
)

// Event is one observable change of the controller.
type Event struct {
	Sequence  uint64      `json:"seq"`
	Timestamp time.Time   `json:"ts"`
	Kind      EventKind   `json:"kind"`
	Snapshot  Snapshot    `json:"snapshot"`
	Result    *ScanResult `json:"result,omitempty"`
}

// EventHub keeps the most recent events in a fixed ring and lets observers
// read them by sequence cursor. Sequences start at 1 and have no gaps, so a
// cursor maps straight onto a ring slot.
type EventHub struct {
	mu    sync.Mutex
	cond  *sync.Cond
	ring  []Event
	head  int
	count int
	last  uint64
}

// NewEventHub returns a hub retaining up to capacity events (256 if <= 0).
func NewEventHub(capacity int) *EventHub {
	if capacity <= 0 {
		capacity = 256
	}
	h := &EventHub{ring: make([]Event, capacity)}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish stamps evt with the next sequence, evicting the oldest event when
// the ring is full, and wakes blocked readers.
func (h *EventHub) Publish(evt Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last++
	evt.Sequence = h.last
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if h.count < len(h.ring) {
		h.ring[(h.head+h.count)%len(h.ring)] = evt
		h.count++
	} else {
		h.ring[h.head] = evt
		h.head = (h.head + 1) % len(h.ring)
	}
	h.cond.Broadcast()
	return evt
}

// Last reports the sequence of the newest event, 0 before the first Publish.
func (h *EventHub) Last() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// Poll returns up to limit events after the cursor without blocking, plus the
// cursor to pass next time. limit <= 0 means everything retained. A reader
// that fell behind the ring resumes at the oldest retained event.
func (h *EventHub) Poll(after uint64, limit int) ([]Event, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sinceLocked(after, limit)
}

// Next is Poll that blocks until at least one event is available or ctx ends.
func (h *EventHub) Next(ctx context.Context, after uint64, limit int) ([]Event, uint64, error) {
	stop := context.AfterFunc(ctx, func() {
		h.mu.Lock()
		h.cond.Broadcast()
		h.mu.Unlock()
	})
	defer stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		if events, cursor := h.sinceLocked(after, limit); len(events) > 0 {
			return events, cursor, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, after, err
		}
		h.cond.Wait()
	}
}

func (h *EventHub) sinceLocked(after uint64, limit int) ([]Event, uint64) {
	if h.count == 0 || after >= h.last {
		return nil, max(after, h.last)
	}
	oldest := h.last - uint64(h.count) + 1
	if after < oldest-1 {
		after = oldest - 1
	}
	n := int(h.last - after)
	if limit > 0 && n > limit {
		n = limit
	}
	offset := int(after + 1 - oldest)
	out := make([]Event, n)
	for i := range out {
		out[i] = h.ring[(h.head+offset+i)%len(h.ring)]
	}
	return out, out[n-1].Sequence
}
