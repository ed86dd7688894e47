package events

import (
	"sync"

	"github.com/NexusAI-AX/mcp-gateway/pkg/logging"
)

// DefaultCapacity is the bus's default bound.
const DefaultCapacity = 256

// defaultSnapshotSize bounds how much history Snapshot will ever return.
const defaultSnapshotSize = 50

// Bus is a bounded, multi-producer single-consumer queue of Events. Publish
// never blocks: when the queue is full the event is dropped and a
// diagnostic is logged. The SSE adapter is the bus's sole intended
// consumer; other components derive their own broadcasts from explicit
// Manager call sites rather than a second subscription to this queue.
type Bus struct {
	ch chan Event

	mu      sync.Mutex
	history []Event
}

// NewBus creates a Bus with the given capacity. A non-positive capacity falls
// back to DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{ch: make(chan Event, capacity)}
}

// Publish enqueues an event without blocking. If the queue is full the event
// is dropped and logged; Publish itself never blocks the producer.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	b.history = append(b.history, e)
	if len(b.history) > defaultSnapshotSize {
		b.history = b.history[len(b.history)-defaultSnapshotSize:]
	}
	b.mu.Unlock()

	select {
	case b.ch <- e:
	default:
		logging.Warn("EventBus", "bus full, dropping event %s for %v", e.Type, e.Data)
	}
}

// Events returns the channel consumers read from. There is exactly one
// intended consumer; a second reader would race for events rather than fan
// them out.
func (b *Bus) Events() <-chan Event {
	return b.ch
}

// Len reports how many events are currently queued and unread.
func (b *Bus) Len() int { return len(b.ch) }

// Cap reports the bus's configured capacity.
func (b *Bus) Cap() int { return cap(b.ch) }

// Snapshot returns a copy of the most recent published events, oldest first,
// bounded to n entries (or fewer if less history exists). It is independent
// of the consumer channel: calling it does not remove or duplicate anything
// a subscriber would otherwise read from Events().
func (b *Bus) Snapshot(n int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Event, n)
	copy(out, b.history[len(b.history)-n:])
	return out
}
