package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/observability"
)

// Observer receives monitor events. OnEvent is called from the polling
// goroutine and should return quickly.
type Observer interface {
	OnEvent(ev domain.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev domain.Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev domain.Event) { f(ev) }

// MultiObserver fans an event out to every observer in order.
type MultiObserver []Observer

// OnEvent delivers ev to each non-nil observer.
func (mo MultiObserver) OnEvent(ev domain.Event) {
	for _, o := range mo {
		if o != nil {
			o.OnEvent(ev)
		}
	}
}

// ChannelObserver delivers events on a buffered channel. When the buffer
// is full the event is dropped and counted; the monitor never blocks.
type ChannelObserver struct {
	ch      chan domain.Event
	dropped atomic.Int64
}

// NewChannelObserver creates a ChannelObserver with the given buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	if buffer < 1 {
		buffer = 1
	}
	return &ChannelObserver{ch: make(chan domain.Event, buffer)}
}

// OnEvent enqueues ev without blocking.
func (o *ChannelObserver) OnEvent(ev domain.Event) {
	select {
	case o.ch <- ev:
	default:
		o.dropped.Add(1)
		observability.RecordEventDropped()
	}
}

// Events returns the receive side of the channel. It is never closed.
func (o *ChannelObserver) Events() <-chan domain.Event {
	return o.ch
}

// Dropped returns how many events were discarded.
func (o *ChannelObserver) Dropped() int64 {
	return o.dropped.Load()
}

// EventBuffer keeps the most recent events of a monitor.
type EventBuffer struct {
	mu     sync.Mutex
	events []domain.Event
	next   int
	full   bool
}

// NewEventBuffer creates a buffer holding up to capacity events.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &EventBuffer{events: make([]domain.Event, capacity)}
}

// OnEvent records ev, evicting the oldest event when full.
func (b *EventBuffer) OnEvent(ev domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.next] = ev
	b.next = (b.next + 1) % len(b.events)
	if b.next == 0 {
		b.full = true
	}
}

// Snapshot returns the buffered events oldest first.
func (b *EventBuffer) Snapshot() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]domain.Event, b.next)
		copy(out, b.events[:b.next])
		return out
	}
	out := make([]domain.Event, 0, len(b.events))
	out = append(out, b.events[b.next:]...)
	out = append(out, b.events[:b.next]...)
	return out
}

// Compile-time interface checks.
var (
	_ Observer = ObserverFunc(nil)
	_ Observer = MultiObserver(nil)
	_ Observer = (*ChannelObserver)(nil)
	_ Observer = (*EventBuffer)(nil)
)
