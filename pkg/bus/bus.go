// Package bus fans job lifecycle events out to subscribers without ever
// blocking the publisher.
package bus

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 100

type Bus struct {
	subscribers map[uint64]*subscription
	nextID      uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[uint64]*subscription),
		done:        make(chan struct{}),
	}
}

// Publish delivers event to every subscriber with room for it. It reports
// false once the bus is closed. A nil bus accepts and drops everything.
func (b *Bus) Publish(event Event) bool {
	if b == nil {
		return false
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-b.done:
		return false
	default:
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
			// Drop instead of blocking the publisher on slow subscribers.
		}
	}

	return true
}

type subscription struct {
	events chan Event
	left   chan struct{}
}

// Subscribe returns a channel of events published from now on. The channel is
// closed when ctx ends, when the returned func is called or when the bus
// closes.
func (b *Bus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	sub := &subscription{events: make(chan Event, buffer), left: make(chan struct{})}

	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		close(sub.events)
		return sub.events, func() {}
	default:
	}

	id := b.nextID
	b.nextID++
	b.subscribers[id] = sub

	var once sync.Once
	leave := func() {
		once.Do(func() {
			close(sub.left)
			b.remove(id)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			b.remove(id)
		case <-b.done:
		case <-sub.left:
		}
	}()

	return sub.events, leave
}

// remove drops one subscriber and closes its channel.
func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.events)
	}
}

func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		close(b.done)
		for id, sub := range b.subscribers {
			delete(b.subscribers, id)
			close(sub.events)
		}
	})
}
