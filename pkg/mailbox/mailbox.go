// Package mailbox provides a single-slot handoff between one producer
// goroutine and one consumer. A publish overwrites any value the consumer has
// not taken yet; neither side ever waits on the other.
package mailbox

import (
	"sync"
	"sync/atomic"
)

type Mailbox[T any] struct {
	mu      sync.Mutex
	pending bool
	value   T

	drops atomic.Uint64
}

func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{}
}

// Publish stores value and raises the signal. An untaken value is replaced
// and counted as dropped. It reports whether a value was replaced.
func (m *Mailbox[T]) Publish(value T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := m.pending
	if replaced {
		m.drops.Add(1)
	}
	m.value = value
	m.pending = true
	return replaced
}

// TakeIfSignaled clears the signal and returns the pending value, if any.
func (m *Mailbox[T]) TakeIfSignaled() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if !m.pending {
		return zero, false
	}

	value := m.value
	m.value = zero
	m.pending = false
	return value, true
}

// Signaled reports whether a value is waiting without taking it.
func (m *Mailbox[T]) Signaled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Dropped returns how many published values were superseded before being taken.
func (m *Mailbox[T]) Dropped() uint64 {
	return m.drops.Load()
}
