// Package ringchan provides a bounded channel with overwrite-oldest
// semantics. The network goroutine publishes events through it without ever
// blocking on a slow consumer: when a subscriber's buffer is full, the
// oldest undelivered event is dropped in favor of the newest.
package ringchan

import "sync/atomic"

// Ring wraps a buffered channel so producers never block indefinitely.
//
// Writers use Send or TrySend; readers range over C() until it is closed.
// Dropped counts the events discarded on behalf of a lagging reader.
type Ring[T any] struct {
	ch      chan T
	dropped atomic.Int64
}

// New creates a Ring with the given capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &Ring[T]{ch: make(chan T, capacity)}
}

// C returns the receive side as an ordinary Go channel.
func (r *Ring[T]) C() <-chan T {
	return r.ch
}

// Send inserts v, discarding the oldest buffered element if the ring is
// full. It never blocks.
func (r *Ring[T]) Send(v T) {
	select {
	case r.ch <- v:
	default:
		select {
		case <-r.ch:
			r.dropped.Add(1)
		default:
		}
		r.ch <- v
	}
}

// TrySend inserts v only if there is room, reporting success.
func (r *Ring[T]) TrySend(v T) bool {
	select {
	case r.ch <- v:
		return true
	default:
		return false
	}
}

// Dropped returns how many elements have been discarded by Send.
func (r *Ring[T]) Dropped() int64 {
	return r.dropped.Load()
}

// Len returns the number of buffered elements.
func (r *Ring[T]) Len() int { return len(r.ch) }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return cap(r.ch) }

// Close closes the receive channel. Sending after Close panics, so only the
// producer side may call it.
func (r *Ring[T]) Close() { close(r.ch) }
