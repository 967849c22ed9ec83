// Package broadcast implements a bounded, multi-consumer broadcast channel.
//
// A single producer appends items to a ring buffer of fixed capacity. Every
// subscriber owns a cursor into the ring and reads at its own pace. The producer
// never waits for subscribers: when a subscriber falls more than the ring capacity
// behind, the oldest items are overwritten and the subscriber observes an
// OverrunError carrying the number of items it missed. Items are never dropped
// without that signal.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Subscription.Next once the broadcaster was closed and
// all items published before Close have been consumed.
var ErrClosed = errors.New("broadcast channel closed")

// OverrunError is returned by Subscription.Next when the subscriber fell so far
// behind that items were overwritten before it read them.
type OverrunError struct {
	Missed uint64
}

func (e OverrunError) Error() string {
	return fmt.Sprintf("subscriber overrun: missed %d items", e.Missed)
}

// IsOverrunError returns whether err is an OverrunError.
func IsOverrunError(err error) bool {
	var e OverrunError
	return errors.As(err, &e)
}

// Broadcaster is a bounded broadcast channel. It is safe for concurrent use.
// Publish is expected to be called from a single producer, but concurrent
// publishers are serialized correctly.
type Broadcaster[T any] struct {
	mu       sync.Mutex
	ring     []T
	head     uint64        // sequence number of the next item to be written
	wake     chan struct{} // closed and replaced on every publish
	closed   bool
	capacity uint64
}

// NewBroadcaster creates a broadcaster retaining at most capacity unread items per subscriber.
func NewBroadcaster[T any](capacity int) (*Broadcaster[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("broadcast capacity must be positive, got %d", capacity)
	}
	return &Broadcaster[T]{
		ring:     make([]T, capacity),
		wake:     make(chan struct{}),
		capacity: uint64(capacity),
	}, nil
}

// Publish appends all items as one atomic batch: a subscriber woken by this call
// observes either none or all of them as available.
// Publishing to a closed broadcaster returns ErrClosed.
func (b *Broadcaster[T]) Publish(items ...T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		b.ring[b.head%b.capacity] = item
		b.head++
	}
	close(b.wake)
	b.wake = make(chan struct{})
	return nil
}

// Close stops the broadcaster. Subscribers drain what is still buffered for them
// and then receive ErrClosed. Close is idempotent.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.wake)
}

// Head returns the sequence number of the next item to be published.
func (b *Broadcaster[T]) Head() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head
}

// Subscribe returns a subscription positioned at the current head: it receives
// every item published after this call.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscription[T]{
		b:      b,
		cursor: b.head,
	}
}

// Subscription is a single consumer's view of a Broadcaster. A Subscription must
// not be used from more than one goroutine at a time.
type Subscription[T any] struct {
	b      *Broadcaster[T]
	cursor uint64 // sequence number of the next item to read
}

// Next blocks until the next item is available and returns it.
// Expected errors during normal operations:
//   - OverrunError if items were overwritten before being read. The subscription
//     is repositioned at the oldest retained item, so a subsequent Next continues
//     from there.
//   - ErrClosed if the broadcaster was closed and everything was consumed.
//   - the context error if ctx is done before an item arrives.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		b := s.b
		b.mu.Lock()
		if s.cursor < b.head {
			if behind := b.head - s.cursor; behind > b.capacity {
				missed := behind - b.capacity
				s.cursor += missed
				b.mu.Unlock()
				return zero, OverrunError{Missed: missed}
			}
			item := b.ring[s.cursor%b.capacity]
			s.cursor++
			b.mu.Unlock()
			return item, nil
		}
		if b.closed {
			b.mu.Unlock()
			return zero, ErrClosed
		}
		wake := b.wake
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-wake:
		}
	}
}

// Lag returns how many published items this subscription has not read yet,
// including items it already lost to an overrun it has not observed.
func (s *Subscription[T]) Lag() uint64 {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.head - s.cursor
}
