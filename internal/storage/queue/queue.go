// Package queue implements an unbounded FIFO shared by many producers and
// one or more consumers. Closing the queue is the shutdown signal: consumers
// keep receiving queued items until it is drained.
package queue

import (
	"context"
	"sync"

	"github.com/1rayanharoon/videodl/internal/common"
)

type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	// ready holds a token while items may be available. It is closed with
	// the queue so that blocked consumers wake up and drain.
	ready chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		ready: make(chan struct{}, 1),
	}
}

// Push appends item to the tail. It never blocks and fails only after Close.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return common.ErrQueueClosed
	}

	q.items = append(q.items, item)
	q.signal()

	return nil
}

// Pop removes the head item, blocking until one is available. ok is false
// when the queue is closed and drained or ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (item T, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item = q.items[0]

			var zero T
			q.items[0] = zero
			q.items = q.items[1:]

			if len(q.items) > 0 {
				q.signal()
			}
			q.mu.Unlock()

			return item, true
		}

		if q.closed {
			q.mu.Unlock()

			return item, false
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return item, false
		case <-q.ready:
		}
	}
}

// Close stops accepting items. Items already queued are still delivered.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.ready)
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed
}

// signal must be called with mu held.
func (q *Queue[T]) signal() {
	if q.closed {
		return
	}

	select {
	case q.ready <- struct{}{}:
	default:
	}
}
