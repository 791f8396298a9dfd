// Package queue provides an unbounded FIFO for handing work from
// producer goroutines to a single consumer without blocking producers.
package queue

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is a thread-safe unbounded FIFO. Push never blocks; Pop blocks
// until an item is available or the queue is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *queue.Queue
	closed bool

	// Stats
	pushed int64
	popped int64
	peak   int
}

// Stats contains queue statistics.
type Stats struct {
	Len    int
	Peak   int
	Pushed int64
	Popped int64
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{items: queue.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. Returns false if the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items.Add(item)
	q.pushed++
	if n := q.items.Length(); n > q.peak {
		q.peak = n
	}

	q.cond.Signal()
	return true
}

// Pop removes and returns the oldest item, blocking while the queue is
// empty. Returns the zero value and false once the queue is closed and
// drained.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.take()
}

// take must be called with the lock held.
func (q *Queue[T]) take() (T, bool) {
	if q.items.Length() == 0 {
		var zero T
		return zero, false
	}
	item := q.items.Remove().(T)
	q.popped++
	return item, true
}

// Close stops accepting items and wakes all waiters. Items already
// queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:    q.items.Length(),
		Peak:   q.peak,
		Pushed: q.pushed,
		Popped: q.popped,
	}
}
