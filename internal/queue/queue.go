// Package queue provides the thread-safe buffers that sit between the
// simulation tick and the storage batch writers.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO. A non-zero capacity bounds it; when
// full, the oldest item is dropped to make room so a stalled writer cannot
// block the tick loop.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	cap     int
	dropped uint64
}

// New creates an unbounded empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// NewBounded creates a queue that holds at most capacity items.
// A capacity of zero or less means unbounded.
func NewBounded[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
		cap:   capacity,
	}
}

// Push appends items, dropping the oldest entries if the bound is exceeded.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	if q.cap > 0 && len(q.items) > q.cap {
		drop := len(q.items) - q.cap
		q.items = q.items[drop:]
		q.dropped += uint64(drop)
	}
}

// Pop removes and returns the first item. Returns zero value if empty.
func (q *Queue[T]) Pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the number of items discarded due to the capacity bound.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Clear removes all items from the queue.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// GetAndEmpty returns all items and clears the queue.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}
