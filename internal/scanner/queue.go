package scanner

import (
	"context"
	"sync"
)

// Queue is a FIFO shared between goroutines. With a limit of 0 it grows
// without bound; otherwise Put blocks while the queue is full. Blocking calls
// return ctx.Err() when ctx is cancelled.
//
// Unlike a channel, queued items can be inspected and removed (see RemoveIf),
// which skipping a directory needs.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	limit  int
	signal chan struct{} // closed and replaced on every change
}

// NewQueue returns an empty queue holding at most limit items (0 = unbounded).
func NewQueue[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit, signal: make(chan struct{})}
}

func (q *Queue[T]) notifyLocked() {
	close(q.signal)
	q.signal = make(chan struct{})
}

// Put appends v, blocking while the queue is full.
func (q *Queue[T]) Put(ctx context.Context, v T) error {
	_, err := q.PutIf(ctx, v, nil)
	return err
}

// PutIf is Put with a last-moment check: once there is room, v is appended
// only if keep (called with the queue locked) still returns true. A nil keep
// always appends. It reports whether v was appended.
func (q *Queue[T]) PutIf(ctx context.Context, v T, keep func() bool) (bool, error) {
	for {
		q.mu.Lock()
		if q.limit <= 0 || len(q.items) < q.limit {
			if keep != nil && !keep() {
				q.mu.Unlock()
				return false, nil
			}
			q.items = append(q.items, v)
			q.notifyLocked()
			q.mu.Unlock()
			return true, nil
		}
		wait := q.signal
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// TryPut appends v if there is room and reports whether it did.
func (q *Queue[T]) TryPut(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.items) >= q.limit {
		return false
	}
	q.items = append(q.items, v)
	q.notifyLocked()
	return true
}

// Take removes and returns the oldest item, blocking while the queue is empty.
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if v, ok := q.popLocked(); ok {
			q.mu.Unlock()
			return v, nil
		}
		wait := q.signal
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// tryTake removes the oldest item without blocking.
func (q *Queue[T]) tryTake() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.notifyLocked()
	return v, true
}

// RemoveIf drops every queued item for which match returns true and reports
// how many were removed.
func (q *Queue[T]) RemoveIf(match func(T) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	removed := 0
	for _, v := range q.items {
		if match(v) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	var zero T
	for i := len(kept); i < len(q.items); i++ {
		q.items[i] = zero
	}
	q.items = kept
	if removed > 0 {
		q.notifyLocked()
	}
	return removed
}

// Clear empties the queue and returns the number of dropped items.
func (q *Queue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	q.notifyLocked()
	return n
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
