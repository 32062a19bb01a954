package queue

import (
	"context"
	"sync"
	"time"
)

// visibleQueue is the per-queue FIFO of in-flight-eligible message actors
// (spec §4.3). Enqueue/Dequeue are safe for concurrent use; Dequeue
// supports long-poll blocking with a caller-supplied cancellation.
type visibleQueue struct {
	mu     sync.Mutex
	items  []*Actor
	notify chan struct{} // buffered(1) wake signal, never blocks a sender
	closed bool
}

func newVisibleQueue() *visibleQueue {
	return &visibleQueue{notify: make(chan struct{}, 1)}
}

func (q *visibleQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Enqueue appends to the tail. A no-op once the queue has been closed by
// DeleteQueue teardown.
func (q *visibleQueue) Enqueue(a *Actor) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, a)
	q.mu.Unlock()
	q.wake()
}

// Dequeue returns between 0 and maxCount actor references. If any are
// already present it returns immediately; otherwise it blocks up to wait,
// waking as soon as something is enqueued or the queue is closed. ctx
// cancellation also unblocks it early with an empty result — no item is
// ever removed from the queue without being returned to the caller.
func (q *visibleQueue) Dequeue(ctx context.Context, maxCount int, wait time.Duration) []*Actor {
	deadline := time.Now().Add(wait)
	for {
		q.mu.Lock()
		if len(q.items) > 0 || q.closed {
			n := maxCount
			if n > len(q.items) {
				n = len(q.items)
			}
			out := append([]*Actor(nil), q.items[:n]...)
			q.items = q.items[n:]
			q.mu.Unlock()
			return out
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
			return nil
		case <-ctx.Done():
			timer.Stop()
			return nil
		}
	}
}

// PutBackFront returns previously-dequeued references to the head of the
// queue, preserving their relative order. Used when a Dequeue's result
// cannot be delivered to the caller (e.g. the HTTP request was cancelled
// before receive() ran on any of them) so no reference is lost.
func (q *visibleQueue) PutBackFront(actors []*Actor) {
	if len(actors) == 0 {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(append([]*Actor(nil), actors...), q.items...)
	q.mu.Unlock()
	q.wake()
}

// Remove detaches an actor if it is still sitting in the queue (used when a
// message is deleted or dead-lettered while VISIBLE but not yet dequeued).
func (q *visibleQueue) Remove(a *Actor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item == a {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Close marks the queue torn down; any blocked Dequeue wakes with an empty
// result and future Enqueue calls are no-ops.
func (q *visibleQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()
	q.wake()
}
