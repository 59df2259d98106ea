// Package dispatch owns the task queue, the dispatcher loop that drains it
// under a concurrency bound, and the job that executes a single task.
package dispatch

import (
	"sync"
	"time"

	"github.com/mediagrab/mediagrab/internal/task"
)

// Queue is an unbounded FIFO of task descriptors. Enqueue never blocks;
// Dequeue waits up to a bounded interval for work. Safe for multiple
// producers and a single consumer.
type Queue struct {
	mu    sync.Mutex
	items []task.Descriptor
	wake  chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue appends the descriptor and wakes a waiting consumer.
func (q *Queue) Enqueue(d task.Descriptor) {
	q.mu.Lock()
	q.items = append(q.items, d)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue pops the oldest descriptor, waiting up to wait for one to show
// up. The second return is false when the wait expired empty.
func (q *Queue) Dequeue(wait time.Duration) (task.Descriptor, bool) {
	if d, ok := q.pop(); ok {
		return d, true
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-q.wake:
			if d, ok := q.pop(); ok {
				return d, true
			}
		case <-timer.C:
			return q.pop()
		}
	}
}

func (q *Queue) pop() (task.Descriptor, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return task.Descriptor{}, false
	}

	d := q.items[0]
	q.items = q.items[1:]

	return d, true
}

// Len reports the number of queued descriptors.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
