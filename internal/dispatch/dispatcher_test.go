package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediagrab/mediagrab/internal/task"
)

// blockingRunner records concurrency and holds each task until released.
type blockingRunner struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	started chan int64
	release chan struct{}
	runs    atomic.Int64
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started: make(chan int64, 64),
		release: make(chan struct{}),
	}
}

func (r *blockingRunner) Run(ctx context.Context, d task.Descriptor) {
	r.mu.Lock()
	r.active++

	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.mu.Unlock()

	r.started <- d.TaskID
	<-r.release

	r.mu.Lock()
	r.active--
	r.mu.Unlock()

	r.runs.Add(1)
}

func TestDispatcher_SerializesWithBoundOne(t *testing.T) {
	q := NewQueue()
	runner := newBlockingRunner()
	dsp := NewDispatcher(q, runner, 1, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dsp.Run(ctx)

	q.Enqueue(task.Descriptor{TaskID: 1})
	q.Enqueue(task.Descriptor{TaskID: 2})

	// First task admitted.
	select {
	case id := <-runner.started:
		if id != 1 {
			t.Fatalf("first started task = %d, want 1", id)
		}
	case <-time.After(time.Second):
		t.Fatal("first task never started")
	}

	// Second must stay queued while the slot is held.
	select {
	case id := <-runner.started:
		t.Fatalf("task %d started while pool was full", id)
	case <-time.After(50 * time.Millisecond):
	}

	runner.release <- struct{}{}

	select {
	case id := <-runner.started:
		if id != 2 {
			t.Fatalf("second started task = %d, want 2", id)
		}
	case <-time.After(time.Second):
		t.Fatal("second task never started")
	}

	runner.release <- struct{}{}

	cancel()
	dsp.Drain(context.Background())

	if runner.maxSeen != 1 {
		t.Errorf("max concurrency = %d, want 1", runner.maxSeen)
	}

	if got := runner.runs.Load(); got != 2 {
		t.Errorf("completed runs = %d, want 2", got)
	}
}

func TestDispatcher_DrainWaitsForInFlight(t *testing.T) {
	q := NewQueue()
	runner := newBlockingRunner()
	dsp := NewDispatcher(q, runner, 2, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	go dsp.Run(ctx)

	q.Enqueue(task.Descriptor{TaskID: 1})
	<-runner.started

	cancel()

	drained := make(chan int, 1)

	go func() {
		drained <- dsp.Drain(context.Background())
	}()

	select {
	case <-drained:
		t.Fatal("drain returned while a task was still running")
	case <-time.After(50 * time.Millisecond):
	}

	runner.release <- struct{}{}

	select {
	case abandoned := <-drained:
		if abandoned != 0 {
			t.Errorf("abandoned = %d, want 0", abandoned)
		}
	case <-time.After(time.Second):
		t.Fatal("drain never returned")
	}
}

func TestDispatcher_ForcedDrainAbandons(t *testing.T) {
	q := NewQueue()
	runner := newBlockingRunner()
	dsp := NewDispatcher(q, runner, 2, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	go dsp.Run(ctx)

	q.Enqueue(task.Descriptor{TaskID: 1})
	<-runner.started

	cancel()

	forceCtx, forceCancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer forceCancel()

	if abandoned := dsp.Drain(forceCtx); abandoned != 1 {
		t.Errorf("abandoned = %d, want 1", abandoned)
	}

	runner.release <- struct{}{}
}

func TestDispatcher_StopsDequeuingOnCancel(t *testing.T) {
	q := NewQueue()
	runner := newBlockingRunner()
	dsp := NewDispatcher(q, runner, 1, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})

	go func() {
		dsp.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not stop on cancelled context")
	}

	q.Enqueue(task.Descriptor{TaskID: 1})

	select {
	case <-runner.started:
		t.Fatal("task started after dispatcher stopped")
	case <-time.After(50 * time.Millisecond):
	}
}
