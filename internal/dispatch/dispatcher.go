package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/mediagrab/mediagrab/internal/logctx"
	"github.com/mediagrab/mediagrab/internal/task"
	"github.com/mediagrab/mediagrab/internal/telemetry"
)

// Runner executes a single task to a terminal state.
type Runner interface {
	Run(ctx context.Context, d task.Descriptor)
}

// Dispatcher drains the queue and runs each task in its own goroutine,
// never exceeding the configured concurrency bound. The semaphore is
// acquired before a task is taken out of its queued state, so a full
// worker pool stops dequeueing rather than buffering claimed tasks.
type Dispatcher struct {
	queue        *Queue
	runner       Runner
	telemetry    *telemetry.Telemetry
	pollInterval time.Duration

	sem chan struct{}

	mu      sync.Mutex
	running map[int64]struct{}
	wg      sync.WaitGroup
}

func NewDispatcher(queue *Queue, runner Runner, maxConcurrent int, pollInterval time.Duration, tel *telemetry.Telemetry) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Dispatcher{
		queue:        queue,
		runner:       runner,
		telemetry:    tel,
		pollInterval: pollInterval,
		sem:          make(chan struct{}, maxConcurrent),
		running:      make(map[int64]struct{}),
	}
}

// Run consumes the queue until ctx is cancelled. It returns once the loop
// has stopped accepting new work; in-flight tasks keep running and are
// awaited by Drain.
func (dsp *Dispatcher) Run(ctx context.Context) {
	logger := logctx.LoggerFromContext(ctx)
	logger.Info("dispatcher started", "max_concurrent", cap(dsp.sem))

	for {
		select {
		case <-ctx.Done():
			logger.Info("dispatcher stopping, no longer accepting tasks")

			return
		default:
		}

		d, ok := dsp.queue.Dequeue(dsp.pollInterval)
		if !ok {
			dsp.telemetry.RecordQueueDepth(dsp.queue.Len())

			continue
		}

		// Block here, not inside the worker: a full pool must stall
		// admission so queued tasks stay queued.
		select {
		case dsp.sem <- struct{}{}:
		case <-ctx.Done():
			// Put the task back so a drained restart can pick it up.
			dsp.queue.Enqueue(d)

			return
		}

		dsp.track(d.TaskID)
		dsp.wg.Add(1)

		go func(d task.Descriptor) {
			defer func() {
				if r := recover(); r != nil {
					logctx.LoggerFromContext(ctx).Error("task runner panicked", "task_id", d.TaskID, "panic", r)
					dsp.telemetry.RecordSystemError("dispatcher", "panic")
				}

				dsp.untrack(d.TaskID)
				<-dsp.sem
				dsp.wg.Done()
			}()

			// Detached from the run loop's cancellation: a graceful
			// shutdown lets in-flight tasks finish.
			dsp.runner.Run(context.WithoutCancel(ctx), d)
		}(d)

		dsp.telemetry.RecordQueueDepth(dsp.queue.Len())
	}
}

// Drain waits for in-flight tasks to finish. When forceCtx is cancelled
// first, the remaining tasks are abandoned and their count returned.
func (dsp *Dispatcher) Drain(forceCtx context.Context) int {
	done := make(chan struct{})

	go func() {
		dsp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return 0
	case <-forceCtx.Done():
		return dsp.RunningCount()
	}
}

// RunningCount reports how many tasks are currently executing.
func (dsp *Dispatcher) RunningCount() int {
	dsp.mu.Lock()
	defer dsp.mu.Unlock()

	return len(dsp.running)
}

func (dsp *Dispatcher) track(id int64) {
	dsp.mu.Lock()
	dsp.running[id] = struct{}{}
	dsp.mu.Unlock()
}

func (dsp *Dispatcher) untrack(id int64) {
	dsp.mu.Lock()
	delete(dsp.running, id)
	dsp.mu.Unlock()
}
