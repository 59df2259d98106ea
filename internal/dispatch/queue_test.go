package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/mediagrab/mediagrab/internal/task"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()

	for i := int64(1); i <= 3; i++ {
		q.Enqueue(task.Descriptor{TaskID: i})
	}

	for want := int64(1); want <= 3; want++ {
		d, ok := q.Dequeue(time.Millisecond)
		if !ok {
			t.Fatalf("expected item %d", want)
		}

		if d.TaskID != want {
			t.Errorf("got task %d, want %d", d.TaskID, want)
		}
	}

	if q.Len() != 0 {
		t.Errorf("queue not empty after draining: %d", q.Len())
	}
}

func TestQueue_DequeueTimesOutEmpty(t *testing.T) {
	q := NewQueue()

	start := time.Now()

	_, ok := q.Dequeue(20 * time.Millisecond)
	if ok {
		t.Fatal("expected empty dequeue")
	}

	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("dequeue returned too early: %v", elapsed)
	}
}

func TestQueue_WakesWaitingConsumer(t *testing.T) {
	q := NewQueue()

	done := make(chan task.Descriptor, 1)

	go func() {
		if d, ok := q.Dequeue(5 * time.Second); ok {
			done <- d
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(task.Descriptor{TaskID: 7})

	select {
	case d := <-done:
		if d.TaskID != 7 {
			t.Errorf("got task %d, want 7", d.TaskID)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue()

	var wg sync.WaitGroup

	const producers, perProducer = 8, 50

	for p := 0; p < producers; p++ {
		wg.Add(1)

		go func(p int) {
			defer wg.Done()

			for i := 0; i < perProducer; i++ {
				q.Enqueue(task.Descriptor{TaskID: int64(p*perProducer + i)})
			}
		}(p)
	}

	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Errorf("queue len = %d, want %d", q.Len(), producers*perProducer)
	}
}
