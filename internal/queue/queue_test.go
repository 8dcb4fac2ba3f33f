package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestChunkQueue_FIFO(t *testing.T) {
	q := New(16)

	for i := 0; i < 10; i++ {
		if err := q.Enqueue(Chunk{byte(i)}); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		c, err := q.Dequeue(ctx, nil)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if c[0] != byte(i) {
			t.Fatalf("dequeued chunk %d, want %d", c[0], i)
		}
	}

	if q.Len() != 0 {
		t.Errorf("queue length = %d, want 0", q.Len())
	}
}

func TestChunkQueue_Enqueue(t *testing.T) {
	q := New(2)

	if err := q.Enqueue(nil); !errors.Is(err, ErrEmptyChunk) {
		t.Errorf("Enqueue(nil) error = %v, want ErrEmptyChunk", err)
	}

	if err := q.Enqueue(Chunk{1}); err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	if err := q.Enqueue(Chunk{2}); err != nil {
		t.Fatalf("second Enqueue failed: %v", err)
	}
	if err := q.Enqueue(Chunk{3}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue on full queue error = %v, want ErrQueueFull", err)
	}

	if q.Len() != 2 || q.Cap() != 2 {
		t.Errorf("Len/Cap = %d/%d, want 2/2", q.Len(), q.Cap())
	}
}

func TestNew_MinimumCapacity(t *testing.T) {
	if got := New(0).Cap(); got != 1 {
		t.Errorf("New(0).Cap() = %d, want 1", got)
	}
}

func TestChunkQueue_DequeueWakesOnEnqueue(t *testing.T) {
	q := New(4)

	got := make(chan Chunk, 1)
	go func() {
		c, err := q.Dequeue(context.Background(), nil)
		if err != nil {
			t.Errorf("Dequeue failed: %v", err)
		}
		got <- c
	}()

	time.Sleep(20 * time.Millisecond)
	if err := q.Enqueue(Chunk{42}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	select {
	case c := <-got:
		if c[0] != 42 {
			t.Errorf("got chunk %v, want [42]", c)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue was not woken by Enqueue")
	}
}

func TestChunkQueue_DequeueStop(t *testing.T) {
	q := New(4)
	stop := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background(), stop)
		errCh <- err
	}()

	close(stop)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("Dequeue error = %v, want ErrStopped", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue was not woken by stop")
	}
}

func TestChunkQueue_DequeueContext(t *testing.T) {
	q := New(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Dequeue(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Dequeue error = %v, want context.Canceled", err)
	}
}

func TestChunkQueue_Clear(t *testing.T) {
	q := New(8)
	for i := 0; i < 5; i++ {
		_ = q.Enqueue(Chunk{byte(i)})
	}

	if n := q.Clear(); n != 5 {
		t.Errorf("Clear dropped %d chunks, want 5", n)
	}
	if q.Len() != 0 {
		t.Errorf("queue length after Clear = %d, want 0", q.Len())
	}
	if n := q.Clear(); n != 0 {
		t.Errorf("second Clear dropped %d chunks, want 0", n)
	}
}

func TestChunkQueue_ConcurrentProducersNoLoss(t *testing.T) {
	const producers = 8
	const perProducer = 50
	q := New(producers * perProducer)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := q.Enqueue(Chunk{byte(p), byte(i)}); err != nil {
					t.Errorf("Enqueue failed: %v", err)
				}
			}
		}(p)
	}
	wg.Wait()

	// per-producer order must be preserved
	last := make(map[byte]int)
	for p := 0; p < producers; p++ {
		last[byte(p)] = -1
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for n := 0; n < producers*perProducer; n++ {
		c, err := q.Dequeue(ctx, nil)
		if err != nil {
			t.Fatalf("queue drained early: %v", err)
		}
		if int(c[1]) <= last[c[0]] {
			t.Fatalf("producer %d: chunk %d dequeued after %d", c[0], c[1], last[c[0]])
		}
		last[c[0]] = int(c[1])
	}
}

func TestChunkQueue_ClearRacingEnqueue(t *testing.T) {
	q := New(1024)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for n := 0; n < 4; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = q.Enqueue(Chunk{1})
				}
			}
		}()
	}

	for n := 0; n < 100; n++ {
		q.Clear()
	}
	close(stop)
	wg.Wait()

	q.Clear()
	if q.Len() != 0 {
		t.Errorf("queue length after final Clear = %d, want 0", q.Len())
	}
}
