// Package queue holds pending audio chunks between the HTTP producers and the
// transcription worker.
package queue

import (
	"context"
	"errors"
	"sync"
)

// Chunk is one raw PCM buffer. Ownership passes to the queue on Enqueue and
// to the caller of Dequeue.
type Chunk []byte

var (
	ErrQueueFull  = errors.New("chunk queue is full")
	ErrEmptyChunk = errors.New("empty chunk")
	// ErrStopped is returned by Dequeue when the stop channel closed before a
	// chunk arrived. Callers should re-check whatever closed it and wait again.
	ErrStopped = errors.New("dequeue stopped")
)

// ChunkQueue is a bounded FIFO. The buffered channel is both the storage and
// the wake-up signal, so an Enqueue can never be missed by a waiting Dequeue.
//
// mu serializes Enqueue against Clear: a Clear that returns has drained
// everything enqueued before it started.
type ChunkQueue struct {
	mu sync.Mutex
	ch chan Chunk
}

func New(capacity int) *ChunkQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ChunkQueue{
		ch: make(chan Chunk, capacity),
	}
}

// Enqueue appends c without blocking.
func (q *ChunkQueue) Enqueue(c Chunk) error {
	if len(c) == 0 {
		return ErrEmptyChunk
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	select {
	case q.ch <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until a chunk is available, stop is closed, or ctx is done.
// A nil stop channel never fires.
func (q *ChunkQueue) Dequeue(ctx context.Context, stop <-chan struct{}) (Chunk, error) {
	select {
	case c := <-q.ch:
		return c, nil
	case <-stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Clear discards every pending chunk and returns how many were dropped.
func (q *ChunkQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

func (q *ChunkQueue) Len() int {
	return len(q.ch)
}

func (q *ChunkQueue) Cap() int {
	return cap(q.ch)
}
