package spout

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Take after Close has drained the queue.
var ErrQueueClosed = errors.New("spout: hand-off queue closed")

// batchQueue is the unbounded FIFO hand-off between delivery callbacks
// (many producers) and the processing loop (single consumer). Order is
// preserved per producer; Take blocks until an item arrives, the queue is
// closed, or ctx is cancelled.
type batchQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*BatchTuple
	closed bool
}

func newBatchQueue() *batchQueue {
	q := &batchQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Put appends a tuple. It reports false once the queue has been closed.
func (q *batchQueue) Put(b *BatchTuple) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, b)
	q.cond.Signal()
	return true
}

func (q *batchQueue) Take(ctx context.Context) (*BatchTuple, error) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q.cond.Wait()
	}
	if q.closed {
		return nil, ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return b, nil
}

// Close marks the queue closed and wakes every blocked Take. Idempotent.
func (q *batchQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *batchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
