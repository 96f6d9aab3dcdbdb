// Package spout implements the batch-acknowledgment coordinator: it
// adapts the queue client's push-based delivery callbacks into a
// pull-based processing loop, tracking every in-flight batch until it is
// acknowledged, retried, or terminally failed.
package spout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/wxyBUPT/rocketmq-storm/mq"
)

// BatchStat carries derived metadata about a batch. It is computed once
// at creation and re-emitted unchanged on every retry.
type BatchStat struct {
	MsgCount  int
	ByteSize  int64
	FirstOffs int64
	Tag       string
}

// BatchTuple is the unit of delivery and of acknowledgment. One tuple
// corresponds to one delivery-callback invocation; its ID is the sole
// correlation key between the processing loop and the coordinator.
type BatchTuple struct {
	id    uuid.UUID
	msgs  []*mq.Message
	queue mq.Queue
	stat  BatchStat

	failureTimes atomic.Int32

	once    sync.Once
	done    chan struct{}
	success atomic.Bool
}

func newBatchTuple(msgs []*mq.Message, q mq.Queue) *BatchTuple {
	b := &BatchTuple{
		id:    uuid.New(),
		msgs:  msgs,
		queue: q,
		done:  make(chan struct{}),
	}
	b.stat = buildStat(msgs, q)
	return b
}

func buildStat(msgs []*mq.Message, q mq.Queue) BatchStat {
	var bytes int64
	for _, m := range msgs {
		bytes += int64(len(m.Key) + len(m.Value))
	}
	first := int64(-1)
	if len(msgs) > 0 {
		first = msgs[0].Offset
	}
	return BatchStat{
		MsgCount:  len(msgs),
		ByteSize:  bytes,
		FirstOffs: first,
		Tag:       fmt.Sprintf("%s@%d+%d", q, first, len(msgs)),
	}
}

func (b *BatchTuple) ID() uuid.UUID       { return b.id }
func (b *BatchTuple) Msgs() []*mq.Message { return b.msgs }
func (b *BatchTuple) Queue() mq.Queue     { return b.queue }
func (b *BatchTuple) Stat() BatchStat     { return b.stat }

// FailureTimes reports how often the processing loop has failed this batch.
func (b *BatchTuple) FailureTimes() int { return int(b.failureTimes.Load()) }

// succeed and fail resolve the tuple exactly once; later calls are no-ops.
func (b *BatchTuple) succeed() {
	b.once.Do(func() {
		b.success.Store(true)
		close(b.done)
	})
}

func (b *BatchTuple) fail() {
	b.once.Do(func() {
		close(b.done)
	})
}

// WaitFinish blocks the delivering goroutine until the tuple reaches a
// terminal outcome or ctx is cancelled. It returns the verdict; a
// cancelled wait counts as failure.
func (b *BatchTuple) WaitFinish(ctx context.Context) (bool, error) {
	select {
	case <-b.done:
		return b.success.Load(), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Finished reports whether the tuple has reached a terminal outcome.
func (b *BatchTuple) Finished() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *BatchTuple) String() string {
	return fmt.Sprintf("batch %s %s fails=%d", b.id, b.stat.Tag, b.failureTimes.Load())
}
