package spout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wxyBUPT/rocketmq-storm/internal/logging"
	"github.com/wxyBUPT/rocketmq-storm/internal/telemetry"
	"github.com/wxyBUPT/rocketmq-storm/mq"
)

// Coordinator owns the pending registry and the hand-off queue. Delivery
// callbacks produce into it, the processing loop consumes from it, and
// Ack/Fail resolve the blocked callers.
//
// A tuple is present in the registry exactly while its outcome is
// pending; registry removal is the single arbitration point between the
// Ack, terminal-Fail, and Shutdown paths.
type Coordinator struct {
	maxFailTimes int
	queue        *batchQueue

	mu      sync.Mutex
	pending map[uuid.UUID]*BatchTuple
}

// NewCoordinator builds a coordinator. maxFailTimes bounds the number of
// Fail calls per batch before the failure becomes terminal; a negative
// value means unlimited retries.
func NewCoordinator(maxFailTimes int) *Coordinator {
	return &Coordinator{
		maxFailTimes: maxFailTimes,
		queue:        newBatchQueue(),
		pending:      make(map[uuid.UUID]*BatchTuple),
	}
}

// Deliver is the delivery callback body, invoked concurrently by the
// queue client (one goroutine per partition). It registers and enqueues
// the batch, then blocks until the batch reaches a terminal outcome, and
// returns the verdict the queue client reports against the partition.
//
// Blocking here is deliberate: a partition cannot submit its next batch
// until the previous one resolves, so its consumption offset never
// advances past an unresolved batch.
func (c *Coordinator) Deliver(ctx context.Context, msgs []*mq.Message, q mq.Queue) bool {
	if len(msgs) == 0 {
		return true
	}

	b := newBatchTuple(msgs, q)

	c.mu.Lock()
	c.pending[b.id] = b
	c.mu.Unlock()

	telemetry.BatchesDelivered.Inc()
	telemetry.PendingBatches.Inc()

	if !c.queue.Put(b) {
		// shut down between registration and enqueue
		if c.take(b.id) != nil {
			telemetry.PendingBatches.Dec()
		}
		return false
	}
	logging.L().Debug("batch delivered", "batch", b.stat.Tag, "id", b.id)

	ok, err := b.WaitFinish(ctx)
	if err != nil {
		if removed := c.take(b.id); removed != nil {
			telemetry.PendingBatches.Dec()
		}
		logging.L().Warn("delivery wait cancelled", "batch", b.stat.Tag, "id", b.id)
		return false
	}
	return ok
}

// NextBatch blocks until a batch is available for the processing loop,
// the coordinator shuts down, or ctx is cancelled.
func (c *Coordinator) NextBatch(ctx context.Context) (*BatchTuple, error) {
	return c.queue.Take(ctx)
}

// Ack resolves the batch as succeeded and releases its delivery
// callback. Unknown ids (duplicate or late acks) are logged and ignored.
func (c *Coordinator) Ack(id uuid.UUID) {
	b := c.take(id)
	if b == nil {
		logging.L().Warn("ack for unknown batch", "id", id)
		return
	}
	telemetry.BatchesAcked.Inc()
	telemetry.PendingBatches.Dec()
	b.succeed()
}

// Fail records a processing failure. While the failure count stays within
// maxFailTimes (or always, when maxFailTimes is negative) the batch is
// re-queued under the same id for another attempt; past the limit it is
// resolved as terminally failed and its callback released.
func (c *Coordinator) Fail(id uuid.UUID) {
	c.mu.Lock()
	b := c.pending[id]
	c.mu.Unlock()
	if b == nil {
		logging.L().Warn("fail for unknown batch", "id", id)
		return
	}

	n := int(b.failureTimes.Add(1))
	if c.maxFailTimes < 0 || n <= c.maxFailTimes {
		if c.queue.Put(b) {
			telemetry.BatchesRetried.Inc()
			logging.L().Info("batch re-queued", "batch", b.stat.Tag, "id", id, "failures", n)
			return
		}
		// queue closed under us; fall through to terminal failure
	} else {
		logging.L().Info("batch dropped after retries", "batch", b.stat.Tag, "id", id, "failures", n)
	}

	if b = c.take(id); b != nil {
		telemetry.BatchesFailed.Inc()
		telemetry.PendingBatches.Dec()
		b.fail()
	}
}

// Shutdown closes the hand-off queue and force-fails every still-pending
// batch so that no delivery callback stays blocked. Safe to call
// concurrently with Ack and Fail; each batch is resolved by exactly one
// path.
func (c *Coordinator) Shutdown() {
	c.queue.Close()

	c.mu.Lock()
	drained := make([]*BatchTuple, 0, len(c.pending))
	for _, b := range c.pending {
		drained = append(drained, b)
	}
	c.pending = make(map[uuid.UUID]*BatchTuple)
	c.mu.Unlock()

	for _, b := range drained {
		telemetry.BatchesFailed.Inc()
		telemetry.PendingBatches.Dec()
		b.fail()
	}
	if len(drained) > 0 {
		logging.L().Info("shutdown drained pending batches", "count", len(drained))
	}
}

// Pending reports the number of batches awaiting a terminal outcome.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// QueueLen reports the number of batches waiting in the hand-off queue.
func (c *Coordinator) QueueLen() int { return c.queue.Len() }

// take removes and returns the pending entry, or nil if id is not
// registered.
func (c *Coordinator) take(id uuid.UUID) *BatchTuple {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.pending[id]
	if b != nil {
		delete(c.pending, id)
	}
	return b
}
