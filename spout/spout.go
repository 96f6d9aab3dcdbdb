package spout

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wxyBUPT/rocketmq-storm/internal/logging"
	"github.com/wxyBUPT/rocketmq-storm/mq"
)

// BatchSpout ties a queue-client driver to a Coordinator and exposes the
// pull side to the processing loop. Lifecycle: Open starts consumption,
// Deactivate/Activate pause and resume it, Close drains every pending
// batch and releases the driver.
type BatchSpout struct {
	consumer mq.Consumer
	coord    *Coordinator
	name     string
}

func New(consumer mq.Consumer, maxFailTimes int, name string) *BatchSpout {
	return &BatchSpout{
		consumer: consumer,
		coord:    NewCoordinator(maxFailTimes),
		name:     name,
	}
}

// Open registers the coordinator's delivery callback with the queue
// client under the given consumer identity and starts consumption.
// A failure here is fatal; the spout is unusable afterwards.
func (s *BatchSpout) Open(ctx context.Context, consumerID string) error {
	if err := s.consumer.Init(ctx, s.coord.Deliver, consumerID); err != nil {
		return fmt.Errorf("spout %s: init consumer: %w", s.name, err)
	}
	logging.L().Info("spout opened", "spout", s.name, "consumer_id", consumerID)
	return nil
}

func (s *BatchSpout) Activate()   { s.consumer.Resume() }
func (s *BatchSpout) Deactivate() { s.consumer.Pause() }

// NextBatch blocks until the next batch is available for emission.
func (s *BatchSpout) NextBatch(ctx context.Context) (*BatchTuple, error) {
	return s.coord.NextBatch(ctx)
}

func (s *BatchSpout) Ack(id uuid.UUID)  { s.coord.Ack(id) }
func (s *BatchSpout) Fail(id uuid.UUID) { s.coord.Fail(id) }

// Partitions reports the queue client's current assignment.
func (s *BatchSpout) Partitions() ([]mq.Queue, error) {
	return s.consumer.Partitions()
}

// Close force-fails all pending batches, releasing every blocked
// delivery callback, then cleans up the queue client.
func (s *BatchSpout) Close() error {
	s.coord.Shutdown()
	if err := s.consumer.Cleanup(); err != nil {
		return fmt.Errorf("spout %s: cleanup consumer: %w", s.name, err)
	}
	logging.L().Info("spout closed", "spout", s.name)
	return nil
}

// Coordinator exposes the underlying coordinator, mainly for tests and
// for adapters that need direct access to Deliver.
func (s *BatchSpout) Coordinator() *Coordinator { return s.coord }
